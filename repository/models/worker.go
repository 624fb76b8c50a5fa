package models

// Worker types. The directory also carries contract and trial variants
// upstream; only these two reach the workshop floor.
const (
	WorkerPermanent = "PERMANENT"
	WorkerCasual    = "CASUAL"
)

// Worker represents an entry in the worker directory. Reference data only:
// the workshop core reads it to validate assignments and signatures but
// never writes it.
type Worker struct {
	ID                string  `gorm:"column:worker_id;primaryKey;type:varchar(50)"`
	EmployeeCode      string  `gorm:"column:employee_code;type:varchar(20);uniqueIndex;not null"`
	FirstName         string  `gorm:"column:first_name;type:varchar(50);not null"`
	LastName          string  `gorm:"column:last_name;type:varchar(50);not null"`
	Department        string  `gorm:"column:department;type:varchar(50)"`
	WorkerType        string  `gorm:"column:worker_type;type:varchar(20);default:'PERMANENT'"`
	CurrentHourlyRate float64 `gorm:"column:current_hourly_rate;type:decimal(10,2)"`

	// Relationships
	Assignments []JobAssignment `gorm:"foreignKey:WorkerID"`
	TimeEntries []TimeEntry     `gorm:"foreignKey:WorkerID"`
}

// FullName is the display name used on kanban cards and sign-offs.
func (w *Worker) FullName() string {
	return w.FirstName + " " + w.LastName
}
