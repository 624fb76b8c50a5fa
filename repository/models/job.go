package models

import "time"

// WorkshopStatus is a job's position in the five-stage production pipeline.
// Transitions only ever move forward, one stage at a time.
type WorkshopStatus string

const (
	StatusNew              WorkshopStatus = "NEW"
	StatusAssigned         WorkshopStatus = "ASSIGNED"
	StatusInProgress       WorkshopStatus = "IN_PROGRESS"
	StatusQcInProgress     WorkshopStatus = "QC_IN_PROGRESS"
	StatusReadyForDelivery WorkshopStatus = "READY_FOR_DELIVERY"
)

// Job priorities, in ascending order of urgency.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// ValidPriority reports whether p is one of the four job priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Job represents a fabrication job on the workshop floor
type Job struct {
	ID                   string         `gorm:"column:job_id;primaryKey;type:varchar(50)"`
	JobNumber            string         `gorm:"column:job_number;type:varchar(50);uniqueIndex;not null"`
	Description          string         `gorm:"column:description;type:text"`
	Priority             string         `gorm:"column:priority;type:varchar(20);default:'MEDIUM'"`
	WorkshopStatus       WorkshopStatus `gorm:"column:workshop_status;type:varchar(30);not null;default:'NEW'"`
	ClientName           string         `gorm:"column:client_name;type:varchar(100)"`
	OrderNumber          *string        `gorm:"column:order_number;type:varchar(50)"`
	QuoteNumber          *string        `gorm:"column:quote_number;type:varchar(50)"`
	ExpectedDeliveryDate *time.Time     `gorm:"column:expected_delivery_date"`
	CreatedAt            time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Assignments []JobAssignment `gorm:"foreignKey:JobID"`
	TimeEntries []TimeEntry     `gorm:"foreignKey:JobID"`
	Signoffs    []QcSignoff     `gorm:"foreignKey:JobID"`
	Completion  *JobCompletion  `gorm:"foreignKey:JobID"`
}
