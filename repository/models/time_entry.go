package models

import "time"

// TimeEntry is one line of the append-only time ledger. Entries are never
// mutated after creation; corrections are recorded as new entries.
type TimeEntry struct {
	ID            string    `gorm:"column:time_entry_id;primaryKey;type:varchar(50)"`
	JobID         string    `gorm:"column:job_id;type:varchar(50);index;not null"`
	Job           *Job      `gorm:"foreignKey:JobID"`
	WorkerID      string    `gorm:"column:worker_id;type:varchar(50);index;not null"`
	Worker        *Worker   `gorm:"foreignKey:WorkerID"`
	WorkDate      time.Time `gorm:"column:work_date;not null"`
	NormalHours   float64   `gorm:"column:normal_hours;type:decimal(5,2);not null"`
	OvertimeHours float64   `gorm:"column:overtime_hours;type:decimal(5,2);not null"`
	Notes         string    `gorm:"column:notes;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
