package models

import "time"

// SignoffStatus is the decision state of a single holding point on a job.
type SignoffStatus string

const (
	SignoffPending       SignoffStatus = "PENDING"
	SignoffPassed        SignoffStatus = "PASSED"
	SignoffFailed        SignoffStatus = "FAILED"
	SignoffNotApplicable SignoffStatus = "NOT_APPLICABLE"
)

// QcSignoff records the inspection result for one holding point on one job.
// Rows are created in bulk (PENDING) when the board is first initialized
// and decided one at a time; a decided row is never overwritten or deleted.
// SequenceNumber is copied from the holding point at snapshot time and is
// immutable afterwards.
type QcSignoff struct {
	ID             string        `gorm:"column:signoff_id;primaryKey;type:varchar(50)"`
	JobID          string        `gorm:"column:job_id;type:varchar(50);not null;uniqueIndex:idx_signoff_job_point"`
	Job            *Job          `gorm:"foreignKey:JobID"`
	HoldingPointID string        `gorm:"column:holding_point_id;type:varchar(50);not null;uniqueIndex:idx_signoff_job_point"`
	HoldingPoint   *HoldingPoint `gorm:"foreignKey:HoldingPointID"`
	SequenceNumber int           `gorm:"column:sequence_number;not null"`
	Status         SignoffStatus `gorm:"column:status;type:varchar(20);not null;default:'PENDING'"`
	Notes          string        `gorm:"column:notes;type:text"`
	SignedBy       *string       `gorm:"column:signed_by;type:varchar(50)"`
	SignedAt       *time.Time    `gorm:"column:signed_at"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
}
