package models

import "time"

// HoldingPoint is one checkpoint in the globally ordered QC inspection
// sequence. The catalog is administrator-managed: points may be activated
// or retired, never reordered at runtime. Per-job signoff boards snapshot
// the active set at initialization time, so retiring a point does not
// touch jobs already in progress.
type HoldingPoint struct {
	ID             string    `gorm:"column:holding_point_id;primaryKey;type:varchar(50)"`
	SequenceNumber int       `gorm:"column:sequence_number;uniqueIndex;not null"`
	Name           string    `gorm:"column:name;type:varchar(100);not null"`
	Description    string    `gorm:"column:description;type:text"`
	IsActive       bool      `gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
