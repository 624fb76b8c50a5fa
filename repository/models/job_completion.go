package models

import "time"

// JobCompletion is the dual-signature record that finalizes a job. JobID is
// the primary key, so the database enforces at most one completion per job
// even under racing requests. Immutable once created.
type JobCompletion struct {
	JobID           string    `gorm:"column:job_id;primaryKey;type:varchar(50)"`
	Job             *Job      `gorm:"foreignKey:JobID"`
	QcInspectorID   string    `gorm:"column:qc_inspector_id;type:varchar(50);not null"`
	QcInspector     *Worker   `gorm:"foreignKey:QcInspectorID"`
	QcInspectorName string    `gorm:"column:qc_inspector_name;type:varchar(100)"`
	ShopManagerID   string    `gorm:"column:shop_manager_id;type:varchar(50);not null"`
	ShopManager     *Worker   `gorm:"foreignKey:ShopManagerID"`
	ShopManagerName string    `gorm:"column:shop_manager_name;type:varchar(100)"`
	Notes           string    `gorm:"column:notes;type:text"`
	CompletedAt     time.Time `gorm:"column:completed_at;autoCreateTime"`
}
