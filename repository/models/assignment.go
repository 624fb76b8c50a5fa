package models

import "time"

// AssignmentRole describes a worker's function on a job.
type AssignmentRole string

const (
	RoleLead       AssignmentRole = "LEAD"
	RoleArtisan    AssignmentRole = "ARTISAN"
	RoleHelper     AssignmentRole = "HELPER"
	RoleApprentice AssignmentRole = "APPRENTICE"
)

// ValidRole reports whether r is one of the four workshop roles.
func ValidRole(r AssignmentRole) bool {
	switch r {
	case RoleLead, RoleArtisan, RoleHelper, RoleApprentice:
		return true
	}
	return false
}

// JobAssignment links a worker to a job with a single role. The composite
// primary key keeps a worker to one row per job; re-assigning replaces the
// role rather than adding a pair.
type JobAssignment struct {
	JobID      string         `gorm:"column:job_id;primaryKey;type:varchar(50)"`
	Job        *Job           `gorm:"foreignKey:JobID"`
	WorkerID   string         `gorm:"column:worker_id;primaryKey;type:varchar(50)"`
	Worker     *Worker        `gorm:"foreignKey:WorkerID"`
	Role       AssignmentRole `gorm:"column:role;type:varchar(20);not null"`
	AssignedAt time.Time      `gorm:"column:assigned_at;autoCreateTime"`
}
