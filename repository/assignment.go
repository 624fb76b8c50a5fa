package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erhaops/workshop-core/repository/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignWorker links a worker to a job with the given role. The pair
// (job, worker) is unique; assigning an already-assigned worker replaces
// the role. Assignment never advances the job by itself — the state
// machine checks assignment counts at transition time.
func (r *Repository) AssignWorker(jobID, workerID string, role models.AssignmentRole) (*models.JobAssignment, *RepositoryError) {
	if !models.ValidRole(role) {
		return nil, validationError("Invalid role", fmt.Sprintf("Role must be one of LEAD, ARTISAN, HELPER, APPRENTICE; got %q", role))
	}

	dbTx := r.db.Begin()

	if repoErr := requireJob(dbTx, jobID); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}
	if repoErr := requireWorker(dbTx, workerID); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	assignment := models.JobAssignment{
		JobID:      jobID,
		WorkerID:   workerID,
		Role:       role,
		AssignedAt: time.Now(),
	}
	err := dbTx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "worker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "assigned_at"}),
	}).Create(&assignment).Error
	if err != nil {
		dbTx.Rollback()
		return nil, databaseError(err)
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, databaseError(err)
	}
	return &assignment, nil
}

// RemoveAssignment deletes the (job, worker) pair. Removing the last
// assignment of a job already past NEW is allowed; the time ledger keeps
// the audit trail.
func (r *Repository) RemoveAssignment(jobID, workerID string) *RepositoryError {
	res := r.db.Where("job_id = ? AND worker_id = ?", jobID, workerID).Delete(&models.JobAssignment{})
	if res.Error != nil {
		return databaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("Assignment does not exist",
			fmt.Sprintf("Worker %s is not assigned to job %s", workerID, jobID))
	}
	return nil
}

// ListAssignments returns the current assignments for a job, workers
// preloaded for display.
func (r *Repository) ListAssignments(jobID string) ([]models.JobAssignment, *RepositoryError) {
	if repoErr := requireJob(r.db, jobID); repoErr != nil {
		return nil, repoErr
	}
	var assignments []models.JobAssignment
	err := r.db.Preload("Worker").Where("job_id = ?", jobID).
		Order("assigned_at ASC").Find(&assignments).Error
	if err != nil {
		return nil, databaseError(err)
	}
	return assignments, nil
}

// ListWorkers returns the full worker directory.
func (r *Repository) ListWorkers() ([]models.Worker, *RepositoryError) {
	var workers []models.Worker
	if err := r.db.Order("employee_code ASC").Find(&workers).Error; err != nil {
		return nil, databaseError(err)
	}
	return workers, nil
}

// LogTimeEntry appends one line to the time ledger. Hours must be
// non-negative; the entry is immutable once written.
func (r *Repository) LogTimeEntry(jobID, workerID string, workDate time.Time, normalHours, overtimeHours float64, notes string) (*models.TimeEntry, *RepositoryError) {
	if normalHours < 0 || overtimeHours < 0 {
		return nil, validationError("Hours cannot be negative",
			fmt.Sprintf("normalHours=%.2f overtimeHours=%.2f", normalHours, overtimeHours))
	}
	if workDate.IsZero() {
		return nil, validationError("Work date is required", "workDate must be a valid date")
	}

	dbTx := r.db.Begin()

	if repoErr := requireJob(dbTx, jobID); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}
	if repoErr := requireWorker(dbTx, workerID); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	entry := models.TimeEntry{
		ID:            "TE-" + strings.ToUpper(uuid.NewString()[:8]),
		JobID:         jobID,
		WorkerID:      workerID,
		WorkDate:      workDate,
		NormalHours:   normalHours,
		OvertimeHours: overtimeHours,
		Notes:         notes,
	}
	if err := dbTx.Create(&entry).Error; err != nil {
		dbTx.Rollback()
		return nil, databaseError(err)
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, databaseError(err)
	}
	return &entry, nil
}

// ListTimeEntries returns a job's time ledger, newest first.
func (r *Repository) ListTimeEntries(jobID string) ([]models.TimeEntry, *RepositoryError) {
	if repoErr := requireJob(r.db, jobID); repoErr != nil {
		return nil, repoErr
	}
	var entries []models.TimeEntry
	err := r.db.Preload("Worker").Where("job_id = ?", jobID).
		Order("work_date DESC, created_at DESC").Find(&entries).Error
	if err != nil {
		return nil, databaseError(err)
	}
	return entries, nil
}

func requireJob(dbTx *gorm.DB, jobID string) *RepositoryError {
	var job models.Job
	err := dbTx.Select("job_id").Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("Job does not exist", fmt.Sprintf("Job with id %s does not exist", jobID))
		}
		return databaseError(err)
	}
	return nil
}

// requireWorker resolves a worker id against the directory. An unknown id
// is a validation failure, not a 404: the job is the addressed resource.
func requireWorker(dbTx *gorm.DB, workerID string) *RepositoryError {
	var worker models.Worker
	err := dbTx.Select("worker_id").Where("worker_id = ?", workerID).First(&worker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationError("Unknown worker",
				fmt.Sprintf("Worker with id %s does not exist in the directory", workerID))
		}
		return databaseError(err)
	}
	return nil
}
