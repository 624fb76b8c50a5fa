package repository

import (
	"errors"
	"fmt"

	"github.com/erhaops/workshop-core/repository/models"
	"gorm.io/gorm"
)

// CompletionRequest carries the dual-signature sign-off. The two ids must
// be distinct as a segregation-of-duties control; names are display copies
// captured at signature time.
type CompletionRequest struct {
	QcInspectorID   string `json:"qcInspectorId"`
	QcInspectorName string `json:"qcInspectorName"`
	ShopManagerID   string `json:"shopManagerId"`
	ShopManagerName string `json:"shopManagerName"`
	Notes           string `json:"notes"`
}

// CompleteJob finalizes a job: both signatory ids must resolve to distinct
// workers, the QC board must report complete at the instant of the call,
// and the job must currently be in QC_IN_PROGRESS. On success the single
// completion record is created and the job advances to READY_FOR_DELIVERY
// in the same database transaction — there is no other path into that
// state. The primary key on job_id makes completion exactly-once even when
// two sign-offs race.
func (r *Repository) CompleteJob(jobID string, req CompletionRequest) (*models.JobCompletion, *RepositoryError) {
	if req.QcInspectorID == "" || req.ShopManagerID == "" {
		return nil, validationError("Both signatures are required",
			"qcInspectorId and shopManagerId must both be provided")
	}
	if req.QcInspectorID == req.ShopManagerID {
		return nil, validationError("Signatories must be different workers",
			"The QC inspector and shop manager signatures must come from distinct worker ids")
	}

	dbTx := r.db.Begin()

	var job models.Job
	err := dbTx.Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		dbTx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Job does not exist", fmt.Sprintf("Job with id %s does not exist", jobID))
		}
		return nil, databaseError(err)
	}

	if repoErr := requireWorker(dbTx, req.QcInspectorID); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}
	if repoErr := requireWorker(dbTx, req.ShopManagerID); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	progress, repoErr := progressTx(dbTx, jobID)
	if repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}
	if !progress.IsComplete {
		dbTx.Rollback()
		return nil, validationError("QC checklist is not complete",
			fmt.Sprintf("Job %s has %d pending and %d failed holding points", jobID, progress.Pending, progress.Failed))
	}

	completion := models.JobCompletion{
		JobID:           jobID,
		QcInspectorID:   req.QcInspectorID,
		QcInspectorName: req.QcInspectorName,
		ShopManagerID:   req.ShopManagerID,
		ShopManagerName: req.ShopManagerName,
		Notes:           req.Notes,
	}
	if err := dbTx.Create(&completion).Error; err != nil {
		dbTx.Rollback()
		if isDuplicateKey(err) {
			return nil, &RepositoryError{
				Code:    ErrCodeAlreadyCompleted,
				Message: "Job is already signed off",
				Detail:  fmt.Sprintf("A completion record already exists for job %s", jobID),
			}
		}
		return nil, databaseError(err)
	}

	res := dbTx.Model(&models.Job{}).
		Where("job_id = ? AND workshop_status = ?", jobID, models.StatusQcInProgress).
		Update("workshop_status", models.StatusReadyForDelivery)
	if res.Error != nil {
		dbTx.Rollback()
		return nil, databaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidTransition,
			Message: "Job is not in QC",
			Detail:  fmt.Sprintf("Job %s is %s; completion requires QC_IN_PROGRESS", jobID, job.WorkshopStatus),
		}
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, databaseError(err)
	}

	r.recordStatusChange(jobID, models.StatusQcInProgress, models.StatusReadyForDelivery)

	return &completion, nil
}

// GetCompletion returns a job's completion record, if it exists.
func (r *Repository) GetCompletion(jobID string) (*models.JobCompletion, *RepositoryError) {
	var completion models.JobCompletion
	err := r.db.Where("job_id = ?", jobID).First(&completion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Job has no completion record",
				fmt.Sprintf("Job %s has not been signed off", jobID))
		}
		return nil, databaseError(err)
	}
	return &completion, nil
}
