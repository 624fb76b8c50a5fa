package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erhaops/workshop-core/repository/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QcProgress is the derived summary of a job's signoff board. Always
// computed from the rows on read, never stored, so it cannot drift.
type QcProgress struct {
	JobID           string `json:"jobId"`
	Total           int    `json:"total"`
	Passed          int    `json:"passed"`
	Failed          int    `json:"failed"`
	Pending         int    `json:"pending"`
	NotApplicable   int    `json:"notApplicable"`
	PercentComplete int    `json:"percentComplete"`
	IsComplete      bool   `json:"isComplete"`
}

// ListHoldingPoints returns the full catalog in sequence order, retired
// points included.
func (r *Repository) ListHoldingPoints() ([]models.HoldingPoint, *RepositoryError) {
	var points []models.HoldingPoint
	if err := r.db.Order("sequence_number ASC").Find(&points).Error; err != nil {
		return nil, databaseError(err)
	}
	return points, nil
}

// SetHoldingPointActive activates or retires a catalog point. Boards
// already snapshotted are unaffected; only future initializations see the
// change.
func (r *Repository) SetHoldingPointActive(holdingPointID string, active bool) (*models.HoldingPoint, *RepositoryError) {
	var point models.HoldingPoint
	err := r.db.Where("holding_point_id = ?", holdingPointID).First(&point).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Holding point does not exist",
				fmt.Sprintf("Holding point with id %s does not exist", holdingPointID))
		}
		return nil, databaseError(err)
	}
	if err := r.db.Model(&point).Update("is_active", active).Error; err != nil {
		return nil, databaseError(err)
	}
	point.IsActive = active
	return &point, nil
}

// InitializeSignoffs snapshots the active holding point catalog into
// PENDING signoff rows for the job. Idempotent: if any rows already exist
// they are returned unchanged, even if the catalog changed since the
// snapshot. Racing first-callers are collapsed by insert-if-absent on the
// (job, holding point) unique index.
func (r *Repository) InitializeSignoffs(jobID string) ([]models.QcSignoff, *RepositoryError) {
	dbTx := r.db.Begin()

	if repoErr := requireJob(dbTx, jobID); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	var existing int64
	if err := dbTx.Model(&models.QcSignoff{}).Where("job_id = ?", jobID).Count(&existing).Error; err != nil {
		dbTx.Rollback()
		return nil, databaseError(err)
	}

	if existing == 0 {
		var points []models.HoldingPoint
		err := dbTx.Where("is_active = ?", true).Order("sequence_number ASC").Find(&points).Error
		if err != nil {
			dbTx.Rollback()
			return nil, databaseError(err)
		}

		signoffs := make([]models.QcSignoff, 0, len(points))
		for _, point := range points {
			signoffs = append(signoffs, models.QcSignoff{
				ID:             signoffID(jobID, point.ID),
				JobID:          jobID,
				HoldingPointID: point.ID,
				SequenceNumber: point.SequenceNumber,
				Status:         models.SignoffPending,
			})
		}
		if len(signoffs) > 0 {
			err = dbTx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "job_id"}, {Name: "holding_point_id"}},
				DoNothing: true,
			}).Create(&signoffs).Error
			if err != nil {
				dbTx.Rollback()
				return nil, databaseError(err)
			}
		}
	}

	var rows []models.QcSignoff
	err := dbTx.Preload("HoldingPoint").Where("job_id = ?", jobID).
		Order("sequence_number ASC").Find(&rows).Error
	if err != nil {
		dbTx.Rollback()
		return nil, databaseError(err)
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, databaseError(err)
	}
	return rows, nil
}

// PassHoldingPoint marks a PENDING signoff as PASSED. Notes are optional.
// Returns the recomputed progress.
func (r *Repository) PassHoldingPoint(jobID, holdingPointID, signedBy, notes string) (*QcProgress, *RepositoryError) {
	return r.decideSignoff(jobID, holdingPointID, signedBy, notes, models.SignoffPassed)
}

// FailHoldingPoint marks a PENDING signoff as FAILED. Notes are mandatory:
// a failed checkpoint without a recorded reason is useless on the floor.
// A FAILED point does not block other points from being attempted, but it
// keeps the board from ever reporting complete.
func (r *Repository) FailHoldingPoint(jobID, holdingPointID, signedBy, notes string) (*QcProgress, *RepositoryError) {
	if strings.TrimSpace(notes) == "" {
		return nil, validationError("Notes are required when failing a checkpoint",
			"A justification must accompany every FAILED signoff")
	}
	return r.decideSignoff(jobID, holdingPointID, signedBy, notes, models.SignoffFailed)
}

// decideSignoff performs the guarded PENDING -> decided update. The WHERE
// clause on the current status serializes concurrent decisions: exactly
// one caller flips the row, the loser sees ALREADY_DECIDED.
func (r *Repository) decideSignoff(jobID, holdingPointID, signedBy, notes string, status models.SignoffStatus) (*QcProgress, *RepositoryError) {
	dbTx := r.db.Begin()

	if signedBy != "" {
		if repoErr := requireWorker(dbTx, signedBy); repoErr != nil {
			dbTx.Rollback()
			return nil, repoErr
		}
	}

	updates := map[string]interface{}{
		"status":    status,
		"notes":     notes,
		"signed_at": time.Now(),
	}
	if signedBy != "" {
		updates["signed_by"] = signedBy
	}

	res := dbTx.Model(&models.QcSignoff{}).
		Where("job_id = ? AND holding_point_id = ? AND status = ?", jobID, holdingPointID, models.SignoffPending).
		Updates(updates)
	if res.Error != nil {
		dbTx.Rollback()
		return nil, databaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		var row models.QcSignoff
		err := dbTx.Where("job_id = ? AND holding_point_id = ?", jobID, holdingPointID).First(&row).Error
		dbTx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &RepositoryError{
				Code:    ErrCodeUnknownSignoff,
				Message: "No signoff for this job and holding point",
				Detail:  fmt.Sprintf("Job %s has no signoff row for holding point %s; was the board initialized?", jobID, holdingPointID),
			}
		}
		if err != nil {
			return nil, databaseError(err)
		}
		return nil, &RepositoryError{
			Code:    ErrCodeAlreadyDecided,
			Message: "Checkpoint already decided",
			Detail:  fmt.Sprintf("Signoff for holding point %s is %s and cannot be overwritten", holdingPointID, row.Status),
		}
	}

	progress, repoErr := progressTx(dbTx, jobID)
	if repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, databaseError(err)
	}
	return progress, nil
}

// ListSignoffs returns a job's board in sequence order.
func (r *Repository) ListSignoffs(jobID string) ([]models.QcSignoff, *RepositoryError) {
	if repoErr := requireJob(r.db, jobID); repoErr != nil {
		return nil, repoErr
	}
	var rows []models.QcSignoff
	err := r.db.Preload("HoldingPoint").Where("job_id = ?", jobID).
		Order("sequence_number ASC").Find(&rows).Error
	if err != nil {
		return nil, databaseError(err)
	}
	return rows, nil
}

// GetProgress recomputes the board summary on demand. Callers must not
// cache the result across mutations.
func (r *Repository) GetProgress(jobID string) (*QcProgress, *RepositoryError) {
	if repoErr := requireJob(r.db, jobID); repoErr != nil {
		return nil, repoErr
	}
	return progressTx(r.db, jobID)
}

func progressTx(dbTx *gorm.DB, jobID string) (*QcProgress, *RepositoryError) {
	type row struct {
		Status models.SignoffStatus
		N      int
	}
	var rows []row
	err := dbTx.Model(&models.QcSignoff{}).
		Select("status, count(*) as n").
		Where("job_id = ?", jobID).
		Group("status").Scan(&rows).Error
	if err != nil {
		return nil, databaseError(err)
	}

	progress := &QcProgress{JobID: jobID}
	for _, rw := range rows {
		progress.Total += rw.N
		switch rw.Status {
		case models.SignoffPassed:
			progress.Passed += rw.N
		case models.SignoffFailed:
			progress.Failed += rw.N
		case models.SignoffPending:
			progress.Pending += rw.N
		case models.SignoffNotApplicable:
			progress.NotApplicable += rw.N
		}
	}

	required := progress.Total - progress.NotApplicable
	if required > 0 {
		progress.PercentComplete = 100 * progress.Passed / required
	} else if progress.Total > 0 {
		progress.PercentComplete = 100
	}
	progress.IsComplete = progress.Total > 0 && progress.Passed == required
	return progress, nil
}

// signoffID derives a stable id from the (job, holding point) pair, so
// racing initializations generate identical rows.
func signoffID(jobID, holdingPointID string) string {
	hash := sha256.Sum256([]byte(jobID + holdingPointID))
	return fmt.Sprintf("SO-%s", hex.EncodeToString(hash[:])[:16])
}
