package repository

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/erhaops/workshop-core/repository/models"
	"gorm.io/gorm"
)

// statusOrder is the fixed forward-only pipeline. advance moves a job one
// slot to the right; nothing moves it left.
var statusOrder = []models.WorkshopStatus{
	models.StatusNew,
	models.StatusAssigned,
	models.StatusInProgress,
	models.StatusQcInProgress,
	models.StatusReadyForDelivery,
}

// nextStatus returns the status after current, or false when the job is
// already at the end of the pipeline.
func nextStatus(current models.WorkshopStatus) (models.WorkshopStatus, bool) {
	for i, s := range statusOrder {
		if s == current && i+1 < len(statusOrder) {
			return statusOrder[i+1], true
		}
	}
	return "", false
}

// KanbanJob is one card on the workshop board.
type KanbanJob struct {
	JobID                string                `json:"jobId"`
	JobNumber            string                `json:"jobNumber"`
	Description          string                `json:"description"`
	WorkshopStatus       models.WorkshopStatus `json:"workshopStatus"`
	Priority             string                `json:"priority"`
	ClientName           string                `json:"clientName"`
	OrderNumber          *string               `json:"orderNumber"`
	QuoteNumber          *string               `json:"quoteNumber"`
	ExpectedDeliveryDate *time.Time            `json:"expectedDeliveryDate"`
	WorkerCount          int                   `json:"workerCount"`
	QcProgress           int                   `json:"qcProgress"`
	TotalHoursLogged     float64               `json:"totalHoursLogged"`
}

// KanbanBoard partitions every job into the five pipeline buckets. It is a
// pure projection of workshop_status at read time; nothing is cached.
type KanbanBoard struct {
	New              []KanbanJob `json:"NEW"`
	Assigned         []KanbanJob `json:"ASSIGNED"`
	InProgress       []KanbanJob `json:"IN_PROGRESS"`
	QcInProgress     []KanbanJob `json:"QC_IN_PROGRESS"`
	ReadyForDelivery []KanbanJob `json:"READY_FOR_DELIVERY"`
}

// GetJob fetches a single job with its assignments, ledgers, signoff board
// and completion record.
func (r *Repository) GetJob(jobID string) (*models.Job, *RepositoryError) {
	var job models.Job
	err := r.db.
		Preload("Assignments").Preload("Assignments.Worker").
		Preload("TimeEntries").Preload("TimeEntries.Worker").
		Preload("Signoffs", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_number ASC") }).
		Preload("Signoffs.HoldingPoint").
		Preload("Completion").
		Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Job does not exist", fmt.Sprintf("Job with id %s does not exist", jobID))
		}
		return nil, databaseError(err)
	}
	return &job, nil
}

// CreateJob registers a job record. Job intake normally happens upstream in
// the quoting system; this exists for development and workshop-only work.
func (r *Repository) CreateJob(job *models.Job) (*models.Job, *RepositoryError) {
	if job.ID == "" || job.JobNumber == "" {
		return nil, validationError("Job id and number are required", "both id and jobNumber must be provided")
	}
	if job.WorkshopStatus == "" {
		job.WorkshopStatus = models.StatusNew
	}
	if job.Priority == "" {
		job.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(job.Priority) {
		return nil, validationError("Invalid priority",
			fmt.Sprintf("Priority must be one of LOW, MEDIUM, HIGH, URGENT; got %q", job.Priority))
	}
	if err := r.db.Create(job).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, &RepositoryError{
				Code:    ErrCodeValidation,
				Message: "Job already exists",
				Detail:  fmt.Sprintf("A job with id %s or number %s already exists", job.ID, job.JobNumber),
			}
		}
		return nil, databaseError(err)
	}
	return job, nil
}

// AdvanceJob moves a job one step along the pipeline. Preconditions are
// checked against the target state: every target up to and including
// QC_IN_PROGRESS requires at least one active assignment,
// READY_FOR_DELIVERY requires a completion record. The status update itself is guarded on the current status, so a
// concurrent advance collapses to one winner.
func (r *Repository) AdvanceJob(jobID string) (*models.Job, *RepositoryError) {
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

	target, ok := nextStatus(job.WorkshopStatus)
	if !ok {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidTransition,
			Message: "Job is already at the end of the pipeline",
			Detail:  fmt.Sprintf("Job %s is READY_FOR_DELIVERY and cannot advance further", jobID),
		}
	}

	if repoErr := r.checkTransitionPreconditions(dbTx, &job, target); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	res := dbTx.Model(&models.Job{}).
		Where("job_id = ? AND workshop_status = ?", jobID, job.WorkshopStatus).
		Update("workshop_status", target)
	if res.Error != nil {
		dbTx.Rollback()
		return nil, databaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race with a concurrent advance.
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidTransition,
			Message: "Job status changed concurrently",
			Detail:  fmt.Sprintf("Job %s is no longer %s", jobID, job.WorkshopStatus),
		}
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, databaseError(err)
	}

	r.recordStatusChange(jobID, job.WorkshopStatus, target)

	job.WorkshopStatus = target
	return &job, nil
}

// checkTransitionPreconditions validates that the target state's entry
// requirements hold. READY_FOR_DELIVERY is reachable only through
// CompleteJob; a bare advance into it is rejected unless the completion
// record already exists (which CompleteJob writes in the same transaction
// as its own status update, so this path only matters for recovery).
func (r *Repository) checkTransitionPreconditions(dbTx *gorm.DB, job *models.Job, target models.WorkshopStatus) *RepositoryError {
	switch target {
	case models.StatusAssigned, models.StatusInProgress, models.StatusQcInProgress:
		var count int64
		if err := dbTx.Model(&models.JobAssignment{}).Where("job_id = ?", job.ID).Count(&count).Error; err != nil {
			return databaseError(err)
		}
		if count == 0 {
			return &RepositoryError{
				Code:    ErrCodeInvalidTransition,
				Message: "Job has no assigned workers",
				Detail:  fmt.Sprintf("At least one worker must be assigned before the job can move to %s", target),
			}
		}
	case models.StatusReadyForDelivery:
		var count int64
		if err := dbTx.Model(&models.JobCompletion{}).Where("job_id = ?", job.ID).Count(&count).Error; err != nil {
			return databaseError(err)
		}
		if count == 0 {
			return &RepositoryError{
				Code:    ErrCodeInvalidTransition,
				Message: "Job has not been signed off",
				Detail:  "A completion record with both signatures is required before READY_FOR_DELIVERY",
			}
		}
	}
	return nil
}

func (r *Repository) recordStatusChange(jobID string, from, to models.WorkshopStatus) {
	if r.journal == nil {
		return
	}
	if err := r.journal.RecordStatusChange(jobID, from, to); err != nil {
		log.Printf("Error journaling status change for %s: %v", jobID, err)
	}
}

// GetKanbanBoard builds the five-bucket board with per-card aggregates:
// assigned worker count, QC percent complete and total hours logged.
func (r *Repository) GetKanbanBoard() (*KanbanBoard, *RepositoryError) {
	var jobs []models.Job
	if err := r.db.Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, databaseError(err)
	}

	workerCounts, repoErr := r.countByJob(&models.JobAssignment{}, "job_id, count(*) as n")
	if repoErr != nil {
		return nil, repoErr
	}

	hours := map[string]float64{}
	{
		type row struct {
			JobID string
			Total float64
		}
		var rows []row
		err := r.db.Model(&models.TimeEntry{}).
			Select("job_id, sum(normal_hours + overtime_hours) as total").
			Group("job_id").Scan(&rows).Error
		if err != nil {
			return nil, databaseError(err)
		}
		for _, rw := range rows {
			hours[rw.JobID] = rw.Total
		}
	}

	type qcRow struct {
		JobID  string
		Status models.SignoffStatus
		N      int
	}
	var qcRows []qcRow
	err := r.db.Model(&models.QcSignoff{}).
		Select("job_id, status, count(*) as n").
		Group("job_id").Group("status").Scan(&qcRows).Error
	if err != nil {
		return nil, databaseError(err)
	}
	qcPassed := map[string]int{}
	qcRequired := map[string]int{}
	for _, rw := range qcRows {
		if rw.Status == models.SignoffNotApplicable {
			continue
		}
		qcRequired[rw.JobID] += rw.N
		if rw.Status == models.SignoffPassed {
			qcPassed[rw.JobID] += rw.N
		}
	}

	board := &KanbanBoard{
		New:              []KanbanJob{},
		Assigned:         []KanbanJob{},
		InProgress:       []KanbanJob{},
		QcInProgress:     []KanbanJob{},
		ReadyForDelivery: []KanbanJob{},
	}
	for _, job := range jobs {
		qcPercent := 0
		if qcRequired[job.ID] > 0 {
			qcPercent = 100 * qcPassed[job.ID] / qcRequired[job.ID]
		}
		card := KanbanJob{
			JobID:                job.ID,
			JobNumber:            job.JobNumber,
			Description:          job.Description,
			WorkshopStatus:       job.WorkshopStatus,
			Priority:             job.Priority,
			ClientName:           job.ClientName,
			OrderNumber:          job.OrderNumber,
			QuoteNumber:          job.QuoteNumber,
			ExpectedDeliveryDate: job.ExpectedDeliveryDate,
			WorkerCount:          workerCounts[job.ID],
			QcProgress:           qcPercent,
			TotalHoursLogged:     hours[job.ID],
		}
		switch job.WorkshopStatus {
		case models.StatusNew:
			board.New = append(board.New, card)
		case models.StatusAssigned:
			board.Assigned = append(board.Assigned, card)
		case models.StatusInProgress:
			board.InProgress = append(board.InProgress, card)
		case models.StatusQcInProgress:
			board.QcInProgress = append(board.QcInProgress, card)
		case models.StatusReadyForDelivery:
			board.ReadyForDelivery = append(board.ReadyForDelivery, card)
		}
	}
	return board, nil
}

func (r *Repository) countByJob(model interface{}, sel string) (map[string]int, *RepositoryError) {
	type row struct {
		JobID string
		N     int
	}
	var rows []row
	if err := r.db.Model(model).Select(sel).Group("job_id").Scan(&rows).Error; err != nil {
		return nil, databaseError(err)
	}
	out := make(map[string]int, len(rows))
	for _, rw := range rows {
		out[rw.JobID] = rw.N
	}
	return out, nil
}
