package repository

import (
	"testing"

	"github.com/erhaops/workshop-core/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceRequiresAssignmentBeforeAssigned(t *testing.T) {
	repo := newTestRepository(t)

	_, repoErr := repo.AdvanceJob("JOB-2026-0041")
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeInvalidTransition, repoErr.Code)

	_, repoErr = repo.AssignWorker("JOB-2026-0041", "WKR-001", models.RoleLead)
	require.Nil(t, repoErr)

	job, repoErr := repo.AdvanceJob("JOB-2026-0041")
	require.Nil(t, repoErr)
	assert.Equal(t, models.StatusAssigned, job.WorkshopStatus)
}

func TestAdvanceWalksPipelineInOrder(t *testing.T) {
	repo := newTestRepository(t)
	jobID := "JOB-2026-0041"

	_, repoErr := repo.AssignWorker(jobID, "WKR-001", models.RoleLead)
	require.Nil(t, repoErr)

	expected := []models.WorkshopStatus{
		models.StatusAssigned,
		models.StatusInProgress,
		models.StatusQcInProgress,
	}
	for _, want := range expected {
		job, repoErr := repo.AdvanceJob(jobID)
		require.Nil(t, repoErr)
		assert.Equal(t, want, job.WorkshopStatus)
	}

	// READY_FOR_DELIVERY is only reachable through completion.
	_, repoErr = repo.AdvanceJob(jobID)
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeInvalidTransition, repoErr.Code)
}

func TestAdvanceBlockedWhenLastAssignmentRemoved(t *testing.T) {
	repo := newTestRepository(t)
	jobID := "JOB-2026-0041"

	_, repoErr := repo.AssignWorker(jobID, "WKR-001", models.RoleLead)
	require.Nil(t, repoErr)
	job, repoErr := repo.AdvanceJob(jobID)
	require.Nil(t, repoErr)
	require.Equal(t, models.StatusAssigned, job.WorkshopStatus)

	repoErr = repo.RemoveAssignment(jobID, "WKR-001")
	require.Nil(t, repoErr)

	// With no workers left the job cannot enter IN_PROGRESS.
	_, repoErr = repo.AdvanceJob(jobID)
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeInvalidTransition, repoErr.Code)

	job, repoErr = repo.GetJob(jobID)
	require.Nil(t, repoErr)
	assert.Equal(t, models.StatusAssigned, job.WorkshopStatus)

	// Re-assigning unblocks the advance.
	_, repoErr = repo.AssignWorker(jobID, "WKR-002", models.RoleArtisan)
	require.Nil(t, repoErr)
	job, repoErr = repo.AdvanceJob(jobID)
	require.Nil(t, repoErr)
	assert.Equal(t, models.StatusInProgress, job.WorkshopStatus)
}

func TestAdvanceUnknownJob(t *testing.T) {
	repo := newTestRepository(t)

	_, repoErr := repo.AdvanceJob("JOB-NOPE")
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeNotFound, repoErr.Code)
}

func TestAdvancePastEndOfPipeline(t *testing.T) {
	repo := newTestRepository(t)
	jobID := "JOB-2026-0041"

	advanceTo(t, repo, jobID, models.StatusQcInProgress)
	passAllHoldingPoints(t, repo, jobID)
	_, repoErr := repo.CompleteJob(jobID, CompletionRequest{
		QcInspectorID: "WKR-007", ShopManagerID: "WKR-005",
	})
	require.Nil(t, repoErr)

	_, repoErr = repo.AdvanceJob(jobID)
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeInvalidTransition, repoErr.Code)
}

func TestCreateJobValidation(t *testing.T) {
	repo := newTestRepository(t)

	_, repoErr := repo.CreateJob(&models.Job{ID: "JOB-X"})
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeValidation, repoErr.Code)

	_, repoErr = repo.CreateJob(&models.Job{ID: "JOB-X", JobNumber: "J-X", Priority: "BANANA"})
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeValidation, repoErr.Code)

	job, repoErr := repo.CreateJob(&models.Job{ID: "JOB-X", JobNumber: "J-X"})
	require.Nil(t, repoErr)
	assert.Equal(t, models.StatusNew, job.WorkshopStatus)
	assert.Equal(t, models.PriorityMedium, job.Priority)

	// Duplicate id is rejected.
	_, repoErr = repo.CreateJob(&models.Job{ID: "JOB-X", JobNumber: "J-Y"})
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeValidation, repoErr.Code)
}

func TestKanbanBoardBucketsAndAggregates(t *testing.T) {
	repo := newTestRepository(t)

	// JOB-2026-0041 goes to QC with one worker, some hours and a started
	// board; JOB-2026-0042 stays NEW.
	advanceTo(t, repo, "JOB-2026-0041", models.StatusQcInProgress)
	_, repoErr := repo.LogTimeEntry("JOB-2026-0041", "WKR-002", mustDate(t, "2026-08-24"), 8, 1.5, "")
	require.Nil(t, repoErr)

	signoffs, repoErr := repo.InitializeSignoffs("JOB-2026-0041")
	require.Nil(t, repoErr)
	_, repoErr = repo.PassHoldingPoint("JOB-2026-0041", signoffs[0].HoldingPointID, "WKR-007", "")
	require.Nil(t, repoErr)

	board, repoErr := repo.GetKanbanBoard()
	require.Nil(t, repoErr)

	require.Len(t, board.QcInProgress, 1)
	require.Len(t, board.New, 1)
	assert.Empty(t, board.Assigned)
	assert.Empty(t, board.InProgress)
	assert.Empty(t, board.ReadyForDelivery)

	card := board.QcInProgress[0]
	assert.Equal(t, "JOB-2026-0041", card.JobID)
	assert.Equal(t, 1, card.WorkerCount)
	assert.InDelta(t, 9.5, card.TotalHoursLogged, 0.001)
	assert.Equal(t, 11, card.QcProgress) // 1 of 9 passed

	assert.Equal(t, "JOB-2026-0042", board.New[0].JobID)
	assert.Equal(t, 0, board.New[0].WorkerCount)
	assert.Equal(t, 0, board.New[0].QcProgress)
}

type journalRecorder struct {
	moves []string
}

func (j *journalRecorder) RecordStatusChange(jobID string, from, to models.WorkshopStatus) error {
	j.moves = append(j.moves, jobID+":"+string(from)+">"+string(to))
	return nil
}

func TestAdvanceNotifiesJournal(t *testing.T) {
	repo := newTestRepository(t)
	recorder := &journalRecorder{}
	repo.SetJournal(recorder)

	_, repoErr := repo.AssignWorker("JOB-2026-0041", "WKR-001", models.RoleLead)
	require.Nil(t, repoErr)
	_, repoErr = repo.AdvanceJob("JOB-2026-0041")
	require.Nil(t, repoErr)

	require.Len(t, recorder.moves, 1)
	assert.Equal(t, "JOB-2026-0041:NEW>ASSIGNED", recorder.moves[0])
}
