package repository

import (
	"testing"

	"github.com/erhaops/workshop-core/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignWorkerUpsertsRole(t *testing.T) {
	repo := newTestRepository(t)
	jobID := "JOB-2026-0041"

	first, repoErr := repo.AssignWorker(jobID, "WKR-002", models.RoleHelper)
	require.Nil(t, repoErr)
	assert.Equal(t, models.RoleHelper, first.Role)

	// Re-assigning the same worker replaces the role, no second row.
	second, repoErr := repo.AssignWorker(jobID, "WKR-002", models.RoleLead)
	require.Nil(t, repoErr)
	assert.Equal(t, models.RoleLead, second.Role)

	assignments, repoErr := repo.ListAssignments(jobID)
	require.Nil(t, repoErr)
	require.Len(t, assignments, 1)
	assert.Equal(t, models.RoleLead, assignments[0].Role)
	require.NotNil(t, assignments[0].Worker)
	assert.Equal(t, "Sipho Ndlovu", assignments[0].Worker.FullName())
}

func TestAssignWorkerValidation(t *testing.T) {
	repo := newTestRepository(t)

	_, repoErr := repo.AssignWorker("JOB-2026-0041", "WKR-001", "FOREMAN")
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeValidation, repoErr.Code)

	_, repoErr = repo.AssignWorker("JOB-NOPE", "WKR-001", models.RoleLead)
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeNotFound, repoErr.Code)

	_, repoErr = repo.AssignWorker("JOB-2026-0041", "WKR-999", models.RoleLead)
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeValidation, repoErr.Code)
}

func TestRemoveAssignment(t *testing.T) {
	repo := newTestRepository(t)
	jobID := "JOB-2026-0041"

	_, repoErr := repo.AssignWorker(jobID, "WKR-001", models.RoleLead)
	require.Nil(t, repoErr)

	repoErr = repo.RemoveAssignment(jobID, "WKR-001")
	require.Nil(t, repoErr)

	repoErr = repo.RemoveAssignment(jobID, "WKR-001")
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeNotFound, repoErr.Code)

	assignments, repoErr := repo.ListAssignments(jobID)
	require.Nil(t, repoErr)
	assert.Empty(t, assignments)
}

func TestListWorkers(t *testing.T) {
	repo := newTestRepository(t)

	workers, repoErr := repo.ListWorkers()
	require.Nil(t, repoErr)
	require.Len(t, workers, 7)
	assert.Equal(t, "EMP-001", workers[0].EmployeeCode)
}

func TestLogTimeEntry(t *testing.T) {
	repo := newTestRepository(t)
	jobID := "JOB-2026-0041"

	entry, repoErr := repo.LogTimeEntry(jobID, "WKR-002", mustDate(t, "2026-08-24"), 8, 2, "night shift")
	require.Nil(t, repoErr)
	assert.Contains(t, entry.ID, "TE-")

	entries, repoErr := repo.ListTimeEntries(jobID)
	require.Nil(t, repoErr)
	require.Len(t, entries, 1)
	assert.Equal(t, 8.0, entries[0].NormalHours)
	assert.Equal(t, 2.0, entries[0].OvertimeHours)
	require.NotNil(t, entries[0].Worker)
}

func TestLogTimeEntryValidation(t *testing.T) {
	repo := newTestRepository(t)
	jobID := "JOB-2026-0041"

	_, repoErr := repo.LogTimeEntry(jobID, "WKR-002", mustDate(t, "2026-08-24"), -1, 0, "")
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeValidation, repoErr.Code)

	_, repoErr = repo.LogTimeEntry(jobID, "WKR-999", mustDate(t, "2026-08-24"), 8, 0, "")
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeValidation, repoErr.Code)

	_, repoErr = repo.LogTimeEntry("JOB-NOPE", "WKR-002", mustDate(t, "2026-08-24"), 8, 0, "")
	require.NotNil(t, repoErr)
	assert.Equal(t, ErrCodeNotFound, repoErr.Code)
}
