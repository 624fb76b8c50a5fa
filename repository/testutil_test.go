package repository

import (
	"testing"
	"time"

	"github.com/erhaops/workshop-core/repository/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRepository opens an in-memory database, runs migrations and loads
// the standard seed data: workers WKR-001..007, holding points HP-01..09
// and jobs JOB-2026-0041 and JOB-2026-0042 (both NEW).
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory
	// database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepositoryWithDB(db)
	require.NoError(t, repo.Migrate())
	repo.Seed()
	return repo
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

// advanceTo walks a seeded job forward until it reaches the wanted status,
// satisfying preconditions along the way.
func advanceTo(t *testing.T, repo *Repository, jobID string, want models.WorkshopStatus) {
	t.Helper()

	var job models.Job
	require.NoError(t, repo.db.Where("job_id = ?", jobID).First(&job).Error)

	for job.WorkshopStatus != want {
		target, ok := nextStatus(job.WorkshopStatus)
		require.True(t, ok, "job %s cannot advance past %s", jobID, job.WorkshopStatus)

		if target == models.StatusAssigned {
			_, repoErr := repo.AssignWorker(jobID, "WKR-002", models.RoleLead)
			require.Nil(t, repoErr)
		}

		advanced, repoErr := repo.AdvanceJob(jobID)
		require.Nil(t, repoErr)
		job.WorkshopStatus = advanced.WorkshopStatus
	}
}

// passAllHoldingPoints initializes the board and passes every point.
func passAllHoldingPoints(t *testing.T, repo *Repository, jobID string) {
	t.Helper()

	signoffs, repoErr := repo.InitializeSignoffs(jobID)
	require.Nil(t, repoErr)
	for _, s := range signoffs {
		if s.Status != models.SignoffPending {
			continue
		}
		_, repoErr := repo.PassHoldingPoint(jobID, s.HoldingPointID, "WKR-007", "")
		require.Nil(t, repoErr)
	}
}
