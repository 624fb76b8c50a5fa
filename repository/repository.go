package repository

import (
	"errors"
	"log"
	"time"

	"github.com/erhaops/workshop-core/repository/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgreSQL error codes as constants
const (
	// Class 23 — Integrity Constraint Violation
	PgErrForeignKeyViolation = "23503" // foreign_key_violation
	PgErrUniqueViolation     = "23505" // unique_violation
	PgErrCheckViolation      = "23514" // check_violation
	PgErrNotNullViolation    = "23502" // not_null_violation

	// Class 40 — Transaction Rollback
	PgErrTransactionRollback = "40000" // transaction_rollback
	PgErrSerializationFail   = "40001" // serialization_failure
	PgErrDeadlockDetected    = "40P01" // deadlock_detected
)

// Error codes surfaced to the HTTP layer. Every repository operation maps
// its failure onto exactly one of these.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeUnknownSignoff    = "UNKNOWN_SIGNOFF"
	ErrCodeAlreadyDecided    = "ALREADY_DECIDED"
	ErrCodeAlreadyCompleted  = "ALREADY_COMPLETED"
	ErrCodeNotFound          = "ENTITY_NOT_FOUND"
	ErrCodeDatabase          = "DATABASE_ERROR"
)

// RepositoryError represents an error in the repository layer
type RepositoryError struct {
	Code    string
	Message string
	Detail  string
}

func (e *RepositoryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Code + ": " + e.Message
}

// StatusJournal receives status-changed events after they are committed.
// The kanban read model and downstream audit consumers tail it.
type StatusJournal interface {
	RecordStatusChange(jobID string, from, to models.WorkshopStatus) error
}

type Repository struct {
	db      *gorm.DB
	journal StatusJournal
}

func NewRepository() *Repository {
	return &Repository{}
}

// NewRepositoryWithDB wraps an already-open GORM handle. Used by tests and
// by callers that manage the connection themselves.
func NewRepositoryWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SetJournal attaches the status event journal. Optional; without it,
// status changes are still persisted but not journaled.
func (r *Repository) SetJournal(j StatusJournal) {
	r.journal = j
}

func (r *Repository) ConnectDB(dsn string) error {
	var lastErr error
	for i := range 10 {
		log.Printf("Connection attempt %d...\n", i+1)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err == nil {
			r.db = db
			log.Println("Connected to Postgres")
			return nil
		}
		lastErr = err
		log.Printf("Connection attempt %d failed: %v\n", i+1, err)
		time.Sleep(2 * time.Second)
	}
	return lastErr
}

// Ping reports whether the underlying database connection is healthy.
func (r *Repository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Worker{},
		&models.Job{},
		&models.JobAssignment{},
		&models.TimeEntry{},
		&models.HoldingPoint{},
		&models.QcSignoff{},
		&models.JobCompletion{},
	)
}

// Seed loads the worker directory and the 9-point holding point catalog.
// Skipped if data already exists.
func (r *Repository) Seed() {
	var workerCount int64
	r.db.Model(&models.Worker{}).Count(&workerCount)
	if workerCount > 0 {
		log.Println("Seed data already exists, skipping...")
		return
	}

	log.Println("Seeding database with initial data...")

	workers := []models.Worker{
		{ID: "WKR-001", EmployeeCode: "EMP-001", FirstName: "Pieter", LastName: "van Wyk", Department: "BOILER SHOP", WorkerType: models.WorkerPermanent, CurrentHourlyRate: 285.00},
		{ID: "WKR-002", EmployeeCode: "EMP-002", FirstName: "Sipho", LastName: "Ndlovu", Department: "WELDING", WorkerType: models.WorkerPermanent, CurrentHourlyRate: 260.50},
		{ID: "WKR-003", EmployeeCode: "EMP-003", FirstName: "Johan", LastName: "Botha", Department: "MACHINE SHOP", WorkerType: models.WorkerPermanent, CurrentHourlyRate: 240.00},
		{ID: "WKR-004", EmployeeCode: "EMP-004", FirstName: "Thabo", LastName: "Mokoena", Department: "WELDING", WorkerType: models.WorkerCasual, CurrentHourlyRate: 145.00},
		{ID: "WKR-005", EmployeeCode: "EMP-005", FirstName: "Maria", LastName: "dos Santos", Department: "ADMIN", WorkerType: models.WorkerPermanent, CurrentHourlyRate: 310.00},
		{ID: "WKR-006", EmployeeCode: "EMP-006", FirstName: "Lucas", LastName: "Pretorius", Department: "BOILER SHOP", WorkerType: models.WorkerCasual, CurrentHourlyRate: 120.00},
		{ID: "WKR-007", EmployeeCode: "EMP-007", FirstName: "Anele", LastName: "Dube", Department: "QUALITY", WorkerType: models.WorkerPermanent, CurrentHourlyRate: 295.00},
	}
	for _, worker := range workers {
		if err := r.db.Create(&worker).Error; err != nil {
			log.Printf("Error creating worker %s: %v", worker.ID, err)
		}
	}

	points := []models.HoldingPoint{
		{ID: "HP-01", SequenceNumber: 1, Name: "Material Verification", Description: "Material received and checked against delivery note and mill certificates", IsActive: true},
		{ID: "HP-02", SequenceNumber: 2, Name: "Marking & Cutting", Description: "Marking out and cutting checked against drawing", IsActive: true},
		{ID: "HP-03", SequenceNumber: 3, Name: "Fit-up Inspection", Description: "Fit-up inspected and approved before welding commences", IsActive: true},
		{ID: "HP-04", SequenceNumber: 4, Name: "Root Run Inspection", Description: "Weld root run inspected", IsActive: true},
		{ID: "HP-05", SequenceNumber: 5, Name: "Final Weld Visual", Description: "Completed welds visually inspected", IsActive: true},
		{ID: "HP-06", SequenceNumber: 6, Name: "Dimensional Check", Description: "Dimensions verified against drawing", IsActive: true},
		{ID: "HP-07", SequenceNumber: 7, Name: "NDT", Description: "Non-destructive testing completed where specified", IsActive: true},
		{ID: "HP-08", SequenceNumber: 8, Name: "Surface Preparation", Description: "Blasting and paint or coating system checked", IsActive: true},
		{ID: "HP-09", SequenceNumber: 9, Name: "Final Inspection", Description: "Final inspection and release for delivery", IsActive: true},
	}
	for _, point := range points {
		if err := r.db.Create(&point).Error; err != nil {
			log.Printf("Error creating holding point %s: %v", point.ID, err)
		}
	}

	orderNumber := "ORD-2026-114"
	jobs := []models.Job{
		{ID: "JOB-2026-0041", JobNumber: "J-0041", Description: "Conveyor chute liner fabrication", Priority: models.PriorityHigh, WorkshopStatus: models.StatusNew, ClientName: "Mpumalanga Collieries", OrderNumber: &orderNumber},
		{ID: "JOB-2026-0042", JobNumber: "J-0042", Description: "Pump skid frame repair", Priority: models.PriorityMedium, WorkshopStatus: models.StatusNew, ClientName: "Vaal Water Board"},
	}
	for _, job := range jobs {
		if err := r.db.Create(&job).Error; err != nil {
			log.Printf("Error creating job %s: %v", job.ID, err)
		}
	}

	log.Println("Database seeding completed successfully")
}

// databaseError wraps an unclassified storage failure, extracting the
// Postgres code when one is present.
func databaseError(err error) *RepositoryError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &RepositoryError{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Detail:  pgErr.Detail,
		}
	}
	return &RepositoryError{
		Code:    ErrCodeDatabase,
		Message: "Database error occured",
		Detail:  err.Error(),
	}
}

func validationError(message, detail string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeValidation, Message: message, Detail: detail}
}

func notFoundError(message, detail string) *RepositoryError {
	return &RepositoryError{Code: ErrCodeNotFound, Message: message, Detail: detail}
}

// isDuplicateKey reports whether err is a unique constraint violation,
// under either the Postgres driver or the translated GORM error used by
// the sqlite test driver.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == PgErrUniqueViolation
}
