package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/erhaops/workshop-core/journal"
	"github.com/erhaops/workshop-core/repository"
	"github.com/erhaops/workshop-core/repository/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// workDateLayout is the wire format for time-entry dates.
const workDateLayout = "2006-01-02"

type workerResponse struct {
	ID                string  `json:"id"`
	EmployeeCode      string  `json:"employeeCode"`
	FirstName         string  `json:"firstName"`
	LastName          string  `json:"lastName"`
	Department        string  `json:"department"`
	WorkerType        string  `json:"workerType"`
	CurrentHourlyRate float64 `json:"currentHourlyRate"`
}

type assignmentResponse struct {
	JobID      string    `json:"jobId"`
	WorkerID   string    `json:"workerId"`
	WorkerName string    `json:"workerName"`
	Role       string    `json:"role"`
	AssignedAt time.Time `json:"assignedAt"`
}

type signoffResponse struct {
	ID               string     `json:"id"`
	JobID            string     `json:"jobId"`
	HoldingPointID   string     `json:"holdingPointId"`
	HoldingPointName string     `json:"holdingPointName"`
	SequenceNumber   int        `json:"sequenceNumber"`
	Status           string     `json:"status"`
	Notes            string     `json:"notes"`
	SignedBy         *string    `json:"signedBy"`
	SignedAt         *time.Time `json:"signedAt"`
}

type holdingPointResponse struct {
	ID             string `json:"id"`
	SequenceNumber int    `json:"sequenceNumber"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	IsActive       bool   `json:"isActive"`
}

type completionResponse struct {
	JobID           string    `json:"jobId"`
	QcInspectorID   string    `json:"qcInspectorId"`
	QcInspectorName string    `json:"qcInspectorName"`
	ShopManagerID   string    `json:"shopManagerId"`
	ShopManagerName string    `json:"shopManagerName"`
	Notes           string    `json:"notes"`
	CompletedAt     time.Time `json:"completedAt"`
}

type jobResponse struct {
	ID                   string               `json:"id"`
	JobNumber            string               `json:"jobNumber"`
	Description          string               `json:"description"`
	Priority             string               `json:"priority"`
	WorkshopStatus       string               `json:"workshopStatus"`
	ClientName           string               `json:"clientName"`
	OrderNumber          *string              `json:"orderNumber"`
	QuoteNumber          *string              `json:"quoteNumber"`
	ExpectedDeliveryDate *string              `json:"expectedDeliveryDate"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
	Assignments          []assignmentResponse `json:"assignments"`
	TimeEntries          []timeEntryResponse  `json:"timeEntries"`
	Signoffs             []signoffResponse    `json:"signoffs"`
	Completion           *completionResponse  `json:"completion"`
}

type timeEntryResponse struct {
	ID            string    `json:"id"`
	JobID         string    `json:"jobId"`
	WorkerID      string    `json:"workerId"`
	WorkerName    string    `json:"workerName"`
	WorkDate      string    `json:"workDate"`
	NormalHours   float64   `json:"normalHours"`
	OvertimeHours float64   `json:"overtimeHours"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// --- workshop ---

func (ws *WebServer) handleKanban(w http.ResponseWriter, r *http.Request) {
	board, repoErr := ws.repository.GetKanbanBoard()
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type createJobRequest struct {
	ID                   string  `json:"id"`
	JobNumber            string  `json:"jobNumber"`
	Description          string  `json:"description"`
	Priority             string  `json:"priority"`
	ClientName           string  `json:"clientName"`
	OrderNumber          *string `json:"orderNumber"`
	QuoteNumber          *string `json:"quoteNumber"`
	ExpectedDeliveryDate *string `json:"expectedDeliveryDate"`
}

func (ws *WebServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = "JOB-" + strings.ToUpper(uuid.NewString()[:8])
	}
	job := models.Job{
		ID:          req.ID,
		JobNumber:   req.JobNumber,
		Description: req.Description,
		Priority:    req.Priority,
		ClientName:  req.ClientName,
		OrderNumber: req.OrderNumber,
		QuoteNumber: req.QuoteNumber,
	}
	if req.ExpectedDeliveryDate != nil {
		d, err := time.Parse(workDateLayout, *req.ExpectedDeliveryDate)
		if err != nil {
			JSONError(w, "Invalid expectedDeliveryDate, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		job.ExpectedDeliveryDate = &d
	}
	created, repoErr := ws.repository.CreateJob(&job)
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusCreated, jobDetail(created))
}

func (ws *WebServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, repoErr := ws.repository.GetJob(chi.URLParam(r, "jobID"))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, jobDetail(job))
}

func (ws *WebServer) handleAdvance(w http.ResponseWriter, r *http.Request) {
	job, repoErr := ws.repository.AdvanceJob(chi.URLParam(r, "jobID"))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobId":          job.ID,
		"workshopStatus": job.WorkshopStatus,
	})
}

func (ws *WebServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req repository.CompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	completion, repoErr := ws.repository.CompleteJob(chi.URLParam(r, "jobID"), req)
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusCreated, completionDetail(completion))
}

func (ws *WebServer) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, repoErr := ws.repository.GetJob(jobID); repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	events := []journal.StatusEvent{}
	if ws.journal != nil {
		var err error
		events, err = ws.journal.ListForJob(jobID)
		if err != nil {
			JSONError(w, "Failed to read journal: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- workers ---

func (ws *WebServer) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, repoErr := ws.repository.ListWorkers()
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	out := make([]workerResponse, 0, len(workers))
	for _, worker := range workers {
		out = append(out, workerResponse{
			ID:                worker.ID,
			EmployeeCode:      worker.EmployeeCode,
			FirstName:         worker.FirstName,
			LastName:          worker.LastName,
			Department:        worker.Department,
			WorkerType:        worker.WorkerType,
			CurrentHourlyRate: worker.CurrentHourlyRate,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- assignments ---

type assignRequest struct {
	JobID    string `json:"jobId"`
	WorkerID string `json:"workerId"`
	Role     string `json:"role"`
}

func (ws *WebServer) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	assignment, repoErr := ws.repository.AssignWorker(req.JobID, req.WorkerID, models.AssignmentRole(req.Role))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusCreated, assignmentDetail(assignment))
}

func (ws *WebServer) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, repoErr := ws.repository.ListAssignments(chi.URLParam(r, "jobID"))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	out := make([]assignmentResponse, 0, len(assignments))
	for i := range assignments {
		out = append(out, assignmentDetail(&assignments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (ws *WebServer) handleRemoveAssignment(w http.ResponseWriter, r *http.Request) {
	repoErr := ws.repository.RemoveAssignment(chi.URLParam(r, "jobID"), chi.URLParam(r, "workerID"))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- time entries ---

type timeEntryRequest struct {
	JobID         string  `json:"jobId"`
	WorkerID      string  `json:"workerId"`
	WorkDate      string  `json:"workDate"`
	NormalHours   float64 `json:"normalHours"`
	OvertimeHours float64 `json:"overtimeHours"`
	Notes         string  `json:"notes"`
}

func (ws *WebServer) handleLogTime(w http.ResponseWriter, r *http.Request) {
	var req timeEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	workDate, err := time.Parse(workDateLayout, req.WorkDate)
	if err != nil {
		JSONError(w, "Invalid workDate, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	entry, repoErr := ws.repository.LogTimeEntry(req.JobID, req.WorkerID, workDate, req.NormalHours, req.OvertimeHours, req.Notes)
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusCreated, timeEntryDetail(entry))
}

func (ws *WebServer) handleListTimeEntries(w http.ResponseWriter, r *http.Request) {
	entries, repoErr := ws.repository.ListTimeEntries(chi.URLParam(r, "jobID"))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	out := make([]timeEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, timeEntryDetail(&entries[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- QC ---

func (ws *WebServer) handleListHoldingPoints(w http.ResponseWriter, r *http.Request) {
	points, repoErr := ws.repository.ListHoldingPoints()
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	out := make([]holdingPointResponse, 0, len(points))
	for _, point := range points {
		out = append(out, holdingPointDetail(&point))
	}
	writeJSON(w, http.StatusOK, out)
}

type holdingPointActiveRequest struct {
	IsActive bool `json:"isActive"`
}

func (ws *WebServer) handleSetHoldingPointActive(w http.ResponseWriter, r *http.Request) {
	var req holdingPointActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	point, repoErr := ws.repository.SetHoldingPointActive(chi.URLParam(r, "holdingPointID"), req.IsActive)
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, holdingPointDetail(point))
}

func (ws *WebServer) handleInitializeQc(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	signoffs, repoErr := ws.repository.InitializeSignoffs(jobID)
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	progress, repoErr := ws.repository.GetProgress(jobID)
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signoffs": signoffResponses(signoffs),
		"progress": progress,
	})
}

func (ws *WebServer) handleListSignoffs(w http.ResponseWriter, r *http.Request) {
	signoffs, repoErr := ws.repository.ListSignoffs(chi.URLParam(r, "jobID"))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, signoffResponses(signoffs))
}

func (ws *WebServer) handleQcProgress(w http.ResponseWriter, r *http.Request) {
	progress, repoErr := ws.repository.GetProgress(chi.URLParam(r, "jobID"))
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type signoffActionRequest struct {
	SignedByID string `json:"signedById"`
	Notes      string `json:"notes"`
}

func (ws *WebServer) handlePass(w http.ResponseWriter, r *http.Request) {
	ws.handleDecision(w, r, ws.repository.PassHoldingPoint)
}

func (ws *WebServer) handleFail(w http.ResponseWriter, r *http.Request) {
	ws.handleDecision(w, r, ws.repository.FailHoldingPoint)
}

func (ws *WebServer) handleDecision(w http.ResponseWriter, r *http.Request, decide func(jobID, holdingPointID, signedBy, notes string) (*repository.QcProgress, *repository.RepositoryError)) {
	var req signoffActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	progress, repoErr := decide(chi.URLParam(r, "jobID"), chi.URLParam(r, "holdingPointID"), req.SignedByID, req.Notes)
	if repoErr != nil {
		ws.repoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": progress})
}

func holdingPointDetail(point *models.HoldingPoint) holdingPointResponse {
	return holdingPointResponse{
		ID:             point.ID,
		SequenceNumber: point.SequenceNumber,
		Name:           point.Name,
		Description:    point.Description,
		IsActive:       point.IsActive,
	}
}

func completionDetail(completion *models.JobCompletion) *completionResponse {
	return &completionResponse{
		JobID:           completion.JobID,
		QcInspectorID:   completion.QcInspectorID,
		QcInspectorName: completion.QcInspectorName,
		ShopManagerID:   completion.ShopManagerID,
		ShopManagerName: completion.ShopManagerName,
		Notes:           completion.Notes,
		CompletedAt:     completion.CompletedAt,
	}
}

func assignmentDetail(a *models.JobAssignment) assignmentResponse {
	resp := assignmentResponse{
		JobID:      a.JobID,
		WorkerID:   a.WorkerID,
		Role:       string(a.Role),
		AssignedAt: a.AssignedAt,
	}
	if a.Worker != nil {
		resp.WorkerName = a.Worker.FullName()
	}
	return resp
}

func timeEntryDetail(entry *models.TimeEntry) timeEntryResponse {
	resp := timeEntryResponse{
		ID:            entry.ID,
		JobID:         entry.JobID,
		WorkerID:      entry.WorkerID,
		WorkDate:      entry.WorkDate.Format(workDateLayout),
		NormalHours:   entry.NormalHours,
		OvertimeHours: entry.OvertimeHours,
		Notes:         entry.Notes,
		CreatedAt:     entry.CreatedAt,
	}
	if entry.Worker != nil {
		resp.WorkerName = entry.Worker.FullName()
	}
	return resp
}

// jobDetail flattens a preloaded job into the portal's wire shape.
func jobDetail(job *models.Job) jobResponse {
	resp := jobResponse{
		ID:             job.ID,
		JobNumber:      job.JobNumber,
		Description:    job.Description,
		Priority:       job.Priority,
		WorkshopStatus: string(job.WorkshopStatus),
		ClientName:     job.ClientName,
		OrderNumber:    job.OrderNumber,
		QuoteNumber:    job.QuoteNumber,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		Assignments:    []assignmentResponse{},
		TimeEntries:    []timeEntryResponse{},
		Signoffs:       []signoffResponse{},
	}
	if job.ExpectedDeliveryDate != nil {
		d := job.ExpectedDeliveryDate.Format(workDateLayout)
		resp.ExpectedDeliveryDate = &d
	}
	for i := range job.Assignments {
		resp.Assignments = append(resp.Assignments, assignmentDetail(&job.Assignments[i]))
	}
	for i := range job.TimeEntries {
		resp.TimeEntries = append(resp.TimeEntries, timeEntryDetail(&job.TimeEntries[i]))
	}
	resp.Signoffs = signoffResponses(job.Signoffs)
	if job.Completion != nil {
		resp.Completion = completionDetail(job.Completion)
	}
	return resp
}

func signoffResponses(signoffs []models.QcSignoff) []signoffResponse {
	out := make([]signoffResponse, 0, len(signoffs))
	for _, s := range signoffs {
		resp := signoffResponse{
			ID:             s.ID,
			JobID:          s.JobID,
			HoldingPointID: s.HoldingPointID,
			SequenceNumber: s.SequenceNumber,
			Status:         string(s.Status),
			Notes:          s.Notes,
			SignedBy:       s.SignedBy,
			SignedAt:       s.SignedAt,
		}
		if s.HoldingPoint != nil {
			resp.HoldingPointName = s.HoldingPoint.Name
		}
		out = append(out, resp)
	}
	return out
}
