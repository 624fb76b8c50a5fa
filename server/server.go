package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/erhaops/workshop-core/journal"
	"github.com/erhaops/workshop-core/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// WebServer handles HTTP requests
type WebServer struct {
	httpAddr   string
	server     *http.Server
	logger     zerolog.Logger
	startTime  time.Time
	repository *repository.Repository
	journal    *journal.Journal
}

// NewWebServer creates a new web server. journal may be nil; the events
// endpoint then reports an empty history.
func NewWebServer(httpPort string, logger zerolog.Logger, repo *repository.Repository, jrnl *journal.Journal, corsOrigins []string) *WebServer {
	ws := &WebServer{
		httpAddr:   ":" + httpPort,
		logger:     logger,
		startTime:  time.Now(),
		repository: repo,
		journal:    jrnl,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ws.requestLogger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/", ws.handleRoot)
	r.Get("/debug", ws.handleDebug)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/workshop/kanban", ws.handleKanban)
		r.Post("/workshop/jobs", ws.handleCreateJob)
		r.Get("/workshop/jobs/{jobID}", ws.handleGetJob)
		r.Post("/workshop/jobs/{jobID}/advance", ws.handleAdvance)
		r.Post("/workshop/jobs/{jobID}/complete", ws.handleComplete)
		r.Get("/workshop/jobs/{jobID}/events", ws.handleJobEvents)

		r.Get("/workers", ws.handleListWorkers)

		r.Post("/assignments", ws.handleAssign)
		r.Get("/assignments/jobs/{jobID}", ws.handleListAssignments)
		r.Delete("/assignments/jobs/{jobID}/workers/{workerID}", ws.handleRemoveAssignment)

		r.Post("/time-entries", ws.handleLogTime)
		r.Get("/time-entries/jobs/{jobID}", ws.handleListTimeEntries)

		r.Get("/qc/holding-points", ws.handleListHoldingPoints)
		r.Put("/qc/holding-points/{holdingPointID}/active", ws.handleSetHoldingPointActive)
		r.Post("/qc/jobs/{jobID}/initialize", ws.handleInitializeQc)
		r.Get("/qc/jobs/{jobID}/signoffs", ws.handleListSignoffs)
		r.Get("/qc/jobs/{jobID}/progress", ws.handleQcProgress)
		r.Post("/qc/jobs/{jobID}/holding-points/{holdingPointID}/pass", ws.handlePass)
		r.Post("/qc/jobs/{jobID}/holding-points/{holdingPointID}/fail", ws.handleFail)
	})

	ws.server = &http.Server{
		Addr:    ws.httpAddr,
		Handler: r,
	}
	return ws
}

// Start starts the web server
func (ws *WebServer) Start() {
	ws.logger.Info().Str("addr", ws.httpAddr).Msg("Starting web server")
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error().Err(err).Msg("web server error")
		}
	}()
}

// Shutdown gracefully shuts down the web server
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// Handler exposes the router, used by the httptest-based tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

func (ws *WebServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		ws.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// handleRoot shows the node identity, as a tiny human-readable page.
func (ws *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte("<h1>Workshop Operations Node</h1>"))
	w.Write([]byte("<p>Uptime: " + time.Since(ws.startTime).String() + "</p>"))
	w.Write([]byte("<p>API base: <code>/api/v1</code></p>"))
}

// handleDebug provides debugging information
func (ws *WebServer) handleDebug(w http.ResponseWriter, r *http.Request) {
	debugInfo := map[string]interface{}{
		"uptime": time.Since(ws.startTime).String(),
	}
	if err := ws.repository.Ping(); err != nil {
		debugInfo["db_status"] = "offline"
		debugInfo["db_error"] = err.Error()
	} else {
		debugInfo["db_status"] = "online"
	}
	debugInfo["journal_enabled"] = ws.journal != nil
	writeJSON(w, http.StatusOK, debugInfo)
}

// writeJSON encodes v with indentation, matching what the workshop portal
// expects during development.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.Encode(v)
}

// JSONError sends a JSON formatted error response with the given status code and message
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, struct {
		Error string `json:"error"`
	}{Error: message})
}

// repoError maps a repository error code onto an HTTP status and writes
// the error envelope.
func (ws *WebServer) repoError(w http.ResponseWriter, repoErr *repository.RepositoryError) {
	statusCode := http.StatusInternalServerError
	switch repoErr.Code {
	case repository.ErrCodeValidation:
		statusCode = http.StatusBadRequest
	case repository.ErrCodeNotFound, repository.ErrCodeUnknownSignoff:
		statusCode = http.StatusNotFound
	case repository.ErrCodeInvalidTransition, repository.ErrCodeAlreadyDecided, repository.ErrCodeAlreadyCompleted:
		statusCode = http.StatusConflict
	}
	writeJSON(w, statusCode, struct {
		Error  string `json:"error"`
		Code   string `json:"code"`
		Detail string `json:"detail,omitempty"`
	}{Error: repoErr.Message, Code: repoErr.Code, Detail: repoErr.Detail})
}
