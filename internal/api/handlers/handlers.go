// Package handlers implements the HTTP handlers for the analysis service.
// All run state goes through the Store interface; the analysis pipeline
// itself is driven by the orchestrator and never leaks gateway errors to
// API consumers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/analysis"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/store"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultRunsLimit = 50

// Analyzer runs the multi-stage analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, runID string, bundle *models.AnalysisBundle) (*models.AggregateReport, error)
	Cancel(runID string) bool
}

// GatewayChecker probes the upstream model gateway.
type GatewayChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Store        store.Store
	Orchestrator Analyzer
	Gateway      GatewayChecker
}

// New creates a new Handlers instance with all dependencies.
func New(s store.Store, orch Analyzer, gw GatewayChecker) *Handlers {
	return &Handlers{
		Store:        s,
		Orchestrator: orch,
		Gateway:      gw,
	}
}

// Analyze accepts an analysis bundle, runs the full pipeline synchronously
// and responds with the aggregate report. A degraded pipeline still yields
// HTTP 200; only an unreadable or empty bundle is a client error.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var bundle models.AnalysisBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if bundle.IsEmpty() {
		respondError(w, http.StatusBadRequest, analysis.ErrEmptyBundle.Error())
		return
	}

	runID := uuid.New().String()
	run := &models.AnalysisRun{
		ID:        runID,
		Status:    models.RunRunning,
		Bundle:    &bundle,
		StartedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateRun(r.Context(), run); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	report, err := h.Orchestrator.Analyze(r.Context(), runID, &bundle)
	if errors.Is(err, analysis.ErrEmptyBundle) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Report = report
	if err != nil {
		// Cancelled mid-flight, keep the partial report.
		run.Status = models.RunCancelled
	} else {
		run.Status = models.RunCompleted
	}
	if uerr := h.Store.UpdateRun(context.WithoutCancel(r.Context()), run); uerr != nil {
		log.Error().Err(uerr).Str("run_id", runID).Msg("Failed to persist run")
	}

	respondJSON(w, http.StatusOK, report)
}

// ListRuns returns recent runs, newest first. The limit query parameter
// caps the page size.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []models.AnalysisRun{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.Store.GetRun(r.Context(), runID)
	if err != nil {
		var nf *store.ErrNotFound
		if errors.As(err, &nf) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// CancelRun aborts an in-flight run. Finished runs cannot be cancelled.
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if h.Orchestrator.Cancel(runID) {
		log.Info().Str("run_id", runID).Msg("Run cancellation requested")
		respondJSON(w, http.StatusAccepted, map[string]string{
			"id":     runID,
			"status": "cancelling",
		})
		return
	}

	run, err := h.Store.GetRun(r.Context(), runID)
	if err != nil {
		var nf *store.ErrNotFound
		if errors.As(err, &nf) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondError(w, http.StatusConflict, "run "+run.ID+" already finished")
}

// GatewayHealth performs a deep health check against the upstream gateway,
// exercising both token exchange and a minimal completion.
func (h *Handlers) GatewayHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.Gateway.HealthCheck(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
