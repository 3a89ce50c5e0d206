// Package escalations exposes the escalation workflow endpoints: trigger
// evaluation, lifecycle transitions, and dashboard/report aggregation.
package escalations

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pulsewatch/internal/escalation"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// defaultReportRange is the report window when the request gives no bounds.
const defaultReportRange = 30 * 24 * time.Hour

// Response helpers (local to avoid import cycle)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest        = "BAD_REQUEST"
	errCodeValidationFailed  = "VALIDATION_FAILED"
	errCodeNotFound          = "NOT_FOUND"
	errCodeConflict          = "CONFLICT"
	errCodeInvalidTransition = "INVALID_TRANSITION"
	errCodeInternalError     = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

// writeDomainError maps engine/storage errors to API errors.
func writeDomainError(w http.ResponseWriter, err error) {
	var notFound *escalation.NotFoundError
	if errors.As(err, &notFound) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, err.Error())
		return
	}

	var invalidTransition *escalation.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		jsonError(w, http.StatusConflict, errCodeInvalidTransition, err.Error())
		return
	}

	if errors.Is(err, storage.ErrVersionConflict) {
		jsonError(w, http.StatusConflict, errCodeConflict, "escalation was modified concurrently, retry")
		return
	}

	log.Printf("escalation handler error: %v", err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

// Handler serves the escalation workflow endpoints.
type Handler struct {
	engine *escalation.Engine

	mu            sync.RWMutex
	deterioration *risk.Aggregator
}

// NewHandler creates an escalation handler.
func NewHandler(engine *escalation.Engine, cfg *risk.Config) (*Handler, error) {
	h := &Handler{engine: engine}
	if err := h.SetConfig(cfg); err != nil {
		return nil, err
	}
	return h, nil
}

// SetConfig swaps in the deterioration aggregator built from a new
// configuration. The engine's trigger config is swapped separately.
func (h *Handler) SetConfig(cfg *risk.Config) error {
	deterioration, err := cfg.Deterioration.Build()
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.deterioration = deterioration
	h.mu.Unlock()
	return nil
}

// CheckTriggers evaluates a batch of assessments against the trigger rules.
// One bad subject never aborts the batch; its error is reported alongside
// the escalations created for the others.
func (h *Handler) CheckTriggers(w http.ResponseWriter, r *http.Request) {
	var req CheckTriggersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req.Assessments) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "assessments are required")
		return
	}

	h.mu.RLock()
	deterioration := h.deterioration
	h.mu.RUnlock()

	now := time.Now().UTC()
	assessments := make([]*escalation.Assessment, 0, len(req.Assessments))
	var scoreErrors []escalation.SubjectError

	for i := range req.Assessments {
		a, err := buildAssessment(&req.Assessments[i], deterioration, now)
		if err != nil {
			scoreErrors = append(scoreErrors, escalation.SubjectError{
				SubjectID: req.Assessments[i].SubjectID,
				Err:       err.Error(),
			})
			continue
		}
		assessments = append(assessments, a)
	}

	result := h.engine.CheckTriggersAt(r.Context(), assessments, now)
	if len(scoreErrors) > 0 {
		result.Errors = append(result.Errors, scoreErrors...)
		sort.Slice(result.Errors, func(i, j int) bool {
			return result.Errors[i].SubjectID < result.Errors[j].SubjectID
		})
	}

	jsonOK(w, result)
}

// Get returns one escalation by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, e)
}

// Acknowledge transitions an escalation to acknowledged.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	if req.AcknowledgedBy == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "acknowledged_by is required")
		return
	}

	e, err := h.engine.Acknowledge(r.Context(), id, req.AcknowledgedBy, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, e)
}

// Begin transitions an acknowledged escalation to in_progress.
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := h.engine.BeginWork(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, e)
}

// Resolve closes an escalation from any non-terminal state.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	if req.ResolvedBy == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "resolved_by is required")
		return
	}

	e, err := h.engine.Resolve(r.Context(), id, req.ResolvedBy, req.ResolutionNotes, req.FollowUpRequired)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, e)
}

// ListActive returns unresolved escalations ordered by urgency then age,
// optionally filtered by escalation level.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	var level models.EscalationLevel
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, ok := models.ParseEscalationLevel(raw)
		if !ok {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "unknown escalation level "+raw)
			return
		}
		level = parsed
	}

	items, err := h.engine.ListActive(r.Context(), level)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, ActiveListResponse{Items: items, Total: len(items)})
}

// ListBySubject returns one subject's escalation history newest first.
func (h *Handler) ListBySubject(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var status models.EscalationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := models.ParseEscalationStatus(raw)
		if !ok {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "unknown status "+raw)
			return
		}
		status = parsed
	}

	items, err := h.engine.ListBySubject(r.Context(), subjectID, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, SubjectListResponse{Items: items, Total: len(items)})
}

// Dashboard returns the operational summary of the escalation workload.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.DashboardSummary(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, d)
}

// Report returns outcome statistics over an optional subject and date range.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")

	now := time.Now().UTC()
	from, to, err := parseReportRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), now)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	report, err := h.engine.GenerateReport(r.Context(), subjectID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, report)
}
