// Package scores exposes composite risk score computation endpoints.
package scores

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/good-yellow-bee/pulsewatch/internal/metrics"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
)

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

// Error codes
const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeMissingSignal    = "MISSING_SIGNAL"
	errCodeConfigError      = "CONFIG_ERROR"
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

// Handler computes SEWI and deterioration composite scores. The aggregators
// are rebuilt on configuration reload, so reads take the lock.
type Handler struct {
	mu            sync.RWMutex
	sewi          *risk.Aggregator
	deterioration *risk.Aggregator
}

// NewHandler creates a score handler from a validated risk configuration.
func NewHandler(cfg *risk.Config) (*Handler, error) {
	h := &Handler{}
	if err := h.SetConfig(cfg); err != nil {
		return nil, err
	}
	return h, nil
}

// SetConfig swaps in aggregators built from a new configuration. On error
// the previous aggregators stay in place.
func (h *Handler) SetConfig(cfg *risk.Config) error {
	sewi, err := cfg.SEWI.Build()
	if err != nil {
		return err
	}
	deterioration, err := cfg.Deterioration.Build()
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.sewi = sewi
	h.deterioration = deterioration
	h.mu.Unlock()
	return nil
}

// ScoreRequest is the request body for score computation.
type ScoreRequest struct {
	SubjectID  string             `json:"subject_id,omitempty"`
	Components map[string]float64 `json:"components"`
}

// SEWI computes the facility strain index for a component snapshot.
func (h *Handler) SEWI(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	agg := h.sewi
	h.mu.RUnlock()
	h.score(w, r, "sewi", agg)
}

// Deterioration computes the per-patient deterioration risk score.
func (h *Handler) Deterioration(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	agg := h.deterioration
	h.mu.RUnlock()
	h.score(w, r, "deterioration", agg)
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request, index string, agg *risk.Aggregator) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}

	snapshot, err := snapshotFromRequest(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	score, err := agg.Compute(snapshot)
	if err != nil {
		metrics.ScoreErrorsTotal.WithLabelValues(index).Inc()
		writeScoreError(w, err)
		return
	}

	metrics.ScoresComputedTotal.WithLabelValues(index).Inc()
	jsonOK(w, score)
}

// writeScoreError maps aggregation errors to API errors.
func writeScoreError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *risk.MissingSignalError:
		jsonError(w, http.StatusBadRequest, errCodeMissingSignal, err.Error())
	case *risk.ConfigError, *risk.InvalidThresholdError:
		jsonError(w, http.StatusInternalServerError, errCodeConfigError, err.Error())
	default:
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
	}
}
