// Package recommendations exposes the rule-based action recommendation
// endpoint.
package recommendations

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/recommend"
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

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeMissingSignal    = "MISSING_SIGNAL"
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

// Handler computes ordered recommended actions for a snapshot.
type Handler struct {
	mu            sync.RWMutex
	sewi          *risk.Aggregator
	deterioration *risk.Aggregator
}

// NewHandler creates a recommendation handler.
func NewHandler(cfg *risk.Config) (*Handler, error) {
	h := &Handler{}
	if err := h.SetConfig(cfg); err != nil {
		return nil, err
	}
	return h, nil
}

// SetConfig swaps in aggregators built from a new configuration.
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

// Request is the recommendation request body. Index selects which composite
// the snapshot feeds; it defaults to the deterioration index.
type Request struct {
	SubjectID  string             `json:"subject_id,omitempty"`
	Index      string             `json:"index,omitempty"`
	Components map[string]float64 `json:"components"`
}

// Response pairs the computed score with the ordered action list.
type Response struct {
	Score *models.CompositeScore  `json:"score"`
	Items []models.Recommendation `json:"items"`
}

// Recommend computes the composite score for a snapshot and returns the
// ordered recommendation list. Low composites return an empty list.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}

	h.mu.RLock()
	agg := h.deterioration
	if req.Index == "sewi" {
		agg = h.sewi
	} else if req.Index != "" && req.Index != "deterioration" {
		h.mu.RUnlock()
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed,
			fmt.Sprintf("unknown index %q, want sewi or deterioration", req.Index))
		return
	}
	h.mu.RUnlock()

	snapshot, err := snapshotFromRequest(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	score, err := agg.Compute(snapshot)
	if err != nil {
		var missing *risk.MissingSignalError
		if errors.As(err, &missing) {
			jsonError(w, http.StatusBadRequest, errCodeMissingSignal, err.Error())
			return
		}
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	items := recommend.Recommend(score)
	if items == nil {
		items = []models.Recommendation{}
	}
	jsonOK(w, Response{Score: score, Items: items})
}

// snapshotFromRequest validates the request into a snapshot.
func snapshotFromRequest(req *Request) (*models.SignalSnapshot, error) {
	if len(req.Components) == 0 {
		return nil, fmt.Errorf("components are required")
	}

	components := make(map[models.ComponentName]float64, len(req.Components))
	for name, value := range req.Components {
		parsed, err := models.ParseComponentName(name)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("component %q: value must be a finite number", name)
		}
		components[parsed] = value
	}

	return &models.SignalSnapshot{
		SubjectID:  req.SubjectID,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}, nil
}
