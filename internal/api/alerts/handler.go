// Package alerts exposes alert evaluation endpoints: stateless recompute of
// the active alert set from fresh snapshots.
package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/alerting"
	"github.com/good-yellow-bee/pulsewatch/internal/metrics"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
)

// defaultHorizon is the forecast window when the request does not set one.
const defaultHorizon = 48 * time.Hour

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

// Handler evaluates snapshots into the deduplicated active alert list.
type Handler struct {
	generator *alerting.Generator

	mu             sync.RWMutex
	sewi           *risk.Aggregator
	deterioration  *risk.Aggregator
	sewiThresholds risk.Thresholds
}

// NewHandler creates an alert handler.
func NewHandler(cfg *risk.Config) (*Handler, error) {
	h := &Handler{generator: alerting.NewGenerator()}
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
	h.sewiThresholds = cfg.SEWI.Thresholds
	h.mu.Unlock()
	return nil
}

// EvaluateRequest carries one evaluation cycle's snapshots: an optional
// facility-wide snapshot plus per-patient snapshots.
type EvaluateRequest struct {
	HorizonHours int                `json:"horizon_hours,omitempty"`
	Facility     *SnapshotRequest   `json:"facility,omitempty"`
	Subjects     []SnapshotRequest  `json:"subjects,omitempty"`
}

// SnapshotRequest is one component snapshot in an evaluate request.
type SnapshotRequest struct {
	SubjectID  string             `json:"subject_id,omitempty"`
	Components map[string]float64 `json:"components"`
}

// ListResponse is the {items, summary} alert list.
type ListResponse struct {
	Items   []*models.Alert `json:"items"`
	Summary string          `json:"summary"`
}

// Evaluate recomputes the active alert set from the submitted snapshots.
// The facility snapshot feeds the strain index and its per-component
// conditions; each subject snapshot feeds that patient's deterioration
// condition. Conditions back at Low retract their alerts.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Facility == nil && len(req.Subjects) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "facility or subjects snapshot is required")
		return
	}

	horizon := defaultHorizon
	if req.HorizonHours > 0 {
		horizon = time.Duration(req.HorizonHours) * time.Hour
	}

	now := time.Now().UTC()
	signals, err := h.buildSignals(&req, horizon, now)
	if err != nil {
		writeSignalError(w, err)
		return
	}

	items := h.generator.Generate(signals, now)
	metrics.AlertsActive.Set(float64(len(items)))

	jsonOK(w, ListResponse{Items: items, Summary: alerting.Summarize(items)})
}

// Active returns the current alert list without consuming new snapshots.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	items := h.generator.Active(now)
	metrics.AlertsActive.Set(float64(len(items)))
	jsonOK(w, ListResponse{Items: items, Summary: alerting.Summarize(items)})
}

// buildSignals classifies the request snapshots into alert signals.
func (h *Handler) buildSignals(req *EvaluateRequest, horizon time.Duration, now time.Time) ([]alerting.ClassifiedSignal, error) {
	h.mu.RLock()
	sewi := h.sewi
	deterioration := h.deterioration
	thresholds := h.sewiThresholds
	h.mu.RUnlock()

	var signals []alerting.ClassifiedSignal

	if req.Facility != nil {
		snapshot, err := snapshotFromRequest(req.Facility, now)
		if err != nil {
			return nil, err
		}
		score, err := sewi.Compute(snapshot)
		if err != nil {
			return nil, err
		}
		metrics.ScoresComputedTotal.WithLabelValues("sewi").Inc()

		signals = append(signals, alerting.ClassifiedSignal{
			Condition: "sewi_composite",
			Level:     score.Level,
			Message:   fmt.Sprintf("Facility strain index at %.2f (%s)", score.Value, score.Level),
			Horizon:   horizon,
		})

		// Components share the SEWI 0-1 scale, so the same threshold
		// table classifies them individually.
		for name, value := range snapshot.Components {
			signals = append(signals, alerting.ClassifiedSignal{
				Condition: string(name),
				Level:     thresholds.Classify(value),
				Message:   fmt.Sprintf("%s at %.2f", name, value),
				Horizon:   horizon,
			})
		}
	}

	for i := range req.Subjects {
		sub := &req.Subjects[i]
		if sub.SubjectID == "" {
			return nil, fmt.Errorf("subject snapshot %d: subject_id is required", i)
		}
		snapshot, err := snapshotFromRequest(sub, now)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", sub.SubjectID, err)
		}
		score, err := deterioration.Compute(snapshot)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", sub.SubjectID, err)
		}
		metrics.ScoresComputedTotal.WithLabelValues("deterioration").Inc()

		signals = append(signals, alerting.ClassifiedSignal{
			SubjectID: sub.SubjectID,
			Condition: "deterioration",
			Level:     score.Level,
			Message:   fmt.Sprintf("Deterioration risk %.0f (%s), top driver %s", score.Value, score.Level, score.TopDriver()),
			Horizon:   horizon,
		})
	}

	return signals, nil
}

// writeSignalError maps snapshot/aggregation errors to API errors.
func writeSignalError(w http.ResponseWriter, err error) {
	var missing *risk.MissingSignalError
	if errors.As(err, &missing) {
		jsonError(w, http.StatusBadRequest, errCodeMissingSignal, err.Error())
		return
	}
	jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
}
