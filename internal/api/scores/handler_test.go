package scores

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(risk.DefaultConfig())
	if err != nil {
		t.Fatalf("create handler: %v", err)
	}
	return h
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeScore(t *testing.T, rec *httptest.ResponseRecorder) *models.CompositeScore {
	t.Helper()
	var resp struct {
		Data *models.CompositeScore `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error.Code
}

func TestHandler_SEWI(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.SEWI, ScoreRequest{
		Components: map[string]float64{
			"er_surge":     0.8,
			"icu_peak":     0.4,
			"staff_stress": 0.4,
		},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	score := decodeScore(t, rec)
	if math.Abs(score.Value-0.56) > 1e-9 {
		t.Errorf("value = %v, want 0.56", score.Value)
	}
	if score.Level != models.RiskMedium {
		t.Errorf("level = %s, want medium", score.Level)
	}
	if len(score.Drivers) != 3 || score.Drivers[0].Component != models.ComponentERSurge {
		t.Errorf("drivers = %+v, want er_surge first", score.Drivers)
	}
}

func TestHandler_Deterioration(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.Deterioration, ScoreRequest{
		SubjectID: "patient-1",
		Components: map[string]float64{
			"vitals_instability":     0.9,
			"chronic_condition_load": 0.8,
			"adherence_gap":          0.5,
			"age_factor":             0.6,
			"no_show_risk":           0.2,
		},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	score := decodeScore(t, rec)
	if math.Abs(score.Value-69.5) > 1e-9 {
		t.Errorf("value = %v, want 69.5", score.Value)
	}
	if score.SubjectID != "patient-1" {
		t.Errorf("subject = %q, want patient-1", score.SubjectID)
	}
}

func TestHandler_ScoreErrors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no components",
			body:       ScoreRequest{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name: "unknown component",
			body: ScoreRequest{
				Components: map[string]float64{"bed_count": 0.5},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name: "missing component",
			body: ScoreRequest{
				Components: map[string]float64{"er_surge": 0.8},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_SIGNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.SEWI, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if code := decodeError(t, rec); code != tt.wantCode {
				t.Errorf("error code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestHandler_BadJSON(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.SEWI(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if code := decodeError(t, rec); code != "BAD_REQUEST" {
		t.Errorf("error code = %s, want BAD_REQUEST", code)
	}
}

func TestHandler_SetConfigKeepsOldOnError(t *testing.T) {
	h := newTestHandler(t)

	bad := risk.DefaultConfig()
	bad.SEWI.Weights = map[models.ComponentName]float64{models.ComponentERSurge: 0.5}
	if err := h.SetConfig(bad); err == nil {
		t.Fatal("expected error for invalid config")
	}

	// The previous aggregators still serve requests.
	rec := postJSON(t, h.SEWI, ScoreRequest{
		Components: map[string]float64{
			"er_surge":     0.8,
			"icu_peak":     0.4,
			"staff_stress": 0.4,
		},
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status after failed reload = %d, want 200", rec.Code)
	}
}
