// Package health provides liveness and readiness endpoints for the API.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// readyTimeout bounds how long a readiness probe may spend on dependency checks.
const readyTimeout = 5 * time.Second

// Checker reports the health of a single dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler serves the health endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewHandler creates a health handler with no registered checkers.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterChecker adds a dependency checker consulted by the readiness probe.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// Status is the body returned by every health endpoint.
type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeStatus(w http.ResponseWriter, code int, s Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(s)
}

// Health answers basic "is the process up" checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, Status{Status: "ok"})
}

// Live is the liveness probe. It succeeds whenever the process can serve HTTP.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, Status{Status: "live"})
}

// Ready is the readiness probe. It runs every registered checker and
// returns 503 when any dependency is unhealthy, so load balancers stop
// routing escalation traffic to an instance that cannot persist it.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	checks := make(map[string]string, len(checkers))
	healthy := true
	for _, c := range checkers {
		if err := c.Check(ctx); err != nil {
			checks[c.Name()] = err.Error()
			healthy = false
		} else {
			checks[c.Name()] = "ok"
		}
	}

	if !healthy {
		writeStatus(w, http.StatusServiceUnavailable, Status{Status: "not_ready", Checks: checks})
		return
	}
	writeStatus(w, http.StatusOK, Status{Status: "ready", Checks: checks})
}
