// Package health provides Kubernetes-style liveness and readiness probe
// support.
//
// Checks run on demand when a probe endpoint is hit, with each result
// cached for a short period so aggressive probe intervals cannot hammer
// the checked dependencies. There are no background goroutines; a check
// that is never probed is never executed.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc is a health check function. It should return nil if the
// checked component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// defaultCacheTTL is how long a check result is reused before the check
// runs again.
const defaultCacheTTL = 5 * time.Second

// checkState holds one registered check together with its cached result.
type checkState struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// run executes the check, reusing the cached result when it is fresh
// enough. Concurrent probes serialize on the mutex so the underlying
// check runs at most once per cache window.
func (c *checkState) run(ctx context.Context, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if !c.lastRun.IsZero() && now.Sub(c.lastRun) < ttl {
		return c.lastErr
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.lastErr = c.check(checkCtx)
	c.lastRun = now
	return c.lastErr
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready    atomic.Bool
	cacheTTL time.Duration

	mu              sync.RWMutex
	livenessChecks  []*checkState
	readinessChecks []*checkState
}

// New creates a Health instance with the default result cache window.
// The service starts in a not-ready state; call SetReady(true) once
// initialization completes.
func New() *Health {
	return &Health{cacheTTL: defaultCacheTTL}
}

// AddLivenessCheck registers a liveness check. Liveness checks determine
// whether the process itself is functioning, such as goroutine count or
// GC pause duration.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, &checkState{
		name:    name,
		timeout: timeout,
		check:   check,
	})
}

// AddReadinessCheck registers a readiness check. Readiness checks
// determine whether the service can accept traffic, such as database or
// cache connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, &checkState{
		name:    name,
		timeout: timeout,
		check:   check,
	})
}

// SetReady sets the manual readiness gate. Call with true after startup
// and with false during graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service accepts traffic: the manual gate
// must be open and every readiness check passing.
func (h *Health) IsReady(ctx context.Context) bool {
	if !h.ready.Load() {
		return false
	}
	return len(h.runChecks(ctx, h.snapshot(&h.readinessChecks))) == 0
}

// statusResponse is the JSON response body for probe endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the /livez probe. It returns 200 with
// {"status":"ok"} when all liveness checks pass, or 503 listing failures.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	failures := h.runChecks(r.Context(), h.snapshot(&h.livenessChecks))
	writeResponse(w, failures)
}

// ReadyEndpoint serves the /readyz probe. It returns 200 only when the
// manual gate is open and all readiness checks pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	failures := h.runChecks(r.Context(), h.snapshot(&h.readinessChecks))
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

func (h *Health) snapshot(list *[]*checkState) []*checkState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*checkState, len(*list))
	copy(out, *list)
	return out
}

// runChecks executes the given checks and returns name-to-message
// failures for those that are unhealthy.
func (h *Health) runChecks(ctx context.Context, checks []*checkState) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if err := c.run(ctx, h.cacheTTL); err != nil {
			failures[c.name] = err.Error()
		}
	}
	return failures
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
