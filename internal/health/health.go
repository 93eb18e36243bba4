// Package health provides health check endpoints for the registry service.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jacobparis/registry-registry/internal/kv"
)

// HealthCheck manages health check functionality. Readiness tracks the
// key-value backend, probed on a fixed interval in the background.
type HealthCheck struct {
	backend       kv.Store
	logger        *zap.Logger
	mu            sync.RWMutex
	ready         bool
	lastErr       string
	lastCheck     time.Time
	checkInterval time.Duration
}

// NewHealthCheck creates a new HealthCheck instance and starts the
// background probe.
func NewHealthCheck(backend kv.Store, logger *zap.Logger) *HealthCheck {
	hc := &HealthCheck{
		backend:       backend,
		logger:        logger,
		checkInterval: 5 * time.Second,
	}

	hc.check()
	go hc.backgroundCheck()

	return hc
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// LivenessHandler handles GET /health requests. Returns 200 OK while the
// process is running.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{Status: "healthy"}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler handles GET /ready requests. Returns 200 only while the
// key-value backend answers pings.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hc.mu.RLock()
	ready := hc.ready
	lastErr := hc.lastErr
	hc.mu.RUnlock()

	resp := ReadinessResponse{
		Status: "ready",
		Checks: map[string]string{"kv": "ok"},
	}
	status := http.StatusOK
	if !ready {
		resp.Status = "not ready"
		resp.Checks["kv"] = "failing"
		resp.Error = lastErr
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Ready reports the current readiness state.
func (hc *HealthCheck) Ready() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.ready
}

func (hc *HealthCheck) backgroundCheck() {
	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for range ticker.C {
		hc.check()
	}
}

func (hc *HealthCheck) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := hc.backend.Ping(ctx)

	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastCheck = time.Now()
	if err != nil {
		if hc.ready {
			hc.logger.Warn("key-value backend unreachable", zap.Error(err))
		}
		hc.ready = false
		hc.lastErr = err.Error()
		return
	}
	hc.ready = true
	hc.lastErr = ""
}
