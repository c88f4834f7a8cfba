// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authd.
//
// go-authd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package health implements liveness and readiness checks following
// Kubernetes probe semantics.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is operating normally.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is not functioning.
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// CheckFunc is a function that performs a health check. It should return
// quickly and indicate component health.
type CheckFunc func(ctx context.Context) CheckResult

// Checker manages liveness and readiness checks.
type Checker struct {
	mu        sync.RWMutex
	started   bool
	startTime time.Time
	checks    map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
	}
}

// RegisterCheck adds a readiness check with the given name, replacing any
// existing check with that name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// MarkStarted marks the service as fully started and ready. Call after all
// initialization is complete.
func (c *Checker) MarkStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

// Live performs a liveness check. It fails only when the process is in an
// unrecoverable state, which for this service means never.
func (c *Checker) Live(_ context.Context) CheckResult {
	start := time.Now()
	return CheckResult{
		Name:    "liveness",
		Status:  StatusHealthy,
		Message: "service is alive",
		Latency: time.Since(start),
	}
}

// Ready runs all registered checks. The service is ready when it has been
// marked started and every check passes.
func (c *Checker) Ready(ctx context.Context) (Status, []CheckResult) {
	c.mu.RLock()
	started := c.started
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	if !started {
		return StatusUnhealthy, []CheckResult{{
			Name:    "startup",
			Status:  StatusUnhealthy,
			Message: "service has not finished starting",
		}}
	}

	status := StatusHealthy
	results := make([]CheckResult, 0, len(checks))
	for name, check := range checks {
		result := check(ctx)
		result.Name = name
		if result.Status != StatusHealthy {
			status = StatusUnhealthy
		}
		results = append(results, result)
	}
	return status, results
}

// Uptime returns how long the checker has been alive.
func (c *Checker) Uptime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.startTime)
}

// LiveHandler serves the liveness probe endpoint.
func (c *Checker) LiveHandler(w http.ResponseWriter, r *http.Request) {
	result := c.Live(r.Context())
	writeProbe(w, http.StatusOK, map[string]any{
		"status": result.Status,
		"uptime": c.Uptime().String(),
	})
}

// ReadyHandler serves the readiness probe endpoint.
func (c *Checker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	status, results := c.Ready(r.Context())
	code := http.StatusOK
	if status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeProbe(w, code, map[string]any{
		"status": status,
		"checks": results,
	})
}

func writeProbe(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
