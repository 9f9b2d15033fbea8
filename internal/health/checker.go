// Package health provides periodic self-checks for the HabitLoop daemon:
// database connectivity, data directory sanity, and progression liveness.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// Check defines a single health check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a health checker with the standard checks.
func NewChecker(db *sqlite.DB, dataDir string) *Checker {
	return &Checker{
		interval: 60 * time.Second,
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					return db.Ping()
				},
			},
			{
				Name: "data_dir",
				CheckFn: func(ctx context.Context) error {
					return checkDataDir(dataDir)
				},
			},
			{
				Name: "lifecycle",
				CheckFn: func(ctx context.Context) error {
					return checkLifecycle(db)
				},
			},
		},
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
		} else {
			s.Healthy = true
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Created on first write
		}
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// checkLifecycle flags a current-month lifecycle stuck in the error phase.
// An idle or missing record is fine; unresolved errors need attention.
func checkLifecycle(db *sqlite.DB) error {
	month := time.Now().Format(domain.MonthFormat)
	state, err := db.GetLifecycle(month)
	if err != nil {
		return fmt.Errorf("get lifecycle: %w", err)
	}
	if state != nil && state.Phase == domain.PhaseError {
		return fmt.Errorf("month %s is in the error phase", month)
	}
	return nil
}
