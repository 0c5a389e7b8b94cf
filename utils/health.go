package utils

import (
	"context"
	"sync"
	"time"
)

// Pinger is any backing service that can report liveness.
type Pinger func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Services  map[string]bool `json:"services"`
	Healthy   bool            `json:"healthy"`
	CheckedAt time.Time       `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// CheckHealth pings every service once and stores the snapshot.
func CheckHealth(ctx context.Context, checks map[string]Pinger) HealthStatus {
	status := HealthStatus{Services: make(map[string]bool, len(checks)), Healthy: true, CheckedAt: time.Now()}
	for name, ping := range checks {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		ok := ping(pingCtx) == nil
		cancel()
		status.Services[name] = ok
		if !ok {
			status.Healthy = false
		}
	}

	mu.Lock()
	currentHealth = status
	mu.Unlock()
	return status
}

// StartHealthMonitor performs periodic health checks and updates in-memory state.
func StartHealthMonitor(ctx context.Context, checks map[string]Pinger, interval time.Duration) {
	CheckHealth(ctx, checks)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CheckHealth(ctx, checks)
			}
		}
	}()
}
