// Package lifecycle holds the shared start and stop budgets for long-lived components.
package lifecycle

import "time"

const (
	// DefaultTimeout bounds graceful shutdown of servers and pools.
	DefaultTimeout = 10 * time.Second

	// StartupTimeout bounds fx OnStart hooks such as migrations.
	StartupTimeout = 30 * time.Second
)
