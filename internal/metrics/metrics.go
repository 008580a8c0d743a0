// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
	IncRateLimited(scope string) // scope: "user" or "ip"

	// Auth metrics; event is register, login, refresh or logout.
	IncAuthEvent(event string, success bool)

	// Expense management metrics
	IncExpenseCreated()
	IncExpenseUpdated()
	IncExpenseDeleted()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
