// Package metrics provides interfaces and implementations for
// collecting cipsd server metrics. This package defines the Collector
// interface for recording metrics and the Server interface for
// exposing them.
package metrics

import "context"

// Collector defines the interface for recording cipsd server metrics.
type Collector interface {
	// Connection metrics
	ConnectionOpened()
	ConnectionClosed()

	// Auth metrics: op is "register" or "login".
	AuthAttempt(op string, success bool)

	// Command metrics
	CommandProcessed(command string)

	// Domain metrics
	CipPublished()
	FollowChanged(op string, code int)
	OversizedCommandDropped()
}

// Server defines the interface for a metrics HTTP server.
type Server interface {
	// Start begins serving metrics. It blocks until the context is canceled
	// or an error occurs.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the metrics server.
	Shutdown(ctx context.Context) error
}
