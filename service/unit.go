/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service ties long-living components (dispatcher, HTTP servers, workers) into a single process lifecycle.
package service

// Unit is a component with its own lifecycle that can be started and stopped.
type Unit interface {
	// Start runs the unit. It may return right after initialization or block for the unit's lifetime.
	// A failure is reported by writing to fatalErr. The channel must not be used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. If gracefully is true, the unit finishes the work in progress first.
	// Stop may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register its own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
