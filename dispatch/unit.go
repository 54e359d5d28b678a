/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import "github.com/acronis/go-crptclient/service"

// Unit allows presenting Dispatcher as service.Unit.
type Unit struct {
	Dispatcher        *Dispatcher
	metricsRegisterer service.MetricsRegisterer
}

var _ service.Unit = (*Unit)(nil)
var _ service.MetricsRegisterer = (*Unit)(nil)

// UnitOpts contains optional parameters for constructing Unit.
type UnitOpts struct {
	MetricsRegisterer service.MetricsRegisterer
}

// NewUnit creates a new instance of Unit.
func NewUnit(d *Dispatcher) *Unit {
	return NewUnitWithOpts(d, UnitOpts{})
}

// NewUnitWithOpts creates a new instance of Unit with an ability to specify different optional parameters.
func NewUnitWithOpts(d *Dispatcher, opts UnitOpts) *Unit {
	return &Unit{Dispatcher: d, metricsRegisterer: opts.MetricsRegisterer}
}

// Start blocks until the dispatcher's tick loop exits.
// The dispatcher is running since construction, so nothing is started here.
// If the loop exits because of an admission invariant violation, the error is sent to fatalError.
func (u *Unit) Start(fatalError chan<- error) {
	<-u.Dispatcher.Done()
	if err := u.Dispatcher.Err(); err != nil {
		fatalError <- err
	}
}

// Stop stops the underlying Dispatcher.
func (u *Unit) Stop(gracefully bool) error {
	u.Dispatcher.Shutdown(gracefully)
	return nil
}

// MustRegisterMetrics registers the dispatcher's metrics.
func (u *Unit) MustRegisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.MustRegisterMetrics()
	}
}

// UnregisterMetrics unregisters the dispatcher's metrics.
func (u *Unit) UnregisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.UnregisterMetrics()
	}
}
