/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWorkerUnitStopTimeoutExceeded is returned by WorkerUnit.Stop when the worker does not finish in time.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

// WorkerUnit presents Worker as Unit. The worker's context is canceled on Stop.
type WorkerUnit struct {
	worker            Worker
	metricsRegisterer MetricsRegisterer
	stopTimeout       time.Duration

	ctx       context.Context
	ctxCancel context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
}

// WorkerUnitOpts contains optional parameters for constructing WorkerUnit.
type WorkerUnitOpts struct {
	MetricsRegisterer   MetricsRegisterer
	GracefulStopTimeout time.Duration
}

// NewWorkerUnit creates a new instance of WorkerUnit.
func NewWorkerUnit(worker Worker) *WorkerUnit {
	return NewWorkerUnitWithOpts(worker, WorkerUnitOpts{})
}

// NewWorkerUnitWithOpts is a more configurable version of NewWorkerUnit.
func NewWorkerUnitWithOpts(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	ctx, ctxCancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:            worker,
		metricsRegisterer: opts.MetricsRegisterer,
		stopTimeout:       opts.GracefulStopTimeout,
		ctx:               ctx,
		ctxCancel:         ctxCancel,
		done:              make(chan struct{}),
	}
}

// Start runs the underlying worker and blocks until it returns.
func (u *WorkerUnit) Start(fatalError chan<- error) {
	u.startOnce.Do(func() {
		defer close(u.done)
		if err := u.worker.Run(u.ctx); err != nil {
			fatalError <- err
		}
	})
}

// Done returns a channel that is closed when the worker returns.
func (u *WorkerUnit) Done() <-chan struct{} {
	return u.done
}

// Stop cancels the worker's context. If gracefully is true, it waits (with optional timeout) for the worker to return.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.ctxCancel()
	if !gracefully {
		return nil
	}
	// Worker that has never been started has nothing to wait for.
	u.startOnce.Do(func() { close(u.done) })
	if u.stopTimeout == 0 {
		<-u.done
		return nil
	}
	select {
	case <-u.done:
		return nil
	case <-time.After(u.stopTimeout):
		return ErrWorkerUnitStopTimeoutExceeded
	}
}

// MustRegisterMetrics registers underlying Worker's metrics.
func (u *WorkerUnit) MustRegisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.MustRegisterMetrics()
	}
}

// UnregisterMetrics unregisters underlying Worker's metrics.
func (u *WorkerUnit) UnregisterMetrics() {
	if u.metricsRegisterer != nil {
		u.metricsRegisterer.UnregisterMetrics()
	}
}
