/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"errors"
	"fmt"
	"time"
)

// ErrStopped is returned by Submit when the dispatcher has been stopped.
var ErrStopped = errors.New("dispatcher is stopped")

// ErrAdmissionInvariant is a sentinel for internal bookkeeping inconsistencies.
// Use errors.Is to check whether the dispatcher was stopped because of it.
var ErrAdmissionInvariant = errors.New("admission invariant violated")

// AdmissionInvariantViolationError describes an internal inconsistency of the admission bookkeeping.
// It is fatal: the dispatcher stops ticking when it occurs.
type AdmissionInvariantViolationError struct {
	Reason   string
	InWindow int
	Limit    int
	Now      time.Time
}

func (e *AdmissionInvariantViolationError) Error() string {
	return fmt.Sprintf("%s: %s (in window: %d, limit: %d, now: %s)",
		ErrAdmissionInvariant.Error(), e.Reason, e.InWindow, e.Limit, e.Now.Format(time.RFC3339Nano))
}

// Unwrap returns ErrAdmissionInvariant.
func (e *AdmissionInvariantViolationError) Unwrap() error {
	return ErrAdmissionInvariant
}

// ExecutorError is reported (never returned from Submit) when Executor fails to process an admitted item.
type ExecutorError struct {
	Item Item
	Err  error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("execute item %s: %v", e.Item.ID, e.Err)
}

// Unwrap returns the error reported by Executor.
func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// PanicError is used as ExecutorError.Err when Executor panics.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
