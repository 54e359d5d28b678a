/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Item is a unit of work accepted by Dispatcher.
// Payload is opaque for the dispatcher and is interpreted by Executor only.
type Item struct {
	ID          string
	Payload     interface{}
	SubmittedAt time.Time
}

// Executor performs the actual effect for an admitted item.
// It's called once per item, in admission order.
type Executor interface {
	Execute(ctx context.Context, item Item) error
}

// ExecutorFunc is an adapter to allow the use of ordinary functions as Executor.
type ExecutorFunc func(ctx context.Context, item Item) error

// Execute implements Executor interface.
func (f ExecutorFunc) Execute(ctx context.Context, item Item) error {
	return f(ctx, item)
}

// Task is a self-executing payload.
type Task func(ctx context.Context) error

// TaskExecutor runs items which payloads are Task (or func(ctx context.Context) error).
// It's used by Dispatcher when no Executor is specified.
type TaskExecutor struct{}

// Execute implements Executor interface.
func (TaskExecutor) Execute(ctx context.Context, item Item) error {
	switch task := item.Payload.(type) {
	case Task:
		return task(ctx)
	case func(ctx context.Context) error:
		return task(ctx)
	case func():
		task()
		return nil
	}
	return fmt.Errorf("unsupported payload type %T, Task is expected", item.Payload)
}

// Result describes the outcome of a single Executor call.
type Result struct {
	Item       Item
	AdmittedAt time.Time
	Duration   time.Duration
	// Err is nil on success, *ExecutorError otherwise.
	Err error
}

// ResultHandler receives results of Executor calls.
// With Concurrency of 1 it's called from the dispatching goroutine, so it should not block for long.
// With higher Concurrency it's called from the goroutines running Executor,
// so calls may overlap and the handler must be safe for concurrent use.
type ResultHandler func(res Result)
