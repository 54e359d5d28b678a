/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/log"
)

// State is a lifecycle state of Dispatcher.
type State int32

// Dispatcher lifecycle states.
const (
	StateRunning State = iota
	StateStopped
)

// String returns a human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("unknown(%d)", int32(s))
}

const backlogWarningInterval = 10 * time.Second

// Opts contains optional parameters for constructing Dispatcher.
type Opts struct {
	// Logger is used for logging. Disabled logger is used if not specified.
	Logger log.FieldLogger

	// MetricsCollector collects metrics. Metrics are not collected if not specified.
	MetricsCollector MetricsCollector

	// ResultHandler receives the outcome of every Executor call.
	ResultHandler ResultHandler
}

type admission struct {
	item Item
	at   time.Time
}

// Dispatcher accepts items at any rate and releases them to Executor
// so that no more than Rate.Count executions start within any trailing window of Rate.Duration.
//
// Items are admitted strictly in submission order. All mutations of the pending queue and
// of the admission log are serialized by a single mutex, and the admission timestamp is recorded
// right before the item is handed to Executor. Executor is called outside the critical section,
// so Submit never waits for it.
type Dispatcher struct {
	rate         Rate
	pollInterval time.Duration
	executor     Executor
	logger       log.FieldLogger
	metrics      MetricsCollector
	onResult     ResultHandler
	now          func() time.Time
	execSlots    chan struct{} // nil if Executor calls are sequential

	mu      sync.Mutex
	tracker *WindowTracker
	pending *itemQueue

	state    atomic.Int32
	fatalErr atomic.Error
	admitted atomic.Int64

	stopOnce   sync.Once
	stopLoop   context.CancelFunc
	cancelExec context.CancelFunc
	done       chan struct{}

	backlogWarning rate.Sometimes
}

// New creates a new Dispatcher and starts its tick loop.
// If executor is nil, TaskExecutor is used.
func New(cfg *Config, executor Executor) (*Dispatcher, error) {
	return NewWithOpts(cfg, executor, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(cfg *Config, executor Executor, opts Opts) (*Dispatcher, error) {
	return newDispatcher(cfg, executor, opts, time.Now)
}

// NewWithRate creates a new Dispatcher for the given rate and poll interval (zero means default).
func NewWithRate(r Rate, pollInterval time.Duration, executor Executor, opts Opts) (*Dispatcher, error) {
	cfg := NewDefaultConfig()
	cfg.Limit = r.Count
	cfg.Window = config.TimeDuration(r.Duration)
	cfg.PollInterval = config.TimeDuration(pollInterval)
	return NewWithOpts(cfg, executor, opts)
}

// Must creates a new Dispatcher and panics if any error occurs.
func Must(cfg *Config, executor Executor, opts Opts) *Dispatcher {
	d, err := NewWithOpts(cfg, executor, opts)
	if err != nil {
		panic(err)
	}
	return d
}

func newDispatcher(cfg *Config, executor Executor, opts Opts, now func() time.Time) (*Dispatcher, error) {
	pollInterval, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid dispatcher config: %w", err)
	}
	if executor == nil {
		executor = TaskExecutor{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetricsCollector
	}

	d := &Dispatcher{
		rate:           cfg.Rate(),
		pollInterval:   pollInterval,
		executor:       executor,
		logger:         opts.Logger,
		metrics:        opts.MetricsCollector,
		onResult:       opts.ResultHandler,
		now:            now,
		tracker:        NewWindowTracker(cfg.Rate()),
		pending:        newItemQueue(),
		done:           make(chan struct{}),
		backlogWarning: rate.Sometimes{Interval: backlogWarningInterval},
	}
	if cfg.Concurrency > 1 {
		d.execSlots = make(chan struct{}, cfg.Concurrency)
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	execCtx, cancelExec := context.WithCancel(context.Background())
	d.stopLoop = stopLoop
	d.cancelExec = cancelExec

	d.logger.Info("starting dispatcher...",
		log.String("rate", d.rate.String()),
		log.Duration("poll_interval", d.pollInterval),
		log.Int("concurrency", cfg.Concurrency),
	)
	if d.rate.Count == 0 {
		d.logger.Warn("dispatcher limit is zero, submitted items will never be executed")
	}

	go d.run(loopCtx, execCtx)
	return d, nil
}

// Submit appends an item with the given payload to the pending queue and returns immediately.
// It never blocks on Executor and may be called from any number of goroutines.
// After Stop, it returns ErrStopped and the payload is not retained.
func (d *Dispatcher) Submit(payload interface{}) (Item, error) {
	item := Item{ID: xid.New().String(), Payload: payload, SubmittedAt: d.now()}

	d.mu.Lock()
	if State(d.state.Load()) == StateStopped {
		d.mu.Unlock()
		d.metrics.IncRejected()
		return Item{}, ErrStopped
	}
	d.pending.push(item)
	pendingLen := d.pending.len()
	d.metrics.SetPendingItems(pendingLen)
	d.mu.Unlock()

	d.metrics.IncSubmitted()
	if pendingLen > d.rate.Count {
		d.backlogWarning.Do(func() {
			d.logger.Warn("pending queue exceeds window capacity, items are deferred",
				log.Int("pending", pendingLen), log.String("rate", d.rate.String()))
		})
	}
	return item, nil
}

// SubmitTask is a shortcut for submitting a self-executing payload (see TaskExecutor).
func (d *Dispatcher) SubmitTask(task Task) (Item, error) {
	return d.Submit(task)
}

// Stop halts the tick loop, discards pending items and waits until the loop exits.
// Executor calls that are already in flight are not interrupted, Stop waits for them.
// Stop is idempotent. It must not be called from Executor or ResultHandler.
func (d *Dispatcher) Stop() {
	d.Shutdown(true)
}

// Shutdown stops the dispatcher. If gracefully is false, the context passed to in-flight
// Executor calls is canceled and Shutdown returns without waiting for the loop to exit.
func (d *Dispatcher) Shutdown(gracefully bool) {
	d.markStopped("stop requested")
	if !gracefully {
		d.cancelExec()
		return
	}
	<-d.done
}

// Done returns a channel that is closed when the tick loop exits.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Err returns the fatal error that stopped the dispatcher, if any.
func (d *Dispatcher) Err() error {
	return d.fatalErr.Load()
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Rate returns the rate the dispatcher enforces.
func (d *Dispatcher) Rate() Rate {
	return d.rate
}

// PollInterval returns the tick cadence.
func (d *Dispatcher) PollInterval() time.Duration {
	return d.pollInterval
}

// PendingLen returns the number of items waiting for admission.
func (d *Dispatcher) PendingLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending.len()
}

// InWindow returns the number of admissions within the current trailing window.
func (d *Dispatcher) InWindow() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracker.Prune(d.now())
	return d.tracker.Len()
}

// Admitted returns the total number of admitted items.
func (d *Dispatcher) Admitted() int64 {
	return d.admitted.Load()
}

func (d *Dispatcher) run(loopCtx, execCtx context.Context) {
	defer close(d.done)
	defer d.cancelExec()
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			d.logger.Error(fmt.Sprintf("panic in dispatcher loop: %+v", p), log.Bytes("stack", stack))
			panic(p)
		}
	}()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if err := d.tick(loopCtx, execCtx); err != nil {
			d.fatalErr.Store(err)
			d.logger.Error("dispatcher admission invariant violated, ticking is stopped", log.Error(err))
			d.markStopped("fatal error")
			return
		}
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick admits and executes items while there are free slots in the window and pending items.
// Capacity is re-checked under the lock before every admission.
func (d *Dispatcher) tick(loopCtx, execCtx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for loopCtx.Err() == nil {
		if d.execSlots != nil {
			select {
			case d.execSlots <- struct{}{}:
			case <-loopCtx.Done():
				return nil
			}
		}

		adm, ok, err := d.admitNext()
		if err != nil || !ok {
			d.releaseExecSlot()
			return err
		}

		if d.execSlots == nil {
			d.execute(execCtx, adm)
			continue
		}
		wg.Add(1)
		go func(adm admission) {
			defer wg.Done()
			defer d.releaseExecSlot()
			d.execute(execCtx, adm)
		}(adm)
	}
	return nil
}

func (d *Dispatcher) admitNext() (admission, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if err := d.tracker.checkInvariants(now); err != nil {
		return admission{}, false, err
	}
	if d.tracker.AvailableSlots(now) == 0 || d.pending.len() == 0 {
		return admission{}, false, nil
	}

	item, _ := d.pending.pop()
	if err := d.tracker.RecordAdmission(now); err != nil {
		return admission{}, false, err
	}
	d.metrics.SetPendingItems(d.pending.len())
	d.metrics.ObserveAdmission(now.Sub(item.SubmittedAt))
	return admission{item: item, at: now}, true, nil
}

func (d *Dispatcher) releaseExecSlot() {
	if d.execSlots == nil {
		return
	}
	select {
	case <-d.execSlots:
	default:
	}
}

func (d *Dispatcher) execute(ctx context.Context, adm admission) {
	d.admitted.Inc()
	logger := d.logger.With(log.String("item_id", adm.item.ID))

	startedAt := time.Now()
	err := d.safeExecute(ctx, adm.item)
	elapsed := time.Since(startedAt)

	d.metrics.ObserveExecution(elapsed, err != nil)

	res := Result{Item: adm.item, AdmittedAt: adm.at, Duration: elapsed}
	if err != nil {
		res.Err = &ExecutorError{Item: adm.item, Err: err}
		logger.Error("item execution failed", log.Error(err), log.DurationIn(elapsed, time.Millisecond))
	} else {
		logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
			logFunc("item executed",
				log.Duration("queue_wait", adm.at.Sub(adm.item.SubmittedAt)),
				log.DurationIn(elapsed, time.Millisecond))
		})
	}

	if d.onResult != nil {
		d.onResult(res)
	}
}

func (d *Dispatcher) safeExecute(ctx context.Context, item Item) (err error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			err = &PanicError{Value: p, Stack: stack}
		}
	}()
	return d.executor.Execute(ctx, item)
}

func (d *Dispatcher) markStopped(reason string) {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.state.Store(int32(StateStopped))
		discarded := d.pending.reset()
		d.metrics.SetPendingItems(0)
		d.mu.Unlock()

		d.stopLoop()

		if discarded > 0 {
			d.metrics.AddDiscarded(discarded)
			d.logger.Warn("pending items are discarded", log.Int("discarded", discarded), log.String("reason", reason))
		}
		d.logger.Info("dispatcher stopped", log.String("reason", reason), log.Int64("admitted", d.admitted.Load()))
	})
}
