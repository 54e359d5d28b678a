/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package crpt provides a client for the document creation API that never exceeds
// the configured number of requests within a sliding time window.
// Excess documents are queued and sent later in submission order.
package crpt

import (
	"fmt"
	"net/http"

	"github.com/acronis/go-crptclient/dispatch"
	"github.com/acronis/go-crptclient/httpclient"
	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/service"
)

// API submits documents for creation with rate limiting.
type API struct {
	Client     *Client
	Dispatcher *dispatch.Dispatcher

	unit          *dispatch.Unit
	clientMetrics *httpclient.PrometheusMetricsCollector
}

// APIOpts contains optional parameters for constructing API.
type APIOpts struct {
	Logger log.FieldLogger

	// Transport is the innermost http.RoundTripper of the client.
	Transport http.RoundTripper

	// MetricsNamespace enables Prometheus metrics of the dispatcher and the client with the given namespace.
	// Metrics are registered by MustRegisterMetrics.
	MetricsNamespace string

	// ResultHandler receives the outcome of every document creation attempt.
	// Retries of failed attempts have RetryAttempt payloads.
	ResultHandler dispatch.ResultHandler

	// ResponseHandler receives successful responses.
	ResponseHandler ResponseHandler
}

// NewAPI creates a new API. Dispatching starts immediately.
func NewAPI(cfg *Config, opts APIOpts) (*API, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	var clientMetrics *httpclient.PrometheusMetricsCollector
	var dispatchMetrics *dispatch.PrometheusMetrics
	clientOpts := ClientOpts{Logger: logger, Transport: opts.Transport}
	dispatchOpts := dispatch.Opts{Logger: logger, ResultHandler: opts.ResultHandler}
	if opts.MetricsNamespace != "" {
		clientMetrics = httpclient.NewPrometheusMetricsCollector(opts.MetricsNamespace)
		clientOpts.MetricsCollector = clientMetrics
		dispatchMetrics = dispatch.NewPrometheusMetricsWithOpts(dispatch.PrometheusMetricsOpts{Namespace: opts.MetricsNamespace})
		dispatchOpts.MetricsCollector = dispatchMetrics
	}

	client, err := NewClient(cfg, clientOpts)
	if err != nil {
		return nil, err
	}

	dispatchCfg := cfg.Dispatch
	if dispatchCfg == nil {
		dispatchCfg = dispatch.NewDefaultConfig()
	}
	retriesCfg := httpclient.NewDefaultConfig().Retries
	if cfg.HTTP != nil {
		retriesCfg = cfg.HTTP.Retries
	}
	resubmit := newResubmitter(retriesCfg, logger)
	if resubmit != nil {
		dispatchOpts.ResultHandler = func(res dispatch.Result) {
			if opts.ResultHandler != nil {
				opts.ResultHandler(res)
			}
			resubmit.handleResult(res)
		}
	}

	executor := &DocumentExecutor{Client: client, Logger: logger, ResponseHandler: opts.ResponseHandler}
	dispatcher, err := dispatch.NewWithOpts(dispatchCfg, executor, dispatchOpts)
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	if resubmit != nil {
		resubmit.submit = dispatcher.Submit
	}

	unitOpts := dispatch.UnitOpts{}
	if dispatchMetrics != nil {
		unitOpts.MetricsRegisterer = dispatchMetrics
	}
	return &API{
		Client:        client,
		Dispatcher:    dispatcher,
		unit:          dispatch.NewUnitWithOpts(dispatcher, unitOpts),
		clientMetrics: clientMetrics,
	}, nil
}

// CreateDocument queues the document for creation and returns immediately.
// The document is sent as soon as the rate limit allows. dispatch.ErrStopped is returned after Stop.
func (a *API) CreateDocument(p DocumentProvider) (dispatch.Item, error) {
	if p == nil {
		return dispatch.Item{}, fmt.Errorf("document provider is nil")
	}
	return a.Dispatcher.Submit(p)
}

// Stop stops dispatching. Documents that are not sent yet are discarded.
// It waits until in-flight requests are finished.
func (a *API) Stop() {
	a.Dispatcher.Stop()
}

// Unit returns API presented as service.Unit.
func (a *API) Unit() *Unit {
	return &Unit{api: a}
}

// Unit allows running API as service.Unit. It also registers metrics of the dispatcher and the client.
type Unit struct {
	api *API
}

var _ service.Unit = (*Unit)(nil)
var _ service.MetricsRegisterer = (*Unit)(nil)

// Start blocks until dispatching is stopped.
// An admission invariant violation of the dispatcher is sent to fatalError.
func (u *Unit) Start(fatalError chan<- error) {
	u.api.unit.Start(fatalError)
}

// Stop stops dispatching. If gracefully is false, in-flight requests are canceled.
func (u *Unit) Stop(gracefully bool) error {
	return u.api.unit.Stop(gracefully)
}

// MustRegisterMetrics registers metrics of the dispatcher and the client (if enabled).
func (u *Unit) MustRegisterMetrics() {
	u.api.unit.MustRegisterMetrics()
	if u.api.clientMetrics != nil {
		u.api.clientMetrics.MustRegister()
	}
}

// UnregisterMetrics unregisters metrics of the dispatcher and the client.
func (u *Unit) UnregisterMetrics() {
	u.api.unit.UnregisterMetrics()
	if u.api.clientMetrics != nil {
		u.api.clientMetrics.Unregister()
	}
}

// Stats is a snapshot of the dispatching state.
type Stats struct {
	State    dispatch.State
	Pending  int
	InWindow int
	Admitted int64
	Err      error
}

// Stats returns the current dispatching state.
func (a *API) Stats() Stats {
	return Stats{
		State:    a.Dispatcher.State(),
		Pending:  a.Dispatcher.PendingLen(),
		InWindow: a.Dispatcher.InWindow(),
		Admitted: a.Dispatcher.Admitted(),
		Err:      a.Dispatcher.Err(),
	}
}
