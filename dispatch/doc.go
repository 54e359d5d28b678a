/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package dispatch provides a sliding-window rate limiter with deferred dispatch.
//
// Dispatcher accepts items at any rate and never blocks the submitter.
// Items are kept in an unbounded FIFO queue and are released to an Executor by a background
// tick loop so that no more than Rate.Count executions start within any trailing window of Rate.Duration.
// Nothing is dropped while the dispatcher is running: the excess simply waits for older admissions
// to age out of the window.
//
// Key features:
//   - Exact sliding window (admission log), not an approximation based on fixed buckets
//   - Strict FIFO admission order
//   - Executor failures and panics are isolated and reported asynchronously
//   - Optional bounded parallelism of Executor calls with serialized admission bookkeeping
//   - Prometheus metrics and structured logging
package dispatch
