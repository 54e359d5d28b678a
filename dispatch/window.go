/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"fmt"
	"time"
)

// Rate describes the maximum number of admissions (Count) within a trailing window (Duration).
type Rate struct {
	Count    int
	Duration time.Duration
}

// String returns a human-readable representation of the rate (e.g. "5/1s").
func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Count, r.Duration)
}

// WindowTracker keeps timestamps of admissions that fall inside the trailing window
// and answers how many admissions are still allowed right now.
//
// Timestamps are stored in a ring, oldest first. The ring grows on demand up to Rate.Count elements,
// so a large limit costs memory only when the window is actually busy.
// WindowTracker is not safe for concurrent use.
type WindowTracker struct {
	rate  Rate
	ring  []time.Time
	head  int
	count int
}

// initialRingSize is the ring capacity allocated on the first admission.
const initialRingSize = 16

// NewWindowTracker creates a new WindowTracker for the given rate.
// A rate with zero (or negative) Count is valid: such tracker never has free slots.
func NewWindowTracker(r Rate) *WindowTracker {
	return &WindowTracker{rate: r}
}

// Rate returns the rate the tracker was created with.
func (wt *WindowTracker) Rate() Rate {
	return wt.rate
}

// Len returns the number of retained admission timestamps (without pruning).
func (wt *WindowTracker) Len() int {
	return wt.count
}

// Prune removes every admission timestamp that is older than the window relative to now.
// A timestamp ts is retained while now-ts <= Rate.Duration.
func (wt *WindowTracker) Prune(now time.Time) {
	for wt.count > 0 && now.Sub(wt.ring[wt.head]) > wt.rate.Duration {
		wt.ring[wt.head] = time.Time{}
		wt.head = wt.index(1)
		wt.count--
	}
}

// AvailableSlots prunes expired timestamps and returns how many admissions are allowed at the moment.
func (wt *WindowTracker) AvailableSlots(now time.Time) int {
	wt.Prune(now)
	if free := wt.rate.Count - wt.count; free > 0 {
		return free
	}
	return 0
}

// RecordAdmission appends now to the admission log.
// The caller must check AvailableSlots before, without any admission in between.
// Recording into a full window or recording a timestamp older than the newest one
// is an invariant violation and is reported as *AdmissionInvariantViolationError.
func (wt *WindowTracker) RecordAdmission(now time.Time) error {
	if wt.count >= wt.rate.Count {
		return &AdmissionInvariantViolationError{
			Reason: "admission recorded without free slot", InWindow: wt.count, Limit: wt.rate.Count, Now: now}
	}
	if newest, ok := wt.Newest(); ok && now.Before(newest) {
		return &AdmissionInvariantViolationError{
			Reason: "admission time is earlier than the newest one", InWindow: wt.count, Limit: wt.rate.Count, Now: now}
	}
	if wt.count == len(wt.ring) {
		wt.grow()
	}
	wt.ring[wt.index(wt.count)] = now
	wt.count++
	return nil
}

// grow doubles the ring capacity without exceeding Rate.Count and moves the head to the start.
func (wt *WindowTracker) grow() {
	size := initialRingSize
	if len(wt.ring) > 0 {
		size = len(wt.ring) * 2
	}
	if size > wt.rate.Count || size <= len(wt.ring) {
		size = wt.rate.Count
	}
	ring := make([]time.Time, size)
	for i := 0; i < wt.count; i++ {
		ring[i] = wt.ring[wt.index(i)]
	}
	wt.ring = ring
	wt.head = 0
}

// Oldest returns the oldest retained admission timestamp.
func (wt *WindowTracker) Oldest() (time.Time, bool) {
	if wt.count == 0 {
		return time.Time{}, false
	}
	return wt.ring[wt.head], true
}

// Newest returns the most recent admission timestamp.
func (wt *WindowTracker) Newest() (time.Time, bool) {
	if wt.count == 0 {
		return time.Time{}, false
	}
	return wt.ring[wt.index(wt.count-1)], true
}

// NextSlotAt returns the moment when the next admission becomes possible.
// It returns now if a slot is free already and zero time if admissions are never possible (zero limit).
func (wt *WindowTracker) NextSlotAt(now time.Time) time.Time {
	if wt.rate.Count <= 0 {
		return time.Time{}
	}
	if wt.AvailableSlots(now) > 0 {
		return now
	}
	oldest, _ := wt.Oldest()
	return oldest.Add(wt.rate.Duration + 1)
}

// checkInvariants verifies the bookkeeping is consistent for the given moment:
// the retained count is within the limit and now is not earlier than the newest timestamp.
// Timestamps are not rescanned for ordering here: RecordAdmission is the only writer
// and it rejects out-of-order timestamps, so the ring stays sorted.
func (wt *WindowTracker) checkInvariants(now time.Time) error {
	if wt.count < 0 || wt.count > wt.rate.Count || wt.count > len(wt.ring) {
		return &AdmissionInvariantViolationError{
			Reason: "admissions in window exceed limit", InWindow: wt.count, Limit: wt.rate.Count, Now: now}
	}
	if newest, ok := wt.Newest(); ok && now.Before(newest) {
		return &AdmissionInvariantViolationError{
			Reason: "clock went backwards", InWindow: wt.count, Limit: wt.rate.Count, Now: now}
	}
	return nil
}

func (wt *WindowTracker) index(offset int) int {
	return (wt.head + offset) % len(wt.ring)
}
