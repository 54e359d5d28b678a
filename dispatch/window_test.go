/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type WindowTrackerTestSuite struct {
	suite.Suite
	t0 time.Time
}

func TestWindowTracker(t *testing.T) {
	suite.Run(t, new(WindowTrackerTestSuite))
}

func (ts *WindowTrackerTestSuite) SetupTest() {
	ts.t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (ts *WindowTrackerTestSuite) at(d time.Duration) time.Time {
	return ts.t0.Add(d)
}

func (ts *WindowTrackerTestSuite) TestAvailableSlotsAndPrune() {
	wt := NewWindowTracker(Rate{Count: 3, Duration: time.Second})
	ts.Equal(3, wt.AvailableSlots(ts.t0))

	ts.NoError(wt.RecordAdmission(ts.at(0)))
	ts.NoError(wt.RecordAdmission(ts.at(100 * time.Millisecond)))
	ts.NoError(wt.RecordAdmission(ts.at(200 * time.Millisecond)))

	ts.Equal(0, wt.AvailableSlots(ts.at(500*time.Millisecond)))

	// An admission exactly one window old is still inside the window.
	ts.Equal(0, wt.AvailableSlots(ts.at(time.Second)))
	ts.Equal(1, wt.AvailableSlots(ts.at(time.Second+1)))
	ts.Equal(2, wt.AvailableSlots(ts.at(1100*time.Millisecond+1)))
	ts.Equal(3, wt.AvailableSlots(ts.at(5*time.Second)))
	ts.Equal(0, wt.Len())
}

func (ts *WindowTrackerTestSuite) TestPruneKeepsOrder() {
	wt := NewWindowTracker(Rate{Count: 4, Duration: time.Second})
	for i := 0; i < 4; i++ {
		ts.NoError(wt.RecordAdmission(ts.at(time.Duration(i) * 300 * time.Millisecond)))
	}
	wt.Prune(ts.at(1400 * time.Millisecond))
	ts.Equal(2, wt.Len())

	oldest, ok := wt.Oldest()
	ts.True(ok)
	ts.Equal(ts.at(600*time.Millisecond), oldest)

	newest, ok := wt.Newest()
	ts.True(ok)
	ts.Equal(ts.at(900*time.Millisecond), newest)
}

func (ts *WindowTrackerTestSuite) TestRingWrapAround() {
	const limit = 3
	wt := NewWindowTracker(Rate{Count: limit, Duration: 100 * time.Millisecond})
	now := ts.t0
	for i := 0; i < 50; i++ {
		for wt.AvailableSlots(now) == 0 {
			now = now.Add(10 * time.Millisecond)
		}
		ts.NoError(wt.RecordAdmission(now))
		ts.LessOrEqual(wt.Len(), limit)
	}
	newest, ok := wt.Newest()
	ts.True(ok)
	ts.Equal(now, newest)
}

func (ts *WindowTrackerTestSuite) TestHugeLimit() {
	wt := NewWindowTracker(Rate{Count: math.MaxInt, Duration: 24 * time.Hour})
	ts.Equal(math.MaxInt, wt.AvailableSlots(ts.t0))
	ts.Empty(wt.ring)

	for i := 0; i < 100; i++ {
		ts.NoError(wt.RecordAdmission(ts.at(time.Duration(i) * time.Millisecond)))
	}
	ts.Equal(100, wt.Len())
	ts.Equal(math.MaxInt-100, wt.AvailableSlots(ts.at(time.Second)))
	ts.LessOrEqual(len(wt.ring), 128)
	ts.NoError(wt.checkInvariants(ts.at(time.Second)))
}

func (ts *WindowTrackerTestSuite) TestRingGrowsUpToLimit() {
	const limit = 40
	wt := NewWindowTracker(Rate{Count: limit, Duration: time.Second})
	ts.Empty(wt.ring)

	// Fill the initial ring, then free its head so the next growth happens with a wrapped ring.
	for i := 0; i < initialRingSize; i++ {
		ts.NoError(wt.RecordAdmission(ts.at(time.Duration(i) * 10 * time.Millisecond)))
	}
	ts.Len(wt.ring, initialRingSize)
	wt.Prune(ts.at(time.Second + 95*time.Millisecond))
	ts.Equal(initialRingSize-10, wt.Len())

	var recorded []time.Time
	for i := 0; wt.AvailableSlots(ts.at(1100*time.Millisecond)) > 0; i++ {
		at := ts.at(1100*time.Millisecond + time.Duration(i)*time.Microsecond)
		ts.NoError(wt.RecordAdmission(at))
		recorded = append(recorded, at)
	}
	ts.Equal(limit, wt.Len())
	ts.Len(wt.ring, limit)

	oldest, ok := wt.Oldest()
	ts.True(ok)
	ts.Equal(ts.at(100*time.Millisecond), oldest)
	newest, ok := wt.Newest()
	ts.True(ok)
	ts.Equal(recorded[len(recorded)-1], newest)

	// Timestamps leave the window in the order they were recorded.
	wt.Prune(ts.at(time.Second + 155*time.Millisecond))
	oldest, _ = wt.Oldest()
	ts.Equal(recorded[0], oldest)
	ts.Equal(len(recorded), wt.Len())
}

func (ts *WindowTrackerTestSuite) TestDuplicateTimestamps() {
	wt := NewWindowTracker(Rate{Count: 2, Duration: time.Second})
	ts.NoError(wt.RecordAdmission(ts.t0))
	ts.NoError(wt.RecordAdmission(ts.t0))
	ts.Equal(2, wt.Len())
	ts.Equal(0, wt.AvailableSlots(ts.t0))
	ts.Equal(2, wt.AvailableSlots(ts.at(time.Second+1)))
}

func (ts *WindowTrackerTestSuite) TestZeroLimit() {
	wt := NewWindowTracker(Rate{Count: 0, Duration: time.Second})
	ts.Equal(0, wt.AvailableSlots(ts.t0))
	wt.Prune(ts.at(time.Hour))
	ts.True(wt.NextSlotAt(ts.t0).IsZero())

	err := wt.RecordAdmission(ts.t0)
	ts.Error(err)
	ts.True(errors.Is(err, ErrAdmissionInvariant))
}

func (ts *WindowTrackerTestSuite) TestRecordAdmission_InvariantViolations() {
	wt := NewWindowTracker(Rate{Count: 1, Duration: time.Second})
	ts.NoError(wt.RecordAdmission(ts.t0))

	var violationErr *AdmissionInvariantViolationError
	err := wt.RecordAdmission(ts.at(10 * time.Millisecond))
	ts.ErrorAs(err, &violationErr)
	ts.Equal(1, violationErr.InWindow)
	ts.Equal(1, violationErr.Limit)

	wt = NewWindowTracker(Rate{Count: 3, Duration: time.Second})
	ts.NoError(wt.RecordAdmission(ts.at(time.Second)))
	ts.ErrorIs(wt.RecordAdmission(ts.t0), ErrAdmissionInvariant)

	// A rejected out-of-order timestamp leaves the log sorted and untouched.
	ts.Equal(1, wt.Len())
	ts.NoError(wt.RecordAdmission(ts.at(time.Second + time.Millisecond)))
	oldest, _ := wt.Oldest()
	newest, _ := wt.Newest()
	ts.Equal(ts.at(time.Second), oldest)
	ts.Equal(ts.at(time.Second+time.Millisecond), newest)
	ts.NoError(wt.checkInvariants(newest))
}

func (ts *WindowTrackerTestSuite) TestCheckInvariants() {
	wt := NewWindowTracker(Rate{Count: 2, Duration: time.Second})
	ts.NoError(wt.checkInvariants(ts.t0))
	ts.NoError(wt.RecordAdmission(ts.at(time.Second)))
	ts.NoError(wt.checkInvariants(ts.at(time.Second)))
	ts.ErrorIs(wt.checkInvariants(ts.t0), ErrAdmissionInvariant)
}

func (ts *WindowTrackerTestSuite) TestNextSlotAt() {
	wt := NewWindowTracker(Rate{Count: 2, Duration: time.Second})
	ts.Equal(ts.t0, wt.NextSlotAt(ts.t0))

	ts.NoError(wt.RecordAdmission(ts.t0))
	ts.NoError(wt.RecordAdmission(ts.at(300 * time.Millisecond)))

	next := wt.NextSlotAt(ts.at(500 * time.Millisecond))
	ts.Equal(ts.at(time.Second+1), next)
	ts.Equal(1, wt.AvailableSlots(next))
}
