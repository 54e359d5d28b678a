/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type mockUnit struct {
	name      string
	running   *atomic.Int32
	stop      chan struct{}
	stopErr   error
	fatalErr  error
	stopCalls atomic.Int32
	graceful  atomic.Bool

	registerCalls   atomic.Int32
	unregisterCalls atomic.Int32
}

func newMockUnit(name string, running *atomic.Int32) *mockUnit {
	return &mockUnit{name: name, running: running, stop: make(chan struct{})}
}

func (u *mockUnit) Start(fatalError chan<- error) {
	if u.fatalErr != nil {
		fatalError <- u.fatalErr
		return
	}
	u.running.Inc()
	<-u.stop
}

func (u *mockUnit) Stop(gracefully bool) error {
	if u.stopCalls.Inc() == 1 {
		u.graceful.Store(gracefully)
		if u.fatalErr == nil {
			u.running.Dec()
			close(u.stop)
		}
	}
	return u.stopErr
}

func (u *mockUnit) MustRegisterMetrics() { u.registerCalls.Inc() }

func (u *mockUnit) UnregisterMetrics() { u.unregisterCalls.Inc() }

func makeMockUnits(n int, running *atomic.Int32) ([]*mockUnit, *CompositeUnit) {
	mocks := make([]*mockUnit, 0, n)
	units := make([]Unit, 0, n)
	for i := 0; i < n; i++ {
		m := newMockUnit(fmt.Sprintf("unit#%d", i), running)
		mocks = append(mocks, m)
		units = append(units, m)
	}
	return mocks, NewCompositeUnit(units...)
}

func TestCompositeUnit_StartAndStop(t *testing.T) {
	t.Run("graceful stop", func(t *testing.T) {
		const unitsNum = 20
		var running atomic.Int32
		mocks, cu := makeMockUnits(unitsNum, &running)

		startExited := make(chan struct{})
		fatalErr := make(chan error, 1)
		go func() {
			defer close(startExited)
			cu.Start(fatalErr)
		}()
		require.Eventually(t, func() bool { return running.Load() == unitsNum }, time.Second, 5*time.Millisecond)

		require.NoError(t, cu.Stop(true))
		require.Equal(t, int32(0), running.Load())
		for _, m := range mocks {
			require.True(t, m.graceful.Load())
		}

		select {
		case <-startExited:
		case <-time.After(time.Second):
			require.Fail(t, "Start is not finished")
		}
		require.Len(t, fatalErr, 0)
	})

	t.Run("stop errors are collected", func(t *testing.T) {
		var running atomic.Int32
		mocks, cu := makeMockUnits(5, &running)
		mocks[1].stopErr = errors.New("unit#1: internal error")
		mocks[3].stopErr = errors.New("unit#3: internal error")

		go cu.Start(make(chan error, 1))
		require.Eventually(t, func() bool { return running.Load() == 5 }, time.Second, 5*time.Millisecond)

		err := cu.Stop(true)
		var cuErr *CompositeUnitError
		require.ErrorAs(t, err, &cuErr)
		require.Len(t, cuErr.UnitErrors, 2)
		require.ErrorIs(t, err, mocks[1].stopErr)
	})

	t.Run("fatal error stops other units", func(t *testing.T) {
		var running atomic.Int32
		mocks, cu := makeMockUnits(4, &running)
		errFatal := errors.New("admission invariant violated")
		mocks[2].fatalErr = errFatal

		fatalErr := make(chan error, 1)
		go cu.Start(fatalErr)

		var err error
		select {
		case err = <-fatalErr:
		case <-time.After(time.Second):
			require.Fail(t, "fatal error is expected")
		}
		require.ErrorIs(t, err, errFatal)
		require.Eventually(t, func() bool { return running.Load() == 0 }, time.Second, 5*time.Millisecond)
		for i, m := range mocks {
			require.Equal(t, int32(1), m.stopCalls.Load(), "unit #%d", i)
			require.False(t, m.graceful.Load())
		}
	})
}

func TestCompositeUnit_Metrics(t *testing.T) {
	var running atomic.Int32
	mocks, cu := makeMockUnits(3, &running)
	cu.MustRegisterMetrics()
	cu.UnregisterMetrics()
	for _, m := range mocks {
		require.Equal(t, int32(1), m.registerCalls.Load())
		require.Equal(t, int32(1), m.unregisterCalls.Load())
	}
}
