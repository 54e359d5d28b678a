/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/crpt"
	"github.com/acronis/go-crptclient/dispatch"
	"github.com/acronis/go-crptclient/log/logtest"
	"github.com/acronis/go-crptclient/service"
)

func TestLoadAppConfig(t *testing.T) {
	t.Run("file is missing, defaults and env vars are used", func(t *testing.T) {
		t.Setenv("CRPT_DEMO_CRPT_DISPATCH_LIMIT", "7")
		t.Setenv("CRPT_DEMO_DEMO_DOCUMENTS", "3")

		cfg, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.yml"))
		require.NoError(t, err)
		require.Equal(t, 7, cfg.Crpt.Dispatch.Limit)
		require.Equal(t, config.TimeDuration(dispatch.DefaultWindow), cfg.Crpt.Dispatch.Window)
		require.Equal(t, 3, cfg.Demo.Documents)
		require.Equal(t, config.TimeDuration(defaultDemoInterval), cfg.Demo.Interval)
		require.True(t, cfg.Demo.StubServer.Enabled)
		require.Equal(t, crpt.DefaultBaseURL, cfg.Crpt.BaseURL)
		require.Equal(t, ":9090", cfg.MetricsServer.Address)
		require.False(t, cfg.ProfServer.Enabled)
		require.Equal(t, "127.0.0.1:8081", cfg.ProfServer.Address)
	})

	t.Run("example config file", func(t *testing.T) {
		cfg, err := loadAppConfig("config.yml")
		require.NoError(t, err)
		require.Equal(t, dispatch.Rate{Count: 5, Duration: time.Second}, cfg.Crpt.Dispatch.Rate())
		require.Equal(t, config.TimeDuration(100*time.Millisecond), cfg.Crpt.Dispatch.PollInterval)
		require.Equal(t, 25, cfg.Demo.Documents)
		require.Equal(t, config.TimeDuration(10*time.Second), cfg.Demo.RunFor)
	})
}

type submitterMock struct {
	submitted int
	err       error
}

func (m *submitterMock) CreateDocument(p crpt.DocumentProvider) (dispatch.Item, error) {
	if m.err != nil {
		return dispatch.Item{}, m.err
	}
	m.submitted++
	return dispatch.Item{Payload: p}, nil
}

func TestFeeder(t *testing.T) {
	t.Run("stops after all documents are submitted", func(t *testing.T) {
		api := &submitterMock{}
		f := &feeder{api: api, logger: logtest.NewRecorder(), total: 3}
		for i := 0; i < 3; i++ {
			require.NoError(t, f.Run(context.Background()))
		}
		require.ErrorIs(t, f.Run(context.Background()), service.ErrPeriodicWorkerStop)
		require.Equal(t, 3, api.submitted)
	})

	t.Run("stops when the API is stopped", func(t *testing.T) {
		f := &feeder{api: &submitterMock{err: dispatch.ErrStopped}, logger: logtest.NewRecorder(), total: 3}
		require.ErrorIs(t, f.Run(context.Background()), service.ErrPeriodicWorkerStop)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		submitErr := errors.New("boom")
		f := &feeder{api: &submitterMock{err: submitErr}, logger: logtest.NewRecorder(), total: 3}
		require.ErrorIs(t, f.Run(context.Background()), submitErr)
	})
}

func TestMakeHealthCheck(t *testing.T) {
	cfg := crpt.NewDefaultConfig()
	cfg.BaseURL = "http://127.0.0.1:1"
	api, err := crpt.NewAPI(cfg, crpt.APIOpts{})
	require.NoError(t, err)
	healthCheck := makeHealthCheck(api)

	result, err := healthCheck(context.Background())
	require.NoError(t, err)
	require.True(t, result["dispatcher"].Healthy)
	require.Equal(t, dispatch.StateRunning.String(), result["dispatcher"].Details["state"])

	api.Stop()
	result, err = healthCheck(context.Background())
	require.NoError(t, err)
	require.False(t, result["dispatcher"].Healthy)
}
