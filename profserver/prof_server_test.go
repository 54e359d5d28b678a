/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/log/logtest"
	"github.com/acronis/go-crptclient/testutil"
)

func TestConfig(t *testing.T) {
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, NewDefaultConfig(), cfg)

	cfg = NewConfig()
	cfgData := "profServer:\n  enabled: true\n  address: 0.0.0.0:6060\n"
	err = config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, "0.0.0.0:6060", cfg.Address)
}

func TestProfServer(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Address = testutil.GetLocalAddrWithFreeTCPPort()
	srv := New(cfg, logtest.NewRecorder())
	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)
	require.NoError(t, testutil.WaitListeningServer(cfg.Address, 3*time.Second))
	require.Eventually(t, func() bool { return srv.URL() == "http://"+cfg.Address }, time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL() + "/debug/pprof/cmdline")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(true))
	testutil.RequireNoErrorInChannel(t, fatalErr)
}
