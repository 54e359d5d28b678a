/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testDocumentConfigYAML = `
crpt:
  baseURL: https://ismp.crpt.ru
  retries:
    enabled: true
    maxAttempts: 3
  timeout: 10s
  maxResponseBodySize: 1MB
  logLevel: WARN
  badDuration: tomorrow
  badSize: -10
`

func newTestViperAdapter(t *testing.T) *ViperAdapter {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testDocumentConfigYAML), DataTypeYAML))
	return va
}

func TestViperAdapter_Getters(t *testing.T) {
	va := newTestViperAdapter(t)

	require.True(t, va.IsSet("crpt.baseURL"))
	require.False(t, va.IsSet("crpt.token"))

	baseURL, err := va.GetString("crpt.baseURL")
	require.NoError(t, err)
	require.Equal(t, "https://ismp.crpt.ru", baseURL)

	enabled, err := va.GetBool("crpt.retries.enabled")
	require.NoError(t, err)
	require.True(t, enabled)

	attempts, err := va.GetInt("crpt.retries.maxAttempts")
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	timeout, err := va.GetDuration("crpt.timeout")
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, timeout)

	missingTimeout, err := va.GetDuration("crpt.missing")
	require.NoError(t, err)
	require.Zero(t, missingTimeout)

	size, err := va.GetByteSize("crpt.maxResponseBodySize")
	require.NoError(t, err)
	require.Equal(t, ByteSize(1024*1024), size)

	level, err := va.GetStringFromSet("crpt.logLevel", []string{"info", "warn"}, true)
	require.NoError(t, err)
	require.Equal(t, "WARN", level)
}

func TestViperAdapter_GetterErrors(t *testing.T) {
	va := newTestViperAdapter(t)

	_, err := va.GetDuration("crpt.badDuration")
	require.ErrorContains(t, err, "crpt.badDuration")

	_, err = va.GetByteSize("crpt.badSize")
	require.ErrorContains(t, err, "negative value is not allowed")

	_, err = va.GetInt("crpt.baseURL")
	require.ErrorContains(t, err, "crpt.baseURL")

	_, err = va.GetStringFromSet("crpt.logLevel", []string{"info", "warn"}, false)
	require.ErrorContains(t, err, `unknown value "WARN"`)
}

func TestViperAdapter_UnmarshalKey(t *testing.T) {
	va := newTestViperAdapter(t)

	var retries struct {
		Enabled     bool `mapstructure:"enabled"`
		MaxAttempts int  `mapstructure:"maxAttempts"`
	}
	require.NoError(t, va.UnmarshalKey("crpt.retries", &retries))
	require.True(t, retries.Enabled)
	require.Equal(t, 3, retries.MaxAttempts)

	var limits struct {
		Timeout TimeDuration `mapstructure:"timeout"`
		MaxBody ByteSize     `mapstructure:"maxResponseBodySize"`
	}
	require.NoError(t, va.UnmarshalKey("crpt", &limits, WithTextUnmarshaling()))
	require.Equal(t, TimeDuration(10*time.Second), limits.Timeout)
	require.Equal(t, ByteSize(1024*1024), limits.MaxBody)
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := newTestViperAdapter(t)
	dp := NewKeyPrefixedDataProvider(va, "crpt")

	baseURL, err := dp.GetString("baseURL")
	require.NoError(t, err)
	require.Equal(t, "https://ismp.crpt.ru", baseURL)

	retriesDP := NewKeyPrefixedDataProvider(dp, "retries")
	attempts, err := retriesDP.GetInt("maxAttempts")
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	retriesDP.SetDefault("initialInterval", "100ms")
	interval, err := va.GetDuration("crpt.retries.initialInterval")
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, interval)

	dp.Set("token", "secret")
	require.True(t, va.IsSet("crpt.token"))

	require.EqualError(t, retriesDP.WrapKeyErr("maxAttempts", errTest), "crpt.retries.maxAttempts: test error")
}
