/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"time"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/retry"
)

const cfgDefaultKeyPrefix = "http"

const (
	cfgKeyTimeout                 = "timeout"
	cfgKeyRetriesEnabled          = "retries.enabled"
	cfgKeyRetriesMaxAttempts      = "retries.maxAttempts"
	cfgKeyRetriesInitialInterval  = "retries.initialInterval"
	cfgKeyRetriesMaxInterval      = "retries.maxInterval"
	cfgKeyLogMode                 = "log.mode"
	cfgKeyLogSlowRequestThreshold = "log.slowRequestThreshold"
)

// Default values.
const (
	DefaultTimeout                = 30 * time.Second
	DefaultRetriesMaxAttempts     = 3
	DefaultRetriesInitialInterval = 500 * time.Millisecond
	DefaultRetriesMaxInterval     = 10 * time.Second
)

var availableLoggingModes = []string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}

// Config represents a set of configuration parameters for HTTP client.
type Config struct {
	// Timeout is a time limit for a single request including all retry attempts.
	Timeout config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	Retries RetriesConfig `mapstructure:"retries" yaml:"retries" json:"retries"`
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`

	keyPrefix string
}

// RetriesConfig represents configuration of retrying failed requests.
type RetriesConfig struct {
	Enabled         bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxAttempts     int                 `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	InitialInterval config.TimeDuration `mapstructure:"initialInterval" yaml:"initialInterval" json:"initialInterval"`
	MaxInterval     config.TimeDuration `mapstructure:"maxInterval" yaml:"maxInterval" json:"maxInterval"`
}

// Policy returns the exponential backoff policy described by the configuration.
func (c RetriesConfig) Policy() retry.Policy {
	return retry.ExponentialBackoffPolicy{
		InitialInterval: time.Duration(c.InitialInterval),
		MaxInterval:     time.Duration(c.MaxInterval),
		MaxAttempts:     c.MaxAttempts,
	}
}

// LogConfig represents configuration of logging outgoing requests.
type LogConfig struct {
	Mode                 LoggingMode         `mapstructure:"mode" yaml:"mode" json:"mode"`
	SlowRequestThreshold config.TimeDuration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Timeout = config.TimeDuration(DefaultTimeout)
	cfg.Retries = RetriesConfig{
		Enabled:         true,
		MaxAttempts:     DefaultRetriesMaxAttempts,
		InitialInterval: config.TimeDuration(DefaultRetriesInitialInterval),
		MaxInterval:     config.TimeDuration(DefaultRetriesMaxInterval),
	}
	cfg.Log = LogConfig{Mode: LoggingModeFailed}
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTP client in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout.String())
	dp.SetDefault(cfgKeyRetriesEnabled, true)
	dp.SetDefault(cfgKeyRetriesMaxAttempts, DefaultRetriesMaxAttempts)
	dp.SetDefault(cfgKeyRetriesInitialInterval, DefaultRetriesInitialInterval.String())
	dp.SetDefault(cfgKeyRetriesMaxInterval, DefaultRetriesMaxInterval.String())
	dp.SetDefault(cfgKeyLogMode, string(LoggingModeFailed))
}

// Set sets HTTP client configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	timeout, err := dp.GetDuration(cfgKeyTimeout)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("should not be negative"))
	}
	c.Timeout = config.TimeDuration(timeout)

	if err = c.setRetries(dp); err != nil {
		return err
	}

	modeStr, err := dp.GetStringFromSet(cfgKeyLogMode, availableLoggingModes, false)
	if err != nil {
		return err
	}
	c.Log.Mode = LoggingMode(modeStr)
	slowThreshold, err := dp.GetDuration(cfgKeyLogSlowRequestThreshold)
	if err != nil {
		return err
	}
	c.Log.SlowRequestThreshold = config.TimeDuration(slowThreshold)
	return nil
}

func (c *Config) setRetries(dp config.DataProvider) error {
	var err error
	if c.Retries.Enabled, err = dp.GetBool(cfgKeyRetriesEnabled); err != nil {
		return err
	}
	if c.Retries.MaxAttempts, err = dp.GetInt(cfgKeyRetriesMaxAttempts); err != nil {
		return err
	}
	if c.Retries.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesMaxAttempts, fmt.Errorf("should be >= 0"))
	}

	initialInterval, err := dp.GetDuration(cfgKeyRetriesInitialInterval)
	if err != nil {
		return err
	}
	if initialInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyRetriesInitialInterval, fmt.Errorf("should be positive"))
	}
	c.Retries.InitialInterval = config.TimeDuration(initialInterval)

	maxInterval, err := dp.GetDuration(cfgKeyRetriesMaxInterval)
	if err != nil {
		return err
	}
	if maxInterval < initialInterval {
		return dp.WrapKeyErr(cfgKeyRetriesMaxInterval, fmt.Errorf("should be >= %s", initialInterval))
	}
	c.Retries.MaxInterval = config.TimeDuration(maxInterval)
	return nil
}
