/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"fmt"
	"time"

	"github.com/acronis/go-crptclient/config"
)

const cfgDefaultKeyPrefix = "dispatch"

const (
	cfgKeyLimit        = "limit"
	cfgKeyWindow       = "window"
	cfgKeyPollInterval = "pollInterval"
	cfgKeyConcurrency  = "concurrency"
)

// Default and restriction values.
const (
	DefaultLimit       = 5
	DefaultWindow      = time.Second
	DefaultConcurrency = 1

	// MinPollInterval is a lower bound for the automatically calculated poll interval.
	MinPollInterval = time.Millisecond

	// pollIntervalDivisor determines the default poll interval as a share of the window (1%).
	pollIntervalDivisor = 100
)

// Config represents a set of configuration parameters for Dispatcher.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Limit is the maximum number of admissions within Window. Zero is allowed, nothing is dispatched then.
	Limit int `mapstructure:"limit" yaml:"limit" json:"limit"`

	// Window is the length of the trailing window.
	Window config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`

	// PollInterval is the tick cadence. It must be shorter than Window.
	// If zero, 1% of Window (but not less than MinPollInterval) is used.
	PollInterval config.TimeDuration `mapstructure:"pollInterval" yaml:"pollInterval" json:"pollInterval"`

	// Concurrency is the maximum number of Executor calls running at the same time.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
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
	cfg.Limit = DefaultLimit
	cfg.Window = config.TimeDuration(DefaultWindow)
	cfg.Concurrency = DefaultConcurrency
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for Dispatcher in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLimit, DefaultLimit)
	dp.SetDefault(cfgKeyWindow, DefaultWindow.String())
	dp.SetDefault(cfgKeyConcurrency, DefaultConcurrency)
}

// Set sets Dispatcher configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Limit, err = dp.GetInt(cfgKeyLimit); err != nil {
		return err
	}
	if c.Limit < 0 {
		return dp.WrapKeyErr(cfgKeyLimit, fmt.Errorf("should be >= 0"))
	}

	var window time.Duration
	if window, err = dp.GetDuration(cfgKeyWindow); err != nil {
		return err
	}
	if window <= 0 {
		return dp.WrapKeyErr(cfgKeyWindow, fmt.Errorf("should be positive"))
	}
	c.Window = config.TimeDuration(window)

	var pollInterval time.Duration
	if pollInterval, err = dp.GetDuration(cfgKeyPollInterval); err != nil {
		return err
	}
	if pollInterval < 0 || (pollInterval > 0 && pollInterval >= window) {
		return dp.WrapKeyErr(cfgKeyPollInterval, fmt.Errorf("should be positive and less than %s", window))
	}
	c.PollInterval = config.TimeDuration(pollInterval)

	if c.Concurrency, err = dp.GetInt(cfgKeyConcurrency); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return dp.WrapKeyErr(cfgKeyConcurrency, fmt.Errorf("should be >= 1"))
	}

	return nil
}

// Rate returns the configured rate.
func (c *Config) Rate() Rate {
	return Rate{Count: c.Limit, Duration: time.Duration(c.Window)}
}

// Validate checks the configuration and returns the effective poll interval.
func (c *Config) Validate() (pollInterval time.Duration, err error) {
	if c.Limit < 0 {
		return 0, fmt.Errorf("limit should be >= 0, got %d", c.Limit)
	}
	window := time.Duration(c.Window)
	if window <= 0 {
		return 0, fmt.Errorf("window should be positive, got %s", window)
	}
	if c.Concurrency < 0 {
		return 0, fmt.Errorf("concurrency should be >= 0, got %d", c.Concurrency)
	}
	pollInterval = time.Duration(c.PollInterval)
	if pollInterval < 0 {
		return 0, fmt.Errorf("poll interval should not be negative, got %s", pollInterval)
	}
	if pollInterval == 0 {
		pollInterval = window / pollIntervalDivisor
		if pollInterval < MinPollInterval {
			pollInterval = MinPollInterval
		}
		if pollInterval >= window {
			pollInterval = window / 2
		}
	}
	if pollInterval <= 0 || pollInterval >= window {
		return 0, fmt.Errorf("poll interval should be positive and less than window (%s), got %s", window, pollInterval)
	}
	return pollInterval, nil
}
