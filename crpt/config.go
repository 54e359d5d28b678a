/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"fmt"
	"net/url"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/dispatch"
	"github.com/acronis/go-crptclient/httpclient"
	"github.com/acronis/go-crptclient/internal/libinfo"
)

const cfgDefaultKeyPrefix = "crpt"

const (
	cfgKeyBaseURL             = "baseURL"
	cfgKeyToken               = "token"
	cfgKeyUserAgent           = "userAgent"
	cfgKeyMaxResponseBodySize = "maxResponseBodySize"
)

// Default values.
const (
	DefaultBaseURL             = "https://ismp.crpt.ru"
	DefaultMaxResponseBodySize = config.ByteSize(1 << 20)
)

// DefaultUserAgent is "go-crptclient/<module version>".
var DefaultUserAgent = libinfo.UserAgent()

// Config represents a set of configuration parameters for API.
// The dispatching rate and the HTTP transport are configured in the nested "dispatch" and "http" sections.
// "http.retries" controls retries of failed documents. They are submitted through the dispatcher again,
// so each retry is admitted by the rate limit as a separate request.
type Config struct {
	BaseURL             string          `mapstructure:"baseURL" yaml:"baseURL" json:"baseURL"`
	Token               string          `mapstructure:"token" yaml:"token" json:"token"`
	UserAgent           string          `mapstructure:"userAgent" yaml:"userAgent" json:"userAgent"`
	MaxResponseBodySize config.ByteSize `mapstructure:"maxResponseBodySize" yaml:"maxResponseBodySize" json:"maxResponseBodySize"`

	HTTP     *httpclient.Config `mapstructure:"http" yaml:"http" json:"http"`
	Dispatch *dispatch.Config   `mapstructure:"dispatch" yaml:"dispatch" json:"dispatch"`

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
	return &Config{
		HTTP:      httpclient.NewConfig(),
		Dispatch:  dispatch.NewConfig(),
		keyPrefix: opts.keyPrefix,
	}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.BaseURL = DefaultBaseURL
	cfg.UserAgent = DefaultUserAgent
	cfg.MaxResponseBodySize = DefaultMaxResponseBodySize
	cfg.HTTP = httpclient.NewDefaultConfig()
	cfg.Dispatch = dispatch.NewDefaultConfig()
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBaseURL, DefaultBaseURL)
	dp.SetDefault(cfgKeyUserAgent, DefaultUserAgent)
	dp.SetDefault(cfgKeyMaxResponseBodySize, DefaultMaxResponseBodySize.String())
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.BaseURL, err = dp.GetString(cfgKeyBaseURL); err != nil {
		return err
	}
	if err = validateBaseURL(c.BaseURL); err != nil {
		return dp.WrapKeyErr(cfgKeyBaseURL, err)
	}
	if c.Token, err = dp.GetString(cfgKeyToken); err != nil {
		return err
	}
	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}
	if c.MaxResponseBodySize, err = dp.GetByteSize(cfgKeyMaxResponseBodySize); err != nil {
		return err
	}
	if c.MaxResponseBodySize == 0 {
		return dp.WrapKeyErr(cfgKeyMaxResponseBodySize, fmt.Errorf("should be positive"))
	}
	return config.CallSetForFields(c, dp)
}

func validateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme should be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
