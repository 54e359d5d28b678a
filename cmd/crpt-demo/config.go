/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"time"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/crpt"
	"github.com/acronis/go-crptclient/httpserver"
	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/profserver"
)

const envVarsPrefix = "CRPT_DEMO"

// AppConfig is the configuration of the demo application.
type AppConfig struct {
	Crpt          *crpt.Config
	Log           *log.Config
	MetricsServer *httpserver.Config
	ProfServer    *profserver.Config
	Demo          *DemoConfig
}

// NewAppConfig creates a new AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Crpt:          crpt.NewConfig(),
		Log:           log.NewConfig(),
		MetricsServer: httpserver.NewConfig(httpserver.WithKeyPrefix("metricsServer")),
		ProfServer:    profserver.NewConfig(),
		Demo:          NewDemoConfig(),
	}
}

// SetProviderDefaults implements config.Config interface.
func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set implements config.Config interface.
func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}

// loadAppConfig loads configuration from the file (if it exists) and CRPT_DEMO_* environment variables.
func loadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	if _, err := config.NewDefaultLoader(envVarsPrefix).LoadFromOptionalFile(path, "", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	cfgKeyDemoDocuments   = "documents"
	cfgKeyDemoInterval    = "interval"
	cfgKeyDemoRunFor      = "runFor"
	cfgKeyDemoStubServer  = "stubServer.enabled"
	cfgKeyDemoStubAddress = "stubServer.address"
)

const (
	defaultDemoDocuments   = 25
	defaultDemoInterval    = 50 * time.Millisecond
	defaultDemoRunFor      = 10 * time.Second
	defaultDemoStubAddress = "127.0.0.1:8089"
)

// DemoConfig configures the document feeder and the local stub of the document creation endpoint.
type DemoConfig struct {
	// Documents is how many example documents are submitted.
	Documents int `mapstructure:"documents" yaml:"documents" json:"documents"`

	// Interval is a delay between submissions.
	Interval config.TimeDuration `mapstructure:"interval" yaml:"interval" json:"interval"`

	// RunFor limits the demo run time. Zero means running until SIGINT/SIGTERM.
	RunFor config.TimeDuration `mapstructure:"runFor" yaml:"runFor" json:"runFor"`

	// StubServer makes the demo start a local stub and send documents to it instead of crpt.baseURL.
	StubServer StubServerConfig `mapstructure:"stubServer" yaml:"stubServer" json:"stubServer"`
}

// StubServerConfig configures the local stub server.
type StubServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Address string `mapstructure:"address" yaml:"address" json:"address"`
}

// NewDemoConfig creates a new DemoConfig.
func NewDemoConfig() *DemoConfig {
	return &DemoConfig{}
}

// KeyPrefix implements config.KeyPrefixProvider interface.
func (c *DemoConfig) KeyPrefix() string {
	return "demo"
}

// SetProviderDefaults implements config.Config interface.
func (c *DemoConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDemoDocuments, defaultDemoDocuments)
	dp.SetDefault(cfgKeyDemoInterval, defaultDemoInterval.String())
	dp.SetDefault(cfgKeyDemoRunFor, defaultDemoRunFor.String())
	dp.SetDefault(cfgKeyDemoStubServer, true)
	dp.SetDefault(cfgKeyDemoStubAddress, defaultDemoStubAddress)
}

// Set implements config.Config interface.
func (c *DemoConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Documents, err = dp.GetInt(cfgKeyDemoDocuments); err != nil {
		return err
	}
	if c.Documents < 0 {
		return dp.WrapKeyErr(cfgKeyDemoDocuments, fmt.Errorf("should be >= 0"))
	}

	interval, err := dp.GetDuration(cfgKeyDemoInterval)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return dp.WrapKeyErr(cfgKeyDemoInterval, fmt.Errorf("should be positive"))
	}
	c.Interval = config.TimeDuration(interval)

	runFor, err := dp.GetDuration(cfgKeyDemoRunFor)
	if err != nil {
		return err
	}
	if runFor < 0 {
		return dp.WrapKeyErr(cfgKeyDemoRunFor, fmt.Errorf("should not be negative"))
	}
	c.RunFor = config.TimeDuration(runFor)

	if c.StubServer.Enabled, err = dp.GetBool(cfgKeyDemoStubServer); err != nil {
		return err
	}
	c.StubServer.Address, err = dp.GetString(cfgKeyDemoStubAddress)
	return err
}
