// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/beacon/lib/beacon"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "BEACON_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the static configuration of a beacon client.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment" json:"environment"`

	Collector   CollectorConfig   `yaml:"collector" json:"collector"`
	Application ApplicationConfig `yaml:"application" json:"application"`
	Device      DeviceConfig      `yaml:"device" json:"device"`
	Privacy     PrivacyConfig     `yaml:"privacy" json:"privacy"`

	Development *ConfigOverrides `yaml:"development,omitempty" json:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty" json:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// ConfigOverrides contains the fields that can be overridden per
// environment.
type ConfigOverrides struct {
	Collector *CollectorConfig `yaml:"collector,omitempty" json:"collector,omitempty"`
	Privacy   *PrivacyConfig   `yaml:"privacy,omitempty" json:"privacy,omitempty"`
}

// CollectorConfig says where and how beacons are sent.
type CollectorConfig struct {
	// Endpoint is the collector base URL. The monitor name is
	// appended as the last path segment.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// ServerID is used until the collector assigns one.
	// Default: 1
	ServerID int `yaml:"server_id" json:"server_id"`

	// Timeout bounds one HTTP request, as a Go duration string.
	// Default: 30s
	Timeout string `yaml:"timeout" json:"timeout"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`

	// ClientIP overrides the address the collector attributes
	// beacons to.
	ClientIP string `yaml:"client_ip" json:"client_ip"`
}

// ApplicationConfig identifies the monitored application.
type ApplicationConfig struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// DeviceConfig describes the device. Empty fields are detected.
type DeviceConfig struct {
	ID              string `yaml:"id" json:"id"`
	OperatingSystem string `yaml:"operating_system" json:"operating_system"`
	Manufacturer    string `yaml:"manufacturer" json:"manufacturer"`
	Model           string `yaml:"model" json:"model"`
}

// PrivacyConfig holds the user's consent levels.
type PrivacyConfig struct {
	// DataCollection is off, performance or user-behavior.
	// Default: user-behavior
	DataCollection string `yaml:"data_collection" json:"data_collection"`

	// CrashReporting is off, opt-out or opt-in.
	// Default: opt-in
	CrashReporting string `yaml:"crash_reporting" json:"crash_reporting"`
}

// Default returns the default configuration, used as the base before
// the file is loaded. The endpoint and application id have no
// defaults; a file must supply them.
func Default() *Config {
	return &Config{
		Environment: Development,
		Collector: CollectorConfig{
			ServerID: 1,
			Timeout:  "30s",
		},
		Privacy: PrivacyConfig{
			DataCollection: beacon.DataCollectionUserBehavior.String(),
			CrashReporting: beacon.CrashReportingOptIn.String(),
		},
	}
}

// Load loads configuration from the file named by BEACON_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your beacon config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if collector := overrides.Collector; collector != nil {
		if collector.Endpoint != "" {
			c.Collector.Endpoint = collector.Endpoint
		}
		if collector.ServerID != 0 {
			c.Collector.ServerID = collector.ServerID
		}
		if collector.Timeout != "" {
			c.Collector.Timeout = collector.Timeout
		}
		if collector.ClientIP != "" {
			c.Collector.ClientIP = collector.ClientIP
		}
		// A bool cannot be "unset", so an override always applies.
		c.Collector.InsecureSkipVerify = collector.InsecureSkipVerify
	}

	if privacy := overrides.Privacy; privacy != nil {
		if privacy.DataCollection != "" {
			c.Privacy.DataCollection = privacy.DataCollection
		}
		if privacy.CrashReporting != "" {
			c.Privacy.CrashReporting = privacy.CrashReporting
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	c.Collector.Endpoint = expandVars(c.Collector.Endpoint)
	c.Collector.ClientIP = expandVars(c.Collector.ClientIP)
	c.Application.ID = expandVars(c.Application.ID)
	c.Application.Name = expandVars(c.Application.Name)
	c.Application.Version = expandVars(c.Application.Version)
	c.Device.ID = expandVars(c.Device.ID)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Collector.Endpoint == "" {
		errs = append(errs, fmt.Errorf("collector.endpoint is required"))
	} else if parsed, err := url.Parse(c.Collector.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("collector.endpoint: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("collector.endpoint must be an http or https URL, got %q", c.Collector.Endpoint))
	}

	if c.Collector.ServerID < 0 {
		errs = append(errs, fmt.Errorf("collector.server_id must not be negative"))
	}
	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}

	if c.Application.ID == "" {
		errs = append(errs, fmt.Errorf("application.id is required"))
	}

	if _, err := beacon.ParseDataCollectionLevel(c.Privacy.DataCollection); err != nil {
		errs = append(errs, fmt.Errorf("privacy.data_collection: %w", err))
	}
	if _, err := beacon.ParseCrashReportingLevel(c.Privacy.CrashReporting); err != nil {
		errs = append(errs, fmt.Errorf("privacy.crash_reporting: %w", err))
	}

	return errors.Join(errs...)
}

// Timeout returns the parsed collector request timeout.
func (c *Config) Timeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Collector.Timeout)
	if err != nil {
		return 0, fmt.Errorf("collector.timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("collector.timeout must be positive, got %s", c.Collector.Timeout)
	}
	return timeout, nil
}

// Identity converts the configuration into the beacon header identity.
// Call Validate first; unparseable privacy levels fall back to off.
func (c *Config) Identity(agentVersion string) beacon.Identity {
	dataCollection, err := beacon.ParseDataCollectionLevel(c.Privacy.DataCollection)
	if err != nil {
		dataCollection = beacon.DataCollectionOff
	}
	crashReporting, err := beacon.ParseCrashReportingLevel(c.Privacy.CrashReporting)
	if err != nil {
		crashReporting = beacon.CrashReportingOff
	}
	return beacon.Identity{
		ApplicationID:      c.Application.ID,
		ApplicationName:    c.Application.Name,
		ApplicationVersion: c.Application.Version,
		AgentVersion:       agentVersion,
		DeviceID:           c.Device.ID,
		OperatingSystem:    c.Device.OperatingSystem,
		Manufacturer:       c.Device.Manufacturer,
		Model:              c.Device.Model,
		ClientIP:           c.Collector.ClientIP,
		DataCollection:     dataCollection,
		CrashReporting:     crashReporting,
	}
}
