// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/geoclue_hybris/internal/driver"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "geoclue_hybris.yaml"

// Config holds all application configuration values.
type Config struct {
	Driver  DriverConfig  `yaml:"driver"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Web     WebConfig     `yaml:"web"`
	Display DisplayConfig `yaml:"display"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

type DriverConfig struct {
	Module            string  `yaml:"module"` // "nmea" or "sim"
	SerialPort        string  `yaml:"serial_port"`
	BaudRate          int     `yaml:"baud_rate"`
	PowerPin          string  `yaml:"power_pin"` // e.g. GPIO17, empty for none
	IntervalMs        int     `yaml:"interval_ms"`
	InjectTime        bool    `yaml:"inject_time"`
	TimeUncertaintyMs int     `yaml:"time_uncertainty_ms"`
	SimCenterLat      float64 `yaml:"sim_center_lat"`
	SimCenterLon      float64 `yaml:"sim_center_lon"`
}

type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	TopicPrefix   string `yaml:"topic_prefix"`
	QoS           int    `yaml:"qos"`
	CallTimeoutMs int    `yaml:"call_timeout_ms"`
}

type WebConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type DisplayConfig struct {
	I2CBus           string `yaml:"i2c_bus"` // empty picks the first bus
	UpdateIntervalMs int    `yaml:"update_interval_ms"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables the endpoint
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // text or json
	AddSource bool   `yaml:"add_source"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout or otlp
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// CallTimeout returns the bus call timeout as a duration.
func (m MQTTConfig) CallTimeout() time.Duration {
	return time.Duration(m.CallTimeoutMs) * time.Millisecond
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Driver: DriverConfig{
			Module:            "nmea",
			SerialPort:        "/dev/serial0",
			BaudRate:          9600,
			IntervalMs:        1000,
			TimeUncertaintyMs: 0,
			SimCenterLat:      40.4168,
			SimCenterLon:      -3.7038,
		},
		MQTT: MQTTConfig{
			Broker:        "tcp://localhost:1883",
			ClientID:      "geoclue-hybris",
			TopicPrefix:   "org/freedesktop/Geoclue/Providers/Hybris",
			QoS:           0,
			CallTimeoutMs: 5000,
		},
		Web: WebConfig{
			ListenAddr: ":8080",
		},
		Display: DisplayConfig{
			UpdateIntervalMs: 500,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9108",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			Endpoint:    "localhost:4317",
			SampleRatio: 1,
		},
	}
}

// Global configuration instance (singleton pattern).
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides values from the environment.
func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"MQTT_BROKER":         &c.MQTT.Broker,
		"MQTT_CLIENT_ID":      &c.MQTT.ClientID,
		"GPS_DRIVER":          &c.Driver.Module,
		"GPS_SERIAL_PORT":     &c.Driver.SerialPort,
		"GPS_POWER_PIN":       &c.Driver.PowerPin,
		"WEB_LISTEN_ADDR":     &c.Web.ListenAddr,
		"DISPLAY_I2C_BUS":     &c.Display.I2CBus,
		"METRICS_LISTEN_ADDR": &c.Metrics.ListenAddr,
		"LOG_LEVEL":           &c.Logging.Level,
		"LOG_FORMAT":          &c.Logging.Format,
		"TRACING_EXPORTER":    &c.Tracing.Exporter,
		"TRACING_ENDPOINT":    &c.Tracing.Endpoint,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v := os.Getenv("GPS_BAUD_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE: %s", v)
		}
		c.Driver.BaudRate = n
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid TRACING_ENABLED: %s", v)
		}
		c.Tracing.Enabled = b
	}
	return nil
}

// Validate checks that all required fields are set and in range.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if !slices.Contains(driver.Modules(), c.Driver.Module) {
		return fmt.Errorf("driver.module %q unknown (have %s)", c.Driver.Module, strings.Join(driver.Modules(), ", "))
	}
	if c.Driver.BaudRate <= 0 {
		return fmt.Errorf("driver.baud_rate must be positive")
	}
	if c.Driver.IntervalMs <= 0 {
		return fmt.Errorf("driver.interval_ms must be positive")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

// DriverOptions converts the driver section for driver.Open.
func (c *Config) DriverOptions() driver.Config {
	return driver.Config{
		SerialPort: c.Driver.SerialPort,
		BaudRate:   c.Driver.BaudRate,
		PowerPin:   c.Driver.PowerPin,
		IntervalMs: c.Driver.IntervalMs,
		CenterLat:  c.Driver.SimCenterLat,
		CenterLon:  c.Driver.SimCenterLon,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
