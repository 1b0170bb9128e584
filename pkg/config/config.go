package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/blehub/internal/hub"
)

// Config holds application configuration
type Config struct {
	LogLevel string     `yaml:"log_level" default:"info"`
	Hub      hub.Config `yaml:"hub"`
	Backend  Backend    `yaml:"backend"`
	BLE      BLE        `yaml:"ble"`
	LED      LED        `yaml:"led"`
}

// Backend is the websocket link to the hub backend.
type Backend struct {
	URL           string        `yaml:"url" default:"ws://localhost:8080/hub"`
	DialTimeout   time.Duration `yaml:"dial_timeout" default:"10s"`
	RetryInterval time.Duration `yaml:"retry_interval" default:"5s"`
	// InboundBuffer is how many undelivered frames are kept; older ones are
	// overwritten.
	InboundBuffer int `yaml:"inbound_buffer" default:"32"`
	MaxFailures   int `yaml:"max_failures" default:"5"`
}

// BLE configures the radio.
type BLE struct {
	RelayService        string        `yaml:"relay_service" default:"6e400001-b5a3-f393-e0a9-e50e24dcca9e"`
	RelayCharacteristic string        `yaml:"relay_characteristic" default:"6e400002-b5a3-f393-e0a9-e50e24dcca9e"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" default:"10s"`
	// PeerRate is the number of relay writes per second allowed across all peers.
	PeerRate   float64 `yaml:"peer_rate" default:"2"`
	PeerBurst  int     `yaml:"peer_burst" default:"4"`
	ScanBuffer int     `yaml:"scan_buffer" default:"128"`
}

// LED maps hub LEDs to GPIO pins. With Enabled false LED changes are only logged.
type LED struct {
	Enabled     bool   `yaml:"enabled"`
	StatusPin   string `yaml:"status_pin" default:"GPIO17"`
	ActivityPin string `yaml:"activity_pin" default:"GPIO27"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	c := &Config{Hub: hub.DefaultConfig()}
	defaults.SetDefaults(c)
	defaults.SetDefaults(&c.Backend)
	defaults.SetDefaults(&c.BLE)
	defaults.SetDefaults(&c.LED)
	return c
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if err := c.Hub.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("hub: %w", err))
	}

	u, err := url.Parse(c.Backend.URL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("backend.url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("backend.url: scheme must be ws or wss, got %q", u.Scheme))
	}
	if c.Backend.InboundBuffer <= 0 {
		errs = append(errs, fmt.Errorf("backend.inbound_buffer must be positive, got %d", c.Backend.InboundBuffer))
	}
	if c.Backend.MaxFailures <= 0 {
		errs = append(errs, fmt.Errorf("backend.max_failures must be positive, got %d", c.Backend.MaxFailures))
	}

	if c.BLE.PeerRate <= 0 || c.BLE.PeerBurst <= 0 {
		errs = append(errs, fmt.Errorf("ble.peer_rate and ble.peer_burst must be positive"))
	}
	if c.BLE.ScanBuffer <= 0 {
		errs = append(errs, fmt.Errorf("ble.scan_buffer must be positive, got %d", c.BLE.ScanBuffer))
	}
	if c.LED.Enabled && (c.LED.StatusPin == "" || c.LED.ActivityPin == "") {
		errs = append(errs, errors.New("led: both pins are required when enabled"))
	}
	return errors.Join(errs...)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
