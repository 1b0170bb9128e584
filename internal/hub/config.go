package hub

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcuadros/go-defaults"

	"github.com/srg/blehub/internal/registry"
)

// Config holds the hub's limits and timings.
type Config struct {
	// HubID identifies this hub to the backend. Registration is skipped when
	// it is the nil UUID.
	HubID  uuid.UUID `yaml:"id"`
	UserID uuid.UUID `yaml:"user_id"`

	MaxDevices          int `yaml:"max_devices" default:"64"`
	MaxFoundDevices     int `yaml:"max_found_devices" default:"64"`
	MaxConnectedDevices int `yaml:"max_connected_devices" default:"4"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" default:"60s"`
	DiscoveryWindow   time.Duration `yaml:"discovery_window" default:"15s"`
	DiscoveryPoll     time.Duration `yaml:"discovery_poll" default:"100ms"`
	DiscoveryIdle     time.Duration `yaml:"discovery_idle" default:"5s"`
	RelayDwell        time.Duration `yaml:"relay_dwell" default:"30s"`
	DispatchPace      time.Duration `yaml:"dispatch_pace" default:"100us"`
	IdleSleep         time.Duration `yaml:"idle_sleep" default:"1ms"`

	BootFlashes       int           `yaml:"boot_flashes" default:"3"`
	BootFlashInterval time.Duration `yaml:"boot_flash_interval" default:"200ms"`
}

// DefaultConfig returns the built-in hub configuration.
func DefaultConfig() Config {
	var c Config
	defaults.SetDefaults(&c)
	return c
}

// Validate checks limits against each other.
func (c Config) Validate() error {
	switch {
	case c.MaxDevices <= 0 || c.MaxDevices > registry.MaxDevices:
		return fmt.Errorf("max_devices must be in 1..%d, got %d", registry.MaxDevices, c.MaxDevices)
	case c.MaxFoundDevices <= 0:
		return fmt.Errorf("max_found_devices must be positive, got %d", c.MaxFoundDevices)
	case c.MaxConnectedDevices <= 0 || c.MaxConnectedDevices > c.MaxDevices:
		return fmt.Errorf("max_connected_devices must be in 1..%d, got %d", c.MaxDevices, c.MaxConnectedDevices)
	case c.BootFlashes < 0:
		return fmt.Errorf("boot_flashes must not be negative, got %d", c.BootFlashes)
	}

	for name, d := range map[string]time.Duration{
		"heartbeat_interval": c.HeartbeatInterval,
		"discovery_window":   c.DiscoveryWindow,
		"discovery_poll":     c.DiscoveryPoll,
		"discovery_idle":     c.DiscoveryIdle,
		"relay_dwell":        c.RelayDwell,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if c.DispatchPace < 0 || c.IdleSleep < 0 || c.BootFlashInterval < 0 {
		return fmt.Errorf("sleep durations must not be negative")
	}
	return nil
}
