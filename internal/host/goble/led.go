package goble

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	periphhost "periph.io/x/host/v3"

	"github.com/srg/blehub/internal/host"
)

// LEDs drives the hub LEDs over GPIO. Without pins every change is only
// logged, which is how the hub runs on machines without GPIO.
type LEDs struct {
	pins   map[host.LED]gpio.PinOut
	logger *logrus.Logger

	mu    sync.Mutex
	state map[host.LED]bool
}

// NewLEDs resolves the GPIO pins by name, e.g. "GPIO17".
func NewLEDs(statusPin, activityPin string, logger *logrus.Logger) (*LEDs, error) {
	if _, err := periphhost.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	pins := make(map[host.LED]gpio.PinOut, 2)
	for led, name := range map[host.LED]string{host.LEDStatus: statusPin, host.LEDActivity: activityPin} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%s led: pin %s not found", led, name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("%s led: pin %s: %w", led, name, err)
		}
		pins[led] = p
	}
	return newLEDs(pins, logger), nil
}

// LogOnlyLEDs returns LEDs without hardware.
func LogOnlyLEDs(logger *logrus.Logger) *LEDs {
	return newLEDs(nil, logger)
}

func newLEDs(pins map[host.LED]gpio.PinOut, logger *logrus.Logger) *LEDs {
	return &LEDs{
		pins:   pins,
		logger: logger,
		state:  make(map[host.LED]bool, 2),
	}
}

// Set switches led. GPIO errors are logged only.
func (l *LEDs) Set(led host.LED, on bool) {
	l.mu.Lock()
	l.state[led] = on
	l.mu.Unlock()

	pin, ok := l.pins[led]
	if !ok {
		l.logger.WithFields(logrus.Fields{"led": led, "on": on}).Trace("LED")
		return
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := pin.Out(level); err != nil {
		l.logger.WithFields(logrus.Fields{
			"led":   led,
			"error": err,
		}).Warn("Failed to set LED")
	}
}

// On reports the last state set for led.
func (l *LEDs) On(led host.LED) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state[led]
}
