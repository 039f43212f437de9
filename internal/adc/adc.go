// Package adc reads analog samples for the knob with hardware abstraction.
// The real implementation uses the Linux IIO sysfs interface.
// The fake implementation allows testing without hardware.
package adc

import "errors"

// Reader reads raw analog-to-digital conversions.
type Reader interface {
	// Read returns one raw conversion of channel, in [0, max].
	Read(channel uint8) (int, error)

	// Close releases ADC resources.
	Close() error
}

// ErrOutOfRange is returned for conversions below zero.
var ErrOutOfRange = errors.New("adc: sample out of range")

// Defaults for a Raspberry Pi with an MCP3008 on the IIO bus.
const (
	DefaultDevice  = "/sys/bus/iio/devices/iio:device0"
	DefaultChannel = 0
)
