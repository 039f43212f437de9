// Package gpio reads the knob's push switch with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the push switch state.
type Reader interface {
	// Pressed returns the logical switch state.
	// The switch pulls the line low, so raw inactive (0) = pressed.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering)
const (
	DefaultChip = "gpiochip0"
	PinSwitch   = 17 // knob push switch (KY-040 style SW)
)
