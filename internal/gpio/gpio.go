// Package gpio provides the button input and fan output lines with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Button reads the raw level of the run/pause button line.
type Button interface {
	// Read returns the raw line level: true = high (idle, pulled up),
	// false = low (pressed to ground).
	Read() (bool, error)
}

// Fan drives the fan MOSFET gate.
type Fan interface {
	// Set energizes (true) or releases (false) the fan.
	Set(on bool) error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinFan    = 18 // 2N7000 gate through resistor
	DefaultPinButton = 23 // pushbutton to GND
)

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"
