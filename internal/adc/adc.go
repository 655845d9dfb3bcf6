// Package adc reads the gas sensor through an MCP3008 10-bit converter.
// The real implementation talks SPI through /dev/mem on a Raspberry Pi.
// The fake implementation allows testing without hardware.
package adc

import (
	"errors"
	"fmt"
)

// Reader returns raw converter readings.
type Reader interface {
	// Read returns the 10-bit value (0..1023) of channel 0..7.
	Read(channel int) (int, error)
}

// Default bus settings for an MCP3008 on SPI0 CE0.
const (
	DefaultChipSelect = 0
	DefaultSpeed      = 1350000 // Hz
)

// Channels on the MCP3008.
const (
	MinChannel = 0
	MaxChannel = 7
)

// ErrChannelRange is returned for a channel outside 0..7.
var ErrChannelRange = errors.New("adc channel must be 0-7")

// CheckChannel returns ErrChannelRange (wrapped with the value) if channel is invalid.
func CheckChannel(channel int) error {
	if channel < MinChannel || channel > MaxChannel {
		return fmt.Errorf("%w: got %d", ErrChannelRange, channel)
	}
	return nil
}

// frame builds the 3-byte single-ended conversion request for channel:
// start bit, then SGL/DIFF=1 and the channel in the high nibble.
func frame(channel int) []byte {
	return []byte{0x01, byte(8+channel) << 4, 0x00}
}

// decode extracts the 10-bit result from the bytes clocked back.
func decode(rx []byte) int {
	return int(rx[1]&0x03)<<8 | int(rx[2])
}
