//go:build !linux

package adc

import "errors"

// MCP3008 is not available on non-Linux platforms.
type MCP3008 struct{}

// NewMCP3008 returns an error on non-Linux platforms.
func NewMCP3008(chipSelect uint8, speed int) (*MCP3008, error) {
	return nil, errors.New("adc: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (m *MCP3008) Read(channel int) (int, error) {
	if err := CheckChannel(channel); err != nil {
		return 0, err
	}
	return 0, errors.New("adc: not supported")
}

// Close is not implemented on non-Linux platforms.
func (m *MCP3008) Close() error {
	return nil
}
