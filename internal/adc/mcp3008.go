//go:build linux

package adc

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// MCP3008 reads the converter over SPI0 using go-rpio.
type MCP3008 struct {
	open bool
}

// NewMCP3008 maps the SPI0 peripheral and selects chipSelect at speed Hz.
func NewMCP3008(chipSelect uint8, speed int) (*MCP3008, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("begin spi0: %w", err)
	}
	rpio.SpiChipSelect(chipSelect)
	rpio.SpiSpeed(speed)

	return &MCP3008{open: true}, nil
}

// Read performs one single-ended conversion on channel.
func (m *MCP3008) Read(channel int) (int, error) {
	if err := CheckChannel(channel); err != nil {
		return 0, err
	}
	if !m.open {
		return 0, fmt.Errorf("read channel %d: spi closed", channel)
	}
	buf := frame(channel)
	rpio.SpiExchange(buf)
	return decode(buf), nil
}

// Close releases the SPI pins and unmaps the peripheral.
func (m *MCP3008) Close() error {
	if !m.open {
		return nil
	}
	m.open = false
	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close rpio: %w", err)
	}
	return nil
}
