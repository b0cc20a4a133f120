// Package bus defines the register-level transport the IMU driver talks through, along with
// adapters for periph.io host I2C buses and viam board I2C buses.
//
// A Transport knows nothing about chips: it tests for presence at an address, reads a run of
// registers and writes raw bytes (register address first).
package bus

import (
	"context"
)

// Transport issues raw register transactions on a serial bus.
type Transport interface {
	// Probe reports whether a device acknowledges at addr.
	Probe(ctx context.Context, addr byte) bool
	// ReadRegister fills buf with len(buf) bytes starting at register.
	ReadRegister(ctx context.Context, addr, register byte, buf []byte) error
	// WriteRegister writes data to addr; data[0] is the register address.
	WriteRegister(ctx context.Context, addr byte, data []byte) error
}

// DefaultSpeed is the bus clock used when Config.Speed is zero.
const DefaultSpeed = 400000

// Config selects and clocks a bus.
type Config struct {
	// SDA and SCL are the pin numbers of the bus. -1 picks the first bus the host reports.
	SDA int `json:"sda"`
	SCL int `json:"scl"`
	// BitBang asks for a software-driven bus instead of the native controller.
	BitBang bool `json:"bit_bang,omitempty"`
	// Speed is the clock in Hz.
	Speed uint32 `json:"speed_hz,omitempty"`
}

// DefaultConfig returns the first host bus at 400kHz.
func DefaultConfig() Config {
	return Config{SDA: -1, SCL: -1, Speed: DefaultSpeed}
}

func (c Config) anyPins() bool {
	return c.SDA < 0 || c.SCL < 0
}
