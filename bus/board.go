//go:build linux

package bus

import (
	"context"

	"go.viam.com/rdk/components/board/genericlinux/buses"
	"go.viam.com/rdk/logging"
)

// Board is a Transport over a viam board I2C bus. Every transaction opens and closes its own
// handle so the bus stays shareable with other components.
type Board struct {
	bus    buses.I2C
	logger logging.Logger
}

// NewBoard wraps b.
func NewBoard(b buses.I2C, logger logging.Logger) *Board {
	return &Board{bus: b, logger: logger}
}

func (b *Board) withHandle(ctx context.Context, addr byte, fn func(buses.I2CHandle) error) error {
	handle, err := b.bus.OpenHandle(addr)
	if err != nil {
		return err
	}
	defer func() {
		err := handle.Close()
		if err != nil {
			b.logger.CError(ctx, err)
		}
	}()
	return fn(handle)
}

// Probe reads one byte from addr.
func (b *Board) Probe(ctx context.Context, addr byte) bool {
	err := b.withHandle(ctx, addr, func(h buses.I2CHandle) error {
		_, err := h.Read(ctx, 1)
		return err
	})
	return err == nil
}

// ReadRegister does a block read starting at register.
func (b *Board) ReadRegister(ctx context.Context, addr, register byte, buf []byte) error {
	return b.withHandle(ctx, addr, func(h buses.I2CHandle) error {
		results, err := h.ReadBlockData(ctx, register, uint8(len(buf)))
		if err != nil {
			return err
		}
		copy(buf, results)
		return nil
	})
}

// WriteRegister writes data as one raw transaction.
func (b *Board) WriteRegister(ctx context.Context, addr byte, data []byte) error {
	return b.withHandle(ctx, addr, func(h buses.I2CHandle) error {
		return h.Write(ctx, data)
	})
}
