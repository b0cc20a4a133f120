package bus

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Periph is a Transport over a periph.io I2C bus.
type Periph struct {
	bus    i2c.Bus
	closer func() error
}

// NewPeriph wraps an already opened bus. Closing the returned Periph does not close b.
func NewPeriph(b i2c.Bus) *Periph {
	return &Periph{bus: b}
}

// OpenPeriph initializes the host drivers and opens the bus described by cfg.
func OpenPeriph(cfg Config, logger logging.Logger) (*Periph, error) {
	if cfg.BitBang {
		return nil, errors.New("bit-banged I2C is not available through the periph host drivers")
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}

	b, err := openByPins(cfg)
	if err != nil {
		return nil, err
	}

	speed := cfg.Speed
	if speed == 0 {
		speed = DefaultSpeed
	}
	if err := b.SetSpeed(physic.Frequency(speed) * physic.Hertz); err != nil {
		// sysfs buses take their clock from the device tree and refuse SetSpeed.
		logger.Warnf("keeping the configured clock of %s: %v", b, err)
	}
	return &Periph{bus: b, closer: b.Close}, nil
}

func openByPins(cfg Config) (i2c.BusCloser, error) {
	if cfg.anyPins() {
		b, err := i2creg.Open("")
		if err != nil {
			return nil, errors.Wrap(err, "opening default I2C bus")
		}
		return b, nil
	}

	for _, ref := range i2creg.All() {
		b, err := ref.Open()
		if err != nil {
			continue
		}
		if p, ok := b.(i2c.Pins); ok && p.SDA().Number() == cfg.SDA && p.SCL().Number() == cfg.SCL {
			return b, nil
		}
		if err := b.Close(); err != nil {
			return nil, errors.Wrapf(err, "closing %s", ref.Name)
		}
	}
	return nil, errors.Errorf("no I2C bus with SDA=%d SCL=%d", cfg.SDA, cfg.SCL)
}

// Probe does a one byte read; a device that acknowledges its address is present.
func (p *Periph) Probe(_ context.Context, addr byte) bool {
	var b [1]byte
	return p.bus.Tx(uint16(addr), nil, b[:]) == nil
}

// ReadRegister writes the register address and reads len(buf) bytes back.
func (p *Periph) ReadRegister(_ context.Context, addr, register byte, buf []byte) error {
	return p.bus.Tx(uint16(addr), []byte{register}, buf)
}

// WriteRegister writes data in a single transaction.
func (p *Periph) WriteRegister(_ context.Context, addr byte, data []byte) error {
	return p.bus.Tx(uint16(addr), data, nil)
}

// Close releases the bus if OpenPeriph opened it.
func (p *Periph) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func (p *Periph) String() string {
	return fmt.Sprintf("periph(%s)", p.bus)
}
