package imu

import (
	"context"
	"io"
	"slices"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/inertial/bus"
)

// defaultRate is the requested rate before anyone asks for one.
const defaultRate = 200

type state int

const (
	stateIdle state = iota
	stateResetting
	stateConfiguring
	stateRunning
)

func (s state) String() string {
	switch s {
	case stateResetting:
		return "resetting"
	case stateConfiguring:
		return "configuring"
	case stateRunning:
		return "running"
	default:
		return "idle"
	}
}

// sensorSetting is the runtime rate and scale of the accelerometer or gyroscope.
type sensorSetting struct {
	requested int
	rateIndex int
	rate      int
	rateCode  byte

	scale     int
	scaleCode byte
}

func (s *sensorSetting) matchRate(t RateTable) {
	if len(t.Hz) == 0 {
		return
	}
	s.rateIndex = t.Match(s.requested)
	s.rate = t.Hz[s.rateIndex]
	s.rateCode = t.Codes[s.rateIndex]
}

func (s *sensorSetting) matchScale(t ScaleTable, requested int) {
	if len(t.Values) == 0 {
		return
	}
	i := t.Match(requested)
	s.scale = t.Values[i]
	s.scaleCode = t.Codes[i]
}

// Device is an identified chip. Its family is fixed for its lifetime; identify again by
// calling Init again.
//
// A Device does no locking. Callers that sample and reconfigure from different goroutines
// must serialize access themselves.
type Device struct {
	bus    bus.Transport
	desc   *Descriptor
	addr   byte
	logger logging.Logger

	mode  Mode
	state state
	accel sensorSetting
	gyro  sensorSetting

	configFile []byte

	registry []*Descriptor
	routines map[DeviceType]routines
	sleep    func(time.Duration)
}

// Option customizes Init.
type Option func(*Device)

// WithConfigFile supplies the vendor configuration blob some families (BMI270) must load
// before they produce data.
func WithConfigFile(blob []byte) Option {
	return func(d *Device) {
		d.configFile = blob
	}
}

// WithFamilies limits identification to the given families, keeping their priority order.
func WithFamilies(types ...DeviceType) Option {
	return func(d *Device) {
		var kept []*Descriptor
		for _, desc := range d.registry {
			if slices.Contains(types, desc.Type) {
				kept = append(kept, desc)
			}
		}
		d.registry = kept
	}
}

// Init probes t for a supported chip and returns it ready for Start.
func Init(ctx context.Context, t bus.Transport, logger logging.Logger, opts ...Option) (*Device, error) {
	d := &Device{
		bus:      t,
		logger:   logger,
		registry: registry,
		routines: familyRoutines,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}

	desc, addr, err := identify(ctx, t, d.registry)
	if err != nil {
		return nil, err
	}
	d.desc = desc
	d.addr = addr
	logger.CDebugf(ctx, "found %s at address 0x%02x", desc.Name, addr)

	d.accel.requested = defaultRate
	d.gyro.requested = defaultRate
	d.accel.matchRate(desc.AccelRates)
	d.gyro.matchRate(desc.GyroRates)
	d.accel.matchScale(desc.AccelScales, desc.DefaultAccelScale)
	d.gyro.matchScale(desc.GyroScales, desc.DefaultGyroScale)
	return d, nil
}

// Open opens the bus described by cfg and identifies the chip on it.
func Open(ctx context.Context, cfg bus.Config, logger logging.Logger, opts ...Option) (*Device, error) {
	t, err := bus.OpenPeriph(cfg, logger)
	if err != nil {
		return nil, err
	}
	d, err := Init(ctx, t, logger, opts...)
	if err != nil {
		if cerr := t.Close(); cerr != nil {
			logger.CError(ctx, cerr)
		}
		return nil, err
	}
	return d, nil
}

// Close releases the transport if it owns any resources. It does not touch the chip; call
// Stop first to power it down.
func (d *Device) Close() error {
	if c, ok := d.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Type returns the identified family.
func (d *Device) Type() DeviceType {
	return d.desc.Type
}

// Descriptor returns the register map of the identified family.
func (d *Device) Descriptor() *Descriptor {
	return d.desc
}

// Capabilities returns what the identified family can do.
func (d *Device) Capabilities() Capability {
	return d.desc.Caps
}

// Address returns the bus address the chip answered on.
func (d *Device) Address() byte {
	return d.addr
}

// Mode returns the mode bits of the last Start.
func (d *Device) Mode() Mode {
	return d.mode
}

// Running reports whether the last configuration completed.
func (d *Device) Running() bool {
	return d.state == stateRunning
}

// AccRate returns the accelerometer rate in Hz the chip is (or will be) configured for.
func (d *Device) AccRate() int {
	return d.accel.rate
}

// GyroRate returns the gyroscope rate in Hz the chip is (or will be) configured for.
func (d *Device) GyroRate() int {
	return d.gyro.rate
}

// AccScale returns the accelerometer full scale range in g.
func (d *Device) AccScale() int {
	return d.accel.scale
}

// GyroScale returns the gyroscope full scale range in degrees per second.
func (d *Device) GyroScale() int {
	return d.gyro.scale
}

// SetAccRate requests a new accelerometer rate. A running device is reconfigured. Chips with
// one shared divider move the gyroscope rate along with it.
func (d *Device) SetAccRate(ctx context.Context, hz int) error {
	if d.desc.Caps&CapAccelerometer == 0 {
		return unsupported(d.desc, "no accelerometer")
	}
	d.accel.requested = hz
	if d.desc.SharedRate {
		d.gyro.requested = hz
	}
	d.accel.matchRate(d.desc.AccelRates)
	d.gyro.matchRate(d.desc.GyroRates)
	return d.reapply(ctx)
}

// SetGyroRate requests a new gyroscope rate. A running device is reconfigured.
func (d *Device) SetGyroRate(ctx context.Context, hz int) error {
	if d.desc.Caps&CapGyroscope == 0 {
		return unsupported(d.desc, "no gyroscope")
	}
	d.gyro.requested = hz
	if d.desc.SharedRate {
		d.accel.requested = hz
	}
	d.accel.matchRate(d.desc.AccelRates)
	d.gyro.matchRate(d.desc.GyroRates)
	return d.reapply(ctx)
}

// SetAccScale requests a new accelerometer range in g. A running device is reconfigured.
func (d *Device) SetAccScale(ctx context.Context, g int) error {
	if d.desc.Caps&CapAccelerometer == 0 || len(d.desc.AccelScales.Values) == 0 {
		return unsupported(d.desc, "no accelerometer range control")
	}
	d.accel.matchScale(d.desc.AccelScales, g)
	return d.reapply(ctx)
}

// SetGyroScale requests a new gyroscope range in degrees per second. A running device is
// reconfigured.
func (d *Device) SetGyroScale(ctx context.Context, dps int) error {
	if d.desc.Caps&CapGyroscope == 0 || len(d.desc.GyroScales.Values) == 0 {
		return unsupported(d.desc, "no gyroscope range control")
	}
	d.gyro.matchScale(d.desc.GyroScales, dps)
	return d.reapply(ctx)
}

func (d *Device) reapply(ctx context.Context) error {
	if d.state != stateRunning {
		return nil
	}
	return d.configure(ctx)
}

// Status reads the chip's status register. Chips with latched interrupts clear them on this
// read.
func (d *Device) Status(ctx context.Context) (byte, error) {
	if !d.desc.Status.Present {
		return 0, unsupported(d.desc, "no status register")
	}
	var b [1]byte
	if err := d.read(ctx, d.desc.Status.Addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Device) read(ctx context.Context, register byte, buf []byte) error {
	if err := d.bus.ReadRegister(ctx, d.addr, register, buf); err != nil {
		return &TransportError{Op: "read", Addr: d.addr, Register: register, Err: err}
	}
	return nil
}

func (d *Device) write(ctx context.Context, register byte, vals ...byte) error {
	data := append([]byte{register}, vals...)
	if err := d.bus.WriteRegister(ctx, d.addr, data); err != nil {
		return &TransportError{Op: "write", Addr: d.addr, Register: register, Err: err}
	}
	return nil
}

func (d *Device) String() string {
	return d.desc.Name
}
