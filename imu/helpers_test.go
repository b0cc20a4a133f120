package imu

import (
	"context"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-modules/inertial/bus/bustest"
)

// sleepLog records settle delays instead of sleeping.
type sleepLog struct {
	waits []time.Duration
}

func (l *sleepLog) option() Option {
	return func(d *Device) {
		d.sleep = func(dur time.Duration) {
			l.waits = append(l.waits, dur)
		}
	}
}

// attach places a chip of the given family at its first address, answering its ID register.
func attach(s *bustest.Scripted, desc *Descriptor) *bustest.Device {
	return s.Attach(desc.Addresses[0], bustest.NewDevice(desc.IDRegister, desc.IDs[0]))
}

// initFamily identifies a single scripted chip and clears the transaction log.
func initFamily(t *testing.T, desc *Descriptor, opts ...Option) (*Device, *bustest.Scripted, *bustest.Device, *sleepLog) {
	t.Helper()
	s := bustest.New()
	chip := attach(s, desc)
	sleeps := &sleepLog{}
	d, err := Init(context.Background(), s, logging.NewTestLogger(t), append(opts, sleeps.option())...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Type(), test.ShouldEqual, desc.Type)
	s.Reset()
	return d, s, chip, sleeps
}

const typeFamilyX DeviceType = 100

// familyX is a minimal accelerometer and gyroscope chip used to exercise the engine without
// any real family's quirks.
var familyX = &Descriptor{
	Type:       typeFamilyX,
	Name:       "family X",
	Addresses:  [2]byte{0x30, 0x31},
	IDRegister: 0x0F,
	IDs:        []byte{0x5A},
	Accel:      at(0x10),
	Gyro:       at(0x16),
	Order:      LittleEndian,
	Caps:       CapAccelerometer | CapGyroscope,
	AccelRates: RateTable{Hz: []int{0, 100, 200, 400, RateEnd}, Codes: []byte{0, 1, 2, 3}},
	GyroRates:  RateTable{Hz: []int{0, 100, 200, 400, RateEnd}, Codes: []byte{0, 1, 2, 3}},
}

var familyXRoutines = routines{
	start: func(ctx context.Context, d *Device) error {
		return d.run(ctx,
			wr(0x20, d.rateCode(ModeAccel)),
			wr(0x21, d.rateCode(ModeGyro)),
		)
	},
}

// withFamily puts desc ahead of the built-in registry and makes r its only routines.
func withFamily(desc *Descriptor, r routines) Option {
	return func(d *Device) {
		d.registry = append([]*Descriptor{desc}, registry...)
		d.routines = map[DeviceType]routines{desc.Type: r}
	}
}
