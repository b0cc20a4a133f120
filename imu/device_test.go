package imu

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"github.com/viam-modules/inertial/bus/bustest"
)

func TestFamilyAtAlternateAddress(t *testing.T) {
	ctx := context.Background()
	s := bustest.New()
	chip := s.Attach(0x31, bustest.NewDevice(0x0F, 0x5A))
	chip.Set(0x10, 0x10, 0x00, 0x20, 0x00, 0x30, 0x00)

	d, err := Init(ctx, s, logging.NewTestLogger(t), withFamily(familyX, familyXRoutines))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Type(), test.ShouldEqual, typeFamilyX)
	test.That(t, d.Address(), test.ShouldEqual, byte(0x31))
	test.That(t, s.Log()[0].Addr, test.ShouldEqual, byte(0x30))

	s.Reset()
	test.That(t, d.Start(ctx, 300, ModeAccel|ModeGyro), test.ShouldBeNil)
	test.That(t, d.AccRate(), test.ShouldEqual, 400)
	test.That(t, d.GyroRate(), test.ShouldEqual, 400)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x20, 3}, {0x21, 3}})

	sample, err := d.Sample(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sample.Accel, test.ShouldResemble, [3]int16{16, 32, 48})

	test.That(t, d.Close(), test.ShouldBeNil)
}

func TestSleepBetweenWrites(t *testing.T) {
	ctx := context.Background()
	var events []string
	s := bustest.New()
	s.Attach(familyX.Addresses[0], bustest.NewDevice(familyX.IDRegister, familyX.IDs[0]))

	slow := routines{
		start: func(ctx context.Context, d *Device) error {
			return d.run(ctx, wr(0x20, 1).wait(5), wr(0x21, 1))
		},
	}
	d, err := Init(ctx, s, logging.NewTestLogger(t), withFamily(familyX, slow), func(d *Device) {
		d.sleep = func(dur time.Duration) {
			events = append(events, fmt.Sprintf("sleep %d after %d writes", dur, len(s.Writes())))
		}
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Start(ctx, 100, ModeAccel), test.ShouldBeNil)
	test.That(t, events, test.ShouldResemble, []string{"sleep 5 after 1 writes"})
}
