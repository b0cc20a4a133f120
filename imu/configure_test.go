package imu

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestStartSequences(t *testing.T) {
	ms := time.Millisecond
	for _, tc := range []struct {
		name   string
		desc   *Descriptor
		rate   int
		mode   Mode
		writes [][]byte
		waits  []time.Duration
	}{
		{
			name: "MPU6050",
			desc: mpu6050,
			rate: 100,
			mode: ModeAccel | ModeGyro | ModeTemp,
			writes: [][]byte{
				{0x6B, 0x00}, {0x1A, 0x01}, {0x19, 9}, {0x1B, 0x00}, {0x1C, 0x00}, {0x6C, 0x00},
			},
		},
		{
			name: "MPU6050 at 0 Hz parks both sensors",
			desc: mpu6050,
			rate: 0,
			mode: ModeAccel | ModeGyro,
			writes: [][]byte{
				{0x6B, 0x08}, {0x1A, 0x01}, {0x19, 0}, {0x1B, 0x00}, {0x1C, 0x00}, {0x6C, 0x3F},
			},
		},
		{
			name: "MPU9250 gyro only",
			desc: mpu9250,
			rate: 1000,
			mode: ModeGyro,
			writes: [][]byte{
				{0x6B, 0x08}, {0x1A, 0x01}, {0x19, 0}, {0x1B, 0x00}, {0x1C, 0x00}, {0x6C, 0x38},
			},
		},
		{
			name: "MPU6886",
			desc: mpu6886,
			rate: 200,
			mode: ModeAccel | ModeGyro | ModeTemp,
			writes: [][]byte{
				{0x6B, 0x80}, {0x6B, 0x01}, {0x1C, 0x00}, {0x1B, 0x18}, {0x1A, 0x01}, {0x19, 4},
				{0x38, 0x00}, {0x1D, 0x00}, {0x6A, 0x00}, {0x23, 0x00}, {0x37, 0x22}, {0x38, 0x01},
				{0x6C, 0x00},
			},
			waits: []time.Duration{10 * ms, 10 * ms, ms, ms, ms, ms, ms, ms, ms, ms, ms},
		},
		{
			name: "LSM6DS3 with step counter",
			desc: lsm6ds3,
			rate: 100,
			mode: ModeAccel | ModeGyro | ModeStep,
			writes: [][]byte{
				{0x10, 0x40}, {0x11, 0x40}, {0x19, 0x3E}, {0x58, 0x40}, {0x16, 0x40},
			},
		},
		{
			name: "LSM6DS3 step counter alone keeps the accelerometer on",
			desc: lsm6ds3,
			rate: 100,
			mode: ModeStep,
			writes: [][]byte{
				{0x10, 0x40}, {0x11, 0x00}, {0x19, 0x04}, {0x58, 0x40}, {0x16, 0x40},
			},
		},
		{
			name: "LSM6DS3 step counter at 0 Hz",
			desc: lsm6ds3,
			rate: 0,
			mode: ModeAccel | ModeStep,
			writes: [][]byte{
				{0x10, 0x10}, {0x11, 0x00}, {0x19, 0x04}, {0x58, 0x40}, {0x16, 0x40},
			},
		},
		{
			name: "LSM6DS3 accelerometer only",
			desc: lsm6ds3,
			rate: 52,
			mode: ModeAccel,
			writes: [][]byte{
				{0x10, 0x30}, {0x11, 0x00}, {0x16, 0x40},
			},
		},
		{
			name:   "LSM9DS1",
			desc:   lsm9ds1,
			rate:   100,
			mode:   ModeAccel | ModeGyro,
			writes: [][]byte{{0x10, 0x60}, {0x20, 0x60}},
		},
		{
			name:   "LIS3DH",
			desc:   lis3dh,
			rate:   100,
			mode:   ModeAccel | ModeTemp,
			writes: [][]byte{{0x20, 0x57}, {0x1F, 0xC0}, {0x23, 0x88}},
		},
		{
			name:   "LIS3DSH",
			desc:   lis3dsh,
			rate:   100,
			mode:   ModeAccel,
			writes: [][]byte{{0x20, 0x6F}, {0x24, 0x00}},
		},
		{
			name:   "LIS3DSH at 0 Hz",
			desc:   lis3dsh,
			rate:   0,
			mode:   ModeAccel,
			writes: [][]byte{{0x20, 0x00}, {0x24, 0x00}},
		},
		{
			name:   "LIS3DH at 0 Hz",
			desc:   lis3dh,
			rate:   0,
			mode:   ModeAccel,
			writes: [][]byte{{0x20, 0x00}, {0x1F, 0x00}, {0x23, 0x88}},
		},
		{
			name:   "ADXL345 lowest rate",
			desc:   adxl345,
			rate:   6,
			mode:   ModeAccel,
			writes: [][]byte{{0x2C, 0x06}, {0x2D, 0x08}, {0x31, 0x04}},
		},
		{
			name:   "ADXL345 at 0 Hz stays in standby",
			desc:   adxl345,
			rate:   0,
			mode:   ModeAccel,
			writes: [][]byte{{0x2C, 0x00}, {0x2D, 0x00}, {0x31, 0x04}},
		},
		{
			name: "BMI160",
			desc: bmi160,
			rate: 100,
			mode: ModeAccel | ModeGyro,
			writes: [][]byte{
				{0x7E, 0x11}, {0x40, 0x28}, {0x41, 0x03}, {0x7E, 0x15}, {0x42, 0x28}, {0x43, 0x00},
			},
			waits: []time.Duration{4 * ms, 80 * ms},
		},
		{
			name:   "BMI160 at 0 Hz suspends both sensors",
			desc:   bmi160,
			rate:   0,
			mode:   ModeAccel | ModeGyro,
			writes: [][]byte{{0x7E, 0x10}, {0x7E, 0x14}},
		},
		{
			name: "BMI160 step counter",
			desc: bmi160,
			rate: 50,
			mode: ModeStep,
			writes: [][]byte{
				{0x7E, 0x11}, {0x40, 0x27}, {0x41, 0x03}, {0x7E, 0x14}, {0x7A, 0x15, 0x03}, {0x7B, 0x0B},
			},
			waits: []time.Duration{4 * ms},
		},
		{
			name: "BMI160 step counter at 0 Hz",
			desc: bmi160,
			rate: 0,
			mode: ModeStep,
			writes: [][]byte{
				{0x7E, 0x11}, {0x40, 0x25}, {0x41, 0x03}, {0x7E, 0x14}, {0x7A, 0x15, 0x03}, {0x7B, 0x0B},
			},
			waits: []time.Duration{4 * ms},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, s, _, sleeps := initFamily(t, tc.desc)
			err := d.Start(context.Background(), tc.rate, tc.mode)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, s.Writes(), test.ShouldResemble, tc.writes)
			test.That(t, sleeps.waits, test.ShouldResemble, tc.waits)
			test.That(t, d.Running(), test.ShouldBeTrue)
			test.That(t, d.Mode(), test.ShouldEqual, tc.mode)
		})
	}
}

func TestStartAchievedRates(t *testing.T) {
	d, _, _, _ := initFamily(t, lsm9ds1)
	test.That(t, d.Start(context.Background(), 100, ModeAccel|ModeGyro), test.ShouldBeNil)
	test.That(t, d.AccRate(), test.ShouldEqual, 119)
	test.That(t, d.GyroRate(), test.ShouldEqual, 119)

	test.That(t, d.Start(context.Background(), 55, ModeAccel|ModeGyro), test.ShouldBeNil)
	test.That(t, d.AccRate(), test.ShouldEqual, 119)
	test.That(t, d.GyroRate(), test.ShouldEqual, 60)

	test.That(t, d.Start(context.Background(), 5000, ModeAccel|ModeGyro), test.ShouldBeNil)
	test.That(t, d.AccRate(), test.ShouldEqual, 952)
	test.That(t, d.GyroRate(), test.ShouldEqual, 952)
}

func TestStartIsRepeatable(t *testing.T) {
	d, s, _, _ := initFamily(t, lis3dsh)
	test.That(t, d.Start(context.Background(), 100, ModeAccel), test.ShouldBeNil)
	first := s.Writes()
	s.Reset()
	test.That(t, d.Start(context.Background(), 100, ModeAccel), test.ShouldBeNil)
	test.That(t, s.Writes(), test.ShouldResemble, first)
}

func TestStartRejectsModesOutsideCapabilities(t *testing.T) {
	d, s, _, _ := initFamily(t, adxl345)
	err := d.Start(context.Background(), 100, ModeAccel|ModeGyro)
	test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
	test.That(t, s.Log(), test.ShouldBeEmpty)
	test.That(t, d.Running(), test.ShouldBeFalse)

	d, s, _, _ = initFamily(t, mpu6886)
	err = d.Start(context.Background(), 100, ModeAccel|ModeFIFO)
	test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
	test.That(t, s.Log(), test.ShouldBeEmpty)
}

func TestStartWithoutRoutine(t *testing.T) {
	d, s, _, _ := initFamily(t, familyX, withFamily(familyX, routines{}))
	err := d.Start(context.Background(), 100, ModeAccel)
	test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
	test.That(t, s.Log(), test.ShouldBeEmpty)
}

func TestStartTransportFailure(t *testing.T) {
	nack := errors.New("nack")
	d, s, chip, _ := initFamily(t, mpu6050)
	chip.WriteErrors = map[byte]error{0x19: nack}

	err := d.Start(context.Background(), 100, ModeAccel)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, nack), test.ShouldBeTrue)

	var terr *TransportError
	test.That(t, errors.As(err, &terr), test.ShouldBeTrue)
	test.That(t, terr.Op, test.ShouldEqual, "write")
	test.That(t, terr.Addr, test.ShouldEqual, byte(0x68))
	test.That(t, terr.Register, test.ShouldEqual, byte(0x19))

	// nothing after the failed write is attempted
	test.That(t, s.Writes(), test.ShouldHaveLength, 3)
	test.That(t, d.Running(), test.ShouldBeFalse)
}

func TestMutatorsReconfigureWhenRunning(t *testing.T) {
	ctx := context.Background()
	d, s, _, _ := initFamily(t, mpu6050)

	// idle: settings change without touching the bus
	test.That(t, d.SetAccScale(ctx, 5), test.ShouldBeNil)
	test.That(t, d.AccScale(), test.ShouldEqual, 8)
	test.That(t, s.Log(), test.ShouldBeEmpty)

	test.That(t, d.Start(ctx, 100, ModeAccel|ModeGyro|ModeTemp), test.ShouldBeNil)
	s.Reset()

	test.That(t, d.SetGyroScale(ctx, 2000), test.ShouldBeNil)
	test.That(t, d.GyroScale(), test.ShouldEqual, 2000)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{
		{0x6B, 0x00}, {0x1A, 0x01}, {0x19, 9}, {0x1B, 0x18}, {0x1C, 0x10}, {0x6C, 0x00},
	})

	// one divider: the gyroscope follows the accelerometer
	s.Reset()
	test.That(t, d.SetAccRate(ctx, 300), test.ShouldBeNil)
	test.That(t, d.AccRate(), test.ShouldEqual, 500)
	test.That(t, d.GyroRate(), test.ShouldEqual, 500)
	test.That(t, s.Writes()[2], test.ShouldResemble, []byte{0x19, 1})
}

func TestMutatorsIndependentRates(t *testing.T) {
	ctx := context.Background()
	d, s, _, _ := initFamily(t, lsm6ds3)
	test.That(t, d.Start(ctx, 100, ModeAccel|ModeGyro), test.ShouldBeNil)
	s.Reset()

	test.That(t, d.SetGyroRate(ctx, 1000), test.ShouldBeNil)
	test.That(t, d.GyroRate(), test.ShouldEqual, 1660)
	test.That(t, d.AccRate(), test.ShouldEqual, 104)
	test.That(t, s.Writes()[:2], test.ShouldResemble, [][]byte{{0x10, 0x40}, {0x11, 0x80}})

	test.That(t, d.SetGyroRate(ctx, 9999), test.ShouldBeNil)
	test.That(t, d.GyroRate(), test.ShouldEqual, 1660)
	test.That(t, d.SetAccRate(ctx, 9999), test.ShouldBeNil)
	test.That(t, d.AccRate(), test.ShouldEqual, 6660)
}

func TestMutatorsUnsupported(t *testing.T) {
	ctx := context.Background()
	d, _, _, _ := initFamily(t, adxl345)
	test.That(t, errors.Is(d.SetGyroRate(ctx, 100), ErrUnsupported), test.ShouldBeTrue)
	test.That(t, errors.Is(d.SetGyroScale(ctx, 500), ErrUnsupported), test.ShouldBeTrue)
	test.That(t, d.SetAccRate(ctx, 100), test.ShouldBeNil)
	test.That(t, d.AccRate(), test.ShouldEqual, 100)
}

func TestStopAndReset(t *testing.T) {
	ctx := context.Background()
	d, s, _, sleeps := initFamily(t, mpu6050)
	test.That(t, d.Start(ctx, 100, ModeAccel), test.ShouldBeNil)
	s.Reset()

	test.That(t, d.Stop(ctx), test.ShouldBeNil)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x6B, 0x40}})
	test.That(t, d.Running(), test.ShouldBeFalse)

	s.Reset()
	test.That(t, d.Reset(ctx), test.ShouldBeNil)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x6B, 0x80}})
	test.That(t, sleeps.waits, test.ShouldResemble, []time.Duration{100 * time.Millisecond})

	d, _, _, _ = initFamily(t, adxl345)
	test.That(t, errors.Is(d.Reset(ctx), ErrUnsupported), test.ShouldBeTrue)

	d, s, _, sleeps = initFamily(t, bmi160)
	test.That(t, d.Reset(ctx), test.ShouldBeNil)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x7E, 0xB6}})
	test.That(t, sleeps.waits, test.ShouldResemble, []time.Duration{15 * time.Millisecond})
}

func TestConfigureFIFO(t *testing.T) {
	ctx := context.Background()

	t.Run("as part of start", func(t *testing.T) {
		d, s, _, _ := initFamily(t, lsm6ds3)
		test.That(t, d.Start(ctx, 100, ModeAccel|ModeGyro|ModeFIFO), test.ShouldBeNil)
		test.That(t, s.Writes(), test.ShouldResemble, [][]byte{
			{0x10, 0x40}, {0x11, 0x40}, {0x16, 0x40}, {0x08, 0x09}, {0x0A, 0x26},
		})
	})

	t.Run("after start", func(t *testing.T) {
		d, s, _, _ := initFamily(t, mpu6050)
		test.That(t, d.Start(ctx, 100, ModeAccel|ModeGyro), test.ShouldBeNil)
		s.Reset()
		test.That(t, d.ConfigureFIFO(ctx), test.ShouldBeNil)
		test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x6A, 0x04}, {0x23, 0x78}, {0x6A, 0x40}})
		test.That(t, d.Mode()&ModeFIFO, test.ShouldEqual, ModeFIFO)
	})

	t.Run("bmi flushes", func(t *testing.T) {
		d, s, _, _ := initFamily(t, bmi160)
		test.That(t, d.Start(ctx, 100, ModeAccel), test.ShouldBeNil)
		s.Reset()
		test.That(t, d.ConfigureFIFO(ctx), test.ShouldBeNil)
		test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x47, 0x40}, {0x7E, 0xB0}})
	})

	t.Run("lsm9ds1 continuous mode", func(t *testing.T) {
		d, s, _, _ := initFamily(t, lsm9ds1)
		test.That(t, d.Start(ctx, 100, ModeAccel|ModeGyro), test.ShouldBeNil)
		s.Reset()
		test.That(t, d.ConfigureFIFO(ctx), test.ShouldBeNil)
		test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x23, 0x02}, {0x2E, 0xC0}})
	})

	t.Run("no fifo", func(t *testing.T) {
		d, s, _, _ := initFamily(t, mpu6886)
		test.That(t, errors.Is(d.ConfigureFIFO(ctx), ErrUnsupported), test.ShouldBeTrue)
		test.That(t, s.Log(), test.ShouldBeEmpty)
	})
}

func TestConfigureInterrupt(t *testing.T) {
	ctx := context.Background()
	d, s, _, _ := initFamily(t, bmi160)

	test.That(t, d.ConfigureInterrupt(ctx, true), test.ShouldBeNil)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x51, 0x10}, {0x53, 0x0A}, {0x56, 0x80}})

	s.Reset()
	test.That(t, d.ConfigureInterrupt(ctx, false), test.ShouldBeNil)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x51, 0x00}, {0x53, 0x00}, {0x56, 0x00}})

	d, s, _, _ = initFamily(t, adxl345)
	test.That(t, d.ConfigureInterrupt(ctx, true), test.ShouldBeNil)
	test.That(t, s.Writes(), test.ShouldResemble, [][]byte{{0x2F, 0x00}, {0x2E, 0x80}})
}

func TestBMI270ConfigUpload(t *testing.T) {
	ctx := context.Background()
	blob := make([]byte, 40)
	for i := range blob {
		blob[i] = byte(i + 1)
	}

	t.Run("loads the blob and programs the sensors", func(t *testing.T) {
		d, s, chip, sleeps := initFamily(t, bmi270, WithConfigFile(blob))
		chip.Set(0x21, 0x01)
		chip.Queue(0x5E)

		test.That(t, d.Start(ctx, 100, ModeAccel|ModeGyro), test.ShouldBeNil)
		test.That(t, s.Writes(), test.ShouldResemble, [][]byte{
			{0x7E, 0xB6},
			{0x7C, 0x00},
			{0x59, 0x00},
			{0x5B, 0x00, 0x00},
			append([]byte{0x5E}, blob[:32]...),
			{0x5B, 0x00, 0x01},
			append([]byte{0x5E}, blob[32:]...),
			{0x59, 0x01},
			{0x7D, 0x06},
			{0x40, 0xA8},
			{0x41, 0x00},
			{0x42, 0xA8},
			{0x43, 0x00},
			{0x7C, 0x02},
		})
		test.That(t, chip.Ports[0x5E], test.ShouldResemble, blob)
		test.That(t, sleeps.waits, test.ShouldResemble, []time.Duration{
			2 * time.Millisecond, 450 * time.Microsecond, 20 * time.Millisecond,
		})

		reads := s.Reads()
		test.That(t, reads, test.ShouldHaveLength, 1)
		test.That(t, reads[0].Register, test.ShouldEqual, byte(0x21))
	})

	t.Run("0 Hz leaves the sensors powered off", func(t *testing.T) {
		d, s, chip, _ := initFamily(t, bmi270, WithConfigFile(blob))
		chip.Set(0x21, 0x01)
		chip.Queue(0x5E)

		test.That(t, d.Start(ctx, 0, ModeAccel|ModeGyro|ModeTemp), test.ShouldBeNil)
		writes := s.Writes()
		test.That(t, writes[len(writes)-2:], test.ShouldResemble, [][]byte{{0x7D, 0x08}, {0x7C, 0x02}})
	})

	t.Run("rejected blob", func(t *testing.T) {
		d, s, chip, _ := initFamily(t, bmi270, WithConfigFile(blob))
		chip.Set(0x21, 0x02)
		err := d.Start(ctx, 100, ModeAccel)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "configuration load failed")
		test.That(t, d.Running(), test.ShouldBeFalse)
		// nothing is enabled after the failed check
		writes := s.Writes()
		test.That(t, writes[len(writes)-1], test.ShouldResemble, []byte{0x59, 0x01})
	})

	t.Run("no blob", func(t *testing.T) {
		d, s, _, _ := initFamily(t, bmi270)
		err := d.Start(ctx, 100, ModeAccel)
		test.That(t, errors.Is(err, ErrUnsupported), test.ShouldBeTrue)
		test.That(t, s.Log(), test.ShouldBeEmpty)
	})
}
