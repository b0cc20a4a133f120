package imu

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/rdk/utils"
)

// Sample is one reading in chip independent form. Fields whose capability and mode bits are
// not both set are zero.
type Sample struct {
	Accel [3]int16
	Gyro  [3]int16
	// Temperature is in tenths of a degree Celsius.
	Temperature int
	Steps       int
}

// Channel selects one axis for OneChannel.
type Channel int

// Channels.
const (
	AccelX Channel = iota
	AccelY
	AccelZ
	GyroX
	GyroY
	GyroZ
)

func (o ByteOrder) int16(b []byte) int16 {
	if o == BigEndian {
		return utils.Int16FromBytesBE(b)
	}
	return utils.Int16FromBytesLE(b)
}

func (o ByteOrder) uint16(b []byte) uint16 {
	return uint16(o.int16(b))
}

func (d *Device) readVector(ctx context.Context, reg Register) ([3]int16, error) {
	var v [3]int16
	var buf [6]byte
	if err := d.read(ctx, reg.Addr, buf[:]); err != nil {
		return v, err
	}
	for i := range v {
		v[i] = d.desc.Order.int16(buf[2*i : 2*i+2])
	}
	return v, nil
}

// Sample reads every enabled sensor. Disabled or absent sensors are not touched on the bus.
func (d *Device) Sample(ctx context.Context) (Sample, error) {
	var s Sample
	var err error
	if d.sensorOn(ModeAccel) && d.desc.Accel.Present {
		if s.Accel, err = d.readVector(ctx, d.desc.Accel); err != nil {
			return Sample{}, err
		}
	}
	if d.sensorOn(ModeGyro) && d.desc.Gyro.Present {
		if s.Gyro, err = d.readVector(ctx, d.desc.Gyro); err != nil {
			return Sample{}, err
		}
	}
	if d.sensorOn(ModeTemp) && d.desc.Temp.Present {
		if s.Temperature, err = d.temperature(ctx); err != nil {
			return Sample{}, err
		}
	}
	if d.sensorOn(ModeStep) && d.desc.Steps.Present {
		var buf [2]byte
		if err := d.read(ctx, d.desc.Steps.Addr, buf[:]); err != nil {
			return Sample{}, err
		}
		s.Steps = int(d.desc.Order.uint16(buf[:]))
	}
	return s, nil
}

func (d *Device) temperature(ctx context.Context) (int, error) {
	if d.desc.TempWidth == 1 {
		var b [1]byte
		if err := d.read(ctx, d.desc.Temp.Addr, b[:]); err != nil {
			return 0, err
		}
		return int(int8(b[0])) * 10, nil
	}
	var buf [2]byte
	if err := d.read(ctx, d.desc.Temp.Addr, buf[:]); err != nil {
		return 0, err
	}
	return d.desc.TempFormula.tenths(int(d.desc.Order.int16(buf[:]))), nil
}

// OneChannel reads a single axis. A disabled sensor reads as zero without a bus transaction.
func (d *Device) OneChannel(ctx context.Context, ch Channel) (int16, error) {
	if ch < AccelX || ch > GyroZ {
		return 0, errors.Errorf("invalid channel %d", ch)
	}
	reg, bit, axis := d.desc.Accel, ModeAccel, int(ch)
	if ch >= GyroX {
		reg, bit, axis = d.desc.Gyro, ModeGyro, int(ch-GyroX)
	}
	if !d.sensorOn(bit) || !reg.Present {
		return 0, nil
	}
	var buf [2]byte
	if err := d.read(ctx, reg.Addr+byte(2*axis), buf[:]); err != nil {
		return 0, err
	}
	return d.desc.Order.int16(buf[:]), nil
}
