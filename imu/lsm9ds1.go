package imu

import (
	"context"
	"time"
)

// LSM9DS1 accelerometer and gyroscope registers. The magnetometer sits at its own address and
// is not driven.
const (
	lsm9Int1Ctrl  = 0x0C
	lsm9WhoAmI    = 0x0F
	lsm9CtrlReg1G = 0x10
	lsm9OutTemp   = 0x15
	lsm9OutXG     = 0x18
	lsm9CtrlReg6X = 0x20
	lsm9CtrlReg8  = 0x22
	lsm9CtrlReg9  = 0x23
	lsm9StatusReg = 0x27
	lsm9OutXXL    = 0x28
	lsm9FIFOCtrl  = 0x2E
	lsm9FIFOSrc   = 0x2F
)

var lsm9ds1 = &Descriptor{
	Type:        TypeLSM9DS1,
	Name:        "LSM9DS1",
	Addresses:   [2]byte{0x6A, 0x6B},
	IDRegister:  lsm9WhoAmI,
	IDs:         []byte{0x68},
	Accel:       at(lsm9OutXXL),
	Gyro:        at(lsm9OutXG),
	Temp:        at(lsm9OutTemp),
	Status:      at(lsm9StatusReg),
	TempWidth:   2,
	TempFormula: TempLSM9DS1,
	Order:       LittleEndian,
	Caps:        CapAccelerometer | CapGyroscope | CapMagnetometer | CapFIFO | CapTemperature,
	AccelRates: RateTable{
		Hz:    []int{0, 10, 50, 119, 238, 476, 952, RateEnd},
		Codes: []byte{0, 1, 2, 3, 4, 5, 6},
	},
	// 14.9 and 59.5 Hz are listed as 15 and 60.
	GyroRates: RateTable{
		Hz:    []int{0, 15, 60, 119, 238, 476, 952, RateEnd},
		Codes: []byte{0, 1, 2, 3, 4, 5, 6},
	},
	AccelScales:       ScaleTable{Values: []int{2, 4, 8, 16}, Codes: []byte{0, 2, 3, 1}},
	GyroScales:        ScaleTable{Values: []int{245, 500, 2000}, Codes: []byte{0, 1, 3}},
	DefaultAccelScale: 2,
	DefaultGyroScale:  245,
	// 32 levels; FSS counts stored samples.
	Stream: &StreamLayout{
		CountReg:   lsm9FIFOSrc,
		CountWidth: 1,
		CountMask:  0x3F,
		Unit:       CountSamples,
		Split:      true,
	},
}

func lsm9Start(ctx context.Context, d *Device) error {
	return d.run(ctx,
		wr(lsm9CtrlReg1G, d.rateCode(ModeGyro)<<5|d.gyro.scaleCode<<3),
		wr(lsm9CtrlReg6X, d.rateCode(ModeAccel)<<5|d.accel.scaleCode<<3),
	)
}

func init() {
	familyRoutines[TypeLSM9DS1] = routines{
		start: lsm9Start,
		stop:  []step{wr(lsm9CtrlReg1G, 0), wr(lsm9CtrlReg6X, 0)},
		reset: []step{wr(lsm9CtrlReg8, 0x05).wait(10 * time.Millisecond)},
		fifo: func(*Device) []step {
			// FIFO_EN, then continuous mode
			return []step{wr(lsm9CtrlReg9, 0x02), wr(lsm9FIFOCtrl, 0xC0)}
		},
		interrupt: func(enable bool) []step {
			return []step{wr(lsm9Int1Ctrl, onOff(enable, 0x03))}
		},
	}
}
