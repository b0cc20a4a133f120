package imu

import (
	"context"
	"time"
)

// LSM6DS3 registers.
const (
	lsm6FIFOCtrl3   = 0x08
	lsm6FIFOCtrl5   = 0x0A
	lsm6Int1Ctrl    = 0x0D
	lsm6WhoAmI      = 0x0F
	lsm6Ctrl1XL     = 0x10
	lsm6Ctrl2G      = 0x11
	lsm6Ctrl3C      = 0x12
	lsm6Ctrl7G      = 0x16
	lsm6Ctrl10C     = 0x19
	lsm6StatusReg   = 0x1E
	lsm6OutTemp     = 0x20
	lsm6OutXG       = 0x22
	lsm6OutXXL      = 0x28
	lsm6FIFOStatus1 = 0x3A
	lsm6FIFOData    = 0x3E
	lsm6StepCounter = 0x4B
	lsm6TapCfg      = 0x58
)

var lsm6ds3 = &Descriptor{
	Type:        TypeLSM6DS3,
	Name:        "LSM6DS3",
	Addresses:   [2]byte{0x6A, 0x6B},
	IDRegister:  lsm6WhoAmI,
	IDs:         []byte{0x69, 0x6A},
	Accel:       at(lsm6OutXXL),
	Gyro:        at(lsm6OutXG),
	Temp:        at(lsm6OutTemp),
	Steps:       at(lsm6StepCounter),
	Status:      at(lsm6StatusReg),
	TempWidth:   2,
	TempFormula: TempLSM6DS3,
	Order:       LittleEndian,
	Caps:        CapAccelerometer | CapGyroscope | CapFIFO | CapTemperature | CapPedometer,
	// 12.5 Hz is listed as 13.
	AccelRates: RateTable{
		Hz:    []int{0, 13, 26, 52, 104, 208, 416, 833, 1660, 3330, 6660, RateEnd},
		Codes: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	},
	GyroRates: RateTable{
		Hz:    []int{0, 13, 26, 52, 104, 208, 416, 833, 1660, RateEnd},
		Codes: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8},
	},
	AccelScales:       ScaleTable{Values: []int{2, 4, 8, 16}, Codes: []byte{0, 2, 3, 1}},
	GyroScales:        ScaleTable{Values: []int{245, 500, 1000, 2000}, Codes: []byte{0, 1, 2, 3}},
	DefaultAccelScale: 2,
	DefaultGyroScale:  245,
	Stream: &StreamLayout{
		CountReg:   lsm6FIFOStatus1,
		CountWidth: 2,
		CountMask:  0x0FFF,
		Unit:       CountWords,
		DataReg:    lsm6FIFOData,
	},
}

// lsm6Start programs both output data rates. The pedometer runs off the accelerometer, so step
// counting keeps it powered.
func lsm6Start(ctx context.Context, d *Device) error {
	steps := []step{
		wr(lsm6Ctrl1XL, d.accelCode()<<4|d.accel.scaleCode<<2),
		wr(lsm6Ctrl2G, d.rateCode(ModeGyro)<<4|d.gyro.scaleCode<<2),
	}
	if d.sensorOn(ModeStep) {
		funcEn := byte(0x04)
		if d.running(ModeGyro) {
			funcEn = 0x3E
		}
		steps = append(steps, wr(lsm6Ctrl10C, funcEn), wr(lsm6TapCfg, 0x40))
	}
	// high performance gyroscope, high pass filter on
	steps = append(steps, wr(lsm6Ctrl7G, 0x40))
	return d.run(ctx, steps...)
}

func lsm6FIFO(d *Device) []step {
	var decimation byte
	odr := d.rateCode(ModeAccel)
	if d.running(ModeAccel) {
		decimation |= 0x01
	}
	if d.running(ModeGyro) {
		decimation |= 0x08
		if g := d.rateCode(ModeGyro); g > odr {
			odr = g
		}
	}
	return []step{
		wr(lsm6FIFOCtrl3, decimation),
		wr(lsm6FIFOCtrl5, odr<<3|0x06),
	}
}

func init() {
	familyRoutines[TypeLSM6DS3] = routines{
		start: lsm6Start,
		stop:  []step{wr(lsm6Ctrl1XL, 0), wr(lsm6Ctrl2G, 0)},
		reset: []step{wr(lsm6Ctrl3C, 0x05).wait(time.Millisecond)},
		fifo:  lsm6FIFO,
		interrupt: func(enable bool) []step {
			return []step{wr(lsm6Int1Ctrl, onOff(enable, 0x03))}
		},
	}
}
