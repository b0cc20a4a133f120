package imu

import (
	"context"
	"time"
)

// Bosch BMI160 registers.
const (
	bmiChipID      = 0x00
	bmi160Data8    = 0x0C
	bmi160Data14   = 0x12
	bmi160Status   = 0x1B
	bmi160Temp     = 0x20
	bmi160FIFOLen  = 0x22
	bmi160FIFOData = 0x24
	bmiAccConf     = 0x40
	bmiAccRange    = 0x41
	bmiGyrConf     = 0x42
	bmiGyrRange    = 0x43
	bmi160FIFOCfg1 = 0x47
	bmi160IntEn1   = 0x51
	bmiIntOutCtrl  = 0x53
	bmi160IntMap1  = 0x56
	bmi160StepCnt  = 0x78
	bmi160StepConf = 0x7A
	bmiCmd         = 0x7E

	bmi160AccNormal   = 0x11
	bmi160AccSuspend  = 0x10
	bmi160GyrNormal   = 0x15
	bmi160GyrSuspend  = 0x14
	bmiCmdFIFOFlush   = 0xB0
	bmiCmdSoftReset   = 0xB6
	bmiConfNormalMode = 0x20
)

// 12.5 Hz is listed as 13.
var bmiAccelRates = RateTable{
	Hz:    []int{0, 13, 25, 50, 100, 200, 400, 800, 1600, RateEnd},
	Codes: []byte{0, 0x5, 0x6, 0x7, 0x8, 0x9, 0xA, 0xB, 0xC},
}

var bmiGyroRates = RateTable{
	Hz:    []int{0, 25, 50, 100, 200, 400, 800, 1600, 3200, RateEnd},
	Codes: []byte{0, 0x6, 0x7, 0x8, 0x9, 0xA, 0xB, 0xC, 0xD},
}

var bmiGyroScales = ScaleTable{Values: []int{125, 250, 500, 1000, 2000}, Codes: []byte{4, 3, 2, 1, 0}}

var bmi160 = &Descriptor{
	Type:              TypeBMI160,
	Name:              "BMI160",
	Addresses:         [2]byte{0x68, 0x69},
	IDRegister:        bmiChipID,
	IDs:               []byte{0xD1},
	Accel:             at(bmi160Data14),
	Gyro:              at(bmi160Data8),
	Temp:              at(bmi160Temp),
	Steps:             at(bmi160StepCnt),
	Status:            at(bmi160Status),
	TempWidth:         2,
	TempFormula:       TempBMI,
	Order:             LittleEndian,
	Caps:              CapAccelerometer | CapGyroscope | CapFIFO | CapTemperature | CapPedometer,
	AccelRates:        bmiAccelRates,
	GyroRates:         bmiGyroRates,
	AccelScales:       ScaleTable{Values: []int{2, 4, 8, 16}, Codes: []byte{0x3, 0x5, 0x8, 0xC}},
	GyroScales:        bmiGyroScales,
	DefaultAccelScale: 2,
	DefaultGyroScale:  2000,
	Stream: &StreamLayout{
		CountReg:   bmi160FIFOLen,
		CountWidth: 2,
		CountMask:  0x07FF,
		Unit:       CountBytes,
		DataReg:    bmi160FIFOData,
	},
}

// bmi160Start brings each sensor out of suspend with its start-up time, then programs rate and
// range. Sensors without a rate stay suspended; the step counter keeps the accelerometer on.
func bmi160Start(ctx context.Context, d *Device) error {
	accelOn := d.running(ModeAccel) || d.sensorOn(ModeStep)
	gyroOn := d.running(ModeGyro)

	var steps []step
	if accelOn {
		steps = append(steps,
			wr(bmiCmd, bmi160AccNormal).wait(4*time.Millisecond),
			wr(bmiAccConf, bmiConfNormalMode|d.accelCode()),
			wr(bmiAccRange, d.accel.scaleCode),
		)
	} else {
		steps = append(steps, wr(bmiCmd, bmi160AccSuspend))
	}
	if gyroOn {
		steps = append(steps,
			wr(bmiCmd, bmi160GyrNormal).wait(80*time.Millisecond),
			wr(bmiGyrConf, bmiConfNormalMode|d.gyro.rateCode),
			wr(bmiGyrRange, d.gyro.scaleCode),
		)
	} else {
		steps = append(steps, wr(bmiCmd, bmi160GyrSuspend))
	}
	if d.sensorOn(ModeStep) {
		steps = append(steps,
			wr(bmi160StepConf, 0x15, 0x03),
			wr(bmi160StepConf+1, 0x0B),
		)
	}
	return d.run(ctx, steps...)
}

// bmiFIFO enables headerless frames for the running sensors and flushes stale data.
func bmiFIFO(cfgReg byte) func(d *Device) []step {
	return func(d *Device) []step {
		var cfg byte
		if d.running(ModeGyro) {
			cfg |= 0x80
		}
		if d.running(ModeAccel) {
			cfg |= 0x40
		}
		return []step{wr(cfgReg, cfg), wr(bmiCmd, bmiCmdFIFOFlush)}
	}
}

func init() {
	familyRoutines[TypeBMI160] = routines{
		start: bmi160Start,
		stop:  []step{wr(bmiCmd, bmi160AccSuspend), wr(bmiCmd, bmi160GyrSuspend)},
		reset: []step{wr(bmiCmd, bmiCmdSoftReset).wait(15 * time.Millisecond)},
		fifo:  bmiFIFO(bmi160FIFOCfg1),
		interrupt: func(enable bool) []step {
			return []step{
				wr(bmi160IntEn1, onOff(enable, 0x10)),
				wr(bmiIntOutCtrl, onOff(enable, 0x0A)),
				wr(bmi160IntMap1, onOff(enable, 0x80)),
			}
		},
	}
}
