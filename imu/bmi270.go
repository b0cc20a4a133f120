package imu

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Bosch BMI270 registers.
const (
	bmi270Data8       = 0x0C
	bmi270Data14      = 0x12
	bmi270IntStatus1  = 0x1D
	bmi270IntStatus   = 0x21
	bmi270Temp        = 0x22
	bmi270FIFOLen     = 0x24
	bmi270FIFOData    = 0x26
	bmi270FIFOCfg1    = 0x49
	bmi270IntMapData  = 0x58
	bmi270InitCtrl    = 0x59
	bmi270InitAddr0   = 0x5B
	bmi270InitData    = 0x5E
	bmi270PwrConf     = 0x7C
	bmi270PwrCtrl     = 0x7D
	bmi270ConfPerf    = 0xA0
	bmi270InitOK      = 0x01
	bmi270StatusMask  = 0x0F
	bmi270UploadChunk = 32
)

var bmi270 = &Descriptor{
	Type:              TypeBMI270,
	Name:              "BMI270",
	Addresses:         [2]byte{0x68, 0x69},
	IDRegister:        bmiChipID,
	IDs:               []byte{0x24},
	Accel:             at(bmi270Data8),
	Gyro:              at(bmi270Data14),
	Temp:              at(bmi270Temp),
	Status:            at(bmi270IntStatus1),
	TempWidth:         2,
	TempFormula:       TempBMI,
	Order:             LittleEndian,
	Caps:              CapAccelerometer | CapGyroscope | CapFIFO | CapTemperature,
	AccelRates:        bmiAccelRates,
	GyroRates:         bmiGyroRates,
	AccelScales:       ScaleTable{Values: []int{2, 4, 8, 16}, Codes: []byte{0, 1, 2, 3}},
	GyroScales:        bmiGyroScales,
	DefaultAccelScale: 2,
	DefaultGyroScale:  2000,
	Stream: &StreamLayout{
		CountReg:   bmi270FIFOLen,
		CountWidth: 2,
		CountMask:  0x3FFF,
		Unit:       CountBytes,
		DataReg:    bmi270FIFOData,
	},
}

// uploadSteps writes the configuration blob in chunks. The target address is in 16-bit words,
// split into a 4 bit low part and an 8 bit high part.
func uploadSteps(blob []byte) []step {
	var steps []step
	for idx := 0; idx < len(blob); idx += bmi270UploadChunk {
		end := min(idx+bmi270UploadChunk, len(blob))
		word := idx / 2
		steps = append(steps,
			wr(bmi270InitAddr0, byte(word&0x0F), byte(word>>4)),
			wr(bmi270InitData, blob[idx:end]...),
		)
	}
	return steps
}

// bmi270Start resets the chip, loads the configuration blob, checks that the chip accepted it
// and then enables and programs the sensors.
func bmi270Start(ctx context.Context, d *Device) error {
	if len(d.configFile) == 0 {
		return unsupported(d.desc, "configuration file required")
	}

	boot := []step{
		wr(bmiCmd, bmiCmdSoftReset).wait(2 * time.Millisecond),
		wr(bmi270PwrConf, 0x00).wait(450 * time.Microsecond),
		wr(bmi270InitCtrl, 0x00),
	}
	boot = append(boot, uploadSteps(d.configFile)...)
	boot = append(boot, wr(bmi270InitCtrl, 0x01).wait(20*time.Millisecond))
	if err := d.run(ctx, boot...); err != nil {
		return err
	}

	var status [1]byte
	if err := d.read(ctx, bmi270IntStatus, status[:]); err != nil {
		return err
	}
	if status[0]&bmi270StatusMask != bmi270InitOK {
		return errors.Errorf("%s: configuration load failed, internal status 0x%02x", d.desc.Name, status[0])
	}

	var pwr byte
	if d.running(ModeAccel) {
		pwr |= 0x04
	}
	if d.running(ModeGyro) {
		pwr |= 0x02
	}
	if d.sensorOn(ModeTemp) {
		pwr |= 0x08
	}
	steps := []step{wr(bmi270PwrCtrl, pwr)}
	if d.running(ModeAccel) {
		steps = append(steps,
			wr(bmiAccConf, bmi270ConfPerf|d.accel.rateCode),
			wr(bmiAccRange, d.accel.scaleCode),
		)
	}
	if d.running(ModeGyro) {
		steps = append(steps,
			wr(bmiGyrConf, bmi270ConfPerf|d.gyro.rateCode),
			wr(bmiGyrRange, d.gyro.scaleCode),
		)
	}
	steps = append(steps, wr(bmi270PwrConf, 0x02))
	return d.run(ctx, steps...)
}

func init() {
	familyRoutines[TypeBMI270] = routines{
		start: bmi270Start,
		stop:  []step{wr(bmi270PwrCtrl, 0)},
		reset: []step{wr(bmiCmd, bmiCmdSoftReset).wait(2 * time.Millisecond)},
		fifo:  bmiFIFO(bmi270FIFOCfg1),
		interrupt: func(enable bool) []step {
			return []step{
				wr(bmiIntOutCtrl, onOff(enable, 0x0A)),
				wr(bmi270IntMapData, onOff(enable, 0x04)),
			}
		},
	}
}
