package imu

import (
	"context"
	"time"
)

// InvenSense MPU registers. The MPU-6050, MPU-9250 and MPU-6886 share one register map and
// one sample rate divider for every sensor.
const (
	mpuSmplrtDiv    = 0x19
	mpuConfig       = 0x1A
	mpuGyroConfig   = 0x1B
	mpuAccelConfig  = 0x1C
	mpuAccelConfig2 = 0x1D
	mpuFIFOEn       = 0x23
	mpuIntPinCfg    = 0x37
	mpuIntEnable    = 0x38
	mpuIntStatus    = 0x3A
	mpuAccelOut     = 0x3B
	mpuTempOut      = 0x41
	mpuGyroOut      = 0x43
	mpuUserCtrl     = 0x6A
	mpuPwrMgmt1     = 0x6B
	mpuPwrMgmt2     = 0x6C
	mpuFIFOCount    = 0x72
	mpuFIFORW       = 0x74
	mpuWhoAmI       = 0x75

	mpuSleep       = 0x40
	mpuDeviceReset = 0x80
	mpuTempDisable = 0x08
	mpuClockPLL    = 0x01
	mpuDLPF        = 0x01
)

// With the DLPF on the internal rate is 1 kHz and the output rate is 1000/(1+divider).
var mpuRates = RateTable{
	Hz:    []int{0, 4, 5, 8, 10, 20, 25, 40, 50, 100, 125, 200, 250, 500, 1000, RateEnd},
	Codes: []byte{0, 249, 199, 124, 99, 49, 39, 24, 19, 9, 7, 4, 3, 1, 0},
}

var (
	mpuAccelScales = ScaleTable{Values: []int{2, 4, 8, 16}, Codes: []byte{0, 1, 2, 3}}
	mpuGyroScales  = ScaleTable{Values: []int{250, 500, 1000, 2000}, Codes: []byte{0, 1, 2, 3}}
)

var mpuStream = &StreamLayout{
	CountReg:   mpuFIFOCount,
	CountWidth: 2,
	CountMask:  0x1FFF,
	Unit:       CountBytes,
	DataReg:    mpuFIFORW,
}

func mpuDescriptor(t DeviceType, id byte, formula TempFormula, caps Capability, stream *StreamLayout) *Descriptor {
	return &Descriptor{
		Type:              t,
		Name:              t.String(),
		Addresses:         [2]byte{0x68, 0x69},
		IDRegister:        mpuWhoAmI,
		IDs:               []byte{id},
		Accel:             at(mpuAccelOut),
		Gyro:              at(mpuGyroOut),
		Temp:              at(mpuTempOut),
		Status:            at(mpuIntStatus),
		TempWidth:         2,
		TempFormula:       formula,
		Order:             BigEndian,
		Caps:              caps,
		AccelRates:        mpuRates,
		GyroRates:         mpuRates,
		SharedRate:        true,
		AccelScales:       mpuAccelScales,
		GyroScales:        mpuGyroScales,
		DefaultAccelScale: 2,
		DefaultGyroScale:  250,
		Stream:            stream,
	}
}

var (
	mpu6050 = mpuDescriptor(TypeMPU6050, 0x68, TempMPU6050,
		CapAccelerometer|CapGyroscope|CapFIFO|CapTemperature, mpuStream)
	mpu9250 = mpuDescriptor(TypeMPU9250, 0x71, TempMPU9250,
		CapAccelerometer|CapGyroscope|CapMagnetometer|CapFIFO|CapTemperature, mpuStream)
	mpu6886 = func() *Descriptor {
		desc := mpuDescriptor(TypeMPU6886, 0x19, TempMPU6886, CapAccelerometer|CapGyroscope|CapTemperature, nil)
		desc.DefaultGyroScale = 2000
		return desc
	}()
)

// mpuDivider is the shared divider. The sensors always carry the same requested rate, so the
// accelerometer setting speaks for both unless only the gyroscope is on.
func (d *Device) mpuDivider() byte {
	if !d.running(ModeAccel) && d.running(ModeGyro) {
		return d.gyro.rateCode
	}
	return d.rateCode(ModeAccel)
}

// mpuStandby is the PWR_MGMT_2 value that parks the sensors that are not running.
func (d *Device) mpuStandby() byte {
	var v byte
	if !d.running(ModeAccel) {
		v |= 0x38
	}
	if !d.running(ModeGyro) {
		v |= 0x07
	}
	return v
}

func (d *Device) mpuPower(clock byte) byte {
	if !d.sensorOn(ModeTemp) {
		clock |= mpuTempDisable
	}
	return clock
}

func mpuStart(ctx context.Context, d *Device) error {
	return d.run(ctx,
		wr(mpuPwrMgmt1, d.mpuPower(0)),
		wr(mpuConfig, mpuDLPF),
		wr(mpuSmplrtDiv, d.mpuDivider()),
		wr(mpuGyroConfig, d.gyro.scaleCode<<3),
		wr(mpuAccelConfig, d.accel.scaleCode<<3),
		wr(mpuPwrMgmt2, d.mpuStandby()),
	)
}

// mpu6886Start resets the chip, selects the PLL clock and then programs it one register at a
// time with 1 ms between writes.
func mpu6886Start(ctx context.Context, d *Device) error {
	ms := time.Millisecond
	return d.run(ctx,
		wr(mpuPwrMgmt1, mpuDeviceReset).wait(10*ms),
		wr(mpuPwrMgmt1, d.mpuPower(mpuClockPLL)).wait(10*ms),
		wr(mpuAccelConfig, d.accel.scaleCode<<3).wait(ms),
		wr(mpuGyroConfig, d.gyro.scaleCode<<3).wait(ms),
		wr(mpuConfig, mpuDLPF).wait(ms),
		wr(mpuSmplrtDiv, d.mpuDivider()).wait(ms),
		wr(mpuIntEnable, 0).wait(ms),
		wr(mpuAccelConfig2, 0).wait(ms),
		wr(mpuUserCtrl, 0).wait(ms),
		wr(mpuFIFOEn, 0).wait(ms),
		wr(mpuIntPinCfg, 0x22).wait(ms),
		wr(mpuIntEnable, 0x01),
		wr(mpuPwrMgmt2, d.mpuStandby()),
	)
}

func mpuFIFO(d *Device) []step {
	var en byte
	if d.running(ModeAccel) {
		en |= 0x08
	}
	if d.running(ModeGyro) {
		en |= 0x70
	}
	return []step{
		wr(mpuUserCtrl, 0x04),
		wr(mpuFIFOEn, en),
		wr(mpuUserCtrl, 0x40),
	}
}

func mpuInterrupt(enable bool) []step {
	return []step{
		wr(mpuIntPinCfg, onOff(enable, 0x20)),
		wr(mpuIntEnable, onOff(enable, 0x01)),
	}
}

func init() {
	mpu := routines{
		start:     mpuStart,
		stop:      []step{wr(mpuPwrMgmt1, mpuSleep)},
		reset:     []step{wr(mpuPwrMgmt1, mpuDeviceReset).wait(100 * time.Millisecond)},
		fifo:      mpuFIFO,
		interrupt: mpuInterrupt,
	}
	familyRoutines[TypeMPU6050] = mpu
	familyRoutines[TypeMPU9250] = mpu
	familyRoutines[TypeMPU6886] = routines{
		start:     mpu6886Start,
		stop:      []step{wr(mpuPwrMgmt1, mpuSleep)},
		reset:     []step{wr(mpuPwrMgmt1, mpuDeviceReset).wait(10 * time.Millisecond)},
		interrupt: mpuInterrupt,
	}
}
