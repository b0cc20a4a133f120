package imu

import (
	"context"
	"time"
)

// LIS3DH and LIS3DSH registers. The two share an ID register and output offsets but not their
// control registers.
const (
	lisOutTemp   = 0x0C
	lisWhoAmI    = 0x0F
	lisStatusReg = 0x27
	lisOutX      = 0x28
	lisFIFOCtrl  = 0x2E
	lisFIFOSrc   = 0x2F

	// Setting the top bit of a LIS3DH register address auto-increments it across a burst.
	lis3dhAutoIncrement = 0x80

	lis3dhTempCfg  = 0x1F
	lis3dhCtrlReg1 = 0x20
	lis3dhCtrlReg3 = 0x22
	lis3dhCtrlReg4 = 0x23
	lis3dhCtrlReg5 = 0x24

	lis3dshCtrlReg4 = 0x20
	lis3dshCtrlReg3 = 0x23
	lis3dshCtrlReg5 = 0x24
	lis3dshCtrlReg6 = 0x25
)

var lis3dh = &Descriptor{
	Type:       TypeLIS3DH,
	Name:       "LIS3DH",
	Addresses:  [2]byte{0x18, 0x19},
	IDRegister: lisWhoAmI,
	IDs:        []byte{0x33},
	Accel:      at(lisOutX | lis3dhAutoIncrement),
	Temp:       at(lisOutTemp),
	Status:     at(lisStatusReg),
	TempWidth:  1,
	Order:      LittleEndian,
	Caps:       CapAccelerometer | CapFIFO | CapTemperature,
	AccelRates: RateTable{
		Hz:    []int{0, 1, 10, 25, 50, 100, 200, 400, 1344, RateEnd},
		Codes: []byte{0, 1, 2, 3, 4, 5, 6, 7, 9},
	},
	AccelScales:       ScaleTable{Values: []int{2, 4, 8, 16}, Codes: []byte{0, 1, 2, 3}},
	DefaultAccelScale: 2,
	Stream: &StreamLayout{
		CountReg:  lisFIFOSrc,
		CountMask: 0x1F,
		Unit:      CountSamples,
		DataReg:   lisOutX | lis3dhAutoIncrement,
		PerSample: true,
	},
}

var lis3dsh = &Descriptor{
	Type:       TypeLIS3DSH,
	Name:       "LIS3DSH",
	Addresses:  [2]byte{0x1D, 0x1E},
	IDRegister: lisWhoAmI,
	IDs:        []byte{0x3F},
	Accel:      at(lisOutX),
	Temp:       at(lisOutTemp),
	Status:     at(lisStatusReg),
	TempWidth:  1,
	Order:      LittleEndian,
	Caps:       CapAccelerometer | CapFIFO | CapTemperature,
	// 3.125, 6.25 and 12.5 Hz are listed as 4, 7 and 13.
	AccelRates: RateTable{
		Hz:    []int{0, 4, 7, 13, 25, 50, 100, 400, 800, 1600, RateEnd},
		Codes: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	},
	AccelScales:       ScaleTable{Values: []int{2, 4, 6, 8, 16}, Codes: []byte{0, 1, 2, 3, 4}},
	DefaultAccelScale: 2,
	Stream: &StreamLayout{
		CountReg:  lisFIFOSrc,
		CountMask: 0x1F,
		Unit:      CountSamples,
		DataReg:   lisOutX,
		PerSample: true,
	},
}

func lis3dhStart(ctx context.Context, d *Device) error {
	ctrl1 := byte(0)
	if d.running(ModeAccel) {
		ctrl1 = d.accel.rateCode<<4 | 0x07
	}
	return d.run(ctx,
		wr(lis3dhCtrlReg1, ctrl1),
		wr(lis3dhTempCfg, onOff(d.sensorOn(ModeTemp), 0xC0)),
		// block data update, high resolution
		wr(lis3dhCtrlReg4, 0x88|d.accel.scaleCode<<4),
	)
}

func lis3dshStart(ctx context.Context, d *Device) error {
	ctrl4 := byte(0)
	if d.running(ModeAccel) {
		ctrl4 = d.accel.rateCode<<4 | 0x08 | 0x07
	}
	return d.run(ctx,
		wr(lis3dshCtrlReg4, ctrl4),
		wr(lis3dshCtrlReg5, d.accel.scaleCode<<3),
	)
}

func init() {
	familyRoutines[TypeLIS3DH] = routines{
		start: lis3dhStart,
		stop:  []step{wr(lis3dhCtrlReg1, 0)},
		reset: []step{wr(lis3dhCtrlReg5, 0x80).wait(5 * time.Millisecond)},
		fifo: func(*Device) []step {
			return []step{wr(lis3dhCtrlReg5, 0x40), wr(lisFIFOCtrl, 0x80)}
		},
		interrupt: func(enable bool) []step {
			return []step{wr(lis3dhCtrlReg3, onOff(enable, 0x10))}
		},
	}
	familyRoutines[TypeLIS3DSH] = routines{
		start: lis3dshStart,
		stop:  []step{wr(lis3dshCtrlReg4, 0)},
		reset: []step{wr(lis3dshCtrlReg3, 0x01).wait(5 * time.Millisecond)},
		fifo: func(*Device) []step {
			return []step{wr(lis3dshCtrlReg6, 0x50), wr(lisFIFOCtrl, 0x40)}
		},
		interrupt: func(enable bool) []step {
			return []step{wr(lis3dshCtrlReg3, onOff(enable, 0x88))}
		},
	}
}
