package imu

import "context"

// ADXL345 registers.
const (
	adxlDevID      = 0x00
	adxlBWRate     = 0x2C
	adxlPowerCtl   = 0x2D
	adxlIntEnable  = 0x2E
	adxlIntMap     = 0x2F
	adxlIntSource  = 0x30
	adxlDataFormat = 0x31
	adxlDataX0     = 0x32
	adxlFIFOCtl    = 0x38
	adxlFIFOStatus = 0x39

	adxlMeasure = 0x08
	adxlJustify = 0x04
)

var adxl345 = &Descriptor{
	Type:       TypeADXL345,
	Name:       "ADXL345",
	Addresses:  [2]byte{0x53, 0x1D},
	IDRegister: adxlDevID,
	IDs:        []byte{0xE5},
	Accel:      at(adxlDataX0),
	Status:     at(adxlIntSource),
	Order:      LittleEndian,
	Caps:       CapAccelerometer | CapFIFO,
	// 6.25 and 12.5 Hz are listed as 7 and 13.
	AccelRates: RateTable{
		Hz:    []int{0, 7, 13, 25, 50, 100, 200, 400, 800, 1600, 3200, RateEnd},
		Codes: []byte{0, 0x6, 0x7, 0x8, 0x9, 0xA, 0xB, 0xC, 0xD, 0xE, 0xF},
	},
	AccelScales:       ScaleTable{Values: []int{2, 4, 8, 16}, Codes: []byte{0, 1, 2, 3}},
	DefaultAccelScale: 2,
	Stream: &StreamLayout{
		CountReg:  adxlFIFOStatus,
		CountMask: 0x3F,
		Unit:      CountSamples,
		DataReg:   adxlDataX0,
		PerSample: true,
	},
}

func adxlStart(ctx context.Context, d *Device) error {
	return d.run(ctx,
		wr(adxlBWRate, d.rateCode(ModeAccel)),
		wr(adxlPowerCtl, onOff(d.running(ModeAccel), adxlMeasure)),
		// left justified: full scale is 32768 counts
		wr(adxlDataFormat, adxlJustify|d.accel.scaleCode),
	)
}

func init() {
	familyRoutines[TypeADXL345] = routines{
		start: adxlStart,
		stop:  []step{wr(adxlPowerCtl, 0)},
		fifo: func(*Device) []step {
			return []step{wr(adxlFIFOCtl, 0x80)}
		},
		interrupt: func(enable bool) []step {
			return []step{wr(adxlIntMap, 0), wr(adxlIntEnable, onOff(enable, 0x80))}
		},
	}
}
