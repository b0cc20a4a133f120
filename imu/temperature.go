package imu

// TempFormula selects how a two byte temperature code becomes tenths of a degree Celsius.
// The constants come from each chip's datasheet.
type TempFormula int

// Temperature formulas, named after the family that defines them.
const (
	TempNone TempFormula = iota
	// TempLSM6DS3 is 250 + raw*160/16.
	TempLSM6DS3
	// TempMPU6050 is raw/34 + 365.
	TempMPU6050
	// TempBMI is 230 + raw*10/512, shared by the BMI160 and BMI270.
	TempBMI
	// TempLSM9DS1 is 250 + raw*10/16.
	TempLSM9DS1
	// TempMPU6886 is 250 + raw*100/3268 (326.8 LSB per degree, 25 degree offset).
	TempMPU6886
	// TempMPU9250 is 210 + raw*1000/33387 (333.87 LSB per degree, 21 degree offset).
	TempMPU9250
)

// tenths converts a raw temperature code. Division truncates toward zero.
func (f TempFormula) tenths(raw int) int {
	switch f {
	case TempLSM6DS3:
		return 250 + (raw*160)/16
	case TempMPU6050:
		return (raw / 34) + 365
	case TempBMI:
		return 230 + (raw*10)/512
	case TempLSM9DS1:
		return 250 + (raw*10)/16
	case TempMPU6886:
		return 250 + (raw*100)/3268
	case TempMPU9250:
		return 210 + (raw*1000)/33387
	default:
		return 0
	}
}
