// Package imu identifies which inertial-sensor chip is attached to an I2C bus and hides its
// register map behind one API: Init finds the chip, Start configures an operating mode and
// sample rate, and Sample returns accelerometer, gyroscope, temperature and step readings in
// a chip independent form.
//
// Every supported chip family is described by an immutable Descriptor in a fixed priority
// order, plus a set of configuration routines keyed by DeviceType. Adding a family means
// adding one descriptor and one set of routines.
package imu

import (
	"fmt"
	"strings"
)

// DeviceType enumerates the supported chip families.
type DeviceType int

// Supported chip families.
const (
	TypeUndefined DeviceType = iota
	TypeADXL345
	TypeMPU6050
	TypeLSM9DS1
	TypeLSM6DS3
	TypeBMI160
	TypeLIS3DH
	TypeLIS3DSH
	TypeMPU6886
	TypeBMI270
	TypeMPU9250
)

var typeNames = map[DeviceType]string{
	TypeUndefined: "undefined",
	TypeADXL345:   "ADXL345",
	TypeMPU6050:   "MPU6050",
	TypeLSM9DS1:   "LSM9DS1",
	TypeLSM6DS3:   "LSM6DS3",
	TypeBMI160:    "BMI160",
	TypeLIS3DH:    "LIS3DH",
	TypeLIS3DSH:   "LIS3DSH",
	TypeMPU6886:   "MPU6886",
	TypeBMI270:    "BMI270",
	TypeMPU9250:   "MPU9250",
}

func (t DeviceType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}

// Capability is a bitset of the sensing functions a chip family has.
type Capability uint32

// Capability bits.
const (
	CapAccelerometer Capability = 1 << iota
	CapGyroscope
	CapMagnetometer
	CapFIFO
	CapTemperature
	CapPedometer
	CapOrientation
)

var capNames = []string{"accelerometer", "gyroscope", "magnetometer", "fifo", "temperature", "pedometer", "orientation"}

func (c Capability) String() string {
	var parts []string
	for i, name := range capNames {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Mode is the bitmask of functions switched on by Start.
type Mode uint8

// Mode bits.
const (
	ModeAccel Mode = 1 << iota
	ModeGyro
	ModeTemp
	ModeFIFO
	ModeStep
)

var modeNames = []string{"accel", "gyro", "temp", "fifo", "step"}

func (m Mode) String() string {
	var parts []string
	for i, name := range modeNames {
		if m&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// modeCaps maps each mode bit to the capability it needs.
var modeCaps = map[Mode]Capability{
	ModeAccel: CapAccelerometer,
	ModeGyro:  CapGyroscope,
	ModeTemp:  CapTemperature,
	ModeFIFO:  CapFIFO,
	ModeStep:  CapPedometer,
}

// Modes returns the mode bits c can express.
func (c Capability) Modes() Mode {
	var m Mode
	for bit, need := range modeCaps {
		if c&need != 0 {
			m |= bit
		}
	}
	return m
}

// enabled reports whether the function behind bit is both present and switched on.
func enabled(caps Capability, mode, bit Mode) bool {
	return mode&bit != 0 && caps&modeCaps[bit] != 0
}

// ByteOrder of multi-byte register values.
type ByteOrder int

// Byte orders.
const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// Register is an optional register address. The zero value means the chip has none.
type Register struct {
	Addr    byte
	Present bool
}

func at(addr byte) Register {
	return Register{Addr: addr, Present: true}
}

// RateEnd terminates a rate table.
const RateEnd = -1

// RateTable lists the sample rates a sensor supports, ascending. Hz[0] is always the 0
// boundary (sensor off) and the list ends with RateEnd. Codes[i] is the selector the chip
// takes for Hz[i].
type RateTable struct {
	Hz    []int
	Codes []byte
}

// Match returns the table index for a requested rate.
func (t RateTable) Match(requested int) int {
	return MatchRate(requested, t.Hz)
}

// ScaleTable lists the full scale ranges a sensor supports, ascending (g or degrees/s).
type ScaleTable struct {
	Values []int
	Codes  []byte
}

// Match rounds requested up to the nearest supported range, clamping at the largest.
func (t ScaleTable) Match(requested int) int {
	for i, v := range t.Values {
		if requested <= v {
			return i
		}
	}
	return len(t.Values) - 1
}

// CountUnit says what a FIFO fill count counts.
type CountUnit int

// FIFO count units.
const (
	CountWords CountUnit = iota
	CountBytes
	CountSamples
)

// StreamLayout describes a chip's FIFO fill counter and data register.
type StreamLayout struct {
	CountReg   byte
	CountWidth int
	CountMask  uint16
	Unit       CountUnit
	DataReg    byte
	// PerSample drains one whole sample per transaction instead of one word. Chips whose FIFO
	// sits behind the output registers only advance after a complete sample is read.
	PerSample bool
	// Split FIFOs surface each sample through the accelerometer and gyroscope output
	// registers, which are not contiguous. DataReg is unused.
	Split bool
}

// Descriptor is the immutable register map of one chip family.
type Descriptor struct {
	Type DeviceType
	Name string

	// Addresses are tried in order by the prober.
	Addresses  [2]byte
	IDRegister byte
	IDs        []byte

	Accel  Register
	Gyro   Register
	Temp   Register
	Steps  Register
	Status Register

	TempWidth   int
	TempFormula TempFormula

	Order ByteOrder
	Caps  Capability

	AccelRates RateTable
	GyroRates  RateTable
	// SharedRate chips have one sample rate divider for every sensor.
	SharedRate bool

	AccelScales       ScaleTable
	GyroScales        ScaleTable
	DefaultAccelScale int
	DefaultGyroScale  int

	Stream *StreamLayout
}

func (d *Descriptor) String() string {
	return d.Name
}

func (d *Descriptor) matchesID(id byte) bool {
	for _, want := range d.IDs {
		if id == want {
			return true
		}
	}
	return false
}

// registry is the identification priority order. Several families share addresses (0x68 and
// 0x6A in particular), so reordering it can misidentify a chip.
var registry = []*Descriptor{
	lsm9ds1,
	lsm6ds3,
	lis3dh,
	lis3dsh,
	adxl345,
	bmi160,
	mpu6050,
	mpu6886,
	bmi270,
	mpu9250,
}

// Registry returns the supported families in identification order.
func Registry() []*Descriptor {
	return append([]*Descriptor(nil), registry...)
}

// ParseType returns the family with the given name, ignoring case.
func ParseType(name string) (DeviceType, bool) {
	for t, n := range typeNames {
		if t != TypeUndefined && strings.EqualFold(n, name) {
			return t, true
		}
	}
	return TypeUndefined, false
}

// Lookup returns the descriptor of a family.
func Lookup(t DeviceType) (*Descriptor, bool) {
	for _, d := range registry {
		if d.Type == t {
			return d, true
		}
	}
	return nil, false
}
