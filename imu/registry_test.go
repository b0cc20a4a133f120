package imu

import (
	"testing"

	"go.viam.com/test"
)

func TestRegistryOrder(t *testing.T) {
	var got []DeviceType
	for _, desc := range Registry() {
		got = append(got, desc.Type)
	}
	test.That(t, got, test.ShouldResemble, []DeviceType{
		TypeLSM9DS1, TypeLSM6DS3, TypeLIS3DH, TypeLIS3DSH, TypeADXL345,
		TypeBMI160, TypeMPU6050, TypeMPU6886, TypeBMI270, TypeMPU9250,
	})

	// callers get a copy
	r := Registry()
	r[0] = nil
	test.That(t, Registry()[0], test.ShouldEqual, lsm9ds1)
}

func TestDescriptorsAreConsistent(t *testing.T) {
	for _, desc := range Registry() {
		t.Run(desc.Name, func(t *testing.T) {
			test.That(t, desc.Name, test.ShouldEqual, desc.Type.String())
			test.That(t, desc.IDs, test.ShouldNotBeEmpty)

			_, ok := familyRoutines[desc.Type]
			test.That(t, ok, test.ShouldBeTrue)

			for _, rt := range []RateTable{desc.AccelRates, desc.GyroRates} {
				if len(rt.Hz) == 0 {
					continue
				}
				test.That(t, rt.Hz[0], test.ShouldEqual, 0)
				test.That(t, rt.Hz[len(rt.Hz)-1], test.ShouldEqual, RateEnd)
				test.That(t, rt.Codes, test.ShouldHaveLength, len(rt.Hz)-1)
				for i := 1; i < len(rt.Hz)-1; i++ {
					test.That(t, rt.Hz[i], test.ShouldBeGreaterThan, rt.Hz[i-1])
				}
			}

			if desc.Caps&CapAccelerometer != 0 {
				test.That(t, desc.Accel.Present, test.ShouldBeTrue)
				test.That(t, desc.AccelRates.Hz, test.ShouldNotBeEmpty)
				test.That(t, desc.AccelScales.Values, test.ShouldContain, desc.DefaultAccelScale)
			}
			if desc.Caps&CapGyroscope != 0 {
				test.That(t, desc.Gyro.Present, test.ShouldBeTrue)
				test.That(t, desc.GyroRates.Hz, test.ShouldNotBeEmpty)
				test.That(t, desc.GyroScales.Values, test.ShouldContain, desc.DefaultGyroScale)
			}
			if desc.Caps&CapTemperature != 0 {
				test.That(t, desc.Temp.Present, test.ShouldBeTrue)
				test.That(t, desc.TempWidth, test.ShouldBeIn, 1, 2)
			}
			if desc.Caps&CapPedometer != 0 {
				test.That(t, desc.Steps.Present, test.ShouldBeTrue)
			}
			if desc.Stream != nil {
				test.That(t, desc.Caps&CapFIFO, test.ShouldNotEqual, 0)
				test.That(t, familyRoutines[desc.Type].fifo, test.ShouldNotBeNil)
				if desc.Stream.Split {
					test.That(t, desc.Accel.Present, test.ShouldBeTrue)
					test.That(t, desc.Gyro.Present, test.ShouldBeTrue)
				}
			}
		})
	}
}

func TestLookup(t *testing.T) {
	desc, ok := Lookup(TypeBMI160)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, desc.Name, test.ShouldEqual, "BMI160")

	_, ok = Lookup(TypeUndefined)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("lsm6ds3")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, typ, test.ShouldEqual, TypeLSM6DS3)

	typ, ok = ParseType("MPU6050")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, typ, test.ShouldEqual, TypeMPU6050)

	for _, name := range []string{"undefined", "", "MPU6000"} {
		_, ok = ParseType(name)
		test.That(t, ok, test.ShouldBeFalse)
	}
}

func TestCapabilityModes(t *testing.T) {
	test.That(t, (CapAccelerometer | CapFIFO).Modes(), test.ShouldEqual, ModeAccel|ModeFIFO)
	test.That(t, CapMagnetometer.Modes(), test.ShouldEqual, Mode(0))
	test.That(t, (CapAccelerometer | CapGyroscope | CapTemperature).String(), test.ShouldEqual, "accelerometer|gyroscope|temperature")
	test.That(t, (ModeAccel | ModeStep).String(), test.ShouldEqual, "accel|step")
	test.That(t, DeviceType(42).String(), test.ShouldEqual, "DeviceType(42)")
}
