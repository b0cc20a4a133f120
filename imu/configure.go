package imu

import (
	"context"
	"time"
)

// step is one register write followed by an optional settle delay.
type step struct {
	reg    byte
	data   []byte
	settle time.Duration
}

func wr(reg byte, data ...byte) step {
	return step{reg: reg, data: data}
}

func (s step) wait(d time.Duration) step {
	s.settle = d
	return s
}

// routines are the configuration sequences of one family. A nil entry is an operation the
// family cannot do.
type routines struct {
	start     func(ctx context.Context, d *Device) error
	stop      []step
	reset     []step
	fifo      func(d *Device) []step
	interrupt func(enable bool) []step
}

// familyRoutines is filled in by each family's file.
var familyRoutines = map[DeviceType]routines{}

// run issues steps in order. Settle delays block for their full duration before the next
// write.
func (d *Device) run(ctx context.Context, steps ...step) error {
	for _, s := range steps {
		if err := d.write(ctx, s.reg, s.data...); err != nil {
			return err
		}
		d.settle(s.settle)
	}
	return nil
}

func (d *Device) settle(dur time.Duration) {
	if dur > 0 {
		d.sleep(dur)
	}
}

func (d *Device) routine() (routines, bool) {
	r, ok := d.routines[d.desc.Type]
	return r, ok
}

// Start configures the chip to sample at the rate closest to (and not below) rate with the
// functions in mode switched on. Calling Start again repeats the full sequence.
func (d *Device) Start(ctx context.Context, rate int, mode Mode) error {
	if extra := mode &^ d.desc.Caps.Modes(); extra != 0 {
		return unsupported(d.desc, "mode %v", extra)
	}
	r, ok := d.routine()
	if !ok || r.start == nil {
		return unsupported(d.desc, "no start sequence")
	}
	if mode&ModeFIFO != 0 && r.fifo == nil {
		return unsupported(d.desc, "no fifo sequence")
	}

	d.accel.requested = rate
	d.gyro.requested = rate
	d.accel.matchRate(d.desc.AccelRates)
	d.gyro.matchRate(d.desc.GyroRates)
	d.mode = mode
	return d.configure(ctx)
}

func (d *Device) configure(ctx context.Context) error {
	r, ok := d.routine()
	if !ok || r.start == nil {
		return unsupported(d.desc, "no start sequence")
	}

	d.state = stateConfiguring
	if err := r.start(ctx, d); err != nil {
		d.state = stateIdle
		return err
	}
	if d.mode&ModeFIFO != 0 {
		if err := d.run(ctx, r.fifo(d)...); err != nil {
			d.state = stateIdle
			return err
		}
	}
	d.state = stateRunning
	d.logger.CDebugf(ctx, "%s running: mode %v, accel %d Hz, gyro %d Hz", d.desc.Name, d.mode, d.accel.rate, d.gyro.rate)
	return nil
}

// Stop powers the sensors down.
func (d *Device) Stop(ctx context.Context) error {
	r, ok := d.routine()
	if !ok || r.stop == nil {
		return unsupported(d.desc, "no stop sequence")
	}
	if err := d.run(ctx, r.stop...); err != nil {
		return err
	}
	d.state = stateIdle
	return nil
}

// Reset soft resets the chip and waits for it to come back. The chip returns to its power-on
// configuration, so Start must be called again.
func (d *Device) Reset(ctx context.Context) error {
	r, ok := d.routine()
	if !ok || r.reset == nil {
		return unsupported(d.desc, "no soft reset")
	}
	d.state = stateResetting
	err := d.run(ctx, r.reset...)
	d.state = stateIdle
	return err
}

// ConfigureFIFO routes the enabled sensors into the chip's FIFO in streaming mode.
func (d *Device) ConfigureFIFO(ctx context.Context) error {
	r, ok := d.routine()
	if d.desc.Caps&CapFIFO == 0 || !ok || r.fifo == nil {
		return unsupported(d.desc, "no fifo")
	}
	if err := d.run(ctx, r.fifo(d)...); err != nil {
		return err
	}
	d.mode |= ModeFIFO
	return nil
}

// ConfigureInterrupt routes the data-ready (or FIFO watermark) interrupt to the chip's first
// interrupt pin, or removes the routing.
func (d *Device) ConfigureInterrupt(ctx context.Context, enable bool) error {
	r, ok := d.routine()
	if !ok || r.interrupt == nil {
		return unsupported(d.desc, "no interrupt routing")
	}
	return d.run(ctx, r.interrupt(enable)...)
}

func onOff(enable bool, v byte) byte {
	if enable {
		return v
	}
	return 0
}

// sensorOn reports whether the sensor behind bit is switched on by the current mode.
func (d *Device) sensorOn(bit Mode) bool {
	return enabled(d.desc.Caps, d.mode, bit)
}

func (d *Device) setting(bit Mode) (*sensorSetting, RateTable) {
	if bit == ModeGyro {
		return &d.gyro, d.desc.GyroRates
	}
	return &d.accel, d.desc.AccelRates
}

// running reports whether the accelerometer or gyroscope behind bit is switched on and has a
// rate. Rate index 0 is the table's 0 Hz boundary, so a sensor matched there is off.
func (d *Device) running(bit Mode) bool {
	if !d.sensorOn(bit) {
		return false
	}
	s, _ := d.setting(bit)
	return s.rateIndex > 0
}

// rateCode is the selector for a sensor, or the off code when the sensor is not running.
func (d *Device) rateCode(bit Mode) byte {
	s, t := d.setting(bit)
	if !d.running(bit) {
		if len(t.Codes) == 0 {
			return 0
		}
		return t.Codes[0]
	}
	return s.rateCode
}

// pedometerRateCode is the accelerometer selector when the step counter is on: the matched
// rate, or the slowest real rate when the match is 0 Hz.
func (d *Device) pedometerRateCode() byte {
	if d.accel.rateIndex > 0 {
		return d.accel.rateCode
	}
	return d.desc.AccelRates.Codes[1]
}

// accelCode is the accelerometer selector, keeping it on for the step counter.
func (d *Device) accelCode() byte {
	if d.sensorOn(ModeStep) {
		return d.pedometerRateCode()
	}
	return d.rateCode(ModeAccel)
}
