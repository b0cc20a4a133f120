// Package autodetect implements the movementsensor interface for whichever supported inertial
// sensor is found on an I2C bus. The chip is identified by probing its address candidates and
// ID registers; see package imu for the supported families.
//
// Linear acceleration is reported in m/s^2, angular velocity in degrees per second. Chips with
// a thermometer or a step counter add "temperature_celsius" and "steps" to Readings.
package autodetect

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/components/movementsensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
	goutils "go.viam.com/utils"

	"github.com/viam-modules/inertial/bus"
	"github.com/viam-modules/inertial/imu"
)

// Model for the auto-detecting inertial movement sensor.
var Model = resource.NewModel("viam", "inertial", "autodetect")

const (
	defaultSampleRate = 100
	standardGravity   = 9.81
)

// sensorModes maps the names accepted in the "sensors" attribute to mode bits.
var sensorModes = map[string]imu.Mode{
	"accel":       imu.ModeAccel,
	"gyro":        imu.ModeGyro,
	"temperature": imu.ModeTemp,
	"steps":       imu.ModeStep,
	"fifo":        imu.ModeFIFO,
}

// Config is used to configure the attributes of the chip.
type Config struct {
	I2cBus       string   `json:"i2c_bus"`
	SampleRateHz int      `json:"sample_rate_hz,omitempty"`
	Sensors      []string `json:"sensors,omitempty"`
	AccelScaleG  int      `json:"accel_scale_g,omitempty"`
	GyroScaleDPS int      `json:"gyro_scale_dps,omitempty"`
	// Chips limits detection to these families, e.g. ["MPU6050", "BMI160"].
	Chips []string `json:"chips,omitempty"`

	// ConfigFile is the vendor configuration blob for chips that need one (BMI270).
	ConfigFile string `json:"config_file,omitempty"`
}

// Validate ensures all parts of the config are valid, and then returns the list of things we
// depend on.
func (conf *Config) Validate(path string) ([]string, error) {
	if conf.I2cBus == "" {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "i2c_bus")
	}
	if conf.SampleRateHz < 0 {
		return nil, errors.Errorf("%s: sample_rate_hz must not be negative, got %d", path, conf.SampleRateHz)
	}
	if conf.AccelScaleG < 0 || conf.GyroScaleDPS < 0 {
		return nil, errors.Errorf("%s: scales must not be negative", path)
	}
	for _, name := range conf.Sensors {
		if _, ok := sensorModes[name]; !ok {
			return nil, errors.Errorf("%s: unknown sensor %q", path, name)
		}
	}
	types, err := conf.families()
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if len(types) > 0 {
		var modes imu.Mode
		for _, t := range types {
			desc, _ := imu.Lookup(t)
			modes |= desc.Caps.Modes()
		}
		for _, name := range conf.Sensors {
			if sensorModes[name]&modes == 0 {
				return nil, errors.Errorf("%s: none of the chips %v has %q", path, conf.Chips, name)
			}
		}
	}

	var deps []string
	return deps, nil
}

// families resolves the chip names.
func (conf *Config) families() ([]imu.DeviceType, error) {
	var types []imu.DeviceType
	for _, name := range conf.Chips {
		t, ok := imu.ParseType(name)
		if !ok {
			return nil, errors.Errorf("unknown chip %q", name)
		}
		if _, ok := imu.Lookup(t); !ok {
			return nil, errors.Errorf("chip %q is not detectable", name)
		}
		types = append(types, t)
	}
	return types, nil
}

func (conf *Config) sampleRate() int {
	if conf.SampleRateHz == 0 {
		return defaultSampleRate
	}
	return conf.SampleRateHz
}

// mode turns the configured sensor names into mode bits. With no names, every reading the chip
// can produce continuously is switched on.
func (conf *Config) mode(caps imu.Capability) imu.Mode {
	if len(conf.Sensors) == 0 {
		return (imu.ModeAccel | imu.ModeGyro | imu.ModeTemp) & caps.Modes()
	}
	var m imu.Mode
	for _, name := range conf.Sensors {
		m |= sensorModes[name]
	}
	return m
}

func init() {
	resource.RegisterComponent(movementsensor.API, Model, resource.Registration[movementsensor.MovementSensor, *Config]{
		Constructor: newSensor,
	})
}

type inertial struct {
	resource.Named
	resource.AlwaysRebuild
	// mu guards dev as well as the readings below; imu.Device does no locking of its own.
	mu  sync.Mutex
	dev *imu.Device

	// g and degrees per second per LSB
	accelScale float64
	gyroScale  float64

	angularVelocity    spatialmath.AngularVelocity
	linearAcceleration r3.Vector
	temperature        float64
	steps              int
	// Stores the most recent error from the background goroutine
	err movementsensor.LastError

	workers *goutils.StoppableWorkers
	logger  logging.Logger
}

// This function is separated from newSensor solely so you can inject a scripted bus in tests.
func makeSensor(
	ctx context.Context,
	_ resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
	t bus.Transport,
) (movementsensor.MovementSensor, error) {
	newConf, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}

	var opts []imu.Option
	if newConf.ConfigFile != "" {
		blob, err := os.ReadFile(newConf.ConfigFile)
		if err != nil {
			return nil, errors.Wrap(err, "reading config_file")
		}
		opts = append(opts, imu.WithConfigFile(blob))
	}
	types, err := newConf.families()
	if err != nil {
		return nil, err
	}
	if len(types) > 0 {
		opts = append(opts, imu.WithFamilies(types...))
	}

	dev, err := imu.Init(ctx, t, logger, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "identifying IMU on bus %s", newConf.I2cBus)
	}
	logger.CInfof(ctx, "found %s at address 0x%02x with %v", dev.Type(), dev.Address(), dev.Capabilities())

	if newConf.AccelScaleG > 0 {
		if err := dev.SetAccScale(ctx, newConf.AccelScaleG); err != nil {
			return nil, err
		}
	}
	if newConf.GyroScaleDPS > 0 {
		if err := dev.SetGyroScale(ctx, newConf.GyroScaleDPS); err != nil {
			return nil, err
		}
	}
	if err := dev.Start(ctx, newConf.sampleRate(), newConf.mode(dev.Capabilities())); err != nil {
		return nil, errors.Wrapf(err, "starting %s", dev.Type())
	}

	sensor := &inertial{
		Named:      conf.ResourceName().AsNamed(),
		dev:        dev,
		accelScale: float64(dev.AccScale()) / 32768.0,
		gyroScale:  float64(dev.GyroScale()) / 32768.0,
		logger:     logger,
		// On overloaded boards, the I2C bus can become flaky. Only report errors if at least 5 of
		// the last 10 attempts to talk to the device have failed.
		err: movementsensor.NewLastError(10, 5),
	}

	period := pollPeriod(max(dev.AccRate(), dev.GyroRate(), newConf.sampleRate()))
	sensor.workers = goutils.NewBackgroundStoppableWorkers(func(cancelCtx context.Context) {
		timer := time.NewTicker(period)
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				sensor.poll(cancelCtx)
			case <-cancelCtx.Done():
				return
			}
		}
	})

	return sensor, nil
}

// pollPeriod is one sample interval, no faster than once a millisecond.
func pollPeriod(hz int) time.Duration {
	if hz <= 0 {
		hz = defaultSampleRate
	}
	return max(time.Second/time.Duration(hz), time.Millisecond)
}

func (s *inertial) poll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, err := s.dev.Sample(ctx)
	// Record `err` no matter what: even if it's nil, that's useful information.
	s.err.Set(err)
	if err != nil {
		s.logger.CErrorf(ctx, "error reading %s: '%s'", s.dev.Type(), err)
		return
	}

	s.linearAcceleration = r3.Vector{
		X: float64(sample.Accel[0]) * s.accelScale * standardGravity,
		Y: float64(sample.Accel[1]) * s.accelScale * standardGravity,
		Z: float64(sample.Accel[2]) * s.accelScale * standardGravity,
	}
	s.angularVelocity = spatialmath.AngularVelocity{
		X: float64(sample.Gyro[0]) * s.gyroScale,
		Y: float64(sample.Gyro[1]) * s.gyroScale,
		Z: float64(sample.Gyro[2]) * s.gyroScale,
	}
	s.temperature = float64(sample.Temperature) / 10.0
	s.steps = sample.Steps
}

func (s *inertial) enabled(m imu.Mode) bool {
	return s.dev.Mode()&m != 0
}

func (s *inertial) AngularVelocity(ctx context.Context, extra map[string]interface{}) (spatialmath.AngularVelocity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled(imu.ModeGyro) {
		return spatialmath.AngularVelocity{}, movementsensor.ErrMethodUnimplementedAngularVelocity
	}
	return s.angularVelocity, s.err.Get()
}

func (s *inertial) LinearVelocity(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	return r3.Vector{}, movementsensor.ErrMethodUnimplementedLinearVelocity
}

func (s *inertial) LinearAcceleration(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled(imu.ModeAccel) {
		return r3.Vector{}, movementsensor.ErrMethodUnimplementedLinearAcceleration
	}

	lastError := s.err.Get()
	if lastError != nil {
		return r3.Vector{}, lastError
	}
	return s.linearAcceleration, nil
}

func (s *inertial) Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error) {
	return spatialmath.NewOrientationVector(), movementsensor.ErrMethodUnimplementedOrientation
}

func (s *inertial) CompassHeading(ctx context.Context, extra map[string]interface{}) (float64, error) {
	return 0, movementsensor.ErrMethodUnimplementedCompassHeading
}

func (s *inertial) Position(ctx context.Context, extra map[string]interface{}) (*geo.Point, float64, error) {
	return geo.NewPoint(0, 0), 0, movementsensor.ErrMethodUnimplementedPosition
}

func (s *inertial) Accuracy(ctx context.Context, extra map[string]interface{}) (*movementsensor.Accuracy, error) {
	return movementsensor.UnimplementedOptionalAccuracies(), nil
}

func (s *inertial) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	readings := make(map[string]interface{})
	if s.enabled(imu.ModeAccel) {
		readings["linear_acceleration"] = s.linearAcceleration
	}
	if s.enabled(imu.ModeGyro) {
		readings["angular_velocity"] = s.angularVelocity
	}
	if s.enabled(imu.ModeTemp) {
		readings["temperature_celsius"] = s.temperature
	}
	if s.enabled(imu.ModeStep) {
		readings["steps"] = s.steps
	}

	return readings, s.err.Get()
}

func (s *inertial) Properties(ctx context.Context, extra map[string]interface{}) (*movementsensor.Properties, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &movementsensor.Properties{
		AngularVelocitySupported:    s.enabled(imu.ModeGyro),
		LinearAccelerationSupported: s.enabled(imu.ModeAccel),
	}, nil
}

// DoCommand supports:
//
//	{"command": "get_queued", "max": 32} drains the chip's FIFO
//	{"command": "status"} reads (and clears) the interrupt status register
//	{"command": "info"} describes the detected chip
func (s *inertial) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, _ := cmd["command"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "get_queued":
		maxSamples := 32
		if v, ok := cmd["max"].(float64); ok {
			maxSamples = int(v)
		}
		words, n, err := s.dev.QueuedSamples(ctx, maxSamples)
		if err != nil {
			return nil, err
		}
		raw := make([]interface{}, len(words))
		for i, w := range words {
			raw[i] = int(w)
		}
		return map[string]interface{}{"count": n, "words": raw}, nil
	case "status":
		status, err := s.dev.Status(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": int(status)}, nil
	case "info":
		desc := s.dev.Descriptor()
		return map[string]interface{}{
			"device":       desc.Name,
			"address":      int(s.dev.Address()),
			"id_register":  int(desc.IDRegister),
			"capabilities": desc.Caps.String(),
			"fifo":         desc.Stream != nil,
			"mode":         s.dev.Mode().String(),
			"accel_hz":     s.dev.AccRate(),
			"gyro_hz":      s.dev.GyroRate(),
			"accel_g":      s.dev.AccScale(),
			"gyro_dps":     s.dev.GyroScale(),
		}, nil
	default:
		return nil, errors.Errorf("unknown command %q", name)
	}
}

func (s *inertial) Close(ctx context.Context) error {
	s.workers.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	err := multierr.Combine(s.dev.Stop(ctx), s.dev.Close())
	if err != nil {
		s.logger.CError(ctx, err)
	}
	return err
}
