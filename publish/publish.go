// Package publish streams IMU samples to an MQTT broker as JSON.
package publish

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/inertial/imu"
)

// DefaultTimeout bounds how long one publish may wait on the broker.
const DefaultTimeout = 2 * time.Second

// Reading is one raw sample as published.
type Reading struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	// tenths of a degree Celsius
	Temperature int `json:"temp"`
	Steps       int `json:"steps,omitempty"`
}

// NewReading copies s into a Reading.
func NewReading(source string, at time.Time, s imu.Sample) Reading {
	return Reading{
		Source:      source,
		Time:        at,
		Ax:          s.Accel[0],
		Ay:          s.Accel[1],
		Az:          s.Accel[2],
		Gx:          s.Gyro[0],
		Gy:          s.Gyro[1],
		Gz:          s.Gyro[2],
		Temperature: s.Temperature,
		Steps:       s.Steps,
	}
}

// Client is the part of mqtt.Client used here.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Sampler produces samples; *imu.Device is one.
type Sampler interface {
	Sample(ctx context.Context) (imu.Sample, error)
	Type() imu.DeviceType
}

// Publisher sends readings to one topic.
type Publisher struct {
	client  Client
	topic   string
	timeout time.Duration
	logger  logging.Logger
	now     func() time.Time
}

// New returns a Publisher for topic.
func New(client Client, topic string, logger logging.Logger) *Publisher {
	return &Publisher{
		client:  client,
		topic:   topic,
		timeout: DefaultTimeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Publish marshals r and waits for the broker to take it.
func (p *Publisher) Publish(r Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal reading")
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return errors.Errorf("publish to %s timed out after %s", p.topic, p.timeout)
	}
	return errors.Wrapf(token.Error(), "publish to %s", p.topic)
}

// Run samples dev every interval and publishes each sample until ctx is done. Sample and
// publish failures are logged and the loop carries on.
func (p *Publisher) Run(ctx context.Context, dev Sampler, interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("interval must be positive, got %s", interval)
	}
	source := dev.Type().String()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		sample, err := dev.Sample(ctx)
		if err != nil {
			p.logger.CErrorf(ctx, "error reading %s: %v", source, err)
			continue
		}
		if err := p.Publish(NewReading(source, p.now(), sample)); err != nil {
			p.logger.CWarnf(ctx, "%v", err)
		}
	}
}
