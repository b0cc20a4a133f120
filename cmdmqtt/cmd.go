// Package main streams samples from whichever IMU is on the bus to an MQTT broker.
package main

import (
	"context"
	"flag"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"

	"github.com/viam-modules/inertial/bus"
	"github.com/viam-modules/inertial/imu"
	"github.com/viam-modules/inertial/publish"
)

func main() {
	utils.ContextualMain(mainWithArgs, logging.NewLogger("inertial-mqtt"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	var (
		broker   = flags.String("broker", "tcp://localhost:1883", "MQTT broker URL")
		clientID = flags.String("client-id", "inertial-producer", "MQTT client ID")
		topic    = flags.String("topic", "inertial/imu/raw", "topic to publish samples on")
		rate     = flags.Int("rate", 100, "requested sample rate in Hz")
		interval = flags.Duration("interval", 100*time.Millisecond, "publish interval")
		sda      = flags.Int("sda", -1, "SDA pin; -1 uses the first host bus")
		scl      = flags.Int("scl", -1, "SCL pin; -1 uses the first host bus")
		bitBang  = flags.Bool("bitbang", false, "drive the bus from software")
		speed    = flags.Uint("speed", bus.DefaultSpeed, "bus clock in Hz")
	)
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	cfg := bus.Config{SDA: *sda, SCL: *scl, BitBang: *bitBang, Speed: uint32(*speed)}

	dev, err := imu.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.Start(ctx, *rate, (imu.ModeAccel|imu.ModeGyro|imu.ModeTemp)&dev.Capabilities().Modes()); err != nil {
		return err
	}
	defer func() {
		if err := dev.Stop(context.Background()); err != nil {
			logger.Warn(err)
		}
	}()
	logger.Infof("%s running at %d Hz accel, %d Hz gyro", dev.Type(), dev.AccRate(), dev.GyroRate())

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID(*clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	logger.Infof("connected to %s, publishing on %s", *broker, *topic)
	return publish.New(client, *topic, logger).Run(ctx, dev, *interval)
}
