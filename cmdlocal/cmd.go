// Package main for testing IMU detection locally
package main

import (
	"context"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/viam-modules/inertial/bus"
	"github.com/viam-modules/inertial/imu"
)

func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	ctx := context.Background()
	logger := logging.NewLogger("inertial-local")

	for _, desc := range imu.Registry() {
		logger.Debugf("looking for %s at 0x%02x or 0x%02x", desc.Name, desc.Addresses[0], desc.Addresses[1])
	}
	dev, err := imu.Open(ctx, bus.DefaultConfig(), logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	mode := (imu.ModeAccel | imu.ModeGyro | imu.ModeTemp | imu.ModeStep) & dev.Capabilities().Modes()
	if err := dev.Start(ctx, 100, mode); err != nil {
		return err
	}
	logger.Infof("%s at 0x%02x: %v, accel %d Hz +-%dg, gyro %d Hz +-%d dps",
		dev.Type(), dev.Address(), mode, dev.AccRate(), dev.AccScale(), dev.GyroRate(), dev.GyroScale())

	for range 30 {
		s, err := dev.Sample(ctx)
		if err != nil {
			return err
		}

		logger.Infof("accel: %d %d %d gyro: %d %d %d temperature: %0.1f steps: %d",
			s.Accel[0], s.Accel[1], s.Accel[2], s.Gyro[0], s.Gyro[1], s.Gyro[2], float64(s.Temperature)/10, s.Steps)
		time.Sleep(time.Second)
	}
	return dev.Stop(ctx)
}

