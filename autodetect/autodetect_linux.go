//go:build linux

package autodetect

import (
	"context"

	"go.viam.com/rdk/components/board/genericlinux/buses"
	"go.viam.com/rdk/components/movementsensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"

	"github.com/viam-modules/inertial/bus"
)

func newSensor(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (movementsensor.MovementSensor, error) {
	newConf, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}

	i2c, err := buses.NewI2cBus(newConf.I2cBus)
	if err != nil {
		return nil, err
	}
	return makeSensor(ctx, deps, conf, logger, bus.NewBoard(i2c, logger))
}
