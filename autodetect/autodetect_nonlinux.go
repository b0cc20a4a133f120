//go:build !linux

package autodetect

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/movementsensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

func newSensor(
	ctx context.Context,
	_ resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (movementsensor.MovementSensor, error) {
	return nil, errors.New("autodetect only supported on linux")
}
