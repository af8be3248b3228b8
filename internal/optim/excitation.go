package optim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/experiment"
	"github.com/san-kum/actuate/internal/metrics"
	"github.com/san-kum/actuate/internal/sim"
)

// TuneExcitations searches constant excitations of the named synergy
// controller, each on n levels across the controller's input bounds, for
// the set whose controls come closest to target. target has one entry per
// model actuator. The experiment is reused: the excitations are held in a
// single input set that overrides the study's own.
func TuneExcitations(ctx context.Context, e *experiment.Experiment, controllerName string, target []float64, n int, logger *zap.Logger) (Best, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	syn := e.Study().Synergy(controllerName)
	if syn == nil {
		return Best{}, fmt.Errorf("no synergy controller %q", controllerName)
	}
	if na := e.Study().Model.NumActuators(); len(target) != na {
		return Best{}, fmt.Errorf("%w: target has %d entries, model has %d actuators",
			dynamo.ErrDimensionMismatch, len(target), na)
	}
	if n < 1 {
		return Best{}, fmt.Errorf("%w: levels must be at least 1, got %d", dynamo.ErrInvalidParameter, n)
	}

	lower, upper := syn.InputBounds()
	names := syn.InputNames()
	ranges := make([][]float64, len(names))
	for k := range ranges {
		ranges[k] = Levels(lower, upper, n)
	}
	grid, err := NewGridSearch(names, ranges)
	if err != nil {
		return Best{}, err
	}

	held := sim.ConstantInputs{}
	tracking := metrics.NewTrackingError(target)
	s := e.GetSimulator()
	s.AddInputs(held)
	s.AddMetric(tracking)

	logger.Debug("tuning excitations",
		zap.String("controller", controllerName),
		zap.Int("synergies", len(names)),
		zap.Int("points", grid.Size()))

	return grid.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		for name, v := range params {
			held[name] = v
		}
		res, err := s.Run(ctx, e.SimConfig())
		if err != nil {
			return 0, err
		}
		return res.Metrics[tracking.Name()], nil
	})
}
