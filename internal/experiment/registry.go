package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/actuate/internal/actuator"
	"github.com/san-kum/actuate/internal/config"
	"github.com/san-kum/actuate/internal/controller"
	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/metrics"
	"github.com/san-kum/actuate/internal/model"
)

type controllerFactory func(*builder, *config.ControllerConfig) (controller.Controller, error)

var controllerFactories = map[controller.Kind]controllerFactory{
	controller.KindPrescribed: buildPrescribed,
	controller.KindSynergy:    buildSynergy,
}

// controllerBuilder returns the factory for a config kind name.
func controllerBuilder(name string) (controllerFactory, error) {
	kind, err := controller.ParseKind(name)
	if err != nil {
		return nil, err
	}
	fn, ok := controllerFactories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no builder for controller kind %s", dynamo.ErrInvalidParameter, kind)
	}
	return fn, nil
}

// Registry maps metric names to constructors bound to a model.
type Registry struct {
	metrics map[string]func(*model.Model) dynamo.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func(*model.Model) dynamo.Metric),
	}

	r.metrics["control_effort"] = func(*model.Model) dynamo.Metric { return metrics.NewControlEffort() }
	r.metrics["squared_effort"] = func(*model.Model) dynamo.Metric { return metrics.NewControlEffortPower("squared_effort", 2) }
	r.metrics["saturation"] = func(*model.Model) dynamo.Metric {
		return metrics.NewSaturation(controller.DefaultExcitationLower, controller.DefaultExcitationUpper)
	}
	r.metrics["peak_stress"] = func(m *model.Model) dynamo.Metric { return metrics.NewPeakStress(OptimalForces(m)) }
	r.metrics["mean_force"] = func(*model.Model) dynamo.Metric { return metrics.NewMeanForce() }
	r.metrics["mean_power"] = func(m *model.Model) dynamo.Metric { return metrics.NewMeanPower(Speeds(m)) }

	return r
}

func (r *Registry) GetMetric(name string, m *model.Model) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(m), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns one instance of every registered metric.
func (r *Registry) DefaultMetrics(m *model.Model) []dynamo.Metric {
	var out []dynamo.Metric
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name](m))
	}
	return out
}

// Speeds returns a speed function per actuator in table order, nil for
// actuators that do not expose one.
func Speeds(m *model.Model) []metrics.SpeedFunc {
	out := make([]metrics.SpeedFunc, m.NumActuators())
	for i, a := range m.Actuators() {
		if ca, ok := a.(*actuator.CoordinateActuator); ok {
			out[i] = ca.Speed
		}
	}
	return out
}

// OptimalForces returns the optimal force of every actuator in table
// order, or 0 for actuators that do not expose one.
func OptimalForces(m *model.Model) []float64 {
	out := make([]float64, m.NumActuators())
	for i, a := range m.Actuators() {
		if ca, ok := a.(*actuator.CoordinateActuator); ok {
			out[i] = ca.OptimalForce()
		}
	}
	return out
}
