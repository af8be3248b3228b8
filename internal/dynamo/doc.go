// Package dynamo provides the core primitives shared by the control
// allocation pipeline.
//
// The package defines the fundamental types that flow through one
// evaluation of a model:
//
//   - [State]: time, coordinate values and speeds, externally supplied
//     inputs and the model-wide control vector
//   - [Control]: a vector of control values
//   - [Controller]: produces controls for a set of actuators
//   - [Actuator]: converts a control value into a generalized force
//
// # Example
//
//	s := dynamo.NewState(0.5, m.NumCoordinates())
//	s.SetInput("/controllerset/legs/synergy_excitation_0", 1.0)
//	r, err := m.Realize(s)
//
// # Thread Safety
//
// State values are owned by a single evaluation. Controllers and actuators
// are read-only during evaluation and must only be reconfigured between
// evaluations.
package dynamo
