// Package actuator converts control values into generalized forces.
//
// A [CoordinateActuator] drives one coordinate of a model. It is created
// with a textual coordinate reference and resolved when connected to a
// model:
//
//	a := actuator.NewCoordinateActuator("hip_r", "hip_flexion_r")
//	_ = a.SetOptimalForce(100)
//	idx, err := m.AddActuator(a)
//
// Each evaluation the actuator reads its entry of the model control vector,
// scales it by the optimal force (or uses an override value) and adds the
// result to the mobility force of its coordinate. An actuator whose
// coordinate cannot be resolved reports the condition and applies nothing;
// other actuators are unaffected.
package actuator
