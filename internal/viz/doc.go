// Package viz renders controls, forces and factorization results.
//
// Three outputs are provided:
//
//   - terminal plots of table columns and convergence histories (asciigraph)
//   - PNG or SVG figures of trajectories, convergence and synergy weights (gonum/plot)
//   - [LiveModel]: a Bubble Tea view that evaluates a model in real time and
//     lets synergy excitations be adjusted while it runs
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart from t=0
//	T     - Cycle color palettes
//	Tab   - Select next excitation
//	+/-   - Raise/lower the selected excitation
//	Q     - Quit
package viz
