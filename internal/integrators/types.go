// Package integrators advances generalized coordinates in time.
package integrators

import "github.com/san-kum/rigidsim/internal/system"

// Accel evaluates joint accelerations for a generalized state.
type Accel func(q, qd []float64) ([]float64, error)

// Integrator advances (q, qd) by dt. Implementations keep no scratch
// state between calls.
type Integrator interface {
	Name() string
	Step(sys *system.System, q, qd []float64, accel Accel, dt float64) ([]float64, []float64, error)
}
