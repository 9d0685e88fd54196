package integrators

import "github.com/san-kum/rigidsim/internal/system"

// SemiImplicitEuler updates velocities first and moves positions with the
// new velocities.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Name() string { return "semi_implicit_euler" }

func (e *SemiImplicitEuler) Step(sys *system.System, q, qd []float64, accel Accel, dt float64) ([]float64, []float64, error) {
	qdd, err := accel(q, qd)
	if err != nil {
		return nil, nil, err
	}
	next := axpy(dt, qdd, qd)
	return Advance(sys, q, next, dt), next, nil
}
