package integrators

import "github.com/san-kum/rigidsim/internal/system"

// RK4 is the classical fourth-order Runge-Kutta scheme on (q, qd). Free
// joint orientations take one rotation with the averaged stage velocity.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) Step(sys *system.System, q, qd []float64, accel Accel, dt float64) ([]float64, []float64, error) {
	half := dt * 0.5

	a1, err := accel(q, qd)
	if err != nil {
		return nil, nil, err
	}
	v2 := axpy(half, a1, qd)
	a2, err := accel(Advance(sys, q, qd, half), v2)
	if err != nil {
		return nil, nil, err
	}
	v3 := axpy(half, a2, qd)
	a3, err := accel(Advance(sys, q, v2, half), v3)
	if err != nil {
		return nil, nil, err
	}
	v4 := axpy(dt, a3, qd)
	a4, err := accel(Advance(sys, q, v3, dt), v4)
	if err != nil {
		return nil, nil, err
	}

	n := len(qd)
	vel := make([]float64, n)
	next := make([]float64, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		vel[i] = (qd[i] + 2*v2[i] + 2*v3[i] + v4[i]) / 6.0
		next[i] = qd[i] + dt6*(a1[i]+2*a2[i]+2*a3[i]+a4[i])
	}
	return Advance(sys, q, vel, dt), next, nil
}
