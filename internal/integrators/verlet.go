package integrators

import "github.com/san-kum/rigidsim/internal/system"

// VelocityVerlet moves positions with the start-of-step acceleration and
// averages the accelerations at both ends for the velocity update. The
// end acceleration is evaluated at a predicted velocity, so damping and
// velocity-dependent bias forces are treated explicitly.
type VelocityVerlet struct{}

func NewVelocityVerlet() *VelocityVerlet {
	return &VelocityVerlet{}
}

func (v *VelocityVerlet) Name() string { return "verlet" }

func (v *VelocityVerlet) Step(sys *system.System, q, qd []float64, accel Accel, dt float64) ([]float64, []float64, error) {
	a0, err := accel(q, qd)
	if err != nil {
		return nil, nil, err
	}
	// q + dt qd + dt²/2 a0
	next := Advance(sys, q, axpy(0.5*dt, a0, qd), dt)

	a1, err := accel(next, axpy(dt, a0, qd))
	if err != nil {
		return nil, nil, err
	}
	vel := make([]float64, len(qd))
	for i := range vel {
		vel[i] = qd[i] + 0.5*dt*(a0[i]+a1[i])
	}
	return next, vel, nil
}
