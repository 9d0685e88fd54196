package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/rigidsim/internal/system"
)

func oscillator(q, qd []float64) ([]float64, error) {
	return []float64{-q[0]}, nil
}

func pendulum(t *testing.T) *system.System {
	t.Helper()
	sys, err := system.Pendulum()
	if err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestRK4Accuracy(t *testing.T) {
	sys := pendulum(t)
	integ := NewRK4()

	q, qd := []float64{1.0}, []float64{0.0}
	dt := 0.01
	steps := 100

	var err error
	for i := 0; i < steps; i++ {
		q, qd, err = integ.Step(sys, q, qd, oscillator, dt)
		if err != nil {
			t.Fatal(err)
		}
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(q[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", q[0], expectedX)
	}

	if math.Abs(qd[0]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", qd[0], expectedV)
	}
}

func TestSemiImplicitEulerEnergy(t *testing.T) {
	sys := pendulum(t)
	integ := NewSemiImplicitEuler()

	q, qd := []float64{1.0}, []float64{0.0}
	var err error
	for i := 0; i < 10000; i++ {
		q, qd, err = integ.Step(sys, q, qd, oscillator, 0.01)
		if err != nil {
			t.Fatal(err)
		}
	}
	// symplectic: energy stays bounded
	energy := 0.5 * (q[0]*q[0] + qd[0]*qd[0])
	if math.Abs(energy-0.5) > 0.01 {
		t.Errorf("expected bounded energy near 0.5, got %f", energy)
	}
}

func TestStepPropagatesErrors(t *testing.T) {
	sys := pendulum(t)
	boom := errors.New("boom")
	failing := func(q, qd []float64) ([]float64, error) { return nil, boom }

	for _, integ := range []Integrator{NewSemiImplicitEuler(), NewRK4(), NewRK45(), NewVelocityVerlet()} {
		if _, _, err := integ.Step(sys, []float64{0}, []float64{0}, failing, 0.01); !errors.Is(err, boom) {
			t.Errorf("%s: expected error to propagate, got %v", integ.Name(), err)
		}
	}
}

func TestAdvanceFreeJoint(t *testing.T) {
	sys, err := system.CapsuleOnPlane()
	if err != nil {
		t.Fatal(err)
	}
	q := sys.InitQ()
	qd := []float64{1, 0, 0, 0, 0, 1}

	for i := 0; i < 1000; i++ {
		q = Advance(sys, q, qd, 0.001)
	}
	if math.Abs(q[0]-1) > 1e-9 {
		t.Errorf("expected x = 1, got %f", q[0])
	}
	// one radian about z
	if math.Abs(q[3]-math.Cos(0.5)) > 1e-4 || math.Abs(q[6]-math.Sin(0.5)) > 1e-4 {
		t.Errorf("unexpected orientation %v", q[3:])
	}
	norm := math.Sqrt(q[3]*q[3] + q[4]*q[4] + q[5]*q[5] + q[6]*q[6])
	if math.Abs(norm-1) > 1e-12 {
		t.Errorf("expected unit quaternion, got norm %f", norm)
	}
}
