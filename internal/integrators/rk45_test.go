package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/rigidsim/internal/system"
)

func TestRK45Accuracy(t *testing.T) {
	sys := pendulum(t)
	integ := NewRK45()

	q, qd := []float64{1.0}, []float64{0.0}
	dt := 0.1
	steps := 100

	var err error
	for i := 0; i < steps; i++ {
		q, qd, err = integ.Step(sys, q, qd, oscillator, dt)
		if err != nil {
			t.Fatal(err)
		}
	}

	tEnd := float64(steps) * dt
	if math.Abs(q[0]-math.Cos(tEnd)) > 5e-5 {
		t.Errorf("position error too large: got %.8f, expected %.8f", q[0], math.Cos(tEnd))
	}
	if math.Abs(qd[0]+math.Sin(tEnd)) > 5e-5 {
		t.Errorf("velocity error too large: got %.8f, expected %.8f", qd[0], -math.Sin(tEnd))
	}
}

func TestRK45RefinesLargeSteps(t *testing.T) {
	sys := pendulum(t)
	evals := 0
	counting := func(q, qd []float64) ([]float64, error) {
		evals++
		return oscillator(q, qd)
	}

	// one step covering a full period needs several substeps
	q, qd, err := NewRK45().Step(sys, []float64{1}, []float64{0}, counting, 2*math.Pi)
	if err != nil {
		t.Fatal(err)
	}
	if evals <= 7 {
		t.Errorf("expected substeps, got %d evaluations", evals)
	}
	if math.Abs(q[0]-1) > 1e-4 || math.Abs(qd[0]) > 1e-4 {
		t.Errorf("expected return to (1, 0), got (%f, %f)", q[0], qd[0])
	}
}

func TestRK45ReportsNonFinite(t *testing.T) {
	sys := pendulum(t)
	nan := func(q, qd []float64) ([]float64, error) { return []float64{math.NaN()}, nil }
	_, _, err := NewRK45().Step(sys, []float64{0}, []float64{0}, nan, 0.01)
	if !errors.Is(err, system.ErrNumerical) {
		t.Errorf("expected numerical error, got %v", err)
	}
}

func TestVelocityVerletEnergy(t *testing.T) {
	sys := pendulum(t)
	integ := NewVelocityVerlet()

	q, qd := []float64{1.0}, []float64{0.0}
	var err error
	for i := 0; i < 10000; i++ {
		q, qd, err = integ.Step(sys, q, qd, oscillator, 0.01)
		if err != nil {
			t.Fatal(err)
		}
	}
	energy := 0.5 * (q[0]*q[0] + qd[0]*qd[0])
	if math.Abs(energy-0.5) > 1e-4 {
		t.Errorf("expected energy near 0.5, got %f", energy)
	}
	if math.Abs(q[0]-math.Cos(100)) > 1e-2 {
		t.Errorf("phase drifted: got %f, expected %f", q[0], math.Cos(100))
	}
}
