package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

func state(t *testing.T, sys *system.System, q, qd []float64) *pipeline.State {
	t.Helper()
	st, err := pipeline.NewState(sys, q, qd)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func fixture(t *testing.T, name string) *system.System {
	t.Helper()
	sys, err := system.Fixture(name)
	if err != nil {
		t.Fatal(err)
	}
	return sys
}

func TestMechanicalEnergy(t *testing.T) {
	sys := fixture(t, "pendulum")
	inertia := sys.Link(0).Inertia.At(1, 1)

	tests := []struct {
		name  string
		q, qd float64
		want  float64
	}{
		{"horizontal at rest", 0, 0, 0},
		{"hanging at rest", math.Pi / 2, 0, -9.81 * 0.5},
		{"horizontal spinning", 0, 2, 0.5 * (inertia + 0.25) * 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mechanical(sys, state(t, sys, []float64{tt.q}, []float64{tt.qd}))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected energy %f, got %f", tt.want, got)
			}
		})
	}
}

func TestEnergyReset(t *testing.T) {
	sys := fixture(t, "pendulum")
	m := NewEnergy(sys)

	m.Observe(state(t, sys, []float64{1}, []float64{1}), nil, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	sys := fixture(t, "pendulum")
	m := NewEnergyDrift(sys)

	m.Observe(state(t, sys, []float64{math.Pi / 2}, []float64{0}), nil, 0)
	if m.Value() != 0 {
		t.Fatalf("drift should start at zero, got %f", m.Value())
	}
	// E0 = -4.905; the horizontal state has E = 0
	m.Observe(state(t, sys, []float64{0}, []float64{0}), nil, 1)
	if math.Abs(m.Value()-1) > 1e-9 {
		t.Errorf("expected relative drift 1, got %f", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort(fixture(t, "double_pendulum"))
	m.Observe(nil, []float64{1, -1}, 0)
	m.Observe(nil, []float64{0, 0}, 1)
	if m.Value() != 1 {
		t.Errorf("expected mean effort 1, got %f", m.Value())
	}

	// commands beyond the [-1, 1] range count as clipped
	m.Observe(nil, []float64{3, -0.5}, 2)
	if got := m.Value(); math.Abs(got-3.5/3) > 1e-12 {
		t.Errorf("expected mean effort %f, got %f", 3.5/3, got)
	}
	if m.Peak() != 2 {
		t.Errorf("expected peak 2, got %f", m.Peak())
	}

	m.Reset()
	if m.Value() != 0 || m.Peak() != 0 {
		t.Errorf("reset should clear the effort, got %f and %f", m.Value(), m.Peak())
	}
}

func TestStability(t *testing.T) {
	sys := fixture(t, "pendulum")
	m := NewStability(10)
	m.Observe(state(t, sys, []float64{0}, []float64{1}), nil, 0)
	m.Observe(state(t, sys, []float64{0}, []float64{100}), nil, 1)
	m.Observe(state(t, sys, []float64{math.NaN()}, []float64{0}), nil, 2)
	m.Observe(state(t, sys, []float64{0}, []float64{0}), nil, 3)
	if m.Value() != 0.5 {
		t.Errorf("expected stability 0.5, got %f", m.Value())
	}
}

func TestJointViolation(t *testing.T) {
	sys := fixture(t, "double_pendulum")
	st := state(t, sys, []float64{0.3, 0.2}, []float64{0, 0})
	m := NewJointViolation(sys)
	m.Observe(st, nil, 0)
	if m.Value() > 1e-12 {
		t.Errorf("forward kinematics should close every joint, got %g", m.Value())
	}

	broken := st.Clone()
	broken.X[1].Pos = broken.X[1].Pos.Add([3]float64{0, 0.1, 0})
	m.Observe(broken, nil, 1)
	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("expected violation 0.1, got %g", m.Value())
	}
}

func TestPenetration(t *testing.T) {
	sys := fixture(t, "capsule")
	q := sys.InitQ()
	q[2] = 0.2
	m := NewPenetration(sys)
	m.Observe(state(t, sys, q, make([]float64, 6)), nil, 0)
	if math.Abs(m.Value()-0.05) > 1e-9 {
		t.Errorf("expected penetration 0.05, got %f", m.Value())
	}
}

func TestDefault(t *testing.T) {
	names := func(ms []Metric) map[string]bool {
		out := map[string]bool{}
		for _, m := range ms {
			out[m.Name()] = true
		}
		return out
	}
	if got := names(Default(fixture(t, "pendulum"))); got["penetration"] {
		t.Error("pendulum has no collision pairs")
	}
	got := names(Default(fixture(t, "capsule")))
	for _, want := range []string{"energy", "energy_drift", "joint_violation", "control_effort", "stability", "penetration"} {
		if !got[want] {
			t.Errorf("missing default metric %s", want)
		}
	}
}
