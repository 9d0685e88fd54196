package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// Mechanical is the kinetic plus gravitational potential energy of st.
// Potential energy is zero at the world origin.
func Mechanical(sys *system.System, st *pipeline.State) float64 {
	g := sys.Params().Gravity
	e := 0.0
	for i := 0; i < sys.NumLinks(); i++ {
		l := sys.Link(i)
		v, w := st.Xd[i].Vel, st.Xd[i].Ang
		inertia := spatial.WorldInertia(st.X[i].Rot, l.Inertia)
		e += 0.5*l.Mass*v.Dot(v) + 0.5*w.Dot(inertia.Mul3x1(w))
		e -= l.Mass * g.Dot(st.X[i].Pos)
	}
	return e
}

// Energy is the mean mechanical energy over the observed states.
type Energy struct {
	name        string
	sys         *system.System
	samples     int
	totalEnergy float64
}

func NewEnergy(sys *system.System) *Energy {
	return &Energy{
		name: "energy",
		sys:  sys,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(st *pipeline.State, u []float64, t float64) {
	e.totalEnergy += Mechanical(e.sys, st)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest change in mechanical energy relative to the
// first observed state, divided by max(|E0|, 1 J).
type EnergyDrift struct {
	name          string
	sys           *system.System
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(sys *system.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		sys:  sys,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(st *pipeline.State, u []float64, t float64) {
	energy := Mechanical(e.sys, st)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	drift := math.Abs(energy-e.initialEnergy) / math.Max(math.Abs(e.initialEnergy), 1)
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
