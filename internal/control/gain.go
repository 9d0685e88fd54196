package control

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

// Gain is linear state feedback u = -K (s - target) on the stacked state
// s = [q, qd]. K has one row per actuator.
type Gain struct {
	k      *mat.Dense
	target *mat.VecDense
}

func NewGain(sys *system.System, k [][]float64, target []float64) (*Gain, error) {
	rows, cols := sys.NumActuators(), sys.QSize()+sys.QdSize()
	if rows == 0 || cols == 0 {
		return nil, &system.ConfigurationError{Component: "gain", Index: -1, Reason: "system has no actuators or coordinates"}
	}
	if len(k) != rows {
		return nil, &system.DimensionError{Field: "gain rows", Got: len(k), Want: rows}
	}
	if target == nil {
		target = make([]float64, cols)
	}
	if len(target) != cols {
		return nil, &system.DimensionError{Field: "target", Got: len(target), Want: cols}
	}
	g := &Gain{
		k:      mat.NewDense(rows, cols, nil),
		target: mat.NewVecDense(cols, append([]float64(nil), target...)),
	}
	for i, row := range k {
		if len(row) != cols {
			return nil, &system.DimensionError{Field: "gain columns", Got: len(row), Want: cols}
		}
		g.k.SetRow(i, row)
	}
	return g, nil
}

// NewPendulumGain returns the hand-tuned gain that stabilises the hinge
// of a single pendulum about q = target.
func NewPendulumGain(sys *system.System, target float64) (*Gain, error) {
	return NewGain(sys, [][]float64{{31.62, 10.0}}, []float64{target, 0})
}

func (g *Gain) Name() string { return "gain" }

func (g *Gain) Compute(st *pipeline.State, t float64) []float64 {
	rows, cols := g.k.Dims()
	s := mat.NewVecDense(cols, nil)
	for i, v := range st.Q {
		s.SetVec(i, v)
	}
	for i, v := range st.Qd {
		s.SetVec(len(st.Q)+i, v)
	}
	s.SubVec(s, g.target)

	u := mat.NewVecDense(rows, nil)
	u.MulVec(g.k, s)
	u.ScaleVec(-1, u)
	return u.RawVector().Data
}
