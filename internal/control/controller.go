package control

import (
	"fmt"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

type Controller interface {
	Name() string
	Compute(st *pipeline.State, t float64) []float64
}

// Resetter is implemented by controllers that carry state between steps.
type Resetter interface {
	Reset()
}

// Configurable controllers expose tunable gains by name.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type None struct {
	dim int
}

func NewNone(sys *system.System) *None {
	return &None{dim: sys.NumActuators()}
}

func (n *None) Name() string { return "none" }

func (n *None) Compute(st *pipeline.State, t float64) []float64 {
	return make([]float64, n.dim)
}

type Constant struct {
	u []float64
}

func NewConstant(sys *system.System, u []float64) (*Constant, error) {
	if len(u) != sys.NumActuators() {
		return nil, &system.DimensionError{Field: "action", Got: len(u), Want: sys.NumActuators()}
	}
	return &Constant{u: append([]float64(nil), u...)}, nil
}

func (c *Constant) Name() string { return "constant" }

func (c *Constant) Compute(st *pipeline.State, t float64) []float64 {
	return append([]float64(nil), c.u...)
}

// ActionSpace describes the box of valid actions.
type ActionSpace struct {
	Low  []float64
	High []float64
}

func NewActionSpace(sys *system.System) ActionSpace {
	n := sys.NumActuators()
	s := ActionSpace{Low: make([]float64, n), High: make([]float64, n)}
	for i := 0; i < n; i++ {
		s.Low[i], s.High[i] = sys.ActuatorRange(i)
	}
	return s
}

func (s ActionSpace) Dim() int { return len(s.Low) }

func (s ActionSpace) Contains(u []float64) bool {
	if len(u) != len(s.Low) {
		return false
	}
	for i, v := range u {
		if v < s.Low[i] || v > s.High[i] {
			return false
		}
	}
	return true
}

// Scale maps u from [-1, 1] onto the action box.
func (s ActionSpace) Scale(u []float64) ([]float64, error) {
	if len(u) != len(s.Low) {
		return nil, fmt.Errorf("scale action: %w", &system.DimensionError{Field: "action", Got: len(u), Want: len(s.Low)})
	}
	out := make([]float64, len(u))
	for i, v := range u {
		out[i] = s.Low[i] + 0.5*(v+1)*(s.High[i]-s.Low[i])
	}
	return out, nil
}
