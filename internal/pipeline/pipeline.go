// Package pipeline defines the contract shared by the simulation
// pipelines and the state they exchange.
package pipeline

import (
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/kinematics"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// Pipeline advances a State by one timestep. Implementations hold no
// per-call state, so one value may step many states concurrently as long
// as each goroutine owns the states it steps.
type Pipeline interface {
	Name() string
	Init(sys *system.System, q, qd []float64) (*State, error)
	Step(sys *system.System, st *State, action []float64) (*State, error)
}

// State carries both coordinate representations. They always describe the
// same configuration. A State returned by a pipeline is never modified
// afterwards; Step allocates fresh slices.
type State struct {
	Q  []float64
	Qd []float64
	X  []spatial.Transform
	Xd []spatial.Motion
}

// minQuatNorm is the smallest free-joint quaternion norm NewState accepts.
const minQuatNorm = 1e-9

// NewState copies q and qd and derives the Cartesian state from them.
// Free-joint quaternions are normalised; a near-zero or non-finite one is
// a NumericalError.
func NewState(sys *system.System, q, qd []float64) (*State, error) {
	if err := kinematics.CheckSizes(sys, q, qd); err != nil {
		return nil, err
	}
	q = append([]float64(nil), q...)
	qd = append([]float64(nil), qd...)
	for i := 0; i < sys.NumLinks(); i++ {
		if sys.Link(i).Joint.Type != system.Free {
			continue
		}
		r := q[sys.QOffset(i)+3 : sys.QOffset(i)+7]
		n := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2] + r[3]*r[3])
		if !(n >= minQuatNorm) || math.IsInf(n, 0) {
			return nil, &system.NumericalError{Stage: "init", Reason: fmt.Sprintf("link %d: free joint quaternion has norm %g", i, n)}
		}
		for k := range r {
			r[k] /= n
		}
	}
	x, xd := kinematics.Forward(sys, q, qd)
	return &State{Q: q, Qd: qd, X: x, Xd: xd}, nil
}

func (s *State) Clone() *State {
	return &State{
		Q:  append([]float64(nil), s.Q...),
		Qd: append([]float64(nil), s.Qd...),
		X:  append([]spatial.Transform(nil), s.X...),
		Xd: append([]spatial.Motion(nil), s.Xd...),
	}
}

// IsFinite reports whether every coordinate of the state is finite.
func (s *State) IsFinite() bool {
	if !spatial.IsFinite(s.Q...) || !spatial.IsFinite(s.Qd...) {
		return false
	}
	for i := range s.X {
		p, r := s.X[i].Pos, s.X[i].Rot
		if !spatial.VecFinite(p) || !spatial.IsFinite(r.W) || !spatial.VecFinite(r.V) {
			return false
		}
		if !spatial.VecFinite(s.Xd[i].Vel) || !spatial.VecFinite(s.Xd[i].Ang) {
			return false
		}
	}
	return true
}

// CheckState verifies that a state was built for sys.
func CheckState(sys *system.System, st *State) error {
	if st == nil {
		return &system.DimensionError{Field: "state", Got: 0, Want: sys.NumLinks()}
	}
	if err := kinematics.CheckSizes(sys, st.Q, st.Qd); err != nil {
		return err
	}
	if len(st.X) != sys.NumLinks() {
		return &system.DimensionError{Field: "x", Got: len(st.X), Want: sys.NumLinks()}
	}
	if len(st.Xd) != sys.NumLinks() {
		return &system.DimensionError{Field: "xd", Got: len(st.Xd), Want: sys.NumLinks()}
	}
	return nil
}

// ClipAction returns a copy of action clipped to each actuator's control
// range.
func ClipAction(sys *system.System, action []float64) ([]float64, error) {
	if len(action) != sys.NumActuators() {
		return nil, &system.DimensionError{Field: "action", Got: len(action), Want: sys.NumActuators()}
	}
	clipped := make([]float64, len(action))
	for i, a := range action {
		lo, hi := sys.ActuatorRange(i)
		clipped[i] = spatial.Clamp(a, lo, hi)
	}
	return clipped, nil
}
