// Package generalized steps a system in joint space: recursive
// Newton-Euler dynamics, a Cholesky solve of the joint-space mass matrix
// and semi-implicit integration. Contacts are not modelled; limits act as
// penalty springs.
package generalized

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/kinematics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

type Pipeline struct {
	integrator integrators.Integrator
}

type Option func(*Pipeline)

// WithIntegrator replaces the default semi-implicit Euler scheme.
func WithIntegrator(i integrators.Integrator) Option {
	return func(p *Pipeline) { p.integrator = i }
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{integrator: integrators.NewSemiImplicitEuler()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Name() string { return "generalized" }

func (p *Pipeline) Init(sys *system.System, q, qd []float64) (*pipeline.State, error) {
	return pipeline.NewState(sys, q, qd)
}

func (p *Pipeline) Step(sys *system.System, st *pipeline.State, action []float64) (*pipeline.State, error) {
	if err := pipeline.CheckState(sys, st); err != nil {
		return nil, err
	}
	act, err := pipeline.ClipAction(sys, action)
	if err != nil {
		return nil, err
	}

	accel := func(q, qd []float64) ([]float64, error) {
		return Accelerations(sys, q, qd, act)
	}
	q, qd, err := p.integrator.Step(sys, st.Q, st.Qd, accel, sys.Dt())
	if err != nil {
		return nil, err
	}
	x, xd := kinematics.Forward(sys, q, qd)
	return &pipeline.State{Q: q, Qd: qd, X: x, Xd: xd}, nil
}

// Accelerations solves M(q) qdd = tau - C(q, qd) - G(q) for a clipped
// action.
func Accelerations(sys *system.System, q, qd, action []float64) ([]float64, error) {
	m := newModel(sys, q)
	tau := pipeline.JointForces(sys, q, qd, action)
	addLimitForces(sys, q, tau)

	bias := m.inverseDynamics(qd, make([]float64, len(qd)), sys.Params().Gravity)
	for i := range tau {
		tau[i] -= bias[i]
	}
	return solve(m.massMatrix(), tau)
}

// addLimitForces pushes limited coordinates back into range with a
// spring of the link's ConstraintLimitStiffness.
func addLimitForces(sys *system.System, q, tau []float64) {
	for i := 0; i < sys.NumLinks(); i++ {
		l := sys.Link(i)
		k := l.ConstraintLimitStiffness
		if k == 0 || l.Joint.Type == system.Free {
			continue
		}
		qo, vo := sys.QOffset(i), sys.QdOffset(i)
		for j, d := range l.Joint.DOFs {
			if !d.Limited {
				continue
			}
			v := q[qo+j]
			tau[vo+j] -= k * (v - spatial.Clamp(v, d.Range[0], d.Range[1]))
		}
	}
}

func solve(mass, rhs []float64) ([]float64, error) {
	n := len(rhs)
	if n == 0 {
		return nil, nil
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(n, mass)); !ok {
		return nil, &system.NumericalError{Stage: "mass matrix", Reason: "not positive definite"}
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(n, rhs)); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, &system.NumericalError{Stage: "mass matrix", Reason: err.Error()}
		}
	}
	qdd := make([]float64, n)
	for i := range qdd {
		qdd[i] = x.AtVec(i)
	}
	if !spatial.IsFinite(qdd...) {
		return nil, &system.NumericalError{Stage: "accelerations", Reason: "non-finite joint accelerations"}
	}
	return qdd, nil
}
