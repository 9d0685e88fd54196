// Package positional steps a system with a position-based solver. Each
// step integrates every link as a free body, then projects joint
// constraints, joint limits and contacts for a fixed number of iterations
// and finally reads the generalized coordinates back from the link poses.
//
// The Cartesian state is authoritative here; q and qd are derived from it.
package positional

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/collision"
	"github.com/san-kum/rigidsim/internal/kinematics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

type Pipeline struct{}

func New() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) Name() string { return "positional" }

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

	s := newSolver(sys, st)
	s.predict(pipeline.JointForces(sys, st.Q, st.Qd, act))
	s.contacts = collision.Detect(sys, s.transforms())
	for it := 0; it < s.iterations; it++ {
		s.solveJoints()
		s.solveLimits()
		s.solveContacts()
	}
	return s.reconcile(), nil
}

// Reconcile derives generalized coordinates from Cartesian link states,
// unwrapping hinge angles towards qRef.
func Reconcile(sys *system.System, x []spatial.Transform, xd []spatial.Motion, qRef []float64) *pipeline.State {
	q, qd := kinematics.Inverse(sys, x, xd, qRef)
	return &pipeline.State{
		Q:  q,
		Qd: qd,
		X:  append([]spatial.Transform(nil), x...),
		Xd: append([]spatial.Motion(nil), xd...),
	}
}

type solver struct {
	sys        *system.System
	prev       *pipeline.State
	bodies     []body
	dt         float64
	iterations int
	contacts   []collision.Contact

	// per-iteration fractions, by link
	limitFrac []float64
	dampFrac  []float64
	scratch   []float64
}

func newSolver(sys *system.System, st *pipeline.State) *solver {
	n := sys.NumLinks()
	s := &solver{
		sys:        sys,
		prev:       st,
		bodies:     make([]body, n),
		dt:         sys.Dt(),
		iterations: sys.SolverIterations(),
		limitFrac:  make([]float64, n),
		dampFrac:   make([]float64, n),
		scratch:    make([]float64, 7),
	}
	iters := float64(s.iterations)
	for i := range s.bodies {
		l := sys.Link(i)
		s.bodies[i] = body{
			pos:        st.X[i].Pos,
			rot:        st.X[i].Rot,
			vel:        st.Xd[i].Vel,
			ang:        st.Xd[i].Ang,
			invMass:    sys.InvMass(i),
			invInertia: sys.InvInertia(i),
		}
		// the per-step fraction K is split so that N iterations remove K
		k := spatial.Clamp(l.ConstraintLimitStiffness*s.dt*s.dt, 0, 1)
		s.limitFrac[i] = 1 - math.Pow(1-k, 1/iters)
		s.dampFrac[i] = 1 - math.Exp(-l.ConstraintAngDamping*s.dt/iters)
	}
	return s
}

func (s *solver) link(i int) *body {
	if i == system.World {
		return nil
	}
	return &s.bodies[i]
}

func (s *solver) transforms() []spatial.Transform {
	x := make([]spatial.Transform, len(s.bodies))
	for i := range s.bodies {
		x[i] = s.bodies[i].transform()
	}
	return x
}

// predict integrates every link as an unconstrained body under gravity
// and the Cartesian image of the joint forces.
func (s *solver) predict(tau []float64) {
	sys := s.sys
	n := sys.NumLinks()
	params := sys.Params()
	force := make([]mgl64.Vec3, n)
	torque := make([]mgl64.Vec3, n)
	for i := 0; i < n; i++ {
		force[i] = params.Gravity.Mul(sys.Link(i).Mass)
	}

	for i := 0; i < n; i++ {
		l := sys.Link(i)
		off := sys.QdOffset(i)
		if l.Joint.Type == system.Free {
			force[i] = force[i].Add(mgl64.Vec3{tau[off], tau[off+1], tau[off+2]})
			torque[i] = torque[i].Add(mgl64.Vec3{tau[off+3], tau[off+4], tau[off+5]})
			continue
		}
		parent := s.link(l.Parent)
		qo := sys.QOffset(i)
		_, f := kinematics.JointPose(l.Joint, parent.transform(), s.prev.Q[qo:qo+l.Joint.QSize()])
		for k, d := range l.Joint.DOFs {
			if tau[off+k] == 0 {
				continue
			}
			if d.Kind == system.Hinge {
				t := f.Axes[k].Mul(tau[off+k])
				torque[i] = torque[i].Add(t)
				if parent != nil {
					torque[l.Parent] = torque[l.Parent].Sub(t)
				}
				continue
			}
			fk := f.Axes[k].Mul(tau[off+k])
			force[i] = force[i].Add(fk)
			torque[i] = torque[i].Add(f.Anchor.Sub(s.bodies[i].pos).Cross(fk))
			if parent != nil {
				force[l.Parent] = force[l.Parent].Sub(fk)
				torque[l.Parent] = torque[l.Parent].Sub(f.Anchor.Sub(parent.pos).Cross(fk))
			}
		}
	}

	damp := math.Exp(-params.AngDamping * s.dt)
	for i := range s.bodies {
		b := &s.bodies[i]
		inertia := spatial.WorldInertia(b.rot, sys.Link(i).Inertia)
		gyro := b.ang.Cross(inertia.Mul3x1(b.ang))

		b.vel = b.vel.Add(force[i].Mul(b.invMass * s.dt))
		b.ang = b.ang.Add(b.invInertiaWorld().Mul3x1(torque[i].Sub(gyro)).Mul(s.dt))
		b.ang = b.ang.Mul(damp)

		b.pos = b.pos.Add(b.vel.Mul(s.dt))
		b.rot = spatial.Integrate(b.rot, b.ang.Mul(s.dt))
	}
}

func (s *solver) reconcile() *pipeline.State {
	x := s.transforms()
	xd := make([]spatial.Motion, len(s.bodies))
	for i := range s.bodies {
		xd[i] = spatial.Motion{Vel: s.bodies[i].vel, Ang: s.bodies[i].ang}
	}
	return Reconcile(s.sys, x, xd, s.prev.Q)
}
