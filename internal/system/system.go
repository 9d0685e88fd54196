// Package system holds the immutable description of an articulated
// rigid-body system: links arranged as a tree, their joints, collision
// geometry, actuators and the global solver parameters.
//
// A System is validated once by New and is safe to share between
// goroutines. Accessors return values; slices handed out by Order and
// Pairs are shared and must be treated as read-only. The only way to
// change a System is With, which returns a new validated System.
package system

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/spatial"
)

const axisTol = 1e-6

type System struct {
	links     []Link
	geoms     []Geometry
	actuators []Actuator
	params    Params

	order      []int
	qOffset    []int
	qdOffset   []int
	qSize      int
	qdSize     int
	invMass    []float64
	invInertia []mgl64.Mat3
	pairs      []Pair
	dofLink    []int
}

// New validates a system description and derives its coordinate layout.
// The inputs are copied.
func New(links []Link, geoms []Geometry, actuators []Actuator, params Params) (*System, error) {
	s := &System{
		links:     make([]Link, len(links)),
		geoms:     make([]Geometry, len(geoms)),
		actuators: make([]Actuator, len(actuators)),
		params:    params,
	}
	for i, l := range links {
		l.Joint.DOFs = append([]DOF(nil), l.Joint.DOFs...)
		for k := range l.Joint.DOFs {
			if n := l.Joint.DOFs[k].Axis.Len(); n > 0 {
				l.Joint.DOFs[k].Axis = l.Joint.DOFs[k].Axis.Mul(1 / n)
			}
		}
		if l.Joint.InitQ != nil {
			l.Joint.InitQ = append([]float64(nil), l.Joint.InitQ...)
		}
		s.links[i] = l
	}
	for i, g := range geoms {
		if g.Offset.Rot == (mgl64.Quat{}) {
			g.Offset.Rot = mgl64.QuatIdent()
		}
		g.Offset.Rot = spatial.Normalize(g.Offset.Rot)
		if g.ContactType == 0 && g.ContactAffinity == 0 {
			g.ContactType, g.ContactAffinity = 1, 1
		}
		s.geoms[i] = g
	}
	copy(s.actuators, actuators)

	if err := s.derive(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *System) derive() error {
	if err := s.validateParams(); err != nil {
		return err
	}
	if len(s.links) == 0 {
		return configErr("system", -1, "no links")
	}
	if err := s.buildOrder(); err != nil {
		return err
	}

	n := len(s.links)
	s.qOffset = make([]int, n)
	s.qdOffset = make([]int, n)
	s.invMass = make([]float64, n)
	s.invInertia = make([]mgl64.Mat3, n)
	s.qSize, s.qdSize = 0, 0
	s.dofLink = s.dofLink[:0:0]
	for i, l := range s.links {
		if err := validateLink(i, l); err != nil {
			return err
		}
		s.qOffset[i] = s.qSize
		s.qdOffset[i] = s.qdSize
		s.qSize += l.Joint.QSize()
		s.qdSize += l.Joint.QdSize()
		for k := 0; k < l.Joint.QdSize(); k++ {
			s.dofLink = append(s.dofLink, i)
		}
		s.invMass[i] = 1 / l.Mass
		s.invInertia[i] = l.Inertia.Inv()
	}

	for i, g := range s.geoms {
		if err := s.validateGeometry(i, g); err != nil {
			return err
		}
	}
	for i, a := range s.actuators {
		if a.DOF < 0 || a.DOF >= s.qdSize {
			return configErr("actuator", i, "dof %d out of range [0, %d)", a.DOF, s.qdSize)
		}
		if a.CtrlRange[0] > a.CtrlRange[1] {
			return configErr("actuator", i, "control range [%g, %g] is inverted", a.CtrlRange[0], a.CtrlRange[1])
		}
		if a.Kind == Position && a.Kp <= 0 {
			return configErr("actuator", i, "position actuator needs kp > 0")
		}
	}
	s.buildPairs()
	return nil
}

func (s *System) validateParams() error {
	p := s.params
	if !(p.Dt > 0) || math.IsInf(p.Dt, 0) {
		return configErr("params", -1, "dt must be positive, got %g", p.Dt)
	}
	if p.SolverIterations < 1 {
		return configErr("params", -1, "solver_iterations must be at least 1, got %d", p.SolverIterations)
	}
	if !(p.CollideScale > 0) || p.CollideScale > 1 {
		return configErr("params", -1, "collide_scale must be in (0, 1], got %g", p.CollideScale)
	}
	if p.AngDamping < 0 || p.ContactMargin < 0 {
		return configErr("params", -1, "ang_damping and contact_margin must be non-negative")
	}
	if !spatial.VecFinite(p.Gravity) {
		return configErr("params", -1, "gravity must be finite")
	}
	return nil
}

// buildOrder computes a parents-first ordering and rejects anything that
// is not a tree hanging off the world.
func (s *System) buildOrder() error {
	n := len(s.links)
	children := make([][]int, n+1)
	for i, l := range s.links {
		if l.Parent == i {
			return configErr("link", i, "is its own parent")
		}
		if l.Parent < World || l.Parent >= n {
			return configErr("link", i, "parent %d out of range", l.Parent)
		}
		children[l.Parent+1] = append(children[l.Parent+1], i)
	}
	s.order = make([]int, 0, n)
	queue := append([]int(nil), children[0]...)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		s.order = append(s.order, i)
		queue = append(queue, children[i+1]...)
	}
	if len(s.order) != n {
		return configErr("system", -1, "links do not form a tree rooted at the world (cycle detected)")
	}
	return nil
}

func validateLink(i int, l Link) error {
	if !(l.Mass > 0) {
		return configErr("link", i, "mass must be positive, got %g", l.Mass)
	}
	if !(l.Inertia.Det() > 0) {
		return configErr("link", i, "inertia must be positive definite")
	}
	if l.ConstraintLimitStiffness < 0 || l.ConstraintAngDamping < 0 {
		return configErr("link", i, "constraint parameters must be non-negative")
	}
	j := l.Joint
	slides, hinges := j.Counts()
	switch j.Type {
	case Free:
		if l.Parent != World {
			return configErr("link", i, "free joint must attach to the world")
		}
		if len(j.DOFs) != 0 {
			return configErr("link", i, "free joint takes no explicit dofs")
		}
	case Fixed:
		if len(j.DOFs) != 0 {
			return configErr("link", i, "fixed joint takes no dofs")
		}
	case Revolute:
		if hinges != 1 || slides != 0 {
			return configErr("link", i, "revolute joint needs exactly one hinge")
		}
	case Prismatic:
		if slides < 1 || hinges != 0 {
			return configErr("link", i, "prismatic joint needs 1-3 slides")
		}
	case Spherical:
		if hinges != 3 || slides != 0 {
			return configErr("link", i, "spherical joint needs three hinges")
		}
	case Compound:
		if len(j.DOFs) == 0 {
			return configErr("link", i, "compound joint needs at least one dof")
		}
	default:
		return configErr("link", i, "unknown joint type %d", j.Type)
	}
	if slides > 3 || hinges > 3 {
		return configErr("link", i, "at most 3 slides and 3 hinges, got %d and %d", slides, hinges)
	}

	var slideAxes, hingeAxes []mgl64.Vec3
	for k, d := range j.DOFs {
		if d.Kind == Slide && len(hingeAxes) > 0 {
			return configErr("link", i, "dof %d: slides must precede hinges", k)
		}
		if math.Abs(d.Axis.Len()-1) > axisTol {
			return configErr("link", i, "dof %d: axis must be non-zero", k)
		}
		if d.Limited && d.Range[0] > d.Range[1] {
			return configErr("link", i, "dof %d: range [%g, %g] is inverted", k, d.Range[0], d.Range[1])
		}
		if d.Damping < 0 || d.Stiffness < 0 || d.Armature < 0 {
			return configErr("link", i, "dof %d: damping, stiffness and armature must be non-negative", k)
		}
		if d.Kind == Slide {
			slideAxes = append(slideAxes, d.Axis)
		} else {
			hingeAxes = append(hingeAxes, d.Axis)
		}
	}
	if !spatial.Orthonormal(axisTol, slideAxes...) {
		return configErr("link", i, "slide axes must be orthonormal")
	}
	if !spatial.Orthonormal(axisTol, hingeAxes...) {
		return configErr("link", i, "hinge axes must be orthonormal")
	}
	if len(hingeAxes) == 3 && hingeAxes[0].Cross(hingeAxes[1]).Dot(hingeAxes[2]) < 0 {
		return configErr("link", i, "hinge axes must be right-handed")
	}
	if j.InitQ != nil && len(j.InitQ) != j.QSize() {
		return configErr("link", i, "init q has length %d, want %d", len(j.InitQ), j.QSize())
	}
	return nil
}

func (s *System) validateGeometry(i int, g Geometry) error {
	if g.Link < World || g.Link >= len(s.links) {
		return configErr("geometry", i, "link %d out of range", g.Link)
	}
	if g.Friction < 0 {
		return configErr("geometry", i, "friction must be non-negative")
	}
	switch g.Shape {
	case Plane:
	case Sphere:
		if !(g.Radius > 0) {
			return configErr("geometry", i, "sphere radius must be positive")
		}
	case Capsule:
		if !(g.Radius > 0) || g.HalfLength < 0 {
			return configErr("geometry", i, "capsule needs radius > 0 and half-length >= 0")
		}
	case Box:
		if !(g.HalfExtents[0] > 0 && g.HalfExtents[1] > 0 && g.HalfExtents[2] > 0) {
			return configErr("geometry", i, "box half-extents must be positive")
		}
	default:
		return configErr("geometry", i, "unknown shape %d", g.Shape)
	}
	return nil
}

// Supported reports whether the narrow phase handles a shape pair.
func Supported(a, b Shape) bool {
	if a > b {
		a, b = b, a
	}
	switch a {
	case Plane:
		return b != Plane
	case Sphere, Capsule:
		return b == Sphere || b == Capsule
	}
	return false
}

func (s *System) buildPairs() {
	s.pairs = nil
	for i := range s.geoms {
		for j := i + 1; j < len(s.geoms); j++ {
			if s.collides(i, j) {
				s.pairs = append(s.pairs, Pair{A: i, B: j})
			}
		}
	}
	sort.Slice(s.pairs, func(a, b int) bool {
		if s.pairs[a].A != s.pairs[b].A {
			return s.pairs[a].A < s.pairs[b].A
		}
		return s.pairs[a].B < s.pairs[b].B
	})
}

func (s *System) collides(i, j int) bool {
	a, b := s.geoms[i], s.geoms[j]
	if a.Link == b.Link {
		return false
	}
	if a.ContactType&b.ContactAffinity == 0 && b.ContactType&a.ContactAffinity == 0 {
		return false
	}
	if s.adjacent(a.Link, b.Link) || s.adjacent(b.Link, a.Link) {
		return false
	}
	return Supported(a.Shape, b.Shape)
}

// adjacent reports whether child hangs directly off parent through a
// joint that keeps them in contact. Free joints do not count.
func (s *System) adjacent(parent, child int) bool {
	if child == World {
		return false
	}
	l := s.links[child]
	return l.Parent == parent && l.Joint.Type != Free
}

func (s *System) NumLinks() int { return len(s.links) }

// Link returns link i. Its DOFs slice is shared and must not be modified.
func (s *System) Link(i int) Link { return s.links[i] }

func (s *System) Parent(i int) int { return s.links[i].Parent }

// Order lists link indices parents first.
func (s *System) Order() []int { return s.order }

func (s *System) QOffset(i int) int { return s.qOffset[i] }
func (s *System) QdOffset(i int) int { return s.qdOffset[i] }
func (s *System) QSize() int { return s.qSize }
func (s *System) QdSize() int { return s.qdSize }

// DOFLink returns the link owning velocity coordinate k.
func (s *System) DOFLink(k int) int { return s.dofLink[k] }

func (s *System) InvMass(i int) float64 { return s.invMass[i] }

// InvInertia is the inverse inertia of link i in its own frame.
func (s *System) InvInertia(i int) mgl64.Mat3 { return s.invInertia[i] }

func (s *System) NumGeometries() int { return len(s.geoms) }
func (s *System) Geometry(i int) Geometry { return s.geoms[i] }
func (s *System) Pairs() []Pair { return s.pairs }
func (s *System) NumActuators() int { return len(s.actuators) }
func (s *System) Actuator(i int) Actuator { return s.actuators[i] }
func (s *System) Params() Params { return s.params }
func (s *System) Dt() float64 { return s.params.Dt }
func (s *System) SolverIterations() int { return s.params.SolverIterations }
func (s *System) ActuatorRange(i int) (lo, hi float64) {
	r := s.actuators[i].CtrlRange
	return r[0], r[1]
}

// InitQ is the default generalized position: each joint's InitQ, or
// zeros with identity orientation for free joints.
func (s *System) InitQ() []float64 {
	q := make([]float64, s.qSize)
	for i, l := range s.links {
		off := s.qOffset[i]
		switch {
		case l.Joint.InitQ != nil:
			copy(q[off:], l.Joint.InitQ)
		case l.Joint.Type == Free:
			q[off+3] = 1
		}
	}
	return q
}
