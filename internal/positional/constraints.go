package positional

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/kinematics"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// solveJoints pulls every joint anchor back together, locks the rotation
// the joint does not allow and damps relative spin.
func (s *solver) solveJoints() {
	for _, i := range s.sys.Order() {
		l := s.sys.Link(i)
		if l.Joint.Type == system.Free {
			continue
		}
		parent, child := s.link(l.Parent), s.link(i)
		s.solveAnchor(l.Joint, parent, child)
		s.solveAngular(l.Joint, parent, child)
		if s.dampFrac[i] > 0 {
			dampRelative(parent, child, s.dampFrac[i])
		}
	}
}

func (s *solver) solveAnchor(j system.Joint, parent, child *body) {
	pt, ct := parent.transform(), child.transform()
	base := pt.Apply(j.ParentAnchor)
	anchor := ct.Apply(j.ChildAnchor)
	delta := anchor.Sub(base)
	for _, d := range j.DOFs {
		if d.Kind != system.Slide {
			break
		}
		axis := pt.Rot.Rotate(d.Axis)
		delta = delta.Sub(axis.Mul(axis.Dot(delta)))
	}
	correctPosition(parent, child, base.Sub(pt.Pos), anchor.Sub(ct.Pos), delta, 1, s.dt)
}

// solveAngular removes the rotation outside the span of the joint's
// hinges. Three hinges leave nothing to lock.
func (s *solver) solveAngular(j system.Joint, parent, child *body) {
	slides, hinges := j.Counts()
	pr, cr := parent.transform().Rot, child.rot

	var phi mgl64.Vec3
	switch hinges {
	case 0:
		phi = spatial.RotationDelta(cr, pr)
	case 1:
		axis := j.DOFs[slides].Axis
		phi = cr.Rotate(axis).Cross(pr.Rotate(axis))
	case 2:
		// the first axis rides on the parent, the second on the child;
		// keep them perpendicular
		a0 := pr.Rotate(j.DOFs[slides].Axis)
		a1 := cr.Rotate(j.DOFs[slides+1].Axis)
		m := a0.Cross(a1)
		ml := m.Len()
		if ml < eps {
			return
		}
		phi = m.Mul(math.Asin(spatial.Clamp(a0.Dot(a1), -1, 1)) / ml)
	default:
		return
	}
	correctRotation(parent, child, phi, 1, s.dt)
}

func dampRelative(parent, child *body, frac float64) {
	var pw mgl64.Vec3
	if parent != nil {
		pw = parent.ang
	}
	rel := child.ang.Sub(pw)
	mag := rel.Len()
	if mag < eps {
		return
	}
	n := rel.Mul(1 / mag)
	w := parent.angularWeight(n) + child.angularWeight(n)
	if w < eps {
		return
	}
	p := n.Mul(frac * mag / w)
	child.applyAngularVelocity(p.Mul(-1))
	parent.applyAngularVelocity(p)
}

// solveLimits removes a fraction of every range violation, measured on
// the joint coordinates recovered from the current poses.
func (s *solver) solveLimits() {
	for _, i := range s.sys.Order() {
		frac := s.limitFrac[i]
		l := s.sys.Link(i)
		if frac == 0 || l.Joint.Type == system.Free {
			continue
		}
		parent, child := s.link(l.Parent), s.link(i)
		pt, ct := parent.transform(), child.transform()

		qo, n := s.sys.QOffset(i), l.Joint.QSize()
		q := s.scratch[:n]
		kinematics.JointPositions(l.Joint, pt, ct, s.prev.Q[qo:qo+n], q)
		_, f := kinematics.JointPose(l.Joint, pt, q)

		for k, d := range l.Joint.DOFs {
			if !d.Limited {
				continue
			}
			c := q[k] - spatial.Clamp(q[k], d.Range[0], d.Range[1])
			if c == 0 {
				continue
			}
			if d.Kind == system.Slide {
				ct = child.transform()
				anchor := ct.Apply(l.Joint.ChildAnchor)
				correctPosition(parent, child, f.Base.Sub(pt.Pos), anchor.Sub(ct.Pos), f.Axes[k].Mul(c), frac, s.dt)
			} else {
				correctRotation(parent, child, f.Axes[k].Mul(-c), frac, s.dt)
			}
		}
	}
}

// solveContacts pushes penetrating witness points apart by CollideScale
// of the current depth and applies Coulomb friction bounded by the normal
// correction.
func (s *solver) solveContacts() {
	scale := s.sys.Params().CollideScale
	for ci := range s.contacts {
		c := &s.contacts[ci]
		a, b := s.link(c.LinkA), s.link(c.LinkB)

		pa, pb := witness(a, c.LocalA), witness(b, c.LocalB)
		depth := pa.Sub(pb).Dot(c.Normal)
		if depth <= 0 {
			continue
		}
		ra, rb := pa.Sub(a.transform().Pos), pb.Sub(b.transform().Pos)
		lambda := correctPosition(a, b, ra, rb, c.Normal.Mul(-depth), scale, s.dt)
		if lambda == 0 || c.Friction == 0 {
			continue
		}

		pa, pb = witness(a, c.LocalA), witness(b, c.LocalB)
		ra, rb = pa.Sub(a.transform().Pos), pb.Sub(b.transform().Pos)
		vrel := b.pointVelocity(pb).Sub(a.pointVelocity(pa))
		vt := vrel.Sub(c.Normal.Mul(c.Normal.Dot(vrel)))
		speed := vt.Len()
		if speed < eps {
			continue
		}
		t := vt.Mul(1 / speed)
		w := a.weight(ra, t) + b.weight(rb, t)
		if w < eps {
			continue
		}
		lt := math.Min(c.Friction*lambda, speed*s.dt/w)
		p := t.Mul(lt)
		a.applyPosition(p, ra, s.dt)
		b.applyPosition(p.Mul(-1), rb, s.dt)
	}
}

func witness(b *body, local mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return local
	}
	return b.transform().Apply(local)
}
