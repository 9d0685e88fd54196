package generalized

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/kinematics"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// model holds the configuration-dependent quantities of one q: link poses,
// joint frames and world inertias.
type model struct {
	sys     *system.System
	x       []spatial.Transform
	frames  []kinematics.Frame
	inertia []mgl64.Mat3
}

func newModel(sys *system.System, q []float64) *model {
	x, frames := kinematics.Frames(sys, q)
	inertia := make([]mgl64.Mat3, len(x))
	for i := range x {
		inertia[i] = spatial.WorldInertia(x[i].Rot, sys.Link(i).Inertia)
	}
	return &model{sys: sys, x: x, frames: frames, inertia: inertia}
}

// inverseDynamics is recursive Newton-Euler in the world frame: the
// generalized forces that produce qdd at (q, qd) under gravity g.
func (m *model) inverseDynamics(qd, qdd []float64, g mgl64.Vec3) []float64 {
	sys := m.sys
	n := sys.NumLinks()
	vel := make([]spatial.Motion, n)
	acc := make([]spatial.Motion, n)
	force := make([]mgl64.Vec3, n)
	torque := make([]mgl64.Vec3, n)

	for _, i := range sys.Order() {
		l := sys.Link(i)
		f := m.frames[i]
		off := sys.QdOffset(i)

		var v, w, a, alpha mgl64.Vec3
		if l.Joint.Type == system.Free {
			v = mgl64.Vec3{qd[off], qd[off+1], qd[off+2]}
			w = mgl64.Vec3{qd[off+3], qd[off+4], qd[off+5]}
			a = mgl64.Vec3{qdd[off], qdd[off+1], qdd[off+2]}
			alpha = mgl64.Vec3{qdd[off+3], qdd[off+4], qdd[off+5]}
		} else {
			var origin mgl64.Vec3
			var pv, pa spatial.Motion
			if l.Parent != system.World {
				origin, pv, pa = m.x[l.Parent].Pos, vel[l.Parent], acc[l.Parent]
			}
			r := f.Base.Sub(origin)
			ao := pa.Vel.Add(pa.Ang.Cross(r)).Add(pv.Ang.Cross(pv.Ang.Cross(r)))
			vo := pv.PointVelocity(origin, f.Base)

			var sv, sa mgl64.Vec3
			w, alpha = pv.Ang, pa.Ang
			for k, d := range l.Joint.DOFs {
				axis := f.Axes[k]
				if d.Kind == system.Slide {
					sv = sv.Add(axis.Mul(qd[off+k]))
					sa = sa.Add(axis.Mul(qdd[off+k]))
					continue
				}
				alpha = alpha.Add(w.Cross(axis.Mul(qd[off+k]))).Add(axis.Mul(qdd[off+k]))
				w = w.Add(axis.Mul(qd[off+k]))
			}

			u := f.Anchor.Sub(f.Base)
			va := vo.Add(pv.Ang.Cross(u)).Add(sv)
			aa := ao.Add(pa.Ang.Cross(u)).
				Add(pv.Ang.Cross(pv.Ang.Cross(u))).
				Add(pv.Ang.Cross(sv).Mul(2)).
				Add(sa)

			rc := m.x[i].Pos.Sub(f.Anchor)
			v = va.Add(w.Cross(rc))
			a = aa.Add(alpha.Cross(rc)).Add(w.Cross(w.Cross(rc)))
		}
		vel[i] = spatial.Motion{Vel: v, Ang: w}
		acc[i] = spatial.Motion{Vel: a, Ang: alpha}

		inertia := m.inertia[i]
		force[i] = a.Sub(g).Mul(l.Mass)
		// about the joint anchor
		torque[i] = inertia.Mul3x1(alpha).
			Add(w.Cross(inertia.Mul3x1(w))).
			Add(m.x[i].Pos.Sub(f.Anchor).Cross(force[i]))
	}

	tau := make([]float64, sys.QdSize())
	order := sys.Order()
	for idx := len(order) - 1; idx >= 0; idx-- {
		i := order[idx]
		l := sys.Link(i)
		f := m.frames[i]
		off := sys.QdOffset(i)

		if l.Joint.Type == system.Free {
			for k := 0; k < 3; k++ {
				tau[off+k] = force[i][k]
				tau[off+3+k] = torque[i][k]
			}
		} else {
			for k, d := range l.Joint.DOFs {
				if d.Kind == system.Slide {
					tau[off+k] = f.Axes[k].Dot(force[i])
				} else {
					tau[off+k] = f.Axes[k].Dot(torque[i])
				}
			}
		}

		if p := l.Parent; p != system.World {
			force[p] = force[p].Add(force[i])
			lever := f.Anchor.Sub(m.frames[p].Anchor)
			torque[p] = torque[p].Add(torque[i]).Add(lever.Cross(force[i]))
		}
	}
	return tau
}

// massMatrix builds M(q) column by column from unit accelerations, then
// symmetrises it and adds armature to the diagonal.
func (m *model) massMatrix() []float64 {
	nv := m.sys.QdSize()
	zero := make([]float64, nv)
	unit := make([]float64, nv)
	mass := make([]float64, nv*nv)
	for j := 0; j < nv; j++ {
		unit[j] = 1
		col := m.inverseDynamics(zero, unit, mgl64.Vec3{})
		unit[j] = 0
		for i := 0; i < nv; i++ {
			mass[i*nv+j] = col[i]
		}
	}
	for i := 0; i < nv; i++ {
		for j := i + 1; j < nv; j++ {
			s := 0.5 * (mass[i*nv+j] + mass[j*nv+i])
			mass[i*nv+j], mass[j*nv+i] = s, s
		}
	}
	for i := 0; i < m.sys.NumLinks(); i++ {
		l := m.sys.Link(i)
		off := m.sys.QdOffset(i)
		for k, d := range l.Joint.DOFs {
			mass[(off+k)*nv+off+k] += d.Armature
		}
	}
	return mass
}
