// Package kinematics converts between generalized coordinates (q, qd) and
// per-link Cartesian poses and velocities.
//
// Every link frame sits at the link's centre of mass. A joint places its
// child in three moves: the joint point on the parent (ParentAnchor), a
// translation along the slide axes, and the product of hinge rotations in
// declaration order. The child's ChildAnchor lands on the translated
// joint point.
package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// Frame is the world-space layout of a joint for given coordinates.
type Frame struct {
	// Base is the joint point on the parent.
	Base mgl64.Vec3
	// Anchor is the joint point after the slides; hinge axes pass through it.
	Anchor mgl64.Vec3
	// Axes holds the world axis of every dof, in dof order.
	Axes []mgl64.Vec3
}

// JointPose places a child link given its parent's pose and the joint's
// slice of q.
func JointPose(j system.Joint, parent spatial.Transform, q []float64) (spatial.Transform, Frame) {
	if j.Type == system.Free {
		x := spatial.Transform{
			Pos: mgl64.Vec3{q[0], q[1], q[2]},
			Rot: mgl64.Quat{W: q[3], V: mgl64.Vec3{q[4], q[5], q[6]}},
		}
		return x, Frame{Base: x.Pos, Anchor: x.Pos}
	}

	f := Frame{Base: parent.Apply(j.ParentAnchor)}
	if len(j.DOFs) > 0 {
		f.Axes = make([]mgl64.Vec3, len(j.DOFs))
	}
	var t mgl64.Vec3
	rel := mgl64.QuatIdent()
	for k, d := range j.DOFs {
		if d.Kind == system.Slide {
			f.Axes[k] = parent.Rot.Rotate(d.Axis)
			t = t.Add(d.Axis.Mul(q[k]))
			continue
		}
		f.Axes[k] = parent.Rot.Mul(rel).Rotate(d.Axis)
		rel = rel.Mul(spatial.AxisAngle(d.Axis, q[k]))
	}
	f.Anchor = f.Base.Add(parent.Rot.Rotate(t))

	rot := parent.Rot.Mul(rel)
	return spatial.Transform{Pos: f.Anchor.Sub(rot.Rotate(j.ChildAnchor)), Rot: rot}, f
}

// JointMotion is the child velocity implied by the parent velocity and the
// joint's slice of qd.
func JointMotion(j system.Joint, parent spatial.Transform, pm spatial.Motion, child spatial.Transform, f Frame, qd []float64) spatial.Motion {
	if j.Type == system.Free {
		return spatial.Motion{
			Vel: mgl64.Vec3{qd[0], qd[1], qd[2]},
			Ang: mgl64.Vec3{qd[3], qd[4], qd[5]},
		}
	}
	v := pm.PointVelocity(parent.Pos, f.Base)
	v = v.Add(pm.Ang.Cross(f.Anchor.Sub(f.Base)))
	ang := pm.Ang
	for k, d := range j.DOFs {
		if d.Kind == system.Slide {
			v = v.Add(f.Axes[k].Mul(qd[k]))
		} else {
			ang = ang.Add(f.Axes[k].Mul(qd[k]))
		}
	}
	v = v.Add(ang.Cross(child.Pos.Sub(f.Anchor)))
	return spatial.Motion{Vel: v, Ang: ang}
}

// Forward computes every link's pose and velocity. q and qd must have the
// system's sizes; see CheckSizes.
func Forward(sys *system.System, q, qd []float64) ([]spatial.Transform, []spatial.Motion) {
	x, frames := Frames(sys, q)
	xd := make([]spatial.Motion, sys.NumLinks())
	for _, i := range sys.Order() {
		l := sys.Link(i)
		parent, pm := spatial.Identity(), spatial.Motion{}
		if l.Parent != system.World {
			parent, pm = x[l.Parent], xd[l.Parent]
		}
		off := sys.QdOffset(i)
		xd[i] = JointMotion(l.Joint, parent, pm, x[i], frames[i], qd[off:off+l.Joint.QdSize()])
	}
	return x, xd
}

// Frames computes link poses and joint frames for q.
func Frames(sys *system.System, q []float64) ([]spatial.Transform, []Frame) {
	n := sys.NumLinks()
	x := make([]spatial.Transform, n)
	frames := make([]Frame, n)
	for _, i := range sys.Order() {
		l := sys.Link(i)
		parent := spatial.Identity()
		if l.Parent != system.World {
			parent = x[l.Parent]
		}
		off := sys.QOffset(i)
		x[i], frames[i] = JointPose(l.Joint, parent, q[off:off+l.Joint.QSize()])
	}
	return x, frames
}

func CheckSizes(sys *system.System, q, qd []float64) error {
	if len(q) != sys.QSize() {
		return &system.DimensionError{Field: "q", Got: len(q), Want: sys.QSize()}
	}
	if len(qd) != sys.QdSize() {
		return &system.DimensionError{Field: "qd", Got: len(qd), Want: sys.QdSize()}
	}
	return nil
}
