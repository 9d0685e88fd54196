package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// Inverse recovers (q, qd) from link poses and velocities. Hinge angles
// are unwrapped towards qRef when it is non-nil, so continuous rotations
// do not jump by 2*pi between steps.
func Inverse(sys *system.System, x []spatial.Transform, xd []spatial.Motion, qRef []float64) ([]float64, []float64) {
	q := make([]float64, sys.QSize())
	qd := make([]float64, sys.QdSize())
	for _, i := range sys.Order() {
		l := sys.Link(i)
		parent, pm := spatial.Identity(), spatial.Motion{}
		if l.Parent != system.World {
			parent, pm = x[l.Parent], xd[l.Parent]
		}
		qOff, qdOff := sys.QOffset(i), sys.QdOffset(i)
		qi := q[qOff : qOff+l.Joint.QSize()]
		var ref []float64
		if qRef != nil {
			ref = qRef[qOff : qOff+l.Joint.QSize()]
		}
		JointPositions(l.Joint, parent, x[i], ref, qi)

		_, f := JointPose(l.Joint, parent, qi)
		JointVelocities(l.Joint, parent, pm, x[i], xd[i], f, qd[qdOff:qdOff+l.Joint.QdSize()])
	}
	return q, qd
}

// JointPositions writes the joint coordinates that place child relative
// to parent into out. ref, when non-nil, selects the hinge branch.
func JointPositions(j system.Joint, parent, child spatial.Transform, ref, out []float64) {
	if j.Type == system.Free {
		out[0], out[1], out[2] = child.Pos[0], child.Pos[1], child.Pos[2]
		out[3] = child.Rot.W
		out[4], out[5], out[6] = child.Rot.V[0], child.Rot.V[1], child.Rot.V[2]
		return
	}
	slides, hinges := j.Counts()

	if slides > 0 {
		base := parent.Apply(j.ParentAnchor)
		anchor := child.Apply(j.ChildAnchor)
		t := parent.Rot.Conjugate().Rotate(anchor.Sub(base))
		for k := 0; k < slides; k++ {
			out[k] = j.DOFs[k].Axis.Dot(t)
		}
	}
	if hinges == 0 {
		return
	}

	rel := parent.Rot.Conjugate().Mul(child.Rot)
	angles := out[slides:]
	axes := j.DOFs[slides:]
	switch hinges {
	case 1:
		a := axes[0].Axis
		angles[0] = spatial.WrapAngle(2 * math.Atan2(rel.V.Dot(a), rel.W))
	default:
		a0, a1 := axes[0].Axis, axes[1].Axis
		a2 := a0.Cross(a1)
		if hinges == 3 {
			a2 = axes[2].Axis
		}
		basis := mgl64.Mat3FromCols(a0, a1, a2)
		m := basis.Transpose().Mul3(spatial.Matrix(rel)).Mul3(basis)
		ax, ay, az := spatial.EulerXYZ(m)
		angles[0], angles[1] = ax, ay
		if hinges == 3 {
			angles[2] = az
		}
	}
	if ref != nil {
		for k := range angles {
			r := ref[slides+k]
			angles[k] = r + spatial.WrapAngle(angles[k]-r)
		}
	}
}

// JointVelocities writes the joint rates that produce the child's motion
// relative to its parent into out. f is the joint frame at the recovered
// coordinates.
func JointVelocities(j system.Joint, parent spatial.Transform, pm spatial.Motion, child spatial.Transform, cm spatial.Motion, f Frame, out []float64) {
	if j.Type == system.Free {
		out[0], out[1], out[2] = cm.Vel[0], cm.Vel[1], cm.Vel[2]
		out[3], out[4], out[5] = cm.Ang[0], cm.Ang[1], cm.Ang[2]
		return
	}
	slides, hinges := j.Counts()

	if slides > 0 {
		rel := cm.PointVelocity(child.Pos, f.Anchor).
			Sub(pm.PointVelocity(parent.Pos, f.Base)).
			Sub(pm.Ang.Cross(f.Anchor.Sub(f.Base)))
		for k := 0; k < slides; k++ {
			out[k] = f.Axes[k].Dot(rel)
		}
	}
	if hinges == 0 {
		return
	}

	w := cm.Ang.Sub(pm.Ang)
	axes := f.Axes[slides:]
	rates := out[slides:]
	if hinges == 1 {
		rates[0] = axes[0].Dot(w)
		return
	}
	if !solveRates(axes, w, rates) {
		for k, a := range axes {
			rates[k] = a.Dot(w)
		}
	}
}

// solveRates solves sum_k axes[k]*rates[k] = w in the least-squares sense.
// It reports false when the axis matrix is singular, which happens at
// gimbal lock of a three-hinge joint.
func solveRates(axes []mgl64.Vec3, w mgl64.Vec3, rates []float64) bool {
	n := len(axes)
	b := mat.NewDense(3, n, nil)
	for k, a := range axes {
		b.Set(0, k, a[0])
		b.Set(1, k, a[1])
		b.Set(2, k, a[2])
	}
	var sol mat.VecDense
	if err := sol.SolveVec(b, mat.NewVecDense(3, []float64{w[0], w[1], w[2]})); err != nil {
		cond, ok := err.(mat.Condition)
		if !ok || float64(cond) > 1e10 {
			return false
		}
	}
	for k := 0; k < n; k++ {
		v := sol.AtVec(k)
		if !spatial.IsFinite(v) {
			return false
		}
		rates[k] = v
	}
	return true
}
