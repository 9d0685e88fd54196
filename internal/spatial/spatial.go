// Package spatial provides the rigid-body math shared by kinematics, the
// collision module and both solvers.
//
// Vectors, quaternions and 3x3 matrices come from mgl64. Quaternions are
// unit Hamilton quaternions mapping body coordinates to world
// coordinates. Matrices are column-major as in mgl64; read them with At.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid pose: the world position of a frame origin and the
// rotation of the frame.
type Transform struct {
	Pos mgl64.Vec3
	Rot mgl64.Quat
}

// Motion is the velocity of a link: linear velocity of its origin and
// angular velocity, both in the world frame.
type Motion struct {
	Vel mgl64.Vec3
	Ang mgl64.Vec3
}

func Identity() Transform {
	return Transform{Rot: mgl64.QuatIdent()}
}

// Apply maps a point from the frame into the world.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Pos.Add(t.Rot.Rotate(p))
}

// Local maps a world point into the frame.
func (t Transform) Local(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rot.Conjugate().Rotate(p.Sub(t.Pos))
}

// Mul composes t with a transform expressed in t's frame.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Pos: t.Apply(o.Pos),
		Rot: t.Rot.Mul(o.Rot),
	}
}

// PointVelocity is the world velocity of a point rigidly attached to a
// body whose origin sits at origin.
func (m Motion) PointVelocity(origin, p mgl64.Vec3) mgl64.Vec3 {
	return m.Vel.Add(m.Ang.Cross(p.Sub(origin)))
}

// AxisAngle returns the rotation of angle radians about a unit axis.
func AxisAngle(axis mgl64.Vec3, angle float64) mgl64.Quat {
	return mgl64.QuatRotate(angle, axis)
}

// Integrate advances a rotation by a small world-frame rotation vector
// (angular velocity times dt) and renormalises.
func Integrate(q mgl64.Quat, dtheta mgl64.Vec3) mgl64.Quat {
	w := mgl64.Quat{W: 0, V: dtheta}.Mul(q)
	next := mgl64.Quat{
		W: q.W + 0.5*w.W,
		V: q.V.Add(w.V.Mul(0.5)),
	}
	return Normalize(next)
}

// Normalize returns the unit quaternion of q, or identity for a zero
// quaternion.
func Normalize(q mgl64.Quat) mgl64.Quat {
	n := q.Len()
	if n == 0 || math.IsNaN(n) {
		return mgl64.QuatIdent()
	}
	return q.Scale(1 / n)
}

// RotationDelta returns the world rotation vector that turns from into to,
// taking the short way round.
func RotationDelta(from, to mgl64.Quat) mgl64.Vec3 {
	d := to.Mul(from.Conjugate())
	if d.W < 0 {
		d = d.Scale(-1)
	}
	return d.V.Mul(2)
}

// QuatDistance is the Euclidean distance between two quaternions after
// aligning their signs.
func QuatDistance(a, b mgl64.Quat) float64 {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	dw := a.W - b.W
	dv := a.V.Sub(b.V)
	return math.Sqrt(dw*dw + dv.Dot(dv))
}

// Matrix returns the rotation matrix of q.
func Matrix(q mgl64.Quat) mgl64.Mat3 {
	return q.Mat4().Mat3()
}

// WorldInertia rotates a body-frame inertia tensor into the world.
func WorldInertia(rot mgl64.Quat, local mgl64.Mat3) mgl64.Mat3 {
	r := Matrix(rot)
	return r.Mul3(local).Mul3(r.Transpose())
}

// WorldInverseInertia rotates the inverse of a body-frame inertia tensor
// into the world. Singular tensors yield the zero matrix.
func WorldInverseInertia(rot mgl64.Quat, local mgl64.Mat3) mgl64.Mat3 {
	r := Matrix(rot)
	return r.Mul3(local.Inv()).Mul3(r.Transpose())
}

// EulerXYZ decomposes m = Rx(a) Ry(b) Rz(c).
func EulerXYZ(m mgl64.Mat3) (a, b, c float64) {
	s := Clamp(m.At(0, 2), -1, 1)
	b = math.Asin(s)
	if math.Abs(s) < 1-1e-12 {
		a = math.Atan2(-m.At(1, 2), m.At(2, 2))
		c = math.Atan2(-m.At(0, 1), m.At(0, 0))
		return a, b, c
	}
	// gimbal lock: only a+c (or a-c) is defined
	a = math.Atan2(m.At(2, 1), m.At(1, 1))
	return a, b, 0
}

// WrapAngle maps an angle into (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether every component is neither NaN nor infinite.
func IsFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func VecFinite(v mgl64.Vec3) bool {
	return IsFinite(v[0], v[1], v[2])
}

// Norm is the Euclidean norm of a slice.
func Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Orthonormal reports whether the vectors are unit length and mutually
// perpendicular within tol.
func Orthonormal(tol float64, vs ...mgl64.Vec3) bool {
	for i, a := range vs {
		if math.Abs(a.Len()-1) > tol {
			return false
		}
		for _, b := range vs[i+1:] {
			if math.Abs(a.Dot(b)) > tol {
				return false
			}
		}
	}
	return true
}
