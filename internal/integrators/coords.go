package integrators

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// Advance moves q along the velocity qd for dt. Free-joint orientations
// are turned by their world angular velocity and renormalised.
func Advance(sys *system.System, q, qd []float64, dt float64) []float64 {
	out := make([]float64, len(q))
	copy(out, q)
	for i := 0; i < sys.NumLinks(); i++ {
		l := sys.Link(i)
		qo, vo := sys.QOffset(i), sys.QdOffset(i)
		if l.Joint.Type != system.Free {
			for k := range l.Joint.DOFs {
				out[qo+k] += dt * qd[vo+k]
			}
			continue
		}
		for k := 0; k < 3; k++ {
			out[qo+k] += dt * qd[vo+k]
		}
		rot := mgl64.Quat{W: q[qo+3], V: mgl64.Vec3{q[qo+4], q[qo+5], q[qo+6]}}
		ang := mgl64.Vec3{qd[vo+3], qd[vo+4], qd[vo+5]}
		rot = spatial.Integrate(rot, ang.Mul(dt))
		out[qo+3] = rot.W
		out[qo+4], out[qo+5], out[qo+6] = rot.V[0], rot.V[1], rot.V[2]
	}
	return out
}

func axpy(a float64, x, y []float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] + a*x[i]
	}
	return out
}
