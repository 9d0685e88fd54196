package positional

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/spatial"
)

const eps = 1e-12

// body is the mutable working copy of one link during a step. A nil
// *body stands for the immovable world.
type body struct {
	pos, vel   mgl64.Vec3
	rot        mgl64.Quat
	ang        mgl64.Vec3
	invMass    float64
	invInertia mgl64.Mat3
}

func (b *body) transform() spatial.Transform {
	if b == nil {
		return spatial.Identity()
	}
	return spatial.Transform{Pos: b.pos, Rot: b.rot}
}

func (b *body) invInertiaWorld() mgl64.Mat3 {
	r := spatial.Matrix(b.rot)
	return r.Mul3(b.invInertia).Mul3(r.Transpose())
}

// weight is the generalized inverse mass for a correction along n at
// offset r from the centre of mass.
func (b *body) weight(r, n mgl64.Vec3) float64 {
	if b == nil {
		return 0
	}
	rn := r.Cross(n)
	return b.invMass + rn.Dot(b.invInertiaWorld().Mul3x1(rn))
}

func (b *body) angularWeight(n mgl64.Vec3) float64 {
	if b == nil {
		return 0
	}
	return n.Dot(b.invInertiaWorld().Mul3x1(n))
}

func (b *body) pointVelocity(p mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return mgl64.Vec3{}
	}
	return b.vel.Add(b.ang.Cross(p.Sub(b.pos)))
}

// applyPosition moves the body by the positional impulse p acting at
// offset r. Velocities absorb the displacement over dt.
func (b *body) applyPosition(p, r mgl64.Vec3, dt float64) {
	if b == nil {
		return
	}
	dx := p.Mul(b.invMass)
	b.pos = b.pos.Add(dx)
	b.vel = b.vel.Add(dx.Mul(1 / dt))
	b.rotate(b.invInertiaWorld().Mul3x1(r.Cross(p)), dt)
}

// applyRotation turns the body by the angular impulse p.
func (b *body) applyRotation(p mgl64.Vec3, dt float64) {
	if b == nil {
		return
	}
	b.rotate(b.invInertiaWorld().Mul3x1(p), dt)
}

func (b *body) rotate(dtheta mgl64.Vec3, dt float64) {
	b.rot = spatial.Integrate(b.rot, dtheta)
	b.ang = b.ang.Add(dtheta.Mul(1 / dt))
}

// applyAngularVelocity changes the angular velocity only.
func (b *body) applyAngularVelocity(p mgl64.Vec3) {
	if b == nil {
		return
	}
	b.ang = b.ang.Add(b.invInertiaWorld().Mul3x1(p))
}

// correctPosition closes the gap delta (point on b minus point on a) by
// frac, splitting the move by generalized inverse mass. It returns the
// magnitude of the positional impulse.
func correctPosition(a, b *body, ra, rb, delta mgl64.Vec3, frac, dt float64) float64 {
	c := delta.Len()
	if c < eps {
		return 0
	}
	n := delta.Mul(1 / c)
	w := a.weight(ra, n) + b.weight(rb, n)
	if w < eps {
		return 0
	}
	lambda := frac * c / w
	p := n.Mul(lambda)
	a.applyPosition(p, ra, dt)
	b.applyPosition(p.Mul(-1), rb, dt)
	return lambda
}

// correctRotation turns b by frac of the rotation vector phi and a by the
// opposite reaction.
func correctRotation(a, b *body, phi mgl64.Vec3, frac, dt float64) {
	theta := phi.Len()
	if theta < eps {
		return
	}
	n := phi.Mul(1 / theta)
	w := a.angularWeight(n) + b.angularWeight(n)
	if w < eps {
		return
	}
	p := n.Mul(frac * theta / w)
	b.applyRotation(p, dt)
	a.applyRotation(p.Mul(-1), dt)
}
