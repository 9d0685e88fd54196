// Package collision is the narrow phase: it turns the system's eligible
// geometry pairs and the current link poses into contacts.
package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// Contact is a single touching point between two links. It lives for one
// step only.
type Contact struct {
	LinkA, LinkB int
	// Normal points from A towards B in the world frame.
	Normal mgl64.Vec3
	Pos    mgl64.Vec3
	// Penetration is positive when the shapes overlap.
	Penetration float64
	// LocalA and LocalB are the witness points in each link's frame, or in
	// the world frame for static geometry.
	LocalA, LocalB mgl64.Vec3
	Friction       float64
}

type hit struct {
	a, b   mgl64.Vec3
	normal mgl64.Vec3
	depth  float64
}

// Detect returns the contacts of every eligible pair whose penetration
// exceeds -ContactMargin. Contacts follow sys.Pairs(), which is ascending
// by geometry index pair rather than link pair, and then the point order
// of each shape routine.
func Detect(sys *system.System, x []spatial.Transform) []Contact {
	margin := sys.Params().ContactMargin
	var contacts []Contact
	var hits []hit
	for _, p := range sys.Pairs() {
		ga, gb := sys.Geometry(p.A), sys.Geometry(p.B)
		if ga.Shape > gb.Shape {
			ga, gb = gb, ga
		}
		ta, tb := pose(ga, x), pose(gb, x)

		hits = collide(ga, ta, gb, tb, hits[:0])
		for _, h := range hits {
			if h.depth <= -margin {
				continue
			}
			contacts = append(contacts, Contact{
				LinkA:       ga.Link,
				LinkB:       gb.Link,
				Normal:      h.normal,
				Pos:         h.a.Add(h.b).Mul(0.5),
				Penetration: h.depth,
				LocalA:      toLocal(ga.Link, x, h.a),
				LocalB:      toLocal(gb.Link, x, h.b),
				Friction:    math.Sqrt(ga.Friction * gb.Friction),
			})
		}
	}
	return contacts
}

// WorldPoint maps a contact witness point back into the world using the
// current poses.
func WorldPoint(link int, x []spatial.Transform, local mgl64.Vec3) mgl64.Vec3 {
	if link == system.World {
		return local
	}
	return x[link].Apply(local)
}

func toLocal(link int, x []spatial.Transform, p mgl64.Vec3) mgl64.Vec3 {
	if link == system.World {
		return p
	}
	return x[link].Local(p)
}

func pose(g system.Geometry, x []spatial.Transform) spatial.Transform {
	if g.Link == system.World {
		return g.Offset
	}
	return x[g.Link].Mul(g.Offset)
}

// collide dispatches on shapes ordered so that a.Shape <= b.Shape.
func collide(a system.Geometry, ta spatial.Transform, b system.Geometry, tb spatial.Transform, out []hit) []hit {
	switch {
	case a.Shape == system.Plane && b.Shape == system.Sphere:
		return append(out, planeSphere(ta, tb.Pos, b.Radius))
	case a.Shape == system.Plane && b.Shape == system.Capsule:
		p0, p1 := segment(tb, b.HalfLength)
		return append(out, planeSphere(ta, p0, b.Radius), planeSphere(ta, p1, b.Radius))
	case a.Shape == system.Plane && b.Shape == system.Box:
		return planeBox(ta, tb, b.HalfExtents, out)
	case a.Shape == system.Sphere && b.Shape == system.Sphere:
		return append(out, spheres(ta.Pos, a.Radius, tb.Pos, b.Radius))
	case a.Shape == system.Sphere && b.Shape == system.Capsule:
		p0, p1 := segment(tb, b.HalfLength)
		return append(out, spheres(ta.Pos, a.Radius, closestOnSegment(ta.Pos, p0, p1), b.Radius))
	case a.Shape == system.Capsule && b.Shape == system.Capsule:
		return capsules(ta, a, tb, b, out)
	}
	return out
}

func segment(t spatial.Transform, halfLength float64) (mgl64.Vec3, mgl64.Vec3) {
	axis := t.Rot.Rotate(mgl64.Vec3{0, 0, halfLength})
	return t.Pos.Sub(axis), t.Pos.Add(axis)
}

func planeSphere(plane spatial.Transform, center mgl64.Vec3, radius float64) hit {
	n := plane.Rot.Rotate(mgl64.Vec3{0, 0, 1})
	dist := center.Sub(plane.Pos).Dot(n)
	return hit{
		a:      center.Sub(n.Mul(dist)),
		b:      center.Sub(n.Mul(radius)),
		normal: n,
		depth:  radius - dist,
	}
}

func planeBox(plane, box spatial.Transform, half mgl64.Vec3, out []hit) []hit {
	n := plane.Rot.Rotate(mgl64.Vec3{0, 0, 1})
	for _, sx := range [2]float64{-1, 1} {
		for _, sy := range [2]float64{-1, 1} {
			for _, sz := range [2]float64{-1, 1} {
				corner := box.Apply(mgl64.Vec3{sx * half[0], sy * half[1], sz * half[2]})
				dist := corner.Sub(plane.Pos).Dot(n)
				out = append(out, hit{
					a:      corner.Sub(n.Mul(dist)),
					b:      corner,
					normal: n,
					depth:  -dist,
				})
			}
		}
	}
	return out
}

func spheres(ca mgl64.Vec3, ra float64, cb mgl64.Vec3, rb float64) hit {
	d := cb.Sub(ca)
	l := d.Len()
	n := mgl64.Vec3{0, 0, 1}
	if l > 1e-12 {
		n = d.Mul(1 / l)
	}
	return hit{
		a:      ca.Add(n.Mul(ra)),
		b:      cb.Sub(n.Mul(rb)),
		normal: n,
		depth:  ra + rb - l,
	}
}

func capsules(ta spatial.Transform, a system.Geometry, tb spatial.Transform, b system.Geometry, out []hit) []hit {
	a0, a1 := segment(ta, a.HalfLength)
	b0, b1 := segment(tb, b.HalfLength)
	da, db := a1.Sub(a0), b1.Sub(b0)

	cross := da.Cross(db)
	if cross.Dot(cross) <= 1e-10*da.Dot(da)*db.Dot(db) && da.Dot(da) > 0 {
		// near-parallel: support both ends of the overlap
		out = append(out, spheres(a0, a.Radius, closestOnSegment(a0, b0, b1), b.Radius))
		return append(out, spheres(a1, a.Radius, closestOnSegment(a1, b0, b1), b.Radius))
	}
	pa, pb := closestSegments(a0, a1, b0, b1)
	return append(out, spheres(pa, a.Radius, pb, b.Radius))
}

func closestOnSegment(p, a, b mgl64.Vec3) mgl64.Vec3 {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 <= 1e-18 {
		return a
	}
	t := spatial.Clamp(p.Sub(a).Dot(d)/l2, 0, 1)
	return a.Add(d.Mul(t))
}

// closestSegments returns the closest points between segments p1q1 and
// p2q2.
func closestSegments(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	const eps = 1e-18
	d1, d2 := q1.Sub(p1), q2.Sub(p2)
	r := p1.Sub(p2)
	a, e, f := d1.Dot(d1), d2.Dot(d2), d2.Dot(r)

	var s, t float64
	switch {
	case a <= eps && e <= eps:
		return p1, p2
	case a <= eps:
		t = spatial.Clamp(f/e, 0, 1)
	case e <= eps:
		s = spatial.Clamp(-d1.Dot(r)/a, 0, 1)
	default:
		c := d1.Dot(r)
		b := d1.Dot(d2)
		if denom := a*e - b*b; denom != 0 {
			s = spatial.Clamp((b*f-c*e)/denom, 0, 1)
		}
		t = (b*s + f) / e
		if t < 0 {
			t = 0
			s = spatial.Clamp(-c/a, 0, 1)
		} else if t > 1 {
			t = 1
			s = spatial.Clamp((b-c)/a, 0, 1)
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
