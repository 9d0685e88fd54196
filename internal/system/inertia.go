package system

import "github.com/go-gl/mathgl/mgl64"

func SphereInertia(mass, radius float64) mgl64.Mat3 {
	i := 0.4 * mass * radius * radius
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func BoxInertia(mass float64, half mgl64.Vec3) mgl64.Mat3 {
	x, y, z := 2*half[0], 2*half[1], 2*half[2]
	return mgl64.Diag3(mgl64.Vec3{
		mass * (y*y + z*z) / 12,
		mass * (x*x + z*z) / 12,
		mass * (x*x + y*y) / 12,
	})
}

// CapsuleInertia treats the capsule as a solid cylinder plus two
// hemispheres sharing the mass by volume. The axis is local Z.
func CapsuleInertia(mass, radius, halfLength float64) mgl64.Mat3 {
	r2 := radius * radius
	h := 2 * halfLength
	cyl := r2 * h
	sph := 4.0 / 3.0 * r2 * radius
	mc := mass * cyl / (cyl + sph)
	ms := mass - mc

	axial := 0.5*mc*r2 + 0.4*ms*r2
	lateral := mc*(3*r2+h*h)/12 +
		ms*(0.4*r2+0.25*h*h+0.375*radius*h)
	return mgl64.Diag3(mgl64.Vec3{lateral, lateral, axial})
}
