package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/system"
)

// Dormand-Prince coefficients (RK45)
var (
	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 covers each step with adaptive Dormand-Prince substeps. Every call
// starts from a single substep of the full dt and only refines when the
// embedded error estimate exceeds the tolerance.
type RK45 struct {
	rtol, atol float64
	safety     float64
	minScale   float64
	maxScale   float64
	maxSteps   int
}

func NewRK45() *RK45 {
	return &RK45{
		rtol:     1e-6,
		atol:     1e-9,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 5.0,
		maxSteps: 1000,
	}
}

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Step(sys *system.System, q, qd []float64, accel Accel, dt float64) ([]float64, []float64, error) {
	h := dt
	done := 0.0
	for n := 0; n < r.maxSteps; n++ {
		if remaining := dt - done; h > remaining {
			h = remaining
		}
		nq, nqd, errRatio, err := r.attempt(sys, q, qd, accel, h)
		if err != nil {
			return nil, nil, err
		}

		if errRatio <= 1 {
			q, qd = nq, nqd
			done += h
			if done >= dt*(1-1e-12) {
				return q, qd, nil
			}
			scale := r.maxScale
			if errRatio > 0 {
				scale = math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			}
			h *= scale
			continue
		}
		if math.IsNaN(errRatio) {
			return nil, nil, &system.NumericalError{Stage: "rk45", Reason: "non-finite error estimate"}
		}
		h *= math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	}
	return nil, nil, &system.NumericalError{Stage: "rk45", Reason: fmt.Sprintf("no convergence within %d substeps", r.maxSteps)}
}

// attempt takes one Dormand-Prince step of size h and returns the scaled
// error norm; values up to 1 are accepted.
func (r *RK45) attempt(sys *system.System, q, qd []float64, accel Accel, h float64) ([]float64, []float64, float64, error) {
	// stage i sits at position q advanced by h·Σ b_ij v_j and velocity
	// qd + h·Σ b_ij a_j
	stage := func(w []float64, vs, as [][]float64) ([]float64, []float64, error) {
		n := len(qd)
		vbar := make([]float64, n)
		vel := make([]float64, n)
		copy(vel, qd)
		for j, b := range w {
			for i := 0; i < n; i++ {
				vbar[i] += b * vs[j][i]
				vel[i] += h * b * as[j][i]
			}
		}
		pos := Advance(sys, q, vbar, h)
		a, err := accel(pos, vel)
		return vel, a, err
	}

	vs := make([][]float64, 0, 7)
	as := make([][]float64, 0, 7)
	a1, err := accel(q, qd)
	if err != nil {
		return nil, nil, 0, err
	}
	vs = append(vs, qd)
	as = append(as, a1)

	for _, w := range [][]float64{
		{b21},
		{b31, b32},
		{b41, b42, b43},
		{b51, b52, b53, b54},
		{b61, b62, b63, b64, b65},
	} {
		v, a, err := stage(w, vs, as)
		if err != nil {
			return nil, nil, 0, err
		}
		vs = append(vs, v)
		as = append(as, a)
	}

	weights := []float64{c1, 0, c3, c4, c5, c6}
	v7, a7, err := stage(weights, vs, as)
	if err != nil {
		return nil, nil, 0, err
	}
	vs = append(vs, v7)
	as = append(as, a7)

	vbar := make([]float64, len(qd))
	for j, c := range weights {
		for i := range vbar {
			vbar[i] += c * vs[j][i]
		}
	}
	nextQ := Advance(sys, q, vbar, h)
	nextQd := v7

	errW := []float64{dc1, 0, dc3, dc4, dc5, dc6, dc7}
	errMax := 0.0
	for i := range qd {
		var ep, ev float64
		for j, d := range errW {
			ep += d * vs[j][i]
			ev += d * as[j][i]
		}
		ep *= h
		ev *= h
		errMax = math.Max(errMax, math.Abs(ep)/(r.atol+r.rtol*math.Abs(vbar[i]*h)))
		errMax = math.Max(errMax, math.Abs(ev)/(r.atol+r.rtol*math.Abs(nextQd[i])))
	}
	return nextQ, nextQd, errMax, nil
}
