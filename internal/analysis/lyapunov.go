package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// PerturbableCoords lists the entries of q that can be offset without
// leaving the configuration space: every coordinate of non-free joints and
// the translation of free joints.
func PerturbableCoords(sys *system.System) []int {
	var idx []int
	for i := 0; i < sys.NumLinks(); i++ {
		qo, n := sys.QOffset(i), sys.Link(i).Joint.QSize()
		if sys.Link(i).Joint.Type == system.Free {
			n = 3
		}
		for k := 0; k < n; k++ {
			idx = append(idx, qo+k)
		}
	}
	return idx
}

// LyapunovExponent estimates the largest Lyapunov exponent by stepping a
// reference and a perturbed state side by side with zero action. After
// every step the perturbed state is pulled back to the initial separation
// and the log stretch is accumulated. A positive value indicates chaos.
func LyapunovExponent(
	ctx context.Context,
	p pipeline.Pipeline,
	sys *system.System,
	q, qd []float64,
	coord, steps int,
	perturbation float64,
) (float64, error) {
	if steps <= 0 {
		return 0, fmt.Errorf("steps must be positive, got %d", steps)
	}
	if perturbation <= 0 {
		return 0, fmt.Errorf("perturbation must be positive, got %g", perturbation)
	}
	if !contains(PerturbableCoords(sys), coord) {
		return 0, fmt.Errorf("coordinate %d cannot be perturbed", coord)
	}

	a, err := p.Init(sys, q, qd)
	if err != nil {
		return 0, err
	}
	qp := append([]float64(nil), q...)
	qp[coord] += perturbation
	b, err := p.Init(sys, qp, qd)
	if err != nil {
		return 0, err
	}

	action := make([]float64, sys.NumActuators())
	sumLog := 0.0
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if a, err = p.Step(sys, a, action); err != nil {
			return 0, err
		}
		if b, err = p.Step(sys, b, action); err != nil {
			return 0, err
		}
		if !a.IsFinite() || !b.IsFinite() {
			return 0, &system.NumericalError{Stage: "lyapunov", Reason: fmt.Sprintf("non-finite state at step %d", i)}
		}

		sep := separation(sys, a, b)
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / perturbation)
		b = rescale(sys, a, b, perturbation/sep)
	}
	return sumLog / (float64(steps) * sys.Dt()), nil
}

// LyapunovSpectrum runs LyapunovExponent once per perturbable coordinate.
// The result is ordered like PerturbableCoords.
func LyapunovSpectrum(
	ctx context.Context,
	p pipeline.Pipeline,
	sys *system.System,
	q, qd []float64,
	steps int,
	perturbation float64,
) ([]float64, error) {
	coords := PerturbableCoords(sys)
	spectrum := make([]float64, len(coords))
	for i, c := range coords {
		l, err := LyapunovExponent(ctx, p, sys, q, qd, c, steps, perturbation)
		if err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", c, err)
		}
		spectrum[i] = l
	}
	return spectrum, nil
}

// separation measures two states in generalized coordinates. Free-joint
// orientations contribute their rotation angle.
func separation(sys *system.System, a, b *pipeline.State) float64 {
	sum := 0.0
	for i := 0; i < sys.NumLinks(); i++ {
		qo, n := sys.QOffset(i), sys.Link(i).Joint.QSize()
		if sys.Link(i).Joint.Type == system.Free {
			n = 3
			d := spatial.QuatDistance(quatAt(a.Q, qo+3), quatAt(b.Q, qo+3))
			sum += d * d
		}
		for k := qo; k < qo+n; k++ {
			d := b.Q[k] - a.Q[k]
			sum += d * d
		}
	}
	for k := range a.Qd {
		d := b.Qd[k] - a.Qd[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// rescale moves b towards a so that their separation shrinks by s. Both
// representations are scaled, so a pipeline that treats the Cartesian
// state as primary keeps its constraint residuals.
func rescale(sys *system.System, a, b *pipeline.State, s float64) *pipeline.State {
	out := &pipeline.State{
		Q:  make([]float64, len(a.Q)),
		Qd: make([]float64, len(a.Qd)),
		X:  make([]spatial.Transform, len(a.X)),
		Xd: make([]spatial.Motion, len(a.Xd)),
	}
	for k := range out.Q {
		out.Q[k] = a.Q[k] + (b.Q[k]-a.Q[k])*s
	}
	for i := 0; i < sys.NumLinks(); i++ {
		if sys.Link(i).Joint.Type != system.Free {
			continue
		}
		qo := sys.QOffset(i) + 3
		r := slerp(quatAt(a.Q, qo), quatAt(b.Q, qo), s)
		out.Q[qo], out.Q[qo+1], out.Q[qo+2], out.Q[qo+3] = r.W, r.V[0], r.V[1], r.V[2]
	}
	for k := range out.Qd {
		out.Qd[k] = a.Qd[k] + (b.Qd[k]-a.Qd[k])*s
	}
	for i := range out.X {
		out.X[i] = spatial.Transform{
			Pos: a.X[i].Pos.Add(b.X[i].Pos.Sub(a.X[i].Pos).Mul(s)),
			Rot: slerp(a.X[i].Rot, b.X[i].Rot, s),
		}
		out.Xd[i] = spatial.Motion{
			Vel: a.Xd[i].Vel.Add(b.Xd[i].Vel.Sub(a.Xd[i].Vel).Mul(s)),
			Ang: a.Xd[i].Ang.Add(b.Xd[i].Ang.Sub(a.Xd[i].Ang).Mul(s)),
		}
	}
	return out
}

func slerp(a, b mgl64.Quat, s float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, s)
}

func quatAt(q []float64, off int) mgl64.Quat {
	return mgl64.Quat{W: q[off], V: mgl64.Vec3{q[off+1], q[off+2], q[off+3]}}
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
