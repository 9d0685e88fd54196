package rollout

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// Comparison holds the per-step gap between two pipelines fed the same
// actions from the same initial coordinates.
type Comparison struct {
	A, B string
	// Position is the norm of the stacked link position differences.
	Position []float64
	// Rotation is the largest link rotation distance.
	Rotation []float64
	Times    []float64
	FinalA   *pipeline.State
	FinalB   *pipeline.State
}

func (c *Comparison) MaxPosition() float64 { return maxOf(c.Position) }
func (c *Comparison) MaxRotation() float64 { return maxOf(c.Rotation) }

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

// Divergence measures how far two states of the same system are apart.
func Divergence(a, b *pipeline.State) (pos, rot float64) {
	sum := 0.0
	for i := range a.X {
		d := a.X[i].Pos.Sub(b.X[i].Pos)
		sum += d.Dot(d)
		rot = math.Max(rot, spatial.QuatDistance(a.X[i].Rot, b.X[i].Rot))
	}
	return math.Sqrt(sum), rot
}

// Compare steps a and b in lockstep. The controller sees the state of a
// and its action drives both.
func Compare(ctx context.Context, a, b pipeline.Pipeline, sys *system.System, ctrl control.Controller, q, qd []float64, steps int, logger *zap.Logger) (*Comparison, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctrl == nil {
		ctrl = control.NewNone(sys)
	}
	sa, err := a.Init(sys, q, qd)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", a.Name(), err)
	}
	sb, err := b.Init(sys, q, qd)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", b.Name(), err)
	}

	cmp := &Comparison{
		A:        a.Name(),
		B:        b.Name(),
		Position: make([]float64, 0, steps+1),
		Rotation: make([]float64, 0, steps+1),
		Times:    make([]float64, 0, steps+1),
	}
	record := func(t float64) {
		pos, rot := Divergence(sa, sb)
		cmp.Position = append(cmp.Position, pos)
		cmp.Rotation = append(cmp.Rotation, rot)
		cmp.Times = append(cmp.Times, t)
	}

	t := 0.0
	record(t)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return cmp, &StepError{Step: i, Time: t, Err: err}
		}
		u := ctrl.Compute(sa, t)
		if sa, err = a.Step(sys, sa, u); err != nil {
			return cmp, &StepError{Step: i, Time: t, Err: fmt.Errorf("%s: %w", a.Name(), err)}
		}
		if sb, err = b.Step(sys, sb, u); err != nil {
			return cmp, &StepError{Step: i, Time: t, Err: fmt.Errorf("%s: %w", b.Name(), err)}
		}
		t += sys.Dt()
		record(t)
	}
	cmp.FinalA, cmp.FinalB = sa, sb

	logger.Debug("comparison finished",
		zap.String("a", cmp.A),
		zap.String("b", cmp.B),
		zap.Float64("max_position", cmp.MaxPosition()),
		zap.Float64("max_rotation", cmp.MaxRotation()),
	)
	return cmp, nil
}
