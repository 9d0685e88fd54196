package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

// BifurcationPoint holds the distinct peak values a coordinate reaches
// for one parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// BifurcationDiagram sweeps a parameter from paramMin to paramMax. For each
// value, build returns the system to simulate, which is stepped with zero
// action from (q, qd). After transient steps, the local maxima of q[coord]
// over the next record steps are collected, merging peaks closer than 1e-3.
// A single value per parameter means a periodic orbit. A spread of values
// means period doubling or chaos.
func BifurcationDiagram(
	ctx context.Context,
	p pipeline.Pipeline,
	build func(param float64) (*system.System, error),
	paramMin, paramMax float64,
	paramSteps, coord int,
	q, qd []float64,
	transient, record int,
) ([]BifurcationPoint, error) {
	if paramSteps < 2 {
		return nil, fmt.Errorf("need at least 2 parameter steps, got %d", paramSteps)
	}
	if record < 3 {
		return nil, fmt.Errorf("need at least 3 recorded steps, got %d", record)
	}
	if coord < 0 || coord >= len(q) {
		return nil, fmt.Errorf("coordinate %d out of range", coord)
	}

	stride := (paramMax - paramMin) / float64(paramSteps-1)
	out := make([]BifurcationPoint, 0, paramSteps)
	for i := 0; i < paramSteps; i++ {
		param := paramMin + float64(i)*stride
		sys, err := build(param)
		if err != nil {
			return nil, fmt.Errorf("param %g: %w", param, err)
		}
		peaks, err := peaksAfter(ctx, p, sys, q, qd, coord, transient, record)
		if err != nil {
			return nil, fmt.Errorf("param %g: %w", param, err)
		}
		out = append(out, BifurcationPoint{Param: param, Values: peaks})
	}
	return out, nil
}

func peaksAfter(ctx context.Context, p pipeline.Pipeline, sys *system.System, q, qd []float64, coord, transient, record int) ([]float64, error) {
	st, err := p.Init(sys, q, qd)
	if err != nil {
		return nil, err
	}
	action := make([]float64, sys.NumActuators())
	step := func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := p.Step(sys, st, action)
		if err != nil {
			return err
		}
		if !next.IsFinite() {
			return &system.NumericalError{Stage: "bifurcation", Reason: fmt.Sprintf("non-finite state at step %d", i)}
		}
		st = next
		return nil
	}

	for i := 0; i < transient; i++ {
		if err := step(i); err != nil {
			return nil, err
		}
	}

	var peaks []float64
	seen := map[int64]bool{}
	prev2, prev1 := math.NaN(), st.Q[coord]
	for i := 0; i < record; i++ {
		if err := step(transient + i); err != nil {
			return nil, err
		}
		cur := st.Q[coord]
		if prev1 > prev2 && prev1 >= cur {
			key := int64(math.Round(prev1 * 1000))
			if !seen[key] {
				seen[key] = true
				peaks = append(peaks, prev1)
			}
		}
		prev2, prev1 = prev1, cur
	}
	return peaks, nil
}

// BifurcationPortrait flattens a diagram into points for ASCII rendering.
func BifurcationPortrait(paramName, valueName string, diagram []BifurcationPoint) *PhasePortrait {
	p := &PhasePortrait{XLabel: paramName, YLabel: valueName}
	for _, b := range diagram {
		for _, v := range b.Values {
			p.Points = append(p.Points, Point{X: b.Param, Y: v})
		}
	}
	return p
}
