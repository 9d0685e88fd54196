// Package optim tunes run parameters by exhaustive search.
package optim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/rollout"
	"github.com/san-kum/rigidsim/internal/scenario"
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search needs one range per parameter, got %d names and %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %s has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Candidate is one grid point and its score. Runs that fail score +Inf.
type Candidate struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Points enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	var walk func(depth int, current map[string]float64)
	walk = func(depth int, current map[string]float64) {
		if depth == len(g.paramNames) {
			out = append(out, current)
			return
		}
		for _, v := range g.ranges[depth] {
			next := make(map[string]float64, len(current)+1)
			for k, cv := range current {
				next[k] = cv
			}
			next[g.paramNames[depth]] = v
			walk(depth+1, next)
		}
	}
	walk(0, map[string]float64{})
	return out
}

// Apply sets a controller gain (kp, ki, kd, targetN) or a system override
// on cfg.
func Apply(cfg *config.Config, name string, v float64) error {
	switch name {
	case "kp":
		cfg.ControllerParams.Kp = v
	case "ki":
		cfg.ControllerParams.Ki = v
	case "kd":
		cfg.ControllerParams.Kd = v
	default:
		var idx int
		if _, err := fmt.Sscanf(name, "target%d", &idx); err == nil && strings.HasPrefix(name, "target") {
			if idx < 0 || idx >= len(cfg.ControllerParams.Targets) {
				return fmt.Errorf("%s out of range (%d targets)", name, len(cfg.ControllerParams.Targets))
			}
			cfg.ControllerParams.Targets[idx] = v
			return nil
		}
		return scenario.SetOverride(&cfg.Overrides, name, v)
	}
	return nil
}

// Search runs every grid point on base and returns the candidate with the
// lowest value of metricName, together with all candidates in grid order.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	reg *experiment.Registry,
	batch *rollout.Batch,
	metricName string,
	logger *zap.Logger,
) (Candidate, []Candidate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	points := g.Points()
	jobs := make([]rollout.Job, len(points))
	for i, params := range points {
		cfg := base.Clone()
		for _, name := range g.paramNames {
			if err := Apply(cfg, name, params[name]); err != nil {
				return Candidate{}, nil, err
			}
		}
		exp, err := experiment.New(cfg, reg, logger)
		if err != nil {
			return Candidate{}, nil, fmt.Errorf("grid point %v: %w", params, err)
		}
		jobs[i] = exp.Job(fmt.Sprint(params))
	}

	results, errs := batch.RunAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return Candidate{}, nil, err
	}

	best := Candidate{Value: math.Inf(1)}
	all := make([]Candidate, len(points))
	for i, params := range points {
		c := Candidate{Params: params, Value: math.Inf(1), Err: errs[i]}
		if c.Err == nil {
			v, ok := results[i].Metrics[metricName]
			if !ok {
				return Candidate{}, nil, fmt.Errorf("unknown metric %q", metricName)
			}
			c.Value = v
		}
		all[i] = c
		if c.Err == nil && (best.Params == nil || c.Value < best.Value) {
			best = c
		}
	}
	if best.Params == nil {
		return best, all, fmt.Errorf("every grid point failed")
	}
	logger.Info("grid search finished",
		zap.Int("points", len(points)),
		zap.String("metric", metricName),
		zap.Float64("best", best.Value),
	)
	return best, all, nil
}
