package rollout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

type Runner struct {
	pipeline    pipeline.Pipeline
	sys         *system.System
	controller  control.Controller
	metrics     []metrics.Metric
	observers   []Observer
	logger      *zap.Logger
	recordEvery int
}

type Option func(*Runner)

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func WithMetrics(ms ...metrics.Metric) Option {
	return func(r *Runner) { r.metrics = append(r.metrics, ms...) }
}

func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithRecordEvery keeps every n-th state in the result. The initial and
// final states are always kept.
func WithRecordEvery(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.recordEvery = n
		}
	}
}

// New builds a runner. A nil controller applies zero action.
func New(p pipeline.Pipeline, sys *system.System, ctrl control.Controller, opts ...Option) *Runner {
	if ctrl == nil {
		ctrl = control.NewNone(sys)
	}
	r := &Runner{
		pipeline:    p,
		sys:         sys,
		controller:  ctrl,
		logger:      zap.NewNop(),
		recordEvery: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) AddMetric(m metrics.Metric) { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)     { r.observers = append(r.observers, o) }

// Run steps from (q, qd) for the given number of steps. On failure it
// returns the partial result together with a *StepError.
func (r *Runner) Run(ctx context.Context, q, qd []float64, steps int) (*Result, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}
	st, err := r.pipeline.Init(r.sys, q, qd)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", r.pipeline.Name(), err)
	}

	keep := steps/r.recordEvery + 2
	result := &Result{
		Pipeline: r.pipeline.Name(),
		States:   make([]*pipeline.State, 0, keep),
		Actions:  make([][]float64, 0, keep),
		Times:    make([]float64, 0, keep),
		Metrics:  make(map[string]float64),
	}

	for _, m := range r.metrics {
		m.Reset()
	}
	if rc, ok := r.controller.(control.Resetter); ok {
		rc.Reset()
	}

	log := r.logger.With(zap.String("pipeline", r.pipeline.Name()), zap.Int("steps", steps))
	log.Debug("rollout started")
	start := time.Now()

	t := 0.0
	dt := r.sys.Dt()
	result.States = append(result.States, st)
	result.Times = append(result.Times, t)

	var runErr error
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = &StepError{Step: i, Time: t, Err: err}
			break
		}

		u := r.controller.Compute(st, t)
		for _, m := range r.metrics {
			m.Observe(st, u, t)
		}
		for _, obs := range r.observers {
			obs.OnStep(i, st, u, t)
		}

		next, err := r.pipeline.Step(r.sys, st, u)
		if err != nil {
			runErr = &StepError{Step: i, Time: t, Err: err}
			break
		}
		if !next.IsFinite() {
			runErr = &StepError{Step: i, Time: t, Err: &system.NumericalError{Stage: "state", Reason: "non-finite value after step"}}
			break
		}

		st = next
		t += dt
		result.StepsTaken++
		if result.StepsTaken%r.recordEvery == 0 || i == steps-1 {
			result.States = append(result.States, st)
			result.Actions = append(result.Actions, u)
			result.Times = append(result.Times, t)
		}
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		log.Warn("rollout stopped", zap.Int("steps_taken", result.StepsTaken), zap.Error(runErr))
		return result, runErr
	}
	log.Debug("rollout finished", zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
