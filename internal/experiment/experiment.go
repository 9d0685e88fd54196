// Package experiment turns a run configuration into a ready rollout.
package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/rollout"
	"github.com/san-kum/rigidsim/internal/system"
)

type Experiment struct {
	cfg        *config.Config
	sys        *system.System
	pipeline   pipeline.Pipeline
	controller control.Controller
	metrics    []metrics.Metric
	runner     *rollout.Runner
}

// New resolves every name in cfg. The config is copied.
func New(cfg *config.Config, reg *Registry, logger *zap.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.Clone()

	sys, err := cfg.System()
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", cfg.Fixture, err)
	}
	p, err := reg.GetPipeline(cfg.Pipeline, cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := reg.GetController(cfg.Controller, sys, cfg.ControllerParams, cfg.Seed)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:        cfg,
		sys:        sys,
		pipeline:   p,
		controller: ctrl,
		metrics:    reg.DefaultMetrics(sys),
	}
	e.runner = rollout.New(p, sys, ctrl,
		rollout.WithMetrics(e.metrics...),
		rollout.WithRecordEvery(cfg.RecordEvery),
		rollout.WithLogger(logger.With(zap.String("fixture", cfg.Fixture))),
	)
	return e, nil
}

func (e *Experiment) Config() *config.Config         { return e.cfg }
func (e *Experiment) System() *system.System         { return e.sys }
func (e *Experiment) Pipeline() pipeline.Pipeline    { return e.pipeline }
func (e *Experiment) Controller() control.Controller { return e.controller }

// Runner returns the underlying runner for adding observers.
func (e *Experiment) Runner() *rollout.Runner { return e.runner }

func (e *Experiment) Run(ctx context.Context) (*rollout.Result, error) {
	q, qd := e.cfg.InitState(e.sys)
	return e.runner.Run(ctx, q, qd, e.cfg.Steps)
}

// Job describes the experiment as an independent batch job.
func (e *Experiment) Job(name string) rollout.Job {
	q, qd := e.cfg.InitState(e.sys)
	return rollout.Job{
		Name:       name,
		Pipeline:   e.pipeline,
		System:     e.sys,
		Controller: e.controller,
		Metrics:    e.metrics,
		Q:          q,
		Qd:         qd,
		Steps:      e.cfg.Steps,
	}
}
