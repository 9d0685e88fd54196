package rollout

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

// Job is one independent rollout. Controller and Metrics are owned by the
// job; a nil Metrics slice records the default metrics for System.
type Job struct {
	Name       string
	Pipeline   pipeline.Pipeline
	System     *system.System
	Controller control.Controller
	Metrics    []metrics.Metric
	Q, Qd      []float64
	Steps      int
}

type Batch struct {
	workers  int
	logger   *zap.Logger
	progress func(done, total int)
}

type BatchOption func(*Batch)

func WithWorkers(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithBatchLogger(l *zap.Logger) BatchOption {
	return func(b *Batch) { b.logger = l }
}

// WithProgress registers a callback invoked after each finished job. It
// may be called from several goroutines.
func WithProgress(fn func(done, total int)) BatchOption {
	return func(b *Batch) { b.progress = fn }
}

func NewBatch(opts ...BatchOption) *Batch {
	b := &Batch{
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes the jobs with at most the configured number in flight.
// The first failure cancels the remaining jobs; results keep job order and
// hold nil for jobs that did not complete.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range jobs {
		job := jobs[i]
		idx := i
		g.Go(func() error {
			ms := job.Metrics
			if ms == nil {
				ms = metrics.Default(job.System)
			}
			r := New(job.Pipeline, job.System, job.Controller,
				WithMetrics(ms...),
				WithLogger(b.logger.With(zap.String("job", job.Name))),
			)
			res, err := r.Run(gctx, job.Q, job.Qd, job.Steps)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			results[idx] = res
			n := int(done.Add(1))
			if b.progress != nil {
				b.progress(n, len(jobs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logger.Error("batch failed", zap.Error(err))
		return results, err
	}
	b.logger.Info("batch finished", zap.Int("jobs", len(jobs)), zap.Int("workers", b.workers))
	return results, nil
}

// RunAll executes every job even when some fail. errs[i] holds the error
// of job i; results[i] holds its possibly partial result. Only
// cancellation of ctx stops the remaining jobs.
func (b *Batch) RunAll(ctx context.Context, jobs []Job) (results []*Result, errs []error) {
	results = make([]*Result, len(jobs))
	errs = make([]error, len(jobs))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i := range jobs {
		job := jobs[i]
		idx := i
		g.Go(func() error {
			ms := job.Metrics
			if ms == nil {
				ms = metrics.Default(job.System)
			}
			r := New(job.Pipeline, job.System, job.Controller,
				WithMetrics(ms...),
				WithLogger(b.logger.With(zap.String("job", job.Name))),
			)
			results[idx], errs[idx] = r.Run(ctx, job.Q, job.Qd, job.Steps)
			n := int(done.Add(1))
			if b.progress != nil {
				b.progress(n, len(jobs))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}
