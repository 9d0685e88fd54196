// Package scenario runs scripted sets of experiments: named run lists,
// parameter sweeps and Monte Carlo perturbation studies.
package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/rollout"
)

// Scenario is a named list of runs.
type Scenario struct {
	Name        string
	Description string
	Runs        []Run
}

type Run struct {
	Name   string
	Config *config.Config
}

type scenarioFile struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Runs        []yaml.Node `yaml:"runs"`
}

// Load reads a scenario file. Each run is decoded over the default
// configuration and may carry a "name" key.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(file.Runs) == 0 {
		return nil, fmt.Errorf("scenario %q has no runs", file.Name)
	}

	sc := &Scenario{Name: file.Name, Description: file.Description}
	for i := range file.Runs {
		cfg := config.DefaultConfig()
		if err := file.Runs[i].Decode(cfg); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		var named struct {
			Name string `yaml:"name"`
		}
		if err := file.Runs[i].Decode(&named); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		if named.Name == "" {
			named.Name = fmt.Sprintf("%s-%d", cfg.Fixture, i+1)
		}
		sc.Runs = append(sc.Runs, Run{Name: named.Name, Config: cfg})
	}
	return sc, nil
}

// Jobs resolves every run into an independent batch job.
func (s *Scenario) Jobs(reg *experiment.Registry, logger *zap.Logger) ([]rollout.Job, error) {
	jobs := make([]rollout.Job, 0, len(s.Runs))
	for _, run := range s.Runs {
		exp, err := experiment.New(run.Config, reg, logger)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", run.Name, err)
		}
		jobs = append(jobs, exp.Job(run.Name))
	}
	return jobs, nil
}

// RunScenario executes all runs of a scenario on the batch runner.
func RunScenario(ctx context.Context, s *Scenario, reg *experiment.Registry, batch *rollout.Batch, logger *zap.Logger) ([]*rollout.Result, error) {
	jobs, err := s.Jobs(reg, logger)
	if err != nil {
		return nil, err
	}
	return batch.Run(ctx, jobs)
}

// ParameterSweep varies one system override across evenly spaced values.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	Result     *rollout.Result
}

// SetOverride sets a numeric override by its YAML name.
func SetOverride(o *config.Overrides, name string, v float64) error {
	switch name {
	case "dt":
		o.Dt = &v
	case "solver_iterations":
		n := int(v)
		o.SolverIterations = &n
	case "collide_scale":
		o.CollideScale = &v
	case "ang_damping":
		o.AngDamping = &v
	case "contact_margin":
		o.ContactMargin = &v
	case "constraint_limit_stiffness":
		o.ConstraintLimitStiffness = &v
	case "constraint_ang_damping":
		o.ConstraintAngDamping = &v
	case "joint_damping":
		o.JointDamping = &v
	default:
		return fmt.Errorf("unknown override %q", name)
	}
	return nil
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, reg *experiment.Registry, batch *rollout.Batch, logger *zap.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	values := make([]float64, sweep.NumSteps)
	jobs := make([]rollout.Job, sweep.NumSteps)
	for i := range values {
		values[i] = sweep.ParamMin + float64(i)*paramStep
		cfg := sweep.Base.Clone()
		if err := SetOverride(&cfg.Overrides, sweep.ParamName, values[i]); err != nil {
			return nil, err
		}
		exp, err := experiment.New(cfg, reg, logger)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, values[i], err)
		}
		jobs[i] = exp.Job(fmt.Sprintf("%s=%g", sweep.ParamName, values[i]))
	}

	results, err := batch.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	out := make([]SweepResult, len(results))
	for i, res := range results {
		out[i] = SweepResult{ParamValue: values[i], Metrics: res.Metrics, Result: res}
	}
	return out, nil
}

// MonteCarloConfig perturbs the initial generalized coordinates of a base
// configuration uniformly by up to Perturbation.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID int
	Q, Qd   []float64
	Result  *rollout.Result
	// Stable reports whether every observed state stayed finite and bounded.
	Stable bool
}

// RunMonteCarlo executes multiple trials with random perturbations. Only
// position coordinates of non-free joints and free-joint translations are
// perturbed, so quaternions stay normalised.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, reg *experiment.Registry, batch *rollout.Batch, logger *zap.Logger) ([]MonteCarloResult, error) {
	base, err := experiment.New(mc.Base, reg, logger)
	if err != nil {
		return nil, err
	}
	sys := base.System()
	baseQ, baseQd := mc.Base.InitState(sys)
	perturbable := analysis.PerturbableCoords(sys)

	rng := rand.New(rand.NewSource(mc.Seed))
	out := make([]MonteCarloResult, mc.NumTrials)
	jobs := make([]rollout.Job, mc.NumTrials)
	for trial := range jobs {
		cfg := mc.Base.Clone()
		cfg.Q = append([]float64(nil), baseQ...)
		cfg.Qd = append([]float64(nil), baseQd...)
		for _, i := range perturbable {
			cfg.Q[i] += (rng.Float64() - 0.5) * 2 * mc.Perturbation
		}
		// controllers are stateful, so every trial gets its own
		exp, err := experiment.New(cfg, reg, logger)
		if err != nil {
			return nil, err
		}
		jobs[trial] = exp.Job(fmt.Sprintf("trial-%d", trial))
		out[trial] = MonteCarloResult{TrialID: trial, Q: cfg.Q, Qd: cfg.Qd}
	}

	results, err := batch.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		out[i].Result = res
		out[i].Stable = res.Metrics["stability"] == 1
	}
	return out, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
