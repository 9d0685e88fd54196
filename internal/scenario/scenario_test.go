package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/rollout"
)

const sample = `
name: contact study
description: capsule and box on the floor
runs:
  - name: slide
    fixture: capsule
    steps: 50
    qd: [5, 0, 0, 0, 0, 0]
    overrides:
      collide_scale: 0.25
  - fixture: box
    pipeline: generalized
    integrator: rk4
    steps: 40
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "contact study", sc.Name)
	require.Len(t, sc.Runs, 2)

	assert.Equal(t, "slide", sc.Runs[0].Name)
	assert.Equal(t, "positional", sc.Runs[0].Config.Pipeline)
	assert.Equal(t, 0.25, *sc.Runs[0].Config.Overrides.CollideScale)

	assert.Equal(t, "box-2", sc.Runs[1].Name)
	assert.Equal(t, "rk4", sc.Runs[1].Config.Integrator)
	assert.Equal(t, config.DefaultKp, sc.Runs[1].Config.ControllerParams.Kp)
}

func TestParseErrors(t *testing.T) {
	for name, data := range map[string]string{
		"no runs":      "name: empty\n",
		"bad pipeline": "runs:\n  - pipeline: magic\n",
		"bad yaml":     "runs: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	sc, err := Load(path)
	require.NoError(t, err)

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), rollout.NewBatch(rollout.WithWorkers(2)), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "positional", results[0].Pipeline)
	assert.Equal(t, 50, results[0].StepsTaken)
	assert.Equal(t, "generalized", results[1].Pipeline)
	assert.Equal(t, 40, results[1].StepsTaken)
}

func TestRunSweep(t *testing.T) {
	base := config.DefaultConfig()
	base.Steps = 20
	sweep := &ParameterSweep{Base: base, ParamName: "dt", ParamMin: 0.001, ParamMax: 0.003, NumSteps: 3}
	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry(), rollout.NewBatch(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, want := range []float64{0.001, 0.002, 0.003} {
		assert.InDelta(t, want, results[i].ParamValue, 1e-12)
		assert.InDelta(t, 20*want, results[i].Result.Times[len(results[i].Result.Times)-1], 1e-12)
	}
	assert.Nil(t, base.Overrides.Dt, "sweep must not modify the base config")

	sweep.ParamName = "viscosity"
	_, err = RunSweep(context.Background(), sweep, experiment.NewRegistry(), rollout.NewBatch(), zap.NewNop())
	assert.Error(t, err)
}

func TestRunMonteCarlo(t *testing.T) {
	base := config.DefaultConfig()
	base.Fixture = "double_pendulum"
	base.Steps = 50
	mc := &MonteCarloConfig{Base: base, Perturbation: 0.2, NumTrials: 4, Seed: 3}
	results, err := RunMonteCarlo(context.Background(), mc, experiment.NewRegistry(), rollout.NewBatch(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		for _, q := range r.Q {
			assert.LessOrEqual(t, q*q, 0.04)
		}
	}
	assert.NotEqual(t, results[0].Q, results[1].Q)
	stable, unstable := MonteCarloStats(results)
	assert.Equal(t, 4, stable)
	assert.Zero(t, unstable)

	again, err := RunMonteCarlo(context.Background(), mc, experiment.NewRegistry(), rollout.NewBatch(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, results[2].Q, again[2].Q)
}
