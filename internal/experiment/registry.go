package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/generalized"
	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/positional"
	"github.com/san-kum/rigidsim/internal/system"
)

type controllerFactory func(sys *system.System, params config.ControllerConfig, seed int64) (control.Controller, error)

// Registry resolves the names used in run configurations.
type Registry struct {
	pipelines   map[string]func(integrators.Integrator) pipeline.Pipeline
	integrators map[string]func() integrators.Integrator
	controllers map[string]controllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		pipelines:   make(map[string]func(integrators.Integrator) pipeline.Pipeline),
		integrators: make(map[string]func() integrators.Integrator),
		controllers: make(map[string]controllerFactory),
	}

	r.pipelines["generalized"] = func(integ integrators.Integrator) pipeline.Pipeline {
		return generalized.New(generalized.WithIntegrator(integ))
	}
	r.pipelines["positional"] = func(integrators.Integrator) pipeline.Pipeline { return positional.New() }

	r.integrators["euler"] = func() integrators.Integrator { return integrators.NewSemiImplicitEuler() }
	r.integrators["rk4"] = func() integrators.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() integrators.Integrator { return integrators.NewRK45() }
	r.integrators["verlet"] = func() integrators.Integrator { return integrators.NewVelocityVerlet() }

	r.controllers["none"] = func(sys *system.System, _ config.ControllerConfig, _ int64) (control.Controller, error) {
		return control.NewNone(sys), nil
	}
	r.controllers["constant"] = func(sys *system.System, p config.ControllerConfig, _ int64) (control.Controller, error) {
		return control.NewConstant(sys, p.Action)
	}
	r.controllers["random"] = func(sys *system.System, _ config.ControllerConfig, seed int64) (control.Controller, error) {
		return control.NewRandom(sys, seed), nil
	}
	r.controllers["pid"] = func(sys *system.System, p config.ControllerConfig, _ int64) (control.Controller, error) {
		return control.NewPID(sys, p.Kp, p.Ki, p.Kd, p.Targets)
	}
	r.controllers["gain"] = func(sys *system.System, p config.ControllerConfig, _ int64) (control.Controller, error) {
		target := 0.0
		if len(p.Targets) > 0 {
			target = p.Targets[0]
		}
		return control.NewPendulumGain(sys, target)
	}

	return r
}

// GetPipeline builds a pipeline. The integrator only matters for the
// generalized pipeline; an empty name selects semi-implicit Euler.
func (r *Registry) GetPipeline(name, integrator string) (pipeline.Pipeline, error) {
	fn, ok := r.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline: %s", name)
	}
	if integrator == "" {
		integrator = config.DefaultIntegrator
	}
	integ, err := r.GetIntegrator(integrator)
	if err != nil {
		return nil, err
	}
	return fn(integ), nil
}

func (r *Registry) GetIntegrator(name string) (integrators.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, sys *system.System, params config.ControllerConfig, seed int64) (control.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	ctrl, err := fn(sys, params, seed)
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", name, err)
	}
	return ctrl, nil
}

func (r *Registry) ListFixtures() []string { return system.FixtureNames() }

func (r *Registry) ListPipelines() []string   { return sortedKeys(r.pipelines) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(sys *system.System) []metrics.Metric {
	return metrics.Default(sys)
}
