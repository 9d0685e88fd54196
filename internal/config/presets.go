package config

import "sort"

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": {
			Fixture: "pendulum", Pipeline: "positional", Steps: 4000,
			Q: []float64{0.2}, Qd: []float64{0},
		},
		"large": {
			Fixture: "pendulum", Pipeline: "generalized", Integrator: "rk4", Steps: 4000,
			Q: []float64{-1.2}, Qd: []float64{0},
		},
		"hold": {
			Fixture: "pendulum", Pipeline: "positional", Controller: "pid", Steps: 6000,
			Q: []float64{1.5}, Qd: []float64{0},
			ControllerParams: ControllerConfig{Kp: 20, Kd: 2, Targets: []float64{0.5}},
		},
	},
	"double_pendulum": {
		"gentle": {
			Fixture: "double_pendulum", Pipeline: "positional", Steps: 4000,
			Q: []float64{0.3, 0.3}, Qd: []float64{0, 0},
		},
		"chaos": {
			Fixture: "double_pendulum", Pipeline: "generalized", Integrator: "rk4", Steps: 20000,
			Q: []float64{3.0, 3.0}, Qd: []float64{0, 0},
		},
	},
	"spherical_pendulum": {
		"swirl": {
			Fixture: "spherical_pendulum", Pipeline: "positional", Steps: 1000,
			Q: []float64{0.1, 0.2, 0.3}, Qd: []float64{0.05, 0.03, 0.08},
			Overrides: Overrides{
				SolverIterations:         iptr(500),
				ConstraintLimitStiffness: f64(0),
			},
		},
	},
	"triple_prismatic": {
		"bounce": {
			Fixture: "triple_prismatic", Pipeline: "positional", Steps: 1000,
			Q: []float64{0, 0, 0}, Qd: []float64{2.5, 2.5, 2.5},
		},
	},
	"prismaversal": {
		"bounce": {
			Fixture: "prismaversal", Pipeline: "positional", Steps: 1000,
			Q: []float64{0, 0, 0}, Qd: []float64{2.5, 2.5, 2.5},
		},
	},
	"capsule": {
		"slide": {
			Fixture: "capsule", Pipeline: "positional", Steps: 1000,
			Qd:        []float64{5, 0, 0, 0, 0, 0},
			Overrides: Overrides{CollideScale: f64(0.25)},
		},
	},
	"capsule_pair": {
		"stack": {
			Fixture: "capsule_pair", Pipeline: "positional", Steps: 1500,
		},
	},
	"box": {
		"drop": {
			Fixture: "box", Pipeline: "positional", Steps: 1500,
		},
	},
}

// GetPreset returns a copy of the named preset with unset controller
// gains filled from the defaults, or nil.
func GetPreset(fixture, preset string) *Config {
	fixturePresets, ok := Presets[fixture]
	if !ok {
		return nil
	}
	cfg, ok := fixturePresets[preset]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	if out.Controller == "" {
		out.Controller = DefaultController
	}
	if out.Integrator == "" {
		out.Integrator = DefaultIntegrator
	}
	if out.ControllerParams.Kp == 0 && out.ControllerParams.Kd == 0 {
		out.ControllerParams.Kp = DefaultKp
		out.ControllerParams.Ki = DefaultKi
		out.ControllerParams.Kd = DefaultKd
	}
	return out
}

func ListPresets(fixture string) []string {
	fixturePresets, ok := Presets[fixture]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(fixturePresets))
	for name := range fixturePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
