// Package config loads and saves run descriptions in YAML.
package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigidsim/internal/system"
)

const (
	DefaultFixture    = "pendulum"
	DefaultPipeline   = "positional"
	DefaultIntegrator = "euler"
	DefaultController = "none"
	DefaultSteps      = 2000
	DefaultKp         = 10.0
	DefaultKi         = 0.1
	DefaultKd         = 1.0
)

type Config struct {
	Fixture    string `yaml:"fixture"`
	Pipeline   string `yaml:"pipeline"`
	Integrator string `yaml:"integrator,omitempty"`
	Controller string `yaml:"controller"`
	Steps      int    `yaml:"steps"`
	Seed       int64  `yaml:"seed"`
	// RecordEvery keeps every n-th state of the trajectory.
	RecordEvery      int              `yaml:"record_every,omitempty"`
	Q                []float64        `yaml:"q,omitempty"`
	Qd               []float64        `yaml:"qd,omitempty"`
	Overrides        Overrides        `yaml:"overrides,omitempty"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
}

// Overrides replace system parameters. Unset fields keep the fixture's
// values.
type Overrides struct {
	Dt                       *float64    `yaml:"dt,omitempty"`
	Gravity                  *[3]float64 `yaml:"gravity,omitempty"`
	SolverIterations         *int        `yaml:"solver_iterations,omitempty"`
	CollideScale             *float64    `yaml:"collide_scale,omitempty"`
	AngDamping               *float64    `yaml:"ang_damping,omitempty"`
	ContactMargin            *float64    `yaml:"contact_margin,omitempty"`
	ConstraintLimitStiffness *float64    `yaml:"constraint_limit_stiffness,omitempty"`
	ConstraintAngDamping     *float64    `yaml:"constraint_ang_damping,omitempty"`
	JointDamping             *float64    `yaml:"joint_damping,omitempty"`
}

type ControllerConfig struct {
	Kp      float64   `yaml:"kp"`
	Ki      float64   `yaml:"ki"`
	Kd      float64   `yaml:"kd"`
	Targets []float64 `yaml:"targets,omitempty"`
	// Action is the output of the constant controller.
	Action []float64 `yaml:"action,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Fixture:    DefaultFixture,
		Pipeline:   DefaultPipeline,
		Integrator: DefaultIntegrator,
		Controller: DefaultController,
		Steps:      DefaultSteps,
		ControllerParams: ControllerConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Steps)
	}
	switch c.Pipeline {
	case "generalized", "positional":
	default:
		return fmt.Errorf("unknown pipeline %q", c.Pipeline)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("record_every must not be negative, got %d", c.RecordEvery)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Q = cloneFloats(c.Q)
	out.Qd = cloneFloats(c.Qd)
	out.ControllerParams.Targets = cloneFloats(c.ControllerParams.Targets)
	out.ControllerParams.Action = cloneFloats(c.ControllerParams.Action)
	out.Overrides = c.Overrides.clone()
	return &out
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (o Overrides) clone() Overrides {
	return Overrides{
		Dt:                       clonePtr(o.Dt),
		Gravity:                  clonePtr(o.Gravity),
		SolverIterations:         clonePtr(o.SolverIterations),
		CollideScale:             clonePtr(o.CollideScale),
		AngDamping:               clonePtr(o.AngDamping),
		ContactMargin:            clonePtr(o.ContactMargin),
		ConstraintLimitStiffness: clonePtr(o.ConstraintLimitStiffness),
		ConstraintAngDamping:     clonePtr(o.ConstraintAngDamping),
		JointDamping:             clonePtr(o.JointDamping),
	}
}

// Options converts the set overrides into system options.
func (o Overrides) Options() []system.Option {
	var opts []system.Option
	if o.Dt != nil {
		opts = append(opts, system.WithDt(*o.Dt))
	}
	if o.Gravity != nil {
		opts = append(opts, system.WithGravity(mgl64.Vec3(*o.Gravity)))
	}
	if o.SolverIterations != nil {
		opts = append(opts, system.WithSolverIterations(*o.SolverIterations))
	}
	if o.CollideScale != nil {
		opts = append(opts, system.WithCollideScale(*o.CollideScale))
	}
	if o.AngDamping != nil {
		opts = append(opts, system.WithAngDamping(*o.AngDamping))
	}
	if o.ContactMargin != nil {
		opts = append(opts, system.WithContactMargin(*o.ContactMargin))
	}
	if o.ConstraintLimitStiffness != nil {
		opts = append(opts, system.WithConstraintLimitStiffness(*o.ConstraintLimitStiffness))
	}
	if o.ConstraintAngDamping != nil {
		opts = append(opts, system.WithConstraintAngDamping(*o.ConstraintAngDamping))
	}
	if o.JointDamping != nil {
		opts = append(opts, system.WithJointDamping(*o.JointDamping))
	}
	return opts
}

// System builds the configured fixture with the overrides applied.
func (c *Config) System() (*system.System, error) {
	sys, err := system.Fixture(c.Fixture)
	if err != nil {
		return nil, err
	}
	opts := c.Overrides.Options()
	if len(opts) == 0 {
		return sys, nil
	}
	return sys.With(opts...)
}

// InitState returns the configured coordinates, defaulting to the
// system's initial pose at rest.
func (c *Config) InitState(sys *system.System) (q, qd []float64) {
	q, qd = cloneFloats(c.Q), cloneFloats(c.Qd)
	if q == nil {
		q = sys.InitQ()
	}
	if qd == nil {
		qd = make([]float64, sys.QdSize())
	}
	return q, qd
}
