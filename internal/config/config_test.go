package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/rigidsim/internal/system"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Fixture != "pendulum" {
		t.Errorf("expected fixture pendulum, got %s", cfg.Fixture)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fixture = "capsule"
	cfg.Q = []float64{0, 0, 0.3, 1, 0, 0, 0}
	cfg.Overrides.CollideScale = f64(0.25)
	cfg.Overrides.Gravity = &[3]float64{0, 0, -1.62}
	cfg.ControllerParams.Targets = []float64{1}

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := "fixture: box\noverrides:\n  dt: 0.0005\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Fixture = "box"
	want.Overrides.Dt = f64(0.0005)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad pipeline", "pipeline: implicit\n"},
		{"no steps", "steps: 0\n"},
		{"bad yaml", "steps: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "run.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSystemAppliesOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fixture = "spherical_pendulum"
	cfg.Overrides = Overrides{
		Dt:                       f64(0.004),
		SolverIterations:         iptr(3),
		ConstraintLimitStiffness: f64(0),
	}
	sys, err := cfg.System()
	if err != nil {
		t.Fatal(err)
	}
	if sys.Dt() != 0.004 || sys.SolverIterations() != 3 {
		t.Errorf("overrides not applied: dt %g iterations %d", sys.Dt(), sys.SolverIterations())
	}
	if k := sys.Link(0).ConstraintLimitStiffness; k != 0 {
		t.Errorf("expected limit stiffness 0, got %g", k)
	}

	cfg.Overrides = Overrides{Dt: f64(-1)}
	if _, err := cfg.System(); !errors.Is(err, system.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestInitState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fixture = "capsule"
	sys, err := cfg.System()
	if err != nil {
		t.Fatal(err)
	}
	q, qd := cfg.InitState(sys)
	if diff := cmp.Diff(sys.InitQ(), q); diff != "" {
		t.Errorf("default q mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(make([]float64, 6), qd); diff != "" {
		t.Errorf("default qd mismatch:\n%s", diff)
	}

	cfg.Qd = []float64{1, 0, 0, 0, 0, 0}
	_, qd = cfg.InitState(sys)
	qd[0] = 5
	if cfg.Qd[0] != 1 {
		t.Error("InitState must not alias the config")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("capsule", "slide")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Qd[0] != 5 || *cfg.Overrides.CollideScale != 0.25 {
		t.Errorf("unexpected preset %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset should validate: %v", err)
	}

	*cfg.Overrides.CollideScale = 1
	if again := GetPreset("capsule", "slide"); *again.Overrides.CollideScale != 0.25 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("pendulum", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "small"); cfg != nil {
		t.Error("expected nil for nonexistent fixture")
	}
}

func TestPresetsBuild(t *testing.T) {
	for fixture := range Presets {
		for _, name := range ListPresets(fixture) {
			cfg := GetPreset(fixture, name)
			sys, err := cfg.System()
			if err != nil {
				t.Errorf("%s/%s: %v", fixture, name, err)
				continue
			}
			q, qd := cfg.InitState(sys)
			if len(q) != sys.QSize() || len(qd) != sys.QdSize() {
				t.Errorf("%s/%s: state sizes %d/%d, want %d/%d", fixture, name, len(q), len(qd), sys.QSize(), sys.QdSize())
			}
		}
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent fixture")
	}
}
