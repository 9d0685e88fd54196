// Package metrics accumulates scalar diagnostics over a rollout.
package metrics

import (
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

type Metric interface {
	Name() string
	Observe(st *pipeline.State, u []float64, t float64)
	Value() float64
	Reset()
}

// Default returns the metrics recorded for every run of sys.
func Default(sys *system.System) []Metric {
	ms := []Metric{
		NewEnergy(sys),
		NewEnergyDrift(sys),
		NewJointViolation(sys),
		NewControlEffort(sys),
		NewStability(1e3),
	}
	if len(sys.Pairs()) > 0 {
		ms = append(ms, NewPenetration(sys))
	}
	return ms
}

// Values snapshots every metric by name.
func Values(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
