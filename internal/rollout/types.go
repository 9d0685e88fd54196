// Package rollout drives a pipeline for many steps under a controller,
// collecting trajectories and metrics.
package rollout

import (
	"fmt"

	"github.com/san-kum/rigidsim/internal/pipeline"
)

// Observer sees every state before it is stepped.
type Observer interface {
	OnStep(step int, st *pipeline.State, u []float64, t float64)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(step int, st *pipeline.State, u []float64, t float64)

func (f ObserverFunc) OnStep(step int, st *pipeline.State, u []float64, t float64) {
	f(step, st, u, t)
}

// StepError wraps a failure with the step at which it happened.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Result struct {
	Pipeline   string
	States     []*pipeline.State
	Actions    [][]float64
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
}

// Final is the last recorded state.
func (r *Result) Final() *pipeline.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
