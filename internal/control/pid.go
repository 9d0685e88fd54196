package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

// PID drives the joint coordinate behind each actuator towards its
// target. Actuators on free joints get zero action.
type PID struct {
	Kp      float64
	Ki      float64
	Kd      float64
	Targets []float64

	sys      *system.System
	integral []float64
	prevErr  []float64
	prevT    float64
	first    bool
}

// NewPID builds a controller with shared gains. A nil targets slice
// regulates every coordinate to zero.
func NewPID(sys *system.System, kp, ki, kd float64, targets []float64) (*PID, error) {
	n := sys.NumActuators()
	if targets == nil {
		targets = make([]float64, n)
	}
	if len(targets) != n {
		return nil, &system.DimensionError{Field: "targets", Got: len(targets), Want: n}
	}
	return &PID{
		Kp:       kp,
		Ki:       ki,
		Kd:       kd,
		Targets:  append([]float64(nil), targets...),
		sys:      sys,
		integral: make([]float64, n),
		prevErr:  make([]float64, n),
		first:    true,
	}, nil
}

func (p *PID) Name() string { return "pid" }

func (p *PID) Compute(st *pipeline.State, t float64) []float64 {
	u := make([]float64, len(p.Targets))
	dt := t - p.prevT
	for i := range u {
		pos, ok := pipeline.Coordinate(p.sys, st.Q, p.sys.Actuator(i).DOF)
		if !ok {
			continue
		}
		err := p.Targets[i] - pos
		u[i] = p.Kp * err
		if !p.first && dt > 0 {
			p.integral[i] += err * dt
			u[i] += p.Ki*p.integral[i] + p.Kd*(err-p.prevErr[i])/dt
		}
		p.prevErr[i] = err
	}
	if p.first || dt > 0 {
		p.prevT = t
	}
	p.first = false
	return u
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	for i := range p.integral {
		p.integral[i] = 0
		p.prevErr[i] = 0
	}
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	params := map[string]float64{
		"Kp": p.Kp,
		"Ki": p.Ki,
		"Kd": p.Kd,
	}
	for i, v := range p.Targets {
		params[fmt.Sprintf("Target%d", i)] = v
	}
	return params
}

// SetParam adjusts a gain or one actuator target ("Target0", "Target1", ...).
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	default:
		idx, ok := strings.CutPrefix(name, "Target")
		i, err := strconv.Atoi(idx)
		if !ok || err != nil || i < 0 || i >= len(p.Targets) {
			return fmt.Errorf("pid: unknown parameter %q", name)
		}
		p.Targets[i] = value
	}
	return nil
}
