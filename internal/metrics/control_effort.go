package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// ControlEffort averages, per step, the summed magnitude of what the
// actuators actually apply: each command is clipped to its control range
// the way the pipelines clip it, and motor commands are scaled by gear.
// Position actuators contribute their clipped target.
type ControlEffort struct {
	sys   *system.System
	total float64
	peak  float64
	steps int
}

func NewControlEffort(sys *system.System) *ControlEffort {
	return &ControlEffort{sys: sys}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(st *pipeline.State, u []float64, t float64) {
	step := 0.0
	for i := 0; i < len(u) && i < c.sys.NumActuators(); i++ {
		a := c.sys.Actuator(i)
		applied := spatial.Clamp(u[i], a.CtrlRange[0], a.CtrlRange[1])
		if a.Kind == system.Motor {
			applied *= a.Gear
		}
		step += math.Abs(applied)
	}
	c.total += step
	c.peak = math.Max(c.peak, step)
	c.steps++
}

func (c *ControlEffort) Value() float64 {
	if c.steps == 0 {
		return 0
	}
	return c.total / float64(c.steps)
}

// Peak is the largest single-step effort seen since the last Reset.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() {
	c.total, c.peak, c.steps = 0, 0, 0
}
