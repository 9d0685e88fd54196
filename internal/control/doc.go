// Package control computes actions for the actuators of a system.
//
// Controllers see the full pipeline state and the simulation time and
// return one value per actuator:
//
//   - [None]: zero action
//   - [Constant]: a fixed action vector
//   - [Random]: seeded uniform samples inside each actuator's range
//   - [PID]: per-actuator feedback on the actuated joint coordinate
//   - [Gain]: linear state feedback u = -K (s - s*) on s = [q, qd]
//
// # Usage
//
//	pid := control.NewPID(sys, 20, 0, 2, []float64{0.5})
//	runner := rollout.New(positional.New(), sys, pid)
//
// Actions are clipped to the control range by the pipelines, so a
// controller may return any finite value. [ActionSpace] exposes the
// ranges the way an environment wrapper does.
package control
