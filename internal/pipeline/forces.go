package pipeline

import "github.com/san-kum/rigidsim/internal/system"

// JointForces maps a clipped action plus passive joint springs and
// dampers to generalized forces, one per velocity coordinate.
func JointForces(sys *system.System, q, qd, action []float64) []float64 {
	tau := make([]float64, sys.QdSize())
	for i := 0; i < sys.NumLinks(); i++ {
		l := sys.Link(i)
		if l.Joint.Type == system.Free {
			continue
		}
		qOff, qdOff := sys.QOffset(i), sys.QdOffset(i)
		for k, d := range l.Joint.DOFs {
			tau[qdOff+k] -= d.Damping*qd[qdOff+k] + d.Stiffness*q[qOff+k]
		}
	}
	for i, a := range action {
		act := sys.Actuator(i)
		switch act.Kind {
		case system.Motor:
			tau[act.DOF] += act.Gear * a
		case system.Position:
			pos, ok := Coordinate(sys, q, act.DOF)
			if !ok {
				continue
			}
			tau[act.DOF] += act.Kp*(a-pos) - act.Kd*qd[act.DOF]
		}
	}
	return tau
}

// Coordinate returns the position coordinate paired with velocity index
// dof. Free joints have no such scalar and report false.
func Coordinate(sys *system.System, q []float64, dof int) (float64, bool) {
	i := sys.DOFLink(dof)
	l := sys.Link(i)
	if l.Joint.Type == system.Free {
		return 0, false
	}
	return q[sys.QOffset(i)+dof-sys.QdOffset(i)], true
}
