package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/collision"
	"github.com/san-kum/rigidsim/internal/kinematics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

// JointViolation is the largest distance seen between the two anchor
// points of any non-free joint, measured on the Cartesian state.
type JointViolation struct {
	sys   *system.System
	worst float64
}

func NewJointViolation(sys *system.System) *JointViolation {
	return &JointViolation{sys: sys}
}

func (j *JointViolation) Name() string { return "joint_violation" }

func (j *JointViolation) Observe(st *pipeline.State, u []float64, t float64) {
	j.worst = math.Max(j.worst, AnchorGap(j.sys, st))
}

func (j *JointViolation) Value() float64 { return j.worst }

func (j *JointViolation) Reset() { j.worst = 0 }

// AnchorGap measures how far the child anchors of st sit from where
// their joints and coordinates place them.
func AnchorGap(sys *system.System, st *pipeline.State) float64 {
	worst := 0.0
	for i := 0; i < sys.NumLinks(); i++ {
		l := sys.Link(i)
		if l.Joint.Type == system.Free {
			continue
		}
		parent := spatial.Identity()
		if l.Parent != system.World {
			parent = st.X[l.Parent]
		}
		qo := sys.QOffset(i)
		_, f := kinematics.JointPose(l.Joint, parent, st.Q[qo:qo+l.Joint.QSize()])
		worst = math.Max(worst, st.X[i].Apply(l.Joint.ChildAnchor).Sub(f.Anchor).Len())
	}
	return worst
}

// Penetration is the deepest contact seen.
type Penetration struct {
	sys   *system.System
	worst float64
}

func NewPenetration(sys *system.System) *Penetration {
	return &Penetration{sys: sys}
}

func (p *Penetration) Name() string { return "penetration" }

func (p *Penetration) Observe(st *pipeline.State, u []float64, t float64) {
	for _, c := range collision.Detect(p.sys, st.X) {
		p.worst = math.Max(p.worst, c.Penetration)
	}
}

func (p *Penetration) Value() float64 { return p.worst }

func (p *Penetration) Reset() { p.worst = 0 }
