package system

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/spatial"
)

// World is the parent index of links attached to the fixed world frame.
const World = -1

type JointType int

const (
	Fixed JointType = iota
	Free
	Revolute
	Prismatic
	Spherical
	Compound
)

func (t JointType) String() string {
	switch t {
	case Fixed:
		return "fixed"
	case Free:
		return "free"
	case Revolute:
		return "revolute"
	case Prismatic:
		return "prismatic"
	case Spherical:
		return "spherical"
	case Compound:
		return "compound"
	}
	return "unknown"
}

type DOFKind int

const (
	Slide DOFKind = iota
	Hinge
)

// DOF is one scalar joint coordinate. Axis is expressed in the parent
// frame at q = 0.
type DOF struct {
	Kind      DOFKind
	Axis      mgl64.Vec3
	Limited   bool
	Range     [2]float64
	Stiffness float64
	Damping   float64
	Armature  float64
}

// Joint connects a link to its parent. Slides come before hinges; hinges
// compose as intrinsic rotations in declaration order.
type Joint struct {
	Type         JointType
	DOFs         []DOF
	ParentAnchor mgl64.Vec3
	ChildAnchor  mgl64.Vec3
	InitQ        []float64
}

func (j Joint) QSize() int {
	if j.Type == Free {
		return 7
	}
	return len(j.DOFs)
}

func (j Joint) QdSize() int {
	if j.Type == Free {
		return 6
	}
	return len(j.DOFs)
}

// Counts returns the number of slide and hinge DOFs.
func (j Joint) Counts() (slides, hinges int) {
	for _, d := range j.DOFs {
		if d.Kind == Slide {
			slides++
		} else {
			hinges++
		}
	}
	return slides, hinges
}

// Link is a rigid body. Its frame origin is its centre of mass.
type Link struct {
	Name    string
	Parent  int
	Mass    float64
	Inertia mgl64.Mat3
	Joint   Joint

	// ConstraintLimitStiffness scales how much of a limit violation the
	// positional solver removes per step. Zero disables limits.
	ConstraintLimitStiffness float64
	// ConstraintAngDamping damps relative angular velocity across the joint.
	ConstraintAngDamping float64
}

type Shape int

const (
	Plane Shape = iota
	Sphere
	Capsule
	Box
)

func (s Shape) String() string {
	switch s {
	case Plane:
		return "plane"
	case Sphere:
		return "sphere"
	case Capsule:
		return "capsule"
	case Box:
		return "box"
	}
	return "unknown"
}

// Geometry is a collision primitive attached to a link (or to the world).
// Planes have their normal along local +Z; capsules run along local Z.
type Geometry struct {
	Link            int
	Shape           Shape
	Offset          spatial.Transform
	Radius          float64
	HalfLength      float64
	HalfExtents     mgl64.Vec3
	Friction        float64
	ContactType     uint32
	ContactAffinity uint32
}

type ActuatorKind int

const (
	Motor ActuatorKind = iota
	Position
)

type Actuator struct {
	Name      string
	DOF       int
	Kind      ActuatorKind
	Gear      float64
	Kp        float64
	Kd        float64
	CtrlRange [2]float64
}

type Params struct {
	Dt               float64
	Gravity          mgl64.Vec3
	SolverIterations int
	CollideScale     float64
	AngDamping       float64
	ContactMargin    float64
}

func DefaultParams() Params {
	return Params{
		Dt:               0.002,
		Gravity:          mgl64.Vec3{0, 0, -9.81},
		SolverIterations: 8,
		CollideScale:     1,
		AngDamping:       0,
		ContactMargin:    0.01,
	}
}

// Pair is a geometry pair eligible for narrow-phase collision.
type Pair struct {
	A, B int
}
