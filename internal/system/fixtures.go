package system

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/spatial"
)

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

var fixtures = map[string]func() (*System, error){
	"pendulum":           Pendulum,
	"double_pendulum":    DoublePendulum,
	"spherical_pendulum": SphericalPendulum,
	"triple_prismatic":   TriplePrismatic,
	"prismaversal":       Prismaversal,
	"capsule":            CapsuleOnPlane,
	"capsule_pair":       CapsulePair,
	"box":                BoxOnPlane,
}

// Fixture builds a named reference system.
func Fixture(name string) (*System, error) {
	build, ok := fixtures[name]
	if !ok {
		return nil, fmt.Errorf("unknown fixture: %s", name)
	}
	return build()
}

func FixtureNames() []string {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func floor() Geometry {
	return Geometry{Link: World, Shape: Plane, Offset: spatial.Identity(), Friction: 1}
}

// alongX turns a capsule's local Z axis onto the link's X axis.
func alongX() spatial.Transform {
	return spatial.Transform{Rot: spatial.AxisAngle(axisY, math.Pi/2)}
}

func motor(name string, dof int) Actuator {
	return Actuator{Name: name, DOF: dof, Kind: Motor, Gear: 1, CtrlRange: [2]float64{-1, 1}}
}

// Pendulum is a 1 m rod hinged about world Y at one end. At q = 0 it
// lies along +X.
func Pendulum() (*System, error) {
	rod := Link{
		Name:    "pole",
		Parent:  World,
		Mass:    1,
		Inertia: spatial.WorldInertia(alongX().Rot, CapsuleInertia(1, 0.05, 0.45)),
		Joint: Joint{
			Type:        Revolute,
			DOFs:        []DOF{{Kind: Hinge, Axis: axisY}},
			ChildAnchor: mgl64.Vec3{-0.5, 0, 0},
		},
		ConstraintLimitStiffness: 1e4,
	}
	geoms := []Geometry{{Link: 0, Shape: Capsule, Offset: alongX(), Radius: 0.05, HalfLength: 0.45, Friction: 1}}
	params := DefaultParams()
	params.Dt = 5e-4
	return New([]Link{rod}, geoms, []Actuator{motor("hinge", 0)}, params)
}

// DoublePendulum hangs two 1 m rods along -Z, both hinged about Y.
func DoublePendulum() (*System, error) {
	rod := func(name string, parent int, anchor mgl64.Vec3) Link {
		return Link{
			Name:    name,
			Parent:  parent,
			Mass:    1,
			Inertia: CapsuleInertia(1, 0.05, 0.45),
			Joint: Joint{
				Type:         Revolute,
				DOFs:         []DOF{{Kind: Hinge, Axis: axisY}},
				ParentAnchor: anchor,
				ChildAnchor:  mgl64.Vec3{0, 0, 0.5},
			},
			ConstraintLimitStiffness: 1e4,
		}
	}
	links := []Link{
		rod("upper", World, mgl64.Vec3{}),
		rod("lower", 0, mgl64.Vec3{0, 0, -0.5}),
	}
	geoms := []Geometry{
		{Link: 0, Shape: Capsule, Radius: 0.05, HalfLength: 0.45, Friction: 1},
		{Link: 1, Shape: Capsule, Radius: 0.05, HalfLength: 0.45, Friction: 1},
	}
	params := DefaultParams()
	params.Dt = 5e-4
	return New(links, geoms, []Actuator{motor("shoulder", 0), motor("elbow", 1)}, params)
}

// SphericalPendulum hangs a rod from a ball joint built from X, Y and Z
// hinges.
func SphericalPendulum() (*System, error) {
	limit := [2]float64{-1.5, 1.5}
	rod := Link{
		Name:    "bob",
		Parent:  World,
		Mass:    1,
		Inertia: CapsuleInertia(1, 0.1, 0.4),
		Joint: Joint{
			Type: Spherical,
			DOFs: []DOF{
				{Kind: Hinge, Axis: axisX, Limited: true, Range: limit},
				{Kind: Hinge, Axis: axisY, Limited: true, Range: limit},
				{Kind: Hinge, Axis: axisZ, Limited: true, Range: limit},
			},
			ChildAnchor: mgl64.Vec3{0, 0, 0.5},
		},
		ConstraintLimitStiffness: 1e4,
	}
	params := DefaultParams()
	params.Dt = 1e-3
	actuators := []Actuator{motor("x", 0), motor("y", 1), motor("z", 2)}
	return New([]Link{rod}, nil, actuators, params)
}

// TriplePrismatic slides a box along world X, Y and Z without gravity.
func TriplePrismatic() (*System, error) {
	limit := [2]float64{-5, 0.5}
	body := Link{
		Name:    "slider",
		Parent:  World,
		Mass:    1,
		Inertia: BoxInertia(1, mgl64.Vec3{0.1, 0.1, 0.1}),
		Joint: Joint{
			Type: Prismatic,
			DOFs: []DOF{
				{Kind: Slide, Axis: axisX, Limited: true, Range: limit},
				{Kind: Slide, Axis: axisY, Limited: true, Range: limit},
				{Kind: Slide, Axis: axisZ, Limited: true, Range: limit},
			},
		},
		ConstraintLimitStiffness: 1e4,
	}
	params := DefaultParams()
	params.Dt = 1e-3
	params.Gravity = mgl64.Vec3{}
	actuators := []Actuator{motor("x", 0), motor("y", 1), motor("z", 2)}
	return New([]Link{body}, nil, actuators, params)
}

// Prismaversal slides along X and Z and turns about Y.
func Prismaversal() (*System, error) {
	slide := [2]float64{-5, 0.5}
	body := Link{
		Name:    "carriage",
		Parent:  World,
		Mass:    1,
		Inertia: BoxInertia(1, mgl64.Vec3{0.2, 0.1, 0.1}),
		Joint: Joint{
			Type: Compound,
			DOFs: []DOF{
				{Kind: Slide, Axis: axisX, Limited: true, Range: slide},
				{Kind: Slide, Axis: axisZ, Limited: true, Range: slide},
				{Kind: Hinge, Axis: axisY, Limited: true, Range: [2]float64{-3, 0.5}},
			},
		},
		ConstraintLimitStiffness: 1e4,
	}
	params := DefaultParams()
	params.Dt = 1e-3
	params.Gravity = mgl64.Vec3{}
	actuators := []Actuator{motor("x", 0), motor("z", 1), motor("pitch", 2)}
	return New([]Link{body}, nil, actuators, params)
}

// CapsuleOnPlane rests a free capsule (axis along X) on the floor.
func CapsuleOnPlane() (*System, error) {
	capsule := Link{
		Name:    "capsule",
		Parent:  World,
		Mass:    1,
		Inertia: spatial.WorldInertia(alongX().Rot, CapsuleInertia(1, 0.25, 0.5)),
		Joint: Joint{
			Type:  Free,
			InitQ: []float64{0, 0, 0.25, 1, 0, 0, 0},
		},
	}
	geoms := []Geometry{
		floor(),
		{Link: 0, Shape: Capsule, Offset: alongX(), Radius: 0.25, HalfLength: 0.5, Friction: 1},
	}
	params := DefaultParams()
	params.Dt = 1e-3
	return New([]Link{capsule}, geoms, nil, params)
}

// CapsulePair drops a capsule crosswise onto another one lying on the
// floor.
func CapsulePair() (*System, error) {
	inertia := spatial.WorldInertia(alongX().Rot, CapsuleInertia(1, 0.1, 0.4))
	links := []Link{
		{Name: "bottom", Parent: World, Mass: 1, Inertia: inertia,
			Joint: Joint{Type: Free, InitQ: []float64{0, 0, 0.1, 1, 0, 0, 0}}},
		{Name: "top", Parent: World, Mass: 1, Inertia: inertia,
			Joint: Joint{Type: Free, InitQ: []float64{0, 0, 0.5, math.Sqrt2 / 2, 0, 0, math.Sqrt2 / 2}}},
	}
	geoms := []Geometry{
		floor(),
		{Link: 0, Shape: Capsule, Offset: alongX(), Radius: 0.1, HalfLength: 0.4, Friction: 1},
		{Link: 1, Shape: Capsule, Offset: alongX(), Radius: 0.1, HalfLength: 0.4, Friction: 1},
	}
	params := DefaultParams()
	params.Dt = 1e-3
	return New(links, geoms, nil, params)
}

// BoxOnPlane drops a box from half a metre.
func BoxOnPlane() (*System, error) {
	half := mgl64.Vec3{0.2, 0.15, 0.1}
	box := Link{
		Name:    "box",
		Parent:  World,
		Mass:    2,
		Inertia: BoxInertia(2, half),
		Joint:   Joint{Type: Free, InitQ: []float64{0, 0, 0.5, 1, 0, 0, 0}},
	}
	geoms := []Geometry{
		floor(),
		{Link: 0, Shape: Box, HalfExtents: half, Friction: 0.8},
	}
	params := DefaultParams()
	params.Dt = 1e-3
	return New([]Link{box}, geoms, nil, params)
}
