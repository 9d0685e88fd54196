package collision

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigidsim/internal/kinematics"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

func forward(t *testing.T, sys *system.System, q []float64) []spatial.Transform {
	t.Helper()
	x, _ := kinematics.Forward(sys, q, make([]float64, sys.QdSize()))
	return x
}

func TestCapsuleRestingOnPlane(t *testing.T) {
	sys, err := system.CapsuleOnPlane()
	require.NoError(t, err)

	q := []float64{0, 0, 0.24, 1, 0, 0, 0}
	contacts := Detect(sys, forward(t, sys, q))
	require.Len(t, contacts, 2)

	for _, c := range contacts {
		assert.Equal(t, system.World, c.LinkA)
		assert.Equal(t, 0, c.LinkB)
		assert.InDelta(t, 0.01, c.Penetration, 1e-12)
		assert.InDelta(t, 0, c.Normal.Sub(mgl64.Vec3{0, 0, 1}).Len(), 1e-12)
		assert.InDelta(t, 1.0, c.Friction, 1e-12)
		assert.InDelta(t, 0.5, math.Abs(c.LocalB[0]), 1e-12)
		assert.InDelta(t, -0.25, c.LocalB[2], 1e-12)
	}
	assert.Less(t, contacts[0].Pos[0], contacts[1].Pos[0])
}

func TestContactMargin(t *testing.T) {
	sys, err := system.CapsuleOnPlane()
	require.NoError(t, err)

	near := Detect(sys, forward(t, sys, []float64{0, 0, 0.255, 1, 0, 0, 0}))
	assert.Len(t, near, 2)
	for _, c := range near {
		assert.InDelta(t, -0.005, c.Penetration, 1e-12)
	}

	far := Detect(sys, forward(t, sys, []float64{0, 0, 0.3, 1, 0, 0, 0}))
	assert.Empty(t, far)
}

func TestBoxCorners(t *testing.T) {
	sys, err := system.BoxOnPlane()
	require.NoError(t, err)

	contacts := Detect(sys, forward(t, sys, []float64{0, 0, 0.09, 1, 0, 0, 0}))
	require.Len(t, contacts, 4)
	for _, c := range contacts {
		assert.InDelta(t, 0.01, c.Penetration, 1e-12)
		assert.InDelta(t, -0.1, c.LocalB[2], 1e-12)
		assert.InDelta(t, math.Sqrt(0.8), c.Friction, 1e-12)
	}
}

func TestCrossedCapsules(t *testing.T) {
	sys, err := system.CapsulePair()
	require.NoError(t, err)

	q := sys.InitQ()
	q[9] = 0.29 // top capsule just overlapping the bottom one
	contacts := Detect(sys, forward(t, sys, q))

	var between []Contact
	for _, c := range contacts {
		if c.LinkA == 0 && c.LinkB == 1 {
			between = append(between, c)
		}
	}
	require.Len(t, between, 1)
	c := between[0]
	assert.InDelta(t, 0.01, c.Penetration, 1e-9)
	assert.InDelta(t, 0, c.Normal.Sub(mgl64.Vec3{0, 0, 1}).Len(), 1e-9)
	assert.InDelta(t, 0, c.Pos.Sub(mgl64.Vec3{0, 0, 0.195}).Len(), 1e-9)
}

func TestClosestSegments(t *testing.T) {
	tests := []struct {
		name           string
		p1, q1, p2, q2 mgl64.Vec3
		wantA, wantB   mgl64.Vec3
	}{
		{
			name: "crossing",
			p1:   mgl64.Vec3{-1, 0, 0}, q1: mgl64.Vec3{1, 0, 0},
			p2: mgl64.Vec3{0, -1, 1}, q2: mgl64.Vec3{0, 1, 1},
			wantA: mgl64.Vec3{0, 0, 0}, wantB: mgl64.Vec3{0, 0, 1},
		},
		{
			name: "end to end",
			p1:   mgl64.Vec3{0, 0, 0}, q1: mgl64.Vec3{1, 0, 0},
			p2: mgl64.Vec3{2, 0, 0}, q2: mgl64.Vec3{3, 1, 0},
			wantA: mgl64.Vec3{1, 0, 0}, wantB: mgl64.Vec3{2, 0, 0},
		},
		{
			name: "degenerate point",
			p1:   mgl64.Vec3{0, 0, 0}, q1: mgl64.Vec3{0, 0, 0},
			p2: mgl64.Vec3{-1, 1, 0}, q2: mgl64.Vec3{1, 1, 0},
			wantA: mgl64.Vec3{0, 0, 0}, wantB: mgl64.Vec3{0, 1, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := closestSegments(tt.p1, tt.q1, tt.p2, tt.q2)
			assert.InDelta(t, 0, a.Sub(tt.wantA).Len(), 1e-12)
			assert.InDelta(t, 0, b.Sub(tt.wantB).Len(), 1e-12)
		})
	}
}

func TestWorldPointRoundTrip(t *testing.T) {
	sys, err := system.CapsuleOnPlane()
	require.NoError(t, err)

	x := forward(t, sys, []float64{0.3, -0.2, 0.2, math.Cos(0.2), 0, math.Sin(0.2), 0})
	for _, c := range Detect(sys, x) {
		pb := WorldPoint(c.LinkB, x, c.LocalB)
		pa := WorldPoint(c.LinkA, x, c.LocalA)
		assert.InDelta(t, c.Penetration, pa.Sub(pb).Dot(c.Normal), 1e-12)
	}
}

func TestDetectOrdersByGeometryPair(t *testing.T) {
	sys, err := system.CapsulePair()
	require.NoError(t, err)
	// bottom capsule touching the floor, top one crossing it 2 cm deep
	q := []float64{0, 0, 0.1, 1, 0, 0, 0, 0, 0, 0.28, math.Sqrt2 / 2, 0, 0, math.Sqrt2 / 2}

	links := func(cs []Contact) [][2]int {
		out := make([][2]int, len(cs))
		for i, c := range cs {
			out[i] = [2]int{c.LinkA, c.LinkB}
		}
		return out
	}
	assert.Equal(t, [][2]int{{system.World, 0}, {system.World, 0}, {0, 1}}, links(Detect(sys, forward(t, sys, q))))

	// listing the top capsule's geometry first moves its contact to the front
	reordered, err := system.New(
		[]system.Link{sys.Link(0), sys.Link(1)},
		[]system.Geometry{sys.Geometry(2), sys.Geometry(0), sys.Geometry(1)},
		nil, sys.Params(),
	)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 0}, {system.World, 0}, {system.World, 0}}, links(Detect(reordered, forward(t, reordered, q))))
}
