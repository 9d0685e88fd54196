package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigidsim/internal/generalized"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/positional"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

func fixture(t *testing.T, name string) *system.System {
	t.Helper()
	sys, err := system.Fixture(name)
	require.NoError(t, err)
	return sys
}

func TestPerturbableCoords(t *testing.T) {
	assert.Equal(t, []int{0}, PerturbableCoords(fixture(t, "pendulum")))
	assert.Equal(t, []int{0, 1, 2}, PerturbableCoords(fixture(t, "spherical_pendulum")))
	assert.Equal(t, []int{0, 1, 2, 7, 8, 9}, PerturbableCoords(fixture(t, "capsule_pair")))
}

func TestLyapunovExponentRegularPendulum(t *testing.T) {
	sys := fixture(t, "pendulum")

	// 10 s covers several periods, so bounded stretching along the orbit
	// averages out.
	for _, p := range []pipeline.Pipeline{generalized.New(), positional.New()} {
		lambda, err := LyapunovExponent(context.Background(), p, sys, []float64{0.3}, []float64{0}, 0, 20000, 1e-8)
		require.NoError(t, err, p.Name())
		assert.Less(t, lambda, 0.5, p.Name())
	}
}

func TestRescaleKeepsCartesianState(t *testing.T) {
	sys := fixture(t, "capsule_pair")
	q := sys.InitQ()
	a, err := positional.New().Init(sys, q, make([]float64, sys.QdSize()))
	require.NoError(t, err)
	b := a.Clone()
	// residual in the Cartesian state that q does not describe
	b.X[0].Pos[0] += 2e-3
	b.X[1].Rot = spatial.Normalize(b.X[1].Rot.Add(mgl64.Quat{V: mgl64.Vec3{1e-3, 0, 0}}))
	b.Q[0] += 1e-3
	b.Xd[1].Vel[2] += 4e-3

	mid := rescale(sys, a, b, 0.5)
	assert.InDelta(t, a.X[0].Pos[0]+1e-3, mid.X[0].Pos[0], 1e-12)
	assert.InDelta(t, a.Q[0]+5e-4, mid.Q[0], 1e-12)
	assert.InDelta(t, a.Xd[1].Vel[2]+2e-3, mid.Xd[1].Vel[2], 1e-12)
	assert.InDelta(t, spatial.QuatDistance(a.X[1].Rot, b.X[1].Rot)/2, spatial.QuatDistance(a.X[1].Rot, mid.X[1].Rot), 1e-6)

	same := rescale(sys, a, b, 1)
	assert.InDelta(t, b.X[0].Pos[0], same.X[0].Pos[0], 1e-12)
	assert.InDelta(t, 0, spatial.QuatDistance(b.X[1].Rot, same.X[1].Rot), 1e-9)
}

func TestLyapunovExponentRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	sys := fixture(t, "capsule")
	q, qd := sys.InitQ(), make([]float64, sys.QdSize())

	_, err := LyapunovExponent(ctx, positional.New(), sys, q, qd, 3, 10, 1e-6)
	assert.Error(t, err, "quaternion component")
	_, err = LyapunovExponent(ctx, positional.New(), sys, q, qd, 0, 0, 1e-6)
	assert.Error(t, err)
	_, err = LyapunovExponent(ctx, positional.New(), sys, q, qd, 0, 10, 0)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = LyapunovExponent(cancelled, positional.New(), sys, q, qd, 0, 10, 1e-6)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLyapunovSpectrum(t *testing.T) {
	sys := fixture(t, "double_pendulum")
	spectrum, err := LyapunovSpectrum(context.Background(), generalized.New(), sys, []float64{0.5, -0.3}, []float64{0, 0}, 100, 1e-8)
	require.NoError(t, err)
	require.Len(t, spectrum, 2)
	for _, l := range spectrum {
		assert.False(t, math.IsNaN(l))
	}
}

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	data := make([]float64, 500)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*2*float64(i)*dt)
	}
	assert.InDelta(t, 2.0, DominantFrequency(data, dt), 1e-9)

	ps := PowerSpectrum(data)
	assert.Len(t, ps, 251)
	assert.InDelta(t, 0, ps[0], 1e-9)

	assert.Zero(t, DominantFrequency(make([]float64, 64), dt))
	assert.Nil(t, PowerSpectrum([]float64{1}))
}

func TestPhasePortrait(t *testing.T) {
	_, err := NewPhasePortrait("q0", []float64{1, 2}, "qd0", []float64{1})
	assert.Error(t, err)

	n := 200
	x, y := make([]float64, n), make([]float64, n)
	for i := range x {
		a := 2 * math.Pi * float64(i) / float64(n)
		x[i], y[i] = math.Cos(a), -math.Sin(a)
	}
	p, err := NewPhasePortrait("q0", x, "qd0", y)
	require.NoError(t, err)
	require.Len(t, p.Points, n)

	out := p.ASCII(40, 20)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 21)
	assert.Contains(t, lines[0], "qd0")
	assert.Contains(t, out, "•")
	assert.Contains(t, out, "│")

	empty := &PhasePortrait{}
	assert.Equal(t, "no points\n", empty.ASCII(10, 5))
}

func TestPoincareSection(t *testing.T) {
	n := 1000
	cross, x, y := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range cross {
		tt := float64(i) * 0.01
		cross[i] = math.Sin(2 * math.Pi * tt)
		x[i] = tt
		y[i] = 1
	}
	p, err := NewPoincareSection(cross, 0, "t", x, "one", y)
	require.NoError(t, err)
	// upward crossings at t = 1, 2, ..., 9
	require.Len(t, p.Points, 9)
	for k, pt := range p.Points {
		assert.InDelta(t, float64(k+1), pt.X, 1e-3)
		assert.Equal(t, 1.0, pt.Y)
	}

	_, err = NewPoincareSection(cross, 0, "t", x[:10], "one", y)
	assert.Error(t, err)
}

func TestBifurcationDiagramRegularPendulum(t *testing.T) {
	sys := fixture(t, "pendulum")
	build := func(dt float64) (*system.System, error) { return sys.With(system.WithDt(dt)) }

	diagram, err := BifurcationDiagram(context.Background(), generalized.New(), build, 5e-4, 1e-3, 3, 0, []float64{0.5}, []float64{0}, 0, 6000)
	require.NoError(t, err)
	require.Len(t, diagram, 3)
	assert.InDelta(t, 7.5e-4, diagram[1].Param, 1e-12)
	for _, b := range diagram {
		// released 0.5 rad below horizontal, it swings up to the mirror angle
		require.NotEmpty(t, b.Values, "dt %g", b.Param)
		for _, v := range b.Values {
			assert.InDelta(t, math.Pi-0.5, v, 0.05, "dt %g", b.Param)
		}
	}

	p := BifurcationPortrait("dt", "q0", diagram)
	assert.Equal(t, "q0", p.YLabel)
	assert.NotEmpty(t, p.Points)
}

func TestBifurcationDiagramRejectsBadInput(t *testing.T) {
	sys := fixture(t, "pendulum")
	build := func(float64) (*system.System, error) { return sys, nil }
	ctx := context.Background()

	_, err := BifurcationDiagram(ctx, generalized.New(), build, 0, 1, 1, 0, []float64{0.5}, []float64{0}, 0, 10)
	assert.Error(t, err)
	_, err = BifurcationDiagram(ctx, generalized.New(), build, 0, 1, 2, 1, []float64{0.5}, []float64{0}, 0, 10)
	assert.Error(t, err)
	_, err = BifurcationDiagram(ctx, generalized.New(), build, 0, 1, 2, 0, []float64{0.5, 0}, []float64{0}, 0, 10)
	assert.ErrorIs(t, err, system.ErrDimension)
}
