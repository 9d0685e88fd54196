package control

import (
	"math/rand"

	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

// Random samples each actuator uniformly inside its control range. Two
// controllers built with the same seed produce the same sequence.
type Random struct {
	space ActionSpace
	seed  int64
	rng   *rand.Rand
}

func NewRandom(sys *system.System, seed int64) *Random {
	return &Random{
		space: NewActionSpace(sys),
		seed:  seed,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Compute(st *pipeline.State, t float64) []float64 {
	u := make([]float64, r.space.Dim())
	for i := range u {
		lo, hi := r.space.Low[i], r.space.High[i]
		u[i] = lo + r.rng.Float64()*(hi-lo)
	}
	return u
}

func (r *Random) Reset() {
	r.rng = rand.New(rand.NewSource(r.seed))
}
