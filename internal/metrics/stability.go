package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/pipeline"
)

// Stability is the fraction of observed states that are finite and whose
// link speeds stay under the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(st *pipeline.State, u []float64, t float64) {
	s.samples++
	if !st.IsFinite() {
		s.violations++
		return
	}
	for _, m := range st.Xd {
		if math.Max(m.Vel.Len(), m.Ang.Len()) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
