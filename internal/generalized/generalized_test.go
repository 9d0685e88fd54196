package generalized

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/system"
)

var _ = Describe("Generalized pipeline", func() {
	var p *Pipeline

	BeforeEach(func() {
		p = New()
	})

	Describe("Init", func() {
		It("rejects coordinates of the wrong size", func() {
			sys := fixture("double_pendulum")
			_, err := p.Init(sys, []float64{0}, []float64{0, 0})
			Expect(err).To(MatchError(system.ErrDimension))
		})

		It("derives link poses from q", func() {
			sys := fixture("pendulum")
			st, err := p.Init(sys, []float64{math.Pi / 2}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(st.X[0].Pos[2]).To(BeNumerically("~", -0.5, 1e-12))
		})
	})

	Describe("Step", func() {
		It("rejects actions of the wrong size", func() {
			sys := fixture("pendulum")
			st, err := p.Init(sys, []float64{0}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			_, err = p.Step(sys, st, []float64{0, 0})
			Expect(err).To(MatchError(system.ErrDimension))
		})

		It("leaves the input state untouched", func() {
			sys := fixture("pendulum")
			st, err := p.Init(sys, []float64{0.3}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			next, err := p.Step(sys, st, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Q[0]).To(Equal(0.3))
			Expect(next.Q[0]).NotTo(Equal(0.3))
		})

		It("keeps a hanging double pendulum at rest", func() {
			sys := fixture("double_pendulum")
			st, err := p.Init(sys, []float64{0, 0}, []float64{0, 0})
			Expect(err).NotTo(HaveOccurred())
			st = rollout(p, sys, st, 100)
			Expect(st.Q[0]).To(BeNumerically("~", 0, 1e-12))
			Expect(st.Q[1]).To(BeNumerically("~", 0, 1e-12))
		})

		It("drops a free body under gravity", func() {
			sys := fixture("capsule")
			st, err := p.Init(sys, sys.InitQ(), make([]float64, 6))
			Expect(err).NotTo(HaveOccurred())
			st = rollout(p, sys, st, 1000)
			Expect(st.Qd[2]).To(BeNumerically("~", -9.81, 1e-9))
			Expect(st.X[0].Pos[2]).To(BeNumerically("~", 0.25-0.5*9.81, 1e-2))
		})

		It("conserves pendulum energy", func() {
			sys := fixture("pendulum")
			st, err := p.Init(sys, []float64{0}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			e0 := energy(sys, st)
			st = rollout(p, sys, st, 2000)
			Expect(energy(sys, st)).To(BeNumerically("~", e0, 2e-2))
		})

		It("accelerates a slider with its motor", func() {
			sys := fixture("triple_prismatic")
			st, err := p.Init(sys, []float64{0, 0, 0}, []float64{0, 0, 0})
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 500; i++ {
				st, err = p.Step(sys, st, []float64{5, 0, 0})
				Expect(err).NotTo(HaveOccurred())
			}
			// the action clips to 1 N on a 1 kg body
			Expect(st.Qd[0]).To(BeNumerically("~", 0.5, 1e-9))
			Expect(st.Qd[1]).To(BeNumerically("~", 0, 1e-12))
		})

		It("reports a numerical error for a degenerate configuration", func() {
			sys := fixture("pendulum")
			st, err := p.Init(sys, []float64{math.NaN()}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			_, err = p.Step(sys, st, []float64{0})
			Expect(err).To(MatchError(system.ErrNumerical))
		})

		It("runs with a fourth-order integrator", func() {
			rk := New(WithIntegrator(integrators.NewRK4()))
			sys := fixture("pendulum")
			st, err := rk.Init(sys, []float64{0}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			e0 := energy(sys, st)
			st = rollout(rk, sys, st, 2000)
			Expect(energy(sys, st)).To(BeNumerically("~", e0, 1e-6))
		})
	})

	Describe("mass matrix", func() {
		It("matches the pivot inertia of a pendulum", func() {
			sys := fixture("pendulum")
			m := newModel(sys, []float64{0.4})
			want := sys.Link(0).Inertia.At(1, 1) + 0.25
			Expect(m.massMatrix()[0]).To(BeNumerically("~", want, 1e-12))
		})

		It("is symmetric and couples the double pendulum links", func() {
			sys := fixture("double_pendulum")
			m := newModel(sys, []float64{0.3, 0.5}).massMatrix()
			Expect(m[1]).To(Equal(m[2]))
			// lower rod: I + m*0.5^2 about its own hinge
			lower := sys.Link(1).Inertia.At(1, 1) + 0.25
			Expect(m[3]).To(BeNumerically("~", lower, 1e-12))
			// coupling: I + m*0.5^2 + m*1*0.5*cos(q2)
			Expect(m[1]).To(BeNumerically("~", lower+0.5*math.Cos(0.5), 1e-12))
		})

		It("includes gravity in the bias only", func() {
			sys := fixture("pendulum")
			m := newModel(sys, []float64{0})
			bias := m.inverseDynamics([]float64{0}, []float64{0}, sys.Params().Gravity)
			// horizontal rod: gravity torque m*g*r about the hinge
			Expect(bias[0]).To(BeNumerically("~", -9.81*0.5, 1e-12))
		})
	})
})
