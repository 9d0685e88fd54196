package positional

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/generalized"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/spatial"
	"github.com/san-kum/rigidsim/internal/system"
)

var _ = Describe("Positional pipeline", func() {
	var p *Pipeline

	BeforeEach(func() {
		p = New()
	})

	Describe("Step", func() {
		It("rejects mismatched states and actions", func() {
			sys := fixture("double_pendulum")
			st, err := p.Init(sys, []float64{0, 0}, []float64{0, 0})
			Expect(err).NotTo(HaveOccurred())

			_, err = p.Step(sys, st, []float64{0})
			Expect(err).To(MatchError(system.ErrDimension))

			broken := st.Clone()
			broken.X = broken.X[:1]
			_, err = p.Step(sys, broken, []float64{0, 0})
			Expect(err).To(MatchError(system.ErrDimension))
		})

		It("leaves the input state untouched", func() {
			sys := fixture("pendulum")
			st, err := p.Init(sys, []float64{0.2}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			before := st.Clone()
			_, err = p.Step(sys, st, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(st).To(Equal(before))
		})

		It("is deterministic", func() {
			sys := fixture("capsule_pair")
			a := run(p, sys, sys.InitQ(), make([]float64, 12), 200)
			b := run(p, sys, sys.InitQ(), make([]float64, 12), 200)
			Expect(a).To(Equal(b))
		})

		It("keeps joint anchors together", func() {
			sys := fixture("double_pendulum")
			st := run(p, sys, []float64{1, -0.5}, []float64{0, 0}, 1000)
			Expect(metrics.AnchorGap(sys, st)).To(BeNumerically("<", 1e-4))
		})
	})

	Describe("agreement with the generalized pipeline", func() {
		It("tracks a single pendulum", func() {
			sys := fixture("pendulum")
			q, qd := []float64{0.4}, []float64{0}
			pos := run(p, sys, q, qd, 2000)
			gen := run(generalized.New(), sys, q, qd, 2000)
			Expect(positionGap(pos, gen)).To(BeNumerically("<", 2e-2))
		})

		DescribeTable("tracks a double pendulum",
			func(q []float64) {
				sys := fixture("double_pendulum")
				qd := []float64{0, 0}
				pos := run(p, sys, q, qd, 2000)
				gen := run(generalized.New(), sys, q, qd, 2000)
				Expect(positionGap(pos, gen)).To(BeNumerically("<", 2e-2))
			},
			Entry("small swing", []float64{0.5, -0.3}),
			Entry("wide swing", []float64{1.2, -0.8}),
		)

		It("tracks a spherical pendulum", func() {
			sys := fixture("spherical_pendulum",
				system.WithConstraintLimitStiffness(0),
				system.WithConstraintAngDamping(0),
				system.WithAngDamping(0),
				system.WithSolverIterations(500),
			)
			q, qd := []float64{0.1, 0.2, 0.3}, []float64{0.05, 0.03, 0.08}
			pos := run(p, sys, q, qd, 1000)
			gen := run(generalized.New(), sys, q, qd, 1000)
			Expect(spatial.QuatDistance(pos.X[0].Rot, gen.X[0].Rot)).To(BeNumerically("<", 1e-2))
		})
	})

	Describe("joint limits", func() {
		It("bounces a triple prismatic joint off its upper limits", func() {
			sys := fixture("triple_prismatic")
			st := run(p, sys, []float64{0, 0, 0}, []float64{2.5, 2.5, 2.5}, 1000)
			Expect(spatial.QuatDistance(st.X[0].Rot, mgl64.QuatIdent())).To(BeNumerically("<", 1e-3))
			for k := 0; k < 3; k++ {
				Expect(st.Xd[0].Vel[k]).To(BeNumerically("<", -1.5))
				Expect(st.Xd[0].Ang[k]).To(BeNumerically("~", 0, 1e-7))
			}
		})

		It("bounces a prismaversal joint off its slide and hinge limits", func() {
			sys := fixture("prismaversal")
			st := run(p, sys, []float64{0, 0, 0}, []float64{2.5, 2.5, 2.5}, 1000)
			Expect(st.Xd[0].Vel[0]).To(BeNumerically("<", -1.5))
			Expect(st.Xd[0].Vel[2]).To(BeNumerically("<", -1.5))
			Expect(st.Xd[0].Ang[1]).To(BeNumerically("<", -1.45))
		})

		It("lets a joint pass freely when limit stiffness is zero", func() {
			sys := fixture("triple_prismatic", system.WithConstraintLimitStiffness(0))
			st := run(p, sys, []float64{0, 0, 0}, []float64{2.5, 0, 0}, 1000)
			Expect(st.Q[0]).To(BeNumerically("~", 2.5, 1e-9))
			Expect(st.Qd[0]).To(BeNumerically("~", 2.5, 1e-9))
		})
	})

	Describe("contacts", func() {
		It("stops a capsule sliding on the floor", func() {
			sys := fixture("capsule", system.WithCollideScale(0.25))
			qd := []float64{5, 0, 0, 0, 0, 0}
			st := run(p, sys, sys.InitQ(), qd, 1000)
			Expect(st.X[0].Pos[2]).To(BeNumerically("~", 0.25, 1e-2))
			Expect(spatial.QuatDistance(st.X[0].Rot, mgl64.QuatIdent())).To(BeNumerically("<", 1e-3))
			for k := 0; k < 3; k++ {
				Expect(st.Xd[0].Vel[k]).To(BeNumerically("~", 0, 1e-2))
				Expect(st.Xd[0].Ang[k]).To(BeNumerically("~", 0, 1e-2))
			}
		})

		DescribeTable("lands a dropped capsule at its resting height",
			func(scale float64) {
				sys := fixture("capsule", system.WithCollideScale(scale))
				q := []float64{0, 0, 0.6, 1, 0, 0, 0}
				st := run(p, sys, q, make([]float64, 6), 1000)
				Expect(st.X[0].Pos[2]).To(BeNumerically("~", 0.25, 1e-2))
				Expect(st.Xd[0].Vel[2]).To(BeNumerically("~", 0, 1e-2))
				Expect(spatial.QuatDistance(st.X[0].Rot, mgl64.QuatIdent())).To(BeNumerically("<", 1e-3))
			},
			Entry("full correction", 1.0),
			Entry("quarter correction", 0.25),
		)

		It("settles a dropped box on the floor", func() {
			sys := fixture("box")
			st := run(p, sys, sys.InitQ(), make([]float64, 6), 1500)
			Expect(st.X[0].Pos[2]).To(BeNumerically("~", 0.1, 1e-2))
			Expect(st.Xd[0].Vel.Len()).To(BeNumerically("<", 5e-2))
		})

		It("rests one capsule across another", func() {
			sys := fixture("capsule_pair")
			st := run(p, sys, sys.InitQ(), make([]float64, 12), 1000)
			Expect(st.X[0].Pos[2]).To(BeNumerically("~", 0.1, 1e-2))
			Expect(st.X[1].Pos[2]).To(BeNumerically("~", 0.3, 2e-2))
		})
	})

	Describe("Reconcile", func() {
		It("recovers the coordinates a state was built from", func() {
			sys := fixture("prismaversal")
			q, qd := []float64{0.2, -0.4, 0.3}, []float64{0.1, 0.5, -0.7}
			st, err := p.Init(sys, q, qd)
			Expect(err).NotTo(HaveOccurred())
			got := Reconcile(sys, st.X, st.Xd, q)
			for i := range q {
				Expect(got.Q[i]).To(BeNumerically("~", q[i], 1e-9))
				Expect(got.Qd[i]).To(BeNumerically("~", qd[i], 1e-9))
			}
		})

		It("unwraps hinge angles towards the reference", func() {
			sys := fixture("pendulum")
			st, err := p.Init(sys, []float64{2 * math.Pi}, []float64{0})
			Expect(err).NotTo(HaveOccurred())
			got := Reconcile(sys, st.X, st.Xd, []float64{2*math.Pi - 0.1})
			Expect(got.Q[0]).To(BeNumerically("~", 2*math.Pi, 1e-9))
		})
	})
})
