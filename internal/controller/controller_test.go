package controller_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/actuate/internal/actuator"
	"github.com/san-kum/actuate/internal/controller"
	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/function"
	"github.com/san-kum/actuate/internal/model"
	"github.com/san-kum/actuate/internal/table"
)

func newModel(names ...string) *model.Model {
	m := model.New("test")
	for _, n := range names {
		_, err := m.AddCoordinate(n, false)
		Expect(err).NotTo(HaveOccurred())
		_, err = m.AddActuator(actuator.NewCoordinateActuator(n, n))
		Expect(err).NotTo(HaveOccurred())
	}
	return m
}

var _ = Describe("Kind and Status", func() {
	It("parses kinds", func() {
		k, err := controller.ParseKind("synergy")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(controller.KindSynergy))
		Expect(k.String()).To(Equal("synergy"))

		_, err = controller.ParseKind("pid")
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("satisfies the Controller interface", func() {
		var cs []controller.Controller
		cs = append(cs, controller.NewPrescribed("p"), controller.NewSynergy("s"))
		Expect(cs[0].Kind()).To(Equal(controller.KindPrescribed))
		Expect(cs[1].Path()).To(Equal("/controllerset/s"))
	})
})

var _ = Describe("Prescribed", func() {
	var (
		m *model.Model
		p *controller.Prescribed
	)

	BeforeEach(func() {
		m = newModel("a", "b")
		p = controller.NewPrescribed("pc")
	})

	It("moves from unconfigured to ready", func() {
		Expect(p.Status()).To(Equal(controller.Unconfigured))

		_, err := p.AddActuator(m, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Status()).To(Equal(controller.Attached))

		Expect(p.PrescribeIndex(0, function.NewConstant("a", 0.2))).To(Succeed())
		Expect(p.Status()).To(Equal(controller.Ready))
	})

	It("resolves labels by name then path", func() {
		k, err := p.AddActuator(m, "/forceset/b")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(0))
		Expect(p.Actuators()).To(Equal([]int{1}))
		Expect(p.ActuatorNames()).To(Equal([]string{"b"}))

		_, err = p.AddActuator(m, "nope")
		Expect(errors.Is(err, dynamo.ErrActuatorResolution)).To(BeTrue())
	})

	It("rejects ambiguous short names", func() {
		_, err := m.AddActuator(actuator.NewCoordinateActuator("a", "a", actuator.WithPath("/forceset/other/a")))
		Expect(err).NotTo(HaveOccurred())

		_, err = p.AddActuator(m, "a")
		Expect(err).To(MatchError(dynamo.ErrActuatorResolution))

		_, err = p.AddActuator(m, "/forceset/other/a")
		Expect(err).NotTo(HaveOccurred())
	})

	It("evaluates functions in attachment order and zeros missing ones", func() {
		_, _ = p.AddActuator(m, "b")
		_, _ = p.AddActuator(m, "a")

		f, err := function.New("b", []float64{0, 1}, []float64{0, 2}, function.Linear)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Prescribe("b", f)).To(Succeed())

		u, err := p.ComputeControls(&dynamo.State{Time: 0.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(HaveLen(2))
		Expect(u[0]).To(BeNumerically("~", 1.0, 1e-12))
		Expect(u[1]).To(BeZero())
	})

	It("warns about actuators without a function on every evaluation", func() {
		core, logs := observer.New(zapcore.WarnLevel)
		p = controller.NewPrescribed("pc", controller.WithLogger(zap.New(core)))
		_, _ = p.AddActuator(m, "a")
		_, _ = p.AddActuator(m, "b")
		Expect(p.Prescribe("b", function.NewConstant("b", 0.4))).To(Succeed())

		u, err := p.ComputeControls(&dynamo.State{Time: 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal(dynamo.Control{0, 0.4}))
		Expect(p.Status()).To(Equal(controller.Attached))
		Expect(p.Missing()).To(Equal([]string{"a"}))

		_, err = p.ComputeControls(&dynamo.State{Time: 0.1})
		Expect(err).NotTo(HaveOccurred())

		entries := logs.FilterMessage("actuators without prescribed function").AllUntimed()
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Level).To(Equal(zapcore.WarnLevel))
		Expect(entries[0].ContextMap()).To(HaveKeyWithValue("controller", "pc"))
		Expect(entries[0].ContextMap()["actuators"]).To(ConsistOf("a"))

		Expect(p.Prescribe("a", function.NewConstant("a", 0))).To(Succeed())
		_, err = p.ComputeControls(&dynamo.State{Time: 0.2})
		Expect(err).NotTo(HaveOccurred())
		Expect(logs.Len()).To(Equal(2))
	})

	It("replaces a previously assigned function", func() {
		_, _ = p.AddActuator(m, "a")
		Expect(p.Prescribe("a", function.NewConstant("a", 1))).To(Succeed())
		Expect(p.Prescribe("/forceset/a", function.NewConstant("a", 3))).To(Succeed())

		u, _ := p.ComputeControls(&dynamo.State{Time: 0})
		Expect(u[0]).To(Equal(3.0))
	})

	It("binds labels prescribed before attachment", func() {
		Expect(p.Prescribe("b", function.NewConstant("b", 0.7))).To(Succeed())
		Expect(p.Pending()).To(Equal([]string{"b"}))

		Expect(p.Connect(m)).To(Succeed())
		Expect(p.Pending()).To(BeEmpty())
		Expect(p.Status()).To(Equal(controller.Ready))

		u, _ := p.ComputeControls(&dynamo.State{Time: 10})
		Expect(u).To(Equal(dynamo.Control{0.7}))
	})

	It("reports pending labels that do not resolve", func() {
		Expect(p.Prescribe("ghost", function.NewConstant("g", 1))).To(Succeed())
		Expect(p.Connect(m)).To(MatchError(dynamo.ErrActuatorResolution))
	})

	It("rejects out of range indices", func() {
		Expect(p.PrescribeIndex(0, function.NewConstant("x", 1))).To(MatchError(dynamo.ErrInvalidParameter))
	})

	Context("from a table", func() {
		It("returns the constant of a constant column for every order", func() {
			tbl := table.New([]float64{0, 0.5, 1, 1.5})
			Expect(tbl.AddColumn("a", []float64{0.25, 0.25, 0.25, 0.25})).To(Succeed())

			for _, order := range []function.Order{function.Constant, function.Linear, function.Cubic, function.Quintic} {
				pc := controller.NewPrescribed("const")
				Expect(pc.FromTable(m, tbl, order)).To(Succeed())
				for _, tm := range []float64{-1, 0, 0.3, 0.77, 1.5, 9} {
					u, err := pc.ComputeControls(&dynamo.State{Time: tm})
					Expect(err).NotTo(HaveOccurred())
					Expect(u[0]).To(BeNumerically("~", 0.25, 1e-12))
				}
			}
		})

		It("reports one error per unmatched column and keeps the rest", func() {
			tbl := table.New([]float64{0, 1})
			Expect(tbl.AddColumn("a", []float64{0.1, 0.3})).To(Succeed())
			Expect(tbl.AddColumn("b", []float64{0.2, 0.4})).To(Succeed())
			Expect(tbl.AddColumn("z", []float64{0.5, 0.5})).To(Succeed())

			err := p.FromTable(m, tbl, function.Linear)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, dynamo.ErrUnmatchedColumn)).To(BeTrue())

			var unmatched []string
			for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
				var ce *dynamo.ColumnError
				Expect(errors.As(e, &ce)).To(BeTrue())
				unmatched = append(unmatched, ce.Column)
			}
			Expect(unmatched).To(Equal([]string{"z"}))

			Expect(p.ActuatorNames()).To(Equal([]string{"a", "b"}))
			Expect(p.Status()).To(Equal(controller.Ready))

			u, err := p.ComputeControls(&dynamo.State{Time: 0.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(u[0]).To(BeNumerically("~", 0.2, 1e-12))
			Expect(u[1]).To(BeNumerically("~", 0.3, 1e-12))
		})
	})
})

var _ = Describe("Synergy", func() {
	var (
		m *model.Model
		s *controller.Synergy
	)

	BeforeEach(func() {
		m = newModel("soleus", "tibant", "gastroc")
		s = controller.NewSynergy("legs")
	})

	attach := func(labels ...string) {
		for _, l := range labels {
			_, err := s.AddActuator(m, l)
			Expect(err).NotTo(HaveOccurred())
		}
	}

	It("is not ready without vectors", func() {
		Expect(s.Status()).To(Equal(controller.Unconfigured))
		attach("soleus", "tibant")
		Expect(s.Status()).To(Equal(controller.Attached))

		_, err := s.ComputeControls(&dynamo.State{})
		Expect(err).To(MatchError(dynamo.ErrControllerNotReady))
	})

	It("expands excitations without clamping", func() {
		attach("soleus", "tibant")
		_, err := s.AddSynergyVector([]float64{0.3, 0.7})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Status()).To(Equal(controller.Ready))

		st := dynamo.NewState(0, 0)
		s.SetExcitation(st, 0, 2.0)
		Expect(st.Input("/controllerset/legs/synergy_excitation_0")).To(Equal(2.0))

		u, err := s.ComputeControls(st)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(HaveLen(2))
		Expect(u[0]).To(BeNumerically("~", 0.6, 1e-12))
		Expect(u[1]).To(BeNumerically("~", 1.4, 1e-12))
	})

	It("reproduces a synergy vector from a unit excitation", func() {
		attach("soleus", "tibant", "gastroc")
		vectors := [][]float64{{0.1, 0.5, 0.9}, {0.8, 0.0, 0.2}}
		for _, v := range vectors {
			_, err := s.AddSynergyVector(v)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(s.InputNames()).To(HaveLen(2))

		for k, v := range vectors {
			st := dynamo.NewState(0, 0)
			for i := range vectors {
				s.SetExcitation(st, i, 0)
			}
			s.SetExcitation(st, k, 1)

			u, err := s.ComputeControls(st)
			Expect(err).NotTo(HaveOccurred())
			Expect([]float64(u)).To(Equal(v))
		}
	})

	It("treats missing excitations as zero", func() {
		attach("soleus")
		_, _ = s.AddSynergyVector([]float64{1})
		u, err := s.ComputeControls(dynamo.NewState(0, 0))
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal(dynamo.Control{0}))
	})

	It("rejects vectors of the wrong length or sign", func() {
		attach("soleus", "tibant")
		_, err := s.AddSynergyVector([]float64{1, 2, 3})
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))

		_, err = s.AddSynergyVector([]float64{1, -0.1})
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(s.NumSynergies()).To(BeZero())
	})

	It("keeps vectors immutable", func() {
		attach("soleus", "tibant")
		w := []float64{0.2, 0.4}
		k, _ := s.AddSynergyVector(w)
		w[0] = 99
		s.SynergyVector(k).Weights()[1] = 99
		Expect(s.SynergyVector(k).Weights()).To(Equal([]float64{0.2, 0.4}))

		Expect(s.SetSynergyVector(k, []float64{0.5, 0.5})).To(Succeed())
		Expect(s.SynergyVector(k).At(0)).To(Equal(0.5))
		Expect(s.SetSynergyVector(3, []float64{0.5, 0.5})).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("freezes the actuator set once vectors exist", func() {
		attach("soleus", "tibant")
		_, _ = s.AddSynergyVector([]float64{1, 1})
		_, err := s.AddActuator(m, "gastroc")
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))

		k, err := s.AddActuator(m, "tibant")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(1))
	})

	It("builds vectors from a weight matrix", func() {
		attach("soleus", "tibant", "gastroc")
		h := mat.NewDense(2, 3, []float64{
			0.1, 0.2, 0.3,
			0.4, 0.5, 0.6,
		})
		Expect(s.FromFactorization(h)).To(Succeed())
		Expect(s.NumSynergies()).To(Equal(2))
		Expect(s.SynergyVector(1).Weights()).To(Equal([]float64{0.4, 0.5, 0.6}))

		Expect(s.FromFactorization(mat.NewDense(1, 2, nil))).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("reports default input bounds", func() {
		lo, hi := s.InputBounds()
		Expect(lo).To(Equal(0.0))
		Expect(hi).To(Equal(1.0))
	})
})
