package predictor_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inference-sim/cbpsim/sim"
	"github.com/inference-sim/cbpsim/sim/predictor"
)

// train runs one conditional branch through p the way the simulator does.
func train(p sim.Predictor, pc uint64, taken bool) bool {
	pred := p.GetPrediction(pc)
	p.UpdatePredictor(pc, sim.OpTypeJmpDirectCond, taken, pred, pc+0x100)
	return pred
}

var _ = Describe("AlwaysTaken", func() {
	It("should predict taken regardless of training", func() {
		p := predictor.AlwaysTaken{}
		for range 5 {
			train(p, 0x1000, false)
		}
		Expect(p.GetPrediction(0x1000)).To(BeTrue())
	})
})

var _ = Describe("Bimodal", func() {
	var bp *predictor.Bimodal

	BeforeEach(func() {
		bp = predictor.NewBimodal(16, 8)
	})

	It("should initially predict taken (biased)", func() {
		Expect(bp.GetPrediction(0x1000)).To(BeTrue())
	})

	It("should learn not-taken pattern", func() {
		for range 10 {
			train(bp, 0x1000, false)
		}
		Expect(bp.GetPrediction(0x1000)).To(BeFalse())
	})

	It("should require 2 mispredictions to change direction", func() {
		pc := uint64(0x1000)
		// Saturate at strongly taken
		for range 4 {
			train(bp, pc, true)
		}

		train(bp, pc, false)
		Expect(bp.GetPrediction(pc)).To(BeTrue())

		train(bp, pc, false)
		Expect(bp.GetPrediction(pc)).To(BeFalse())
	})

	It("should keep separate counters for separate PCs", func() {
		for range 4 {
			train(bp, 0x1000, false)
		}
		Expect(bp.GetPrediction(0x1000)).To(BeFalse())
		Expect(bp.GetPrediction(0x1004)).To(BeTrue())
	})

	It("should alias PCs that share index bits", func() {
		// 16 entries over pc>>2: 0x1000 and 0x1040 collide
		for range 4 {
			train(bp, 0x1000, false)
		}
		Expect(bp.GetPrediction(0x1040)).To(BeFalse())
	})

	It("should cache targets of taken branches only", func() {
		_, ok := bp.Target(0x1000)
		Expect(ok).To(BeFalse())

		bp.UpdatePredictor(0x1000, sim.OpTypeJmpDirectCond, false, true, 0x2000)
		_, ok = bp.Target(0x1000)
		Expect(ok).To(BeFalse())

		bp.UpdatePredictor(0x1000, sim.OpTypeJmpDirectCond, true, true, 0x2000)
		target, ok := bp.Target(0x1000)
		Expect(ok).To(BeTrue())
		Expect(target).To(Equal(uint64(0x2000)))

		bp.TrackOtherInstruction(0x3000, sim.OpTypeCallDirectUncond, true, 0x4000)
		target, ok = bp.Target(0x3000)
		Expect(ok).To(BeTrue())
		Expect(target).To(Equal(uint64(0x4000)))
	})

	It("should count correct and mispredicted updates", func() {
		train(bp, 0x1000, true)  // predicted taken, correct
		train(bp, 0x1000, false) // predicted taken, wrong

		stats := bp.Stats()
		Expect(stats.Predictions).To(Equal(uint64(2)))
		Expect(stats.Correct).To(Equal(uint64(1)))
		Expect(stats.Mispredictions).To(Equal(uint64(1)))
		Expect(stats.Accuracy()).To(BeNumerically("~", 50.0, 0.01))
	})
})

var _ = Describe("GShare", func() {
	var gs *predictor.GShare

	BeforeEach(func() {
		gs = predictor.NewGShare(64, 4)
	})

	It("should shift outcomes into a bounded history", func() {
		for _, taken := range []bool{true, false, true, true, true} {
			train(gs, 0x1000, taken)
		}
		// last four outcomes: F T T T
		Expect(gs.History()).To(Equal(uint64(0b0111)))
	})

	It("should ignore unconditional branches", func() {
		train(gs, 0x1000, true)
		gs.TrackOtherInstruction(0x2000, sim.OpTypeRetUncond, true, 0x3000)
		Expect(gs.History()).To(Equal(uint64(1)))
	})

	It("should learn an alternating pattern a bimodal table cannot", func() {
		bp := predictor.NewBimodal(64, 8)
		pc := uint64(0x1000)

		var gsMisses, bpMisses int
		for i := range 200 {
			taken := i%2 == 0
			if train(gs, pc, taken) != taken && i >= 100 {
				gsMisses++
			}
			if train(bp, pc, taken) != taken && i >= 100 {
				bpMisses++
			}
		}
		Expect(gsMisses).To(BeZero())
		Expect(bpMisses).To(BeNumerically(">=", 50))
	})
})

var _ = Describe("New", func() {
	It("should build each registered kind", func() {
		p, err := predictor.New(sim.PredictorConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(predictor.AlwaysTaken{}))

		p, err = predictor.New(sim.PredictorConfig{Kind: sim.PredictorBimodal})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&predictor.Bimodal{}))

		p, err = predictor.New(sim.PredictorConfig{Kind: sim.PredictorGShare, TableSize: 1024, HistoryLength: 8})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&predictor.GShare{}))
	})

	It("should register itself with the sim package", func() {
		p, err := sim.NewPredictor(sim.PredictorConfig{Kind: sim.PredictorGShare})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).NotTo(BeNil())
	})

	It("should reject unknown kinds and bad geometry", func() {
		_, err := predictor.New(sim.PredictorConfig{Kind: "tage"})
		Expect(err).To(MatchError(ContainSubstring("unknown predictor")))

		_, err = predictor.New(sim.PredictorConfig{Kind: sim.PredictorBimodal, TableSize: 1000})
		Expect(err).To(MatchError(ContainSubstring("power of 2")))

		_, err = predictor.New(sim.PredictorConfig{Kind: sim.PredictorGShare, HistoryLength: 40})
		Expect(err).To(HaveOccurred())
	})
})
