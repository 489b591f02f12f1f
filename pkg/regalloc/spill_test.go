package regalloc

import (
	"fmt"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/frame"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

var _ = Describe("Spilling", func() {
	var (
		mockCtrl  *gomock.Controller
		mockFrame *MockFrame
		tf        *temp.Factory
		rm        *frame.RegManager
		nextSlot  int
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockFrame = NewMockFrame(mockCtrl)
		tf, rm = tinyTarget(GinkgoT(), 2)
		nextSlot = 0

		mockFrame.EXPECT().Disp(gomock.Any()).DoAndReturn(func(off int) string {
			return fmt.Sprintf("f_framesize%+d", off)
		}).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	countSlots := func() {
		mockFrame.EXPECT().AllocLocal(true).DoAndReturn(func(bool) frame.Access {
			nextSlot -= 8
			return frame.InFrame(nextSlot)
		}).AnyTimes()
	}

	It("should take one frame slot per spilled temp", func() {
		a, b := tf.NewTemp(), tf.NewTemp()
		mockFrame.EXPECT().AllocLocal(true).Return(frame.InFrame(-8))
		mockFrame.EXPECT().AllocLocal(true).Return(frame.InFrame(-16))

		out := rewriteProgram(
			[]assem.Instr{def(a), def(b), use(a), use(b)},
			[]temp.Temp{a, b}, mockFrame, rm.StackPointer(), tf, temp.NewSet())

		var text []string
		for _, instr := range out {
			text = append(text, assem.Format(instr, rm.Precolored()))
		}
		Expect(text).To(ContainElement(MatchRegexp(`^movq t\d+, f_framesize-8\(sp\)$`)))
		Expect(text).To(ContainElement(MatchRegexp(`^movq t\d+, f_framesize-16\(sp\)$`)))
		Expect(text).To(ContainElement(MatchRegexp(`^movq f_framesize-8\(sp\), t\d+$`)))
		Expect(text).To(ContainElement(MatchRegexp(`^movq f_framesize-16\(sp\), t\d+$`)))
		Expect(out).To(HaveLen(8))
	})

	It("should place exactly one load before each use and one store after each def", func() {
		a := tf.NewTemp()
		mockFrame.EXPECT().AllocLocal(true).Return(frame.InFrame(-8))
		instrs := []assem.Instr{def(a), use(a), def(a), use(a)}

		out := rewriteProgram(instrs, []temp.Temp{a}, mockFrame, rm.StackPointer(), tf, temp.NewSet())

		Expect(out).To(HaveLen(8))
		for i := 0; i < len(out); i += 2 {
			first, second := out[i], out[i+1]
			if len(first.Def()) == 1 && len(first.Use()) == 0 {
				// def then store of the same fresh temp
				Expect(second.Use()).To(Equal([]temp.Temp{first.Def()[0], rm.StackPointer()}))
			} else {
				// load then use of the same fresh temp
				Expect(first.Def()).To(HaveLen(1))
				Expect(second.Use()).To(Equal(first.Def()))
			}
		}
	})

	It("should reject a spill slot that is not in the frame", func() {
		a := tf.NewTemp()
		mockFrame.EXPECT().AllocLocal(true).Return(frame.InReg(a))

		Expect(func() {
			rewriteProgram([]assem.Instr{def(a)}, []temp.Temp{a}, mockFrame, rm.StackPointer(), tf, temp.NewSet())
		}).To(PanicWith(BeAssignableToTypeOf(&ice.Error{})))
	})

	It("should converge with two registers and five live temps", func() {
		countSlots()
		instrs, _ := simultaneouslyLive(tf, 5)

		res := Allocate(instrs, mockFrame, rm, tf, Options{})

		Expect(res.Rounds).To(BeNumerically(">", 1))
		Expect(res.Rounds).To(BeNumerically("<=", DefaultMaxRounds))
		Expect(len(res.Spilled)).To(BeNumerically(">=", 3))
		Expect(coloringErrors(res, rm)).To(BeEmpty())
	})

	It("should not spill when the registers suffice", func() {
		instrs, ts := simultaneouslyLive(tf, 2)

		res := Allocate(instrs, mockFrame, rm, tf, Options{})

		Expect(res.Rounds).To(Equal(1))
		Expect(res.Spilled).To(BeEmpty())
		Expect(res.Coloring.Name(ts[0])).NotTo(Equal(res.Coloring.Name(ts[1])))
	})
})
