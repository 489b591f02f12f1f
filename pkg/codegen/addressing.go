package codegen

import (
	"math"
	"strconv"

	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// address is a selected memory operand: a displacement text and the base
// register temp it is relative to. An empty displacement means (base).
type address struct {
	disp string
	base temp.Temp
}

// operand renders the address with the base as source operand n.
func (a address) operand(n int) string {
	return a.disp + "(`s" + strconv.Itoa(n) + ")"
}

// selectAddress picks the addressing mode for a memory access, trying the
// most specific patterns first.
func (s *Selector) selectAddress(addr tree.Exp) address {
	// Pattern: fp, or fp + constant, addressed off the stack pointer
	if a, ok := s.tryFrameDisp(addr); ok {
		return a
	}

	// Pattern: base + constant, in either order
	if a, ok := s.tryDisp(addr); ok {
		return a
	}

	// Fallback: base with no displacement
	return address{base: s.munchExp(addr)}
}

// isImm32 reports whether v fits the sign-extended 32-bit immediate and
// displacement fields of x86-64 instructions.
func isImm32(v int) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// imm32 matches a constant usable as an immediate operand.
func imm32(e tree.Exp) (int, bool) {
	c, ok := e.(tree.Econst)
	if !ok || !isImm32(c.Value) {
		return 0, false
	}
	return c.Value, true
}

// constOffset matches BINOP(PLUS, e, CONST i), BINOP(PLUS, CONST i, e) and
// BINOP(MINUS, e, CONST i), returning e and the signed displacement. The
// displacement must fit in 32 bits.
func constOffset(e tree.Exp) (tree.Exp, int, bool) {
	b, ok := e.(tree.Ebinop)
	if !ok {
		return nil, 0, false
	}
	switch b.Op {
	case tree.Plus:
		if k, ok := imm32(b.Right); ok {
			return b.Left, k, true
		}
		if k, ok := imm32(b.Left); ok {
			return b.Right, k, true
		}
	case tree.Minus:
		if k, ok := imm32(b.Right); ok && isImm32(-k) {
			return b.Left, -k, true
		}
	}
	return nil, 0, false
}

func (s *Selector) isFP(e tree.Exp) bool {
	t, ok := e.(tree.Etemp)
	return ok && t.Temp == s.rm.FramePointer()
}

func (s *Selector) tryFrameDisp(addr tree.Exp) (address, bool) {
	if s.isFP(addr) {
		return address{disp: s.fr.Disp(0), base: s.rm.StackPointer()}, true
	}
	base, off, ok := constOffset(addr)
	if !ok || !s.isFP(base) {
		return address{}, false
	}
	return address{disp: s.fr.Disp(off), base: s.rm.StackPointer()}, true
}

func (s *Selector) tryDisp(addr tree.Exp) (address, bool) {
	base, off, ok := constOffset(addr)
	if !ok {
		return address{}, false
	}
	return address{disp: strconv.Itoa(off), base: s.munchExp(base)}, true
}
