package codegen

import (
	"fmt"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// munchExp selects an expression and returns the temp holding its value.
func (s *Selector) munchExp(e tree.Exp) temp.Temp {
	switch ex := e.(type) {
	case tree.Etemp:
		if ex.Temp == s.rm.FramePointer() {
			r := s.tf.NewTemp()
			s.oper("leaq "+s.fr.SizeName()+"(`s0), `d0", temps(r), temps(s.rm.StackPointer()))
			return r
		}
		return ex.Temp

	case tree.Econst:
		r := s.tf.NewTemp()
		s.oper(fmt.Sprintf("movq $%d, `d0", ex.Value), temps(r), nil)
		return r

	case tree.Ename:
		r := s.tf.NewTemp()
		s.oper(fmt.Sprintf("leaq %s(%%rip), `d0", ex.Label), temps(r), nil)
		return r

	case tree.Emem:
		return s.load(ex)

	case tree.Eeseq:
		s.munchStm(ex.Stm, nil)
		return s.munchExp(ex.Exp)

	case tree.Ebinop:
		return s.munchBinop(ex)

	case tree.Ecall:
		return s.munchCall(ex)
	}
	ice.Fatalf("codegen", "unexpected expression %T", e)
	return 0
}

// load reads a word from memory into a fresh temp.
func (s *Selector) load(m tree.Emem) temp.Temp {
	a := s.selectAddress(m.Addr)
	r := s.tf.NewTemp()
	s.oper("movq "+a.operand(0)+", `d0", temps(r), temps(a.base))
	return r
}

var twoAddress = map[tree.BinOp]string{
	tree.Plus:  "addq",
	tree.Minus: "subq",
	tree.And:   "andq",
	tree.Or:    "orq",
	tree.Xor:   "xorq",
}

var shifts = map[tree.BinOp]string{
	tree.LShift:  "salq",
	tree.RShift:  "shrq",
	tree.ARShift: "sarq",
}

func commutes(op tree.BinOp) bool {
	return op == tree.Plus || op == tree.And || op == tree.Or || op == tree.Xor
}

func (s *Selector) munchBinop(b tree.Ebinop) temp.Temp {
	if _, ok := b.Left.(tree.Econst); ok && commutes(b.Op) {
		if _, ok := b.Right.(tree.Econst); !ok {
			b.Left, b.Right = b.Right, b.Left
		}
	}

	if mnemonic, ok := twoAddress[b.Op]; ok {
		left := s.munchExp(b.Left)
		if k, ok := imm32(b.Right); ok {
			r := s.tf.NewTemp()
			s.move(r, left)
			s.oper(fmt.Sprintf("%s $%d, `d0", mnemonic, k), temps(r), temps(r))
			return r
		}
		right := s.munchExp(b.Right)
		r := s.tf.NewTemp()
		s.move(r, left)
		s.oper(mnemonic+" `s1, `d0", temps(r), temps(r, right))
		return r
	}

	if mnemonic, ok := shifts[b.Op]; ok {
		left := s.munchExp(b.Left)
		if k, ok := b.Right.(tree.Econst); ok && k.Value >= 0 && k.Value < 64 {
			r := s.tf.NewTemp()
			s.move(r, left)
			s.oper(fmt.Sprintf("%s $%d, `d0", mnemonic, k.Value), temps(r), temps(r))
			return r
		}
		count := s.munchExp(b.Right)
		r := s.tf.NewTemp()
		s.move(r, left)
		rcx := s.rm.ShiftCount()
		s.move(rcx, count)
		s.oper(mnemonic+" %cl, `d0", temps(r), temps(r, rcx))
		return r
	}

	lo, hi := s.rm.MulLo(), s.rm.MulHi()
	switch b.Op {
	case tree.Mul:
		left := s.munchExp(b.Left)
		right := s.munchExp(b.Right)
		s.move(lo, left)
		s.oper("imulq `s0", temps(lo, hi), temps(right, lo))
	case tree.Div:
		left := s.munchExp(b.Left)
		right := s.munchExp(b.Right)
		s.move(lo, left)
		s.oper("cqto", temps(hi), temps(lo))
		s.oper("idivq `s0", temps(lo, hi), temps(right, lo, hi))
	default:
		ice.Fatalf("codegen", "unknown binary operator %v", b.Op)
	}
	r := s.tf.NewTemp()
	s.move(r, lo)
	return r
}

// munchCall evaluates the arguments, binds the first ones to argument
// registers and stores the rest in the outgoing area at the bottom of the
// frame. The call clobbers every caller-saved register; the result is copied
// out of the return register into a fresh temp.
func (s *Selector) munchCall(c tree.Ecall) temp.Temp {
	vals := make([]temp.Temp, len(c.Args))
	for i, arg := range c.Args {
		vals[i] = s.munchExp(arg)
	}

	var fn temp.Temp
	direct, isName := c.Fun.(tree.Ename)
	if !isName {
		fn = s.munchExp(c.Fun)
	}

	argRegs := s.rm.ArgRegs()
	sp := s.rm.StackPointer()
	word := s.rm.WordSize()
	if extra := len(vals) - len(argRegs); extra > 0 {
		s.fr.NoteOutgoing(extra)
		for i, v := range vals[len(argRegs):] {
			s.oper(fmt.Sprintf("movq `s0, %d(`s1)", i*word), nil, temps(v, sp))
		}
	}
	var uses []temp.Temp
	for i, v := range vals {
		if i >= len(argRegs) {
			break
		}
		s.move(argRegs[i], v)
		uses = append(uses, argRegs[i])
	}
	uses = append(uses, sp)

	clobbers := append([]temp.Temp(nil), s.rm.CallerSaves()...)
	if isName {
		s.emit(assem.Oper{Assem: fmt.Sprintf("callq %s", direct.Label), Dst: clobbers, Src: uses})
	} else {
		s.emit(assem.Oper{Assem: "callq *`s0", Dst: clobbers, Src: append(temps(fn), uses...)})
	}

	r := s.tf.NewTemp()
	s.move(r, s.rm.ReturnValue())
	return r
}
