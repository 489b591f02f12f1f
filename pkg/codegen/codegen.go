// Package codegen implements instruction selection: canonical tree statements
// are tiled into x86-64 instructions over unbounded temps. Fixed-register
// operands (multiply, divide, shifts, calls) are expressed with precolored
// temps so the allocator sees them.
package codegen

import (
	"fmt"

	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/frame"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// Selector holds the state of one procedure's selection.
type Selector struct {
	fr     *frame.Frame
	rm     *frame.RegManager
	tf     *temp.Factory
	instrs []assem.Instr
}

// Codegen selects instructions for the statements of one procedure body.
// Nested sequences are flattened; a conditional jump followed directly by
// its false label falls through to it.
func Codegen(fr *frame.Frame, rm *frame.RegManager, stms []tree.Stm) []assem.Instr {
	s := &Selector{fr: fr, rm: rm, tf: fr.Factory()}
	var flat []tree.Stm
	for _, stm := range stms {
		flat = append(flat, tree.Flatten(stm)...)
	}
	for i, stm := range flat {
		var next tree.Stm
		if i+1 < len(flat) {
			next = flat[i+1]
		}
		s.munchStm(stm, next)
	}
	tlog.V("codegen").Printw("selected", "proc", fr.Name(), "stms", len(flat), "instrs", len(s.instrs))
	return s.instrs
}

func (s *Selector) emit(instr assem.Instr) {
	s.instrs = append(s.instrs, instr)
}

func (s *Selector) oper(text string, dst, src []temp.Temp) {
	s.emit(assem.Oper{Assem: text, Dst: dst, Src: src})
}

func (s *Selector) move(dst, src temp.Temp) {
	s.emit(assem.NewMove(dst, src))
}

func temps(ts ...temp.Temp) []temp.Temp { return ts }

// munchStm selects one statement. next is the statement that follows it, or
// nil at the end of the body.
func (s *Selector) munchStm(stm tree.Stm, next tree.Stm) {
	switch st := stm.(type) {
	case tree.Sseq:
		s.munchStm(st.Left, st.Right)
		s.munchStm(st.Right, next)

	case tree.Slabel:
		s.emit(assem.Label{Label: st.Label})

	case tree.Sjump:
		s.munchJump(st)

	case tree.Scjump:
		s.munchCjump(st, next)

	case tree.Smove:
		s.munchMove(st)

	case tree.Sexp:
		if call, ok := st.Exp.(tree.Ecall); ok {
			s.munchCall(call)
			return
		}
		s.munchExp(st.Exp)

	default:
		ice.Fatalf("codegen", "unexpected statement %T", stm)
	}
}

func (s *Selector) munchJump(j tree.Sjump) {
	if len(j.Labels) == 0 {
		ice.Fatalf("codegen", "jump without targets")
	}
	if n, ok := j.Target.(tree.Ename); ok {
		s.emit(assem.Oper{Assem: "jmp `j0", Jumps: []temp.Label{n.Label}, Direct: true})
		return
	}
	t := s.munchExp(j.Target)
	s.emit(assem.Oper{Assem: "jmp *`s0", Src: temps(t), Jumps: j.Labels, Direct: true})
}

var condJumps = map[tree.RelOp]string{
	tree.Eq:  "je",
	tree.Ne:  "jne",
	tree.Lt:  "jl",
	tree.Gt:  "jg",
	tree.Le:  "jle",
	tree.Ge:  "jge",
	tree.Ult: "jb",
	tree.Ule: "jbe",
	tree.Ugt: "ja",
	tree.Uge: "jae",
}

func (s *Selector) munchCjump(c tree.Scjump, next tree.Stm) {
	cc, ok := condJumps[c.Op]
	if !ok {
		ice.Fatalf("codegen", "unknown relational operator %v", c.Op)
	}
	left := s.munchExp(c.Left)
	if k, ok := imm32(c.Right); ok {
		s.oper(fmt.Sprintf("cmpq $%d, `s0", k), nil, temps(left))
	} else {
		right := s.munchExp(c.Right)
		s.oper("cmpq `s1, `s0", nil, temps(left, right))
	}
	s.emit(assem.Oper{Assem: cc + " `j0", Jumps: []temp.Label{c.True}})
	if l, ok := next.(tree.Slabel); ok && l.Label == c.False {
		return
	}
	s.emit(assem.Oper{Assem: "jmp `j0", Jumps: []temp.Label{c.False}, Direct: true})
}

func (s *Selector) munchMove(m tree.Smove) {
	switch dst := m.Dst.(type) {
	case tree.Etemp:
		if dst.Temp == s.rm.FramePointer() {
			ice.Fatalf("codegen", "move into the frame pointer")
		}
		if k, ok := m.Src.(tree.Econst); ok {
			s.oper(fmt.Sprintf("movq $%d, `d0", k.Value), temps(dst.Temp), nil)
			return
		}
		s.move(dst.Temp, s.munchExp(m.Src))

	case tree.Emem:
		s.munchStore(dst, m.Src)

	default:
		ice.Fatalf("codegen", "move into non-lvalue %T", m.Dst)
	}
}

// munchStore writes src to memory. Memory-to-memory moves go through a
// fresh temp; constants that fit in 32 bits are stored as immediates.
func (s *Selector) munchStore(dst tree.Emem, src tree.Exp) {
	if k, ok := imm32(src); ok {
		a := s.selectAddress(dst.Addr)
		s.oper(fmt.Sprintf("movq $%d, %s", k, a.operand(0)), nil, temps(a.base))
		return
	}
	var val temp.Temp
	if mem, ok := src.(tree.Emem); ok {
		val = s.load(mem)
	} else {
		val = s.munchExp(src)
	}
	a := s.selectAddress(dst.Addr)
	s.oper("movq `s0, "+a.operand(1), nil, temps(val, a.base))
}
