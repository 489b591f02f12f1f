// Package assem defines target instructions over temporaries. An instruction
// carries an assembly template in which `s<i>, `d<i> and `j<i> stand for
// its i-th source temp, destination temp and jump target.
package assem

import "github.com/raymyers/ralph-tiger/pkg/temp"

// Instr is a machine instruction: a Label, a Move or an Oper.
type Instr interface {
	// Def lists the temps written by the instruction.
	Def() []temp.Temp
	// Use lists the temps read by the instruction.
	Use() []temp.Temp
	implInstr()
}

// Label marks a jump target.
type Label struct {
	Label temp.Label
}

// Move copies Src into Dst. Moves are the only coalescing candidates.
type Move struct {
	Assem string
	Dst   temp.Temp
	Src   temp.Temp
}

// Oper is any other instruction. When Jumps is non-empty the instruction may
// transfer control to those labels; Direct means it never falls through.
type Oper struct {
	Assem  string
	Dst    []temp.Temp
	Src    []temp.Temp
	Jumps  []temp.Label
	Direct bool
}

func (Label) implInstr() {}
func (Move) implInstr()  {}
func (Oper) implInstr()  {}

func (Label) Def() []temp.Temp { return nil }
func (Label) Use() []temp.Temp { return nil }

func (m Move) Def() []temp.Temp { return []temp.Temp{m.Dst} }
func (m Move) Use() []temp.Temp { return []temp.Temp{m.Src} }

func (o Oper) Def() []temp.Temp { return o.Dst }
func (o Oper) Use() []temp.Temp { return o.Src }

// MoveTemplate is the template of a register-to-register copy.
const MoveTemplate = "movq `s0, `d0"

// NewMove builds a register copy.
func NewMove(dst, src temp.Temp) Move {
	return Move{Assem: MoveTemplate, Dst: dst, Src: src}
}

// IsMove reports whether instr is a register-to-register copy.
func IsMove(instr Instr) bool {
	_, ok := instr.(Move)
	return ok
}

// IsJump reports whether instr may transfer control to a label.
func IsJump(instr Instr) bool {
	o, ok := instr.(Oper)
	return ok && len(o.Jumps) > 0
}

// IsDirectJump reports whether instr is an unconditional jump with no
// fallthrough successor.
func IsDirectJump(instr Instr) bool {
	o, ok := instr.(Oper)
	return ok && len(o.Jumps) > 0 && o.Direct
}

// Targets lists the jump targets of instr, if any.
func Targets(instr Instr) []temp.Label {
	if o, ok := instr.(Oper); ok {
		return o.Jumps
	}
	return nil
}

// ReplaceUse returns instr with every read of before turned into after.
func ReplaceUse(instr Instr, before, after temp.Temp) Instr {
	switch i := instr.(type) {
	case Move:
		if i.Src == before {
			i.Src = after
		}
		return i
	case Oper:
		i.Src = temp.Replace(i.Src, before, after)
		return i
	}
	return instr
}

// ReplaceDef returns instr with every write of before turned into after.
func ReplaceDef(instr Instr, before, after temp.Temp) Instr {
	switch i := instr.(type) {
	case Move:
		if i.Dst == before {
			i.Dst = after
		}
		return i
	case Oper:
		i.Dst = temp.Replace(i.Dst, before, after)
		return i
	}
	return instr
}

// Contains reports whether t occurs in ts.
func Contains(ts []temp.Temp, t temp.Temp) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}
