package frame

import (
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// Frame is the activation record of one procedure. The frame pointer is
// virtual: it equals the stack pointer plus Size(), which puts it on the
// return address. Locals sit below it at -8, -16, ...; stack-passed formals
// above it at +8, +16, ...; outgoing overflow arguments at the bottom of the
// frame, 0(%rsp) upward.
type Frame struct {
	rm      *RegManager
	tf      *temp.Factory
	name    temp.Label
	formals []Access

	locals   int // frame slots allocated below the frame pointer
	outgoing int // largest overflow-argument count of any call
}

// NewFrame creates the frame for name. escapes has one entry per formal,
// static link first; formals that escape get a frame slot.
func NewFrame(rm *RegManager, tf *temp.Factory, name temp.Label, escapes []bool) *Frame {
	fr := &Frame{rm: rm, tf: tf, name: name}
	nargs := len(rm.ArgRegs())
	word := rm.WordSize()
	for i, esc := range escapes {
		if i >= nargs {
			fr.formals = append(fr.formals, InFrame(word*(i-nargs+1)))
			continue
		}
		fr.formals = append(fr.formals, fr.AllocLocal(esc))
	}
	return fr
}

func (fr *Frame) Name() temp.Label        { return fr.name }
func (fr *Frame) Formals() []Access       { return fr.formals }
func (fr *Frame) RegManager() *RegManager { return fr.rm }
func (fr *Frame) Factory() *temp.Factory  { return fr.tf }

// AllocLocal reserves storage for a new local. Escaping locals get the next
// frame slot; the rest get a fresh temp.
func (fr *Frame) AllocLocal(escape bool) Access {
	if !escape {
		return InReg(fr.tf.NewTemp())
	}
	fr.locals++
	return InFrame(-fr.locals * fr.rm.WordSize())
}

// NoteOutgoing records a call passing n arguments on the stack.
func (fr *Frame) NoteOutgoing(n int) {
	if n > fr.outgoing {
		fr.outgoing = n
	}
}

// Size is the number of bytes the prologue subtracts from the stack pointer.
// It is padded so that the frame plus the return address keeps the stack
// aligned at call sites.
func (fr *Frame) Size() int {
	word := fr.rm.WordSize()
	align := fr.rm.Desc().StackAlign
	size := (fr.locals + fr.outgoing) * word
	if rem := (size + word) % align; rem != 0 {
		size += align - rem
	}
	return size
}

// SizeName is the assembler symbol bound to Size() by the prologue.
func (fr *Frame) SizeName() string { return string(fr.name) + "_framesize" }
