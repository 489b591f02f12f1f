package frame

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// Proc is a finished procedure: body instructions plus the prologue and
// epilogue text that surround them.
type Proc struct {
	Prologue string
	Body     []assem.Instr
	Epilogue string
}

// Disp renders a frame-pointer relative offset as a displacement off the
// stack pointer, e.g. "f_framesize-16".
func (fr *Frame) Disp(off int) string {
	if off == 0 {
		return fr.SizeName()
	}
	return fmt.Sprintf("%s%+d", fr.SizeName(), off)
}

// ProcEntryExit1 moves register-passed formals from their argument
// registers into the accesses the frame assigned them.
func ProcEntryExit1(fr *Frame, body tree.Stm) tree.Stm {
	fp := tree.Etemp{Temp: fr.rm.FramePointer()}
	args := fr.rm.ArgRegs()
	var stms []tree.Stm
	for i, formal := range fr.formals {
		if i >= len(args) {
			break
		}
		stms = append(stms, tree.Smove{Dst: ToExp(formal, fp), Src: tree.Etemp{Temp: args[i]}})
	}
	stms = append(stms, body)
	return tree.Seq(stms...)
}

// ProcEntryExit2 appends a sink instruction so the return value and the
// stack pointer are live at the end of the body.
func ProcEntryExit2(rm *RegManager, body []assem.Instr) []assem.Instr {
	out := make([]assem.Instr, 0, len(body)+1)
	out = append(out, body...)
	return append(out, assem.Oper{Src: rm.ReturnSink()})
}

// ProcEntryExit3 finalizes the frame. Each callee-saved register in saved
// gets its own slot; the prologue binds the frame size symbol, reserves the
// frame and stores them, and the epilogue restores them and returns.
func ProcEntryExit3(fr *Frame, body []assem.Instr, saved []temp.Temp) Proc {
	names := fr.rm.Precolored()
	slots := make([]Access, len(saved))
	for i := range saved {
		slots[i] = fr.AllocLocal(true)
	}
	size := fr.Size()
	sp := names.Name(fr.rm.StackPointer())

	var pro, epi strings.Builder
	fmt.Fprintf(&pro, "\t.text\n\t.globl %s\n\t.type %s, @function\n", fr.name, fr.name)
	fmt.Fprintf(&pro, "\t.set %s, %d\n", fr.SizeName(), size)
	fmt.Fprintf(&pro, "%s:\n", fr.name)
	fmt.Fprintf(&pro, "\tsubq $%d, %s\n", size, sp)
	for i, r := range saved {
		fmt.Fprintf(&pro, "\tmovq %s, %s(%s)\n", names.Name(r), fr.Disp(slots[i].Offset), sp)
	}
	for i, r := range saved {
		fmt.Fprintf(&epi, "\tmovq %s(%s), %s\n", fr.Disp(slots[i].Offset), sp, names.Name(r))
	}
	fmt.Fprintf(&epi, "\taddq $%d, %s\n", size, sp)
	epi.WriteString("\tretq\n")
	return Proc{Prologue: pro.String(), Body: body, Epilogue: epi.String()}
}

// ExternalCall calls a runtime routine by its symbol name.
func ExternalCall(tf *temp.Factory, name string, args []tree.Exp) tree.Exp {
	return tree.Ecall{Fun: tree.Ename{Label: tf.NamedLabel(name)}, Args: args}
}
