package regalloc

import (
	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// removeCoalescedMoves drops register copies whose two ends ended up in
// the same register.
func removeCoalescedMoves(instrs []assem.Instr, colors *temp.Map) []assem.Instr {
	out := make([]assem.Instr, 0, len(instrs))
	for _, instr := range instrs {
		if m, ok := instr.(assem.Move); ok && colors.Name(m.Src) == colors.Name(m.Dst) {
			continue
		}
		out = append(out, instr)
	}
	return out
}

// buildColoring names every colored temp with its register, layered over
// the register names themselves so reserved registers still resolve.
func buildColoring(colors map[temp.Temp]int, regs Registers) *temp.Map {
	names := regs.Precolored()
	file := regs.Registers()
	m := temp.NewMap()
	for t, c := range colors {
		m.Enter(t, names.Name(file[c]))
	}
	return temp.Layer(m, names)
}
