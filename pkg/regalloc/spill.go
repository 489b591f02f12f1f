package regalloc

import (
	"fmt"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/frame"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// rewriteProgram gives every spilled temp a frame slot and replaces each of
// its occurrences with a fresh temp: loaded from the slot before a use,
// stored to it after a def. An instruction that both uses and defines the
// temp gets one fresh temp with a load before and a store after. The fresh
// temps are added to created.
func rewriteProgram(instrs []assem.Instr, spilled []temp.Temp, fr Frame, sp temp.Temp, tf *temp.Factory, created temp.Set) []assem.Instr {
	slots := make(map[temp.Temp]frame.Access, len(spilled))
	for _, t := range spilled {
		acc := fr.AllocLocal(true)
		if acc.Kind != frame.KindInFrame {
			ice.Fatalf("regalloc", "spill slot for %v is not in the frame: %v", t, acc)
		}
		slots[t] = acc
	}

	out := make([]assem.Instr, 0, len(instrs))
	for _, instr := range instrs {
		var before, after []assem.Instr
		for _, t := range spilled {
			uses := assem.Contains(instr.Use(), t)
			defs := assem.Contains(instr.Def(), t)
			if !uses && !defs {
				continue
			}
			disp := fr.Disp(slots[t].Offset)
			nt := tf.NewTemp()
			created.Add(nt)
			if uses {
				before = append(before, assem.Oper{
					Assem: fmt.Sprintf("movq %s(`s0), `d0", disp),
					Dst:   []temp.Temp{nt},
					Src:   []temp.Temp{sp},
				})
				instr = assem.ReplaceUse(instr, t, nt)
			}
			if defs {
				after = append(after, assem.Oper{
					Assem: fmt.Sprintf("movq `s0, %s(`s1)", disp),
					Src:   []temp.Temp{nt, sp},
				})
				instr = assem.ReplaceDef(instr, t, nt)
			}
		}
		out = append(out, before...)
		out = append(out, instr)
		out = append(out, after...)
	}
	return out
}
