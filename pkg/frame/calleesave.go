package frame

import (
	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// UsedCalleeSaves scans an allocated body and returns the callee-saved
// registers it writes, in register-file order. coloring maps every temp of
// body to a register name.
func UsedCalleeSaves(rm *RegManager, body []assem.Instr, coloring *temp.Map) []temp.Temp {
	written := make(map[string]bool)
	for _, instr := range body {
		for _, t := range instr.Def() {
			if name, ok := coloring.Look(t); ok {
				written[name] = true
			}
		}
	}
	var result []temp.Temp
	for _, r := range rm.CalleeSaves() {
		if written[rm.Precolored().Name(r)] {
			result = append(result, r)
		}
	}
	return result
}
