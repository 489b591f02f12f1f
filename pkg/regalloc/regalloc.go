// Package regalloc assigns physical registers to the temps of a procedure
// body with iterated register coalescing. Temps that cannot be colored are
// spilled to frame slots and the body is rewritten and reallocated until a
// round spills nothing.
package regalloc

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/flowgraph"
	"github.com/raymyers/ralph-tiger/pkg/frame"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/liveness"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// DefaultMaxRounds bounds the spill-and-retry loop.
const DefaultMaxRounds = 32

// ErrSpillDivergence is the cause of the internal error raised when the
// spill loop runs out of rounds.
var ErrSpillDivergence = errors.New("spill loop did not converge")

// Frame is the part of a procedure frame the allocator needs: fresh spill
// slots and their stack-pointer relative displacement.
type Frame interface {
	AllocLocal(escape bool) frame.Access
	Disp(off int) string
}

// Registers describes the register file being allocated.
type Registers interface {
	liveness.Target
	Precolored() *temp.Map
	StackPointer() temp.Temp
}

// Options tune the allocator.
type Options struct {
	MaxRounds int // <= 0 means DefaultMaxRounds
}

// Result is a finished allocation.
type Result struct {
	// Instrs is the final body: spill code inserted and copies between
	// temps that share a register removed.
	Instrs []assem.Instr
	// Coloring names every temp of Instrs with its register.
	Coloring *temp.Map
	// Rounds is the number of coloring passes, at least one.
	Rounds int
	// Spilled lists every temp spilled, in the order of the rounds.
	Spilled []temp.Temp
	// Coalesced counts the moves coalesced in the final round.
	Coalesced int
	// Live is the liveness of the final round's body, before copies were
	// removed.
	Live *liveness.Result
}

// Allocate colors instrs. Running out of rounds is an internal error: it
// panics with an *ice.Error wrapping ErrSpillDivergence.
func Allocate(instrs []assem.Instr, fr Frame, regs Registers, tf *temp.Factory, opts Options) *Result {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	created := temp.NewSet()
	res := &Result{}
	for round := 1; ; round++ {
		if round > maxRounds {
			ice.Wrap("regalloc", ErrSpillDivergence, "still spilling after %d rounds (%d temps spilled)", maxRounds, len(res.Spilled))
		}
		res.Rounds = round

		live := liveness.Analyze(flowgraph.Build(instrs), regs)
		col := NewAllocator(live, regs.Registers(), created).Allocate()

		if tlog.If("regalloc") {
			tlog.Printw("coloring round", "round", round, "instrs", len(instrs),
				"nodes", live.Graph.Len(), "coalesced", col.coalesced, "spilled", col.spilled)
		}

		if len(col.spilled) == 0 {
			res.Live = live
			res.Coalesced = col.coalesced
			res.Coloring = buildColoring(col.colors, regs)
			res.Instrs = removeCoalescedMoves(instrs, res.Coloring)
			return res
		}
		res.Spilled = append(res.Spilled, col.spilled...)
		instrs = rewriteProgram(instrs, col.spilled, fr, regs.StackPointer(), tf, created)
	}
}
