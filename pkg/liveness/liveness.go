// Package liveness computes live-in and live-out sets over a flow graph by
// iterating the backward dataflow equations to a fixed point, then derives
// the interference graph and the list of coalescing candidates.
package liveness

import (
	"fmt"
	"io"
	"strings"

	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-tiger/pkg/flowgraph"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// Target tells the analysis which temps are physical registers. Precolored
// temps that are not allocatable (the stack pointer) stay in the live sets
// but never enter the interference graph.
type Target interface {
	Registers() []temp.Temp
	IsPrecolored(t temp.Temp) bool
	IsAllocatable(t temp.Temp) bool
}

// Move is a coalescing candidate: a register-to-register copy.
type Move struct {
	Src, Dst NodeID
}

// Result holds everything the allocator needs from one analysis round.
type Result struct {
	Flow    *flowgraph.Graph
	LiveIn  []temp.Set // by flow node
	LiveOut []temp.Set // by flow node
	Graph   *Graph
	Moves   []Move

	// Uses and Defs count occurrences of each temp in the instruction list.
	Uses, Defs map[temp.Temp]int

	// Passes is the number of sweeps the dataflow needed, including the
	// final sweep that changed nothing.
	Passes int
}

// Analyze runs liveness over fg and builds the interference graph.
func Analyze(fg *flowgraph.Graph, target Target) *Result {
	r := &Result{
		Flow:  fg,
		Uses:  make(map[temp.Temp]int),
		Defs:  make(map[temp.Temp]int),
		Graph: NewGraph(),
	}
	r.solve()
	r.interfere(target)
	tlog.V("liveness").Printw("liveness",
		"instrs", fg.Len(), "passes", r.Passes,
		"temps", r.Graph.Len(), "edges", r.Graph.Edges(), "moves", len(r.Moves))
	return r
}

// solve iterates
//
//	in[n]  = use[n] ∪ (out[n] − def[n])
//	out[n] = ∪ in[s] for s in succ[n]
//
// in reverse node order until no set changes.
func (r *Result) solve() {
	fg := r.Flow
	n := fg.Len()
	use := make([]temp.Set, n)
	def := make([]temp.Set, n)
	r.LiveIn = make([]temp.Set, n)
	r.LiveOut = make([]temp.Set, n)
	for i := 0; i < n; i++ {
		use[i] = temp.NewSet(fg.Use(flowgraph.Node(i))...)
		def[i] = temp.NewSet(fg.Def(flowgraph.Node(i))...)
		r.LiveIn[i] = temp.NewSet()
		r.LiveOut[i] = temp.NewSet()
		for _, t := range fg.Use(flowgraph.Node(i)) {
			r.Uses[t]++
		}
		for _, t := range fg.Def(flowgraph.Node(i)) {
			r.Defs[t]++
		}
	}

	for changed := true; changed; {
		changed = false
		r.Passes++
		for i := n - 1; i >= 0; i-- {
			out := temp.NewSet()
			for _, s := range fg.Succ(flowgraph.Node(i)) {
				out = out.Union(r.LiveIn[s])
			}
			in := use[i].Union(out.Minus(def[i]))
			if !in.Equal(r.LiveIn[i]) || !out.Equal(r.LiveOut[i]) {
				changed = true
			}
			r.LiveIn[i], r.LiveOut[i] = in, out
		}
	}
}

func (r *Result) interfere(target Target) {
	g := r.Graph
	reserved := func(t temp.Temp) bool {
		return target.IsPrecolored(t) && !target.IsAllocatable(t)
	}

	regs := target.Registers()
	for _, reg := range regs {
		g.AddNode(reg)
	}
	for i, a := range regs {
		for _, b := range regs[i+1:] {
			g.AddEdge(g.AddNode(a), g.AddNode(b))
		}
	}

	fg := r.Flow
	for i := 0; i < fg.Len(); i++ {
		node := flowgraph.Node(i)
		for _, t := range fg.Use(node) {
			if !reserved(t) {
				g.AddNode(t)
			}
		}
		for _, t := range fg.Def(node) {
			if !reserved(t) {
				g.AddNode(t)
			}
		}
	}

	for i := 0; i < fg.Len(); i++ {
		node := flowgraph.Node(i)
		live := r.LiveOut[i].Sorted()

		if fg.IsMove(node) {
			src, dst := fg.Use(node)[0], fg.Def(node)[0]
			r.addEdges(dst, live, reserved, src)
			if src != dst && !reserved(src) && !reserved(dst) {
				srcN, _ := g.Node(src)
				dstN, _ := g.Node(dst)
				r.Moves = append(r.Moves, Move{Src: srcN, Dst: dstN})
			}
			continue
		}
		for _, d := range fg.Def(node) {
			r.addEdges(d, live, reserved, d)
		}
	}
}

// addEdges connects d to every live temp except skip. Reserved temps on
// either end are ignored.
func (r *Result) addEdges(d temp.Temp, live []temp.Temp, reserved func(temp.Temp) bool, skip temp.Temp) {
	if reserved(d) {
		return
	}
	dn, _ := r.Graph.Node(d)
	for _, l := range live {
		if l == skip || l == d || reserved(l) {
			continue
		}
		r.Graph.AddEdge(dn, r.Graph.AddNode(l))
	}
}

// Dump writes the live-in and live-out sets of every flow node.
func (r *Result) Dump(w io.Writer, names *temp.Map) {
	setText := func(s temp.Set) string {
		var parts []string
		for _, t := range s.Sorted() {
			parts = append(parts, names.Name(t))
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	for i := 0; i < r.Flow.Len(); i++ {
		fmt.Fprintf(w, "%4d: in=%s out=%s\n", i, setText(r.LiveIn[i]), setText(r.LiveOut[i]))
	}
}
