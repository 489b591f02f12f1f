// Package flowgraph builds the control-flow graph of an instruction list:
// one node per instruction, edges for fallthrough and jump targets.
package flowgraph

import (
	"fmt"
	"io"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// Node indexes an instruction in the graph. Node n holds instruction n of
// the list the graph was built from.
type Node int

// Graph is an arena of flow nodes. Successor and predecessor lists hold
// each neighbor at most once.
type Graph struct {
	instrs     []assem.Instr
	succ       [][]Node
	pred       [][]Node
	labelNodes map[temp.Label]Node
}

// Build creates the flow graph of instrs. A node falls through to the next
// one unless it is a direct jump; jumps add an edge to each target label.
// A jump to a label that is not in instrs is an internal error.
func Build(instrs []assem.Instr) *Graph {
	g := &Graph{
		instrs:     instrs,
		succ:       make([][]Node, len(instrs)),
		pred:       make([][]Node, len(instrs)),
		labelNodes: make(map[temp.Label]Node),
	}
	for i, instr := range instrs {
		n := Node(i)
		if l, ok := instr.(assem.Label); ok {
			if _, dup := g.labelNodes[l.Label]; dup {
				ice.Fatalf("flowgraph", "label %s defined twice", l.Label)
			}
			g.labelNodes[l.Label] = n
		}
		if i > 0 && !assem.IsDirectJump(instrs[i-1]) {
			g.addEdge(n-1, n)
		}
	}
	for i, instr := range instrs {
		for _, l := range assem.Targets(instr) {
			target, ok := g.labelNodes[l]
			if !ok {
				ice.Fatalf("flowgraph", "jump to undefined label %s", l)
			}
			g.addEdge(Node(i), target)
		}
	}
	return g
}

func (g *Graph) addEdge(from, to Node) {
	for _, s := range g.succ[from] {
		if s == to {
			return
		}
	}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
}

// Len is the number of nodes.
func (g *Graph) Len() int { return len(g.instrs) }

// Instrs returns the instruction list in node order.
func (g *Graph) Instrs() []assem.Instr { return g.instrs }

func (g *Graph) Instr(n Node) assem.Instr { return g.instrs[n] }
func (g *Graph) Succ(n Node) []Node       { return g.succ[n] }
func (g *Graph) Pred(n Node) []Node       { return g.pred[n] }
func (g *Graph) Def(n Node) []temp.Temp   { return g.instrs[n].Def() }
func (g *Graph) Use(n Node) []temp.Temp   { return g.instrs[n].Use() }
func (g *Graph) IsMove(n Node) bool       { return assem.IsMove(g.instrs[n]) }

// LabelNode returns the node of a label instruction.
func (g *Graph) LabelNode(l temp.Label) (Node, bool) {
	n, ok := g.labelNodes[l]
	return n, ok
}

// Dump writes one line per node: index, instruction and successors.
func (g *Graph) Dump(w io.Writer, names *temp.Map) {
	for i, instr := range g.instrs {
		fmt.Fprintf(w, "%4d: %-40s -> %v\n", i, assem.Format(instr, names), g.succ[i])
	}
}
