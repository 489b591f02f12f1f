package regalloc

import (
	"math"

	"github.com/raymyers/ralph-tiger/pkg/liveness"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

type nodeState int

const (
	stPrecolored nodeState = iota
	stInitial
	stSimplify
	stFreeze
	stSpill
	stSelect
	stCoalesced
	stColored
	stSpilled
)

type moveState int

const (
	mvWorklist moveState = iota
	mvActive
	mvCoalesced
	mvConstrained
	mvFrozen
)

// Allocator colors one interference graph with iterated register
// coalescing. It works on copies of the graph's adjacency so the liveness
// result stays intact; nodes are the graph's arena indices.
type Allocator struct {
	live *liveness.Result
	K    int

	state   []nodeState
	degree  []int
	adjList [][]liveness.NodeID
	adjSet  map[[2]liveness.NodeID]struct{}
	alias   []liveness.NodeID
	color   []int // index into the register file, -1 if none

	moves     []liveness.Move
	moveState []moveState
	moveList  [][]int // move indices touching each node

	simplifyWorklist []liveness.NodeID
	freezeWorklist   []liveness.NodeID
	spillWorklist    []liveness.NodeID
	worklistMoves    []int
	selectStack      []liveness.NodeID

	// noSpill holds temps created by an earlier spill rewrite.
	noSpill temp.Set
}

// coloring is the outcome of one allocation pass.
type coloring struct {
	colors    map[temp.Temp]int
	spilled   []temp.Temp
	coalesced int
}

// NewAllocator prepares a pass over live. regs lists the allocatable
// registers; their position is their color.
func NewAllocator(live *liveness.Result, regs []temp.Temp, noSpill temp.Set) *Allocator {
	g := live.Graph
	n := g.Len()
	a := &Allocator{
		live:     live,
		K:        len(regs),
		state:    make([]nodeState, n),
		degree:   make([]int, n),
		adjList:  make([][]liveness.NodeID, n),
		adjSet:   make(map[[2]liveness.NodeID]struct{}),
		alias:    make([]liveness.NodeID, n),
		color:    make([]int, n),
		moveList: make([][]int, n),
		noSpill:  noSpill,
	}
	for i := range a.color {
		a.color[i] = -1
		a.alias[i] = liveness.NodeID(i)
		a.state[i] = stInitial
	}
	for c, r := range regs {
		if id, ok := g.Node(r); ok {
			a.state[id] = stPrecolored
			a.color[id] = c
			a.degree[id] = math.MaxInt32
		}
	}
	for u := 0; u < n; u++ {
		for _, v := range g.Adj(liveness.NodeID(u)) {
			a.addEdge(liveness.NodeID(u), v)
		}
	}
	a.moves = live.Moves
	a.moveState = make([]moveState, len(a.moves))
	for i, m := range a.moves {
		a.moveList[m.Src] = append(a.moveList[m.Src], i)
		if m.Dst != m.Src {
			a.moveList[m.Dst] = append(a.moveList[m.Dst], i)
		}
		a.worklistMoves = append(a.worklistMoves, i)
	}
	return a
}

func (a *Allocator) precolored(n liveness.NodeID) bool { return a.state[n] == stPrecolored }

func (a *Allocator) hasEdge(u, v liveness.NodeID) bool {
	_, ok := a.adjSet[[2]liveness.NodeID{u, v}]
	return ok
}

func (a *Allocator) addEdge(u, v liveness.NodeID) {
	if u == v || a.hasEdge(u, v) {
		return
	}
	a.adjSet[[2]liveness.NodeID{u, v}] = struct{}{}
	a.adjSet[[2]liveness.NodeID{v, u}] = struct{}{}
	if !a.precolored(u) {
		a.adjList[u] = append(a.adjList[u], v)
		a.degree[u]++
	}
	if !a.precolored(v) {
		a.adjList[v] = append(a.adjList[v], u)
		a.degree[v]++
	}
}

// Allocate runs the pass to completion.
func (a *Allocator) Allocate() coloring {
	a.buildWorklists()
	for {
		switch {
		case len(a.simplifyWorklist) > 0:
			a.simplify()
		case len(a.worklistMoves) > 0:
			a.coalesce()
		case len(a.freezeWorklist) > 0:
			a.freeze()
		case len(a.spillWorklist) > 0:
			a.selectSpill()
		default:
			return a.assignColors()
		}
	}
}

func (a *Allocator) buildWorklists() {
	for i, st := range a.state {
		if st != stInitial {
			continue
		}
		n := liveness.NodeID(i)
		switch {
		case a.degree[n] >= a.K:
			a.pushWorklist(n, stSpill)
		case a.moveRelated(n):
			a.pushWorklist(n, stFreeze)
		default:
			a.pushWorklist(n, stSimplify)
		}
	}
}

func (a *Allocator) pushWorklist(n liveness.NodeID, st nodeState) {
	a.state[n] = st
	switch st {
	case stSimplify:
		a.simplifyWorklist = append(a.simplifyWorklist, n)
	case stFreeze:
		a.freezeWorklist = append(a.freezeWorklist, n)
	case stSpill:
		a.spillWorklist = append(a.spillWorklist, n)
	}
}

func removeFromWorklist(n liveness.NodeID, list *[]liveness.NodeID) {
	for i, m := range *list {
		if m == n {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// adjacent lists the neighbors of n still in the graph.
func (a *Allocator) adjacent(n liveness.NodeID) []liveness.NodeID {
	var out []liveness.NodeID
	for _, m := range a.adjList[n] {
		if a.state[m] != stSelect && a.state[m] != stCoalesced {
			out = append(out, m)
		}
	}
	return out
}

// nodeMoves lists the moves of n that may still be coalesced.
func (a *Allocator) nodeMoves(n liveness.NodeID) []int {
	var out []int
	for _, m := range a.moveList[n] {
		if st := a.moveState[m]; st == mvActive || st == mvWorklist {
			out = append(out, m)
		}
	}
	return out
}

func (a *Allocator) moveRelated(n liveness.NodeID) bool {
	return len(a.nodeMoves(n)) > 0
}

func (a *Allocator) simplify() {
	last := len(a.simplifyWorklist) - 1
	n := a.simplifyWorklist[last]
	a.simplifyWorklist = a.simplifyWorklist[:last]

	a.state[n] = stSelect
	a.selectStack = append(a.selectStack, n)
	for _, m := range a.adjacent(n) {
		a.decrementDegree(m)
	}
}

func (a *Allocator) decrementDegree(m liveness.NodeID) {
	if a.precolored(m) {
		return
	}
	d := a.degree[m]
	a.degree[m]--
	if d != a.K {
		return
	}
	a.enableMoves(append(a.adjacent(m), m))
	if a.state[m] != stSpill {
		return
	}
	removeFromWorklist(m, &a.spillWorklist)
	if a.moveRelated(m) {
		a.pushWorklist(m, stFreeze)
	} else {
		a.pushWorklist(m, stSimplify)
	}
}

func (a *Allocator) enableMoves(nodes []liveness.NodeID) {
	for _, n := range nodes {
		for _, m := range a.nodeMoves(n) {
			if a.moveState[m] == mvActive {
				a.moveState[m] = mvWorklist
				a.worklistMoves = append(a.worklistMoves, m)
			}
		}
	}
}

func (a *Allocator) getAlias(n liveness.NodeID) liveness.NodeID {
	for a.state[n] == stCoalesced {
		n = a.alias[n]
	}
	return n
}

func (a *Allocator) coalesce() {
	last := len(a.worklistMoves) - 1
	m := a.worklistMoves[last]
	a.worklistMoves = a.worklistMoves[:last]

	x := a.getAlias(a.moves[m].Src)
	y := a.getAlias(a.moves[m].Dst)
	u, v := x, y
	if a.precolored(y) {
		u, v = y, x
	}

	switch {
	case u == v:
		a.moveState[m] = mvCoalesced
		a.addWorklist(u)
	case a.precolored(v) || a.hasEdge(u, v):
		a.moveState[m] = mvConstrained
		a.addWorklist(u)
		a.addWorklist(v)
	case a.precolored(u) && a.george(u, v), !a.precolored(u) && a.briggs(u, v):
		a.moveState[m] = mvCoalesced
		a.combine(u, v)
		a.addWorklist(u)
	default:
		a.moveState[m] = mvActive
	}
}

// addWorklist moves u from freeze to simplify once it is no longer move
// related and has low degree.
func (a *Allocator) addWorklist(u liveness.NodeID) {
	if a.precolored(u) || a.state[u] != stFreeze {
		return
	}
	if !a.moveRelated(u) && a.degree[u] < a.K {
		removeFromWorklist(u, &a.freezeWorklist)
		a.pushWorklist(u, stSimplify)
	}
}

// george is safe when every neighbor of v is low degree, precolored or
// already adjacent to the precolored node u.
func (a *Allocator) george(u, v liveness.NodeID) bool {
	for _, t := range a.adjacent(v) {
		if a.degree[t] >= a.K && !a.precolored(t) && !a.hasEdge(t, u) {
			return false
		}
	}
	return true
}

// briggs is safe when the merged node has fewer than K significant-degree
// neighbors.
func (a *Allocator) briggs(u, v liveness.NodeID) bool {
	seen := make(map[liveness.NodeID]bool)
	k := 0
	for _, list := range [][]liveness.NodeID{a.adjacent(u), a.adjacent(v)} {
		for _, n := range list {
			if seen[n] {
				continue
			}
			seen[n] = true
			if a.degree[n] >= a.K {
				k++
			}
		}
	}
	return k < a.K
}

func (a *Allocator) combine(u, v liveness.NodeID) {
	if a.state[v] == stFreeze {
		removeFromWorklist(v, &a.freezeWorklist)
	} else {
		removeFromWorklist(v, &a.spillWorklist)
	}
	a.state[v] = stCoalesced
	a.alias[v] = u
	a.moveList[u] = append(a.moveList[u], a.moveList[v]...)
	a.enableMoves([]liveness.NodeID{v})
	for _, t := range a.adjacent(v) {
		a.addEdge(t, u)
		a.decrementDegree(t)
	}
	if a.degree[u] >= a.K && a.state[u] == stFreeze {
		removeFromWorklist(u, &a.freezeWorklist)
		a.pushWorklist(u, stSpill)
	}
}

func (a *Allocator) freeze() {
	last := len(a.freezeWorklist) - 1
	u := a.freezeWorklist[last]
	a.freezeWorklist = a.freezeWorklist[:last]
	a.pushWorklist(u, stSimplify)
	a.freezeMoves(u)
}

func (a *Allocator) freezeMoves(u liveness.NodeID) {
	for _, m := range a.nodeMoves(u) {
		x, y := a.moves[m].Src, a.moves[m].Dst
		v := a.getAlias(y)
		if v == a.getAlias(u) {
			v = a.getAlias(x)
		}
		a.moveState[m] = mvFrozen
		if a.state[v] == stFreeze && !a.moveRelated(v) && a.degree[v] < a.K {
			removeFromWorklist(v, &a.freezeWorklist)
			a.pushWorklist(v, stSimplify)
		}
	}
}

// spillCost is occurrences per unit of degree. Temps made by a previous
// spill rewrite cost +Inf so they are chosen last.
func (a *Allocator) spillCost(n liveness.NodeID) float64 {
	t := a.live.Graph.Temp(n)
	if a.noSpill.Contains(t) {
		return math.Inf(1)
	}
	occurrences := float64(a.live.Uses[t] + a.live.Defs[t])
	if a.degree[n] == 0 {
		return math.Inf(1)
	}
	return occurrences / float64(a.degree[n])
}

func (a *Allocator) selectSpill() {
	best := 0
	bestCost := a.spillCost(a.spillWorklist[0])
	for i, n := range a.spillWorklist[1:] {
		if c := a.spillCost(n); c < bestCost {
			best, bestCost = i+1, c
		}
	}
	m := a.spillWorklist[best]
	a.spillWorklist = append(a.spillWorklist[:best], a.spillWorklist[best+1:]...)
	a.pushWorklist(m, stSimplify)
	a.freezeMoves(m)
}

func (a *Allocator) assignColors() coloring {
	g := a.live.Graph
	var res coloring
	for len(a.selectStack) > 0 {
		last := len(a.selectStack) - 1
		n := a.selectStack[last]
		a.selectStack = a.selectStack[:last]

		used := make([]bool, a.K)
		for _, w := range a.adjList[n] {
			aw := a.getAlias(w)
			if st := a.state[aw]; st == stColored || st == stPrecolored {
				used[a.color[aw]] = true
			}
		}
		a.state[n] = stSpilled
		for c := 0; c < a.K; c++ {
			if !used[c] {
				a.state[n] = stColored
				a.color[n] = c
				break
			}
		}
		if a.state[n] == stSpilled {
			res.spilled = append(res.spilled, g.Temp(n))
		}
	}

	res.colors = make(map[temp.Temp]int)
	for i := range a.state {
		n := liveness.NodeID(i)
		if a.state[n] == stCoalesced {
			a.color[n] = a.color[a.getAlias(n)]
		}
		if a.color[n] >= 0 {
			res.colors[g.Temp(n)] = a.color[n]
		}
	}
	for _, st := range a.moveState {
		if st == mvCoalesced {
			res.coalesced++
		}
	}
	return res
}
