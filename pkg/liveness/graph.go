package liveness

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// NodeID indexes a node of the interference graph.
type NodeID int

// Graph is an undirected interference graph over temps. Nodes live in an
// arena and keep their index for the lifetime of the graph.
type Graph struct {
	temps  []temp.Temp
	index  map[temp.Temp]NodeID
	adj    [][]NodeID
	adjSet map[[2]NodeID]struct{}
}

// NewGraph creates an empty interference graph.
func NewGraph() *Graph {
	return &Graph{
		index:  make(map[temp.Temp]NodeID),
		adjSet: make(map[[2]NodeID]struct{}),
	}
}

// AddNode returns the node of t, creating it if needed.
func (g *Graph) AddNode(t temp.Temp) NodeID {
	if n, ok := g.index[t]; ok {
		return n
	}
	n := NodeID(len(g.temps))
	g.temps = append(g.temps, t)
	g.adj = append(g.adj, nil)
	g.index[t] = n
	return n
}

// Node looks up the node of t.
func (g *Graph) Node(t temp.Temp) (NodeID, bool) {
	n, ok := g.index[t]
	return n, ok
}

func (g *Graph) Temp(n NodeID) temp.Temp { return g.temps[n] }
func (g *Graph) Len() int                { return len(g.temps) }
func (g *Graph) Adj(n NodeID) []NodeID   { return g.adj[n] }
func (g *Graph) Degree(n NodeID) int     { return len(g.adj[n]) }

// AddEdge records that a and b interfere. Self edges are ignored.
func (g *Graph) AddEdge(a, b NodeID) {
	if a == b || g.HasEdge(a, b) {
		return
	}
	g.adjSet[[2]NodeID{a, b}] = struct{}{}
	g.adjSet[[2]NodeID{b, a}] = struct{}{}
	g.adj[a] = append(g.adj[a], b)
	g.adj[b] = append(g.adj[b], a)
}

// HasEdge returns true if there is an interference edge
func (g *Graph) HasEdge(a, b NodeID) bool {
	_, ok := g.adjSet[[2]NodeID{a, b}]
	return ok
}

// Interferes reports whether two temps share an edge.
func (g *Graph) Interferes(a, b temp.Temp) bool {
	na, okA := g.index[a]
	nb, okB := g.index[b]
	return okA && okB && g.HasEdge(na, nb)
}

// Edges returns the number of undirected edges.
func (g *Graph) Edges() int { return len(g.adjSet) / 2 }

// Dump writes each node with its sorted neighbors.
func (g *Graph) Dump(w io.Writer, names *temp.Map) {
	for n, t := range g.temps {
		var ns []string
		adj := append([]NodeID(nil), g.adj[n]...)
		sort.Slice(adj, func(i, j int) bool { return g.temps[adj[i]] < g.temps[adj[j]] })
		for _, m := range adj {
			ns = append(ns, names.Name(g.temps[m]))
		}
		fmt.Fprintf(w, "%s: %s\n", names.Name(t), strings.Join(ns, " "))
	}
}
