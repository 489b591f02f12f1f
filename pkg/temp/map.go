package temp

import (
	"fmt"
	"io"
	"sort"
)

// Map associates temps with display names. Maps can be layered: a lookup
// that misses in the top layer falls through to the layer underneath, which
// is how a register coloring is printed on top of the default t<N> names.
type Map struct {
	tab   map[Temp]string
	under *Map
}

// NewMap creates an empty single-layer map.
func NewMap() *Map {
	return &Map{tab: make(map[Temp]string)}
}

// Layer stacks over on top of under. A nil over yields under unchanged.
func Layer(over, under *Map) *Map {
	if over == nil {
		return under
	}
	return &Map{tab: over.tab, under: Layer(over.under, under)}
}

// Enter binds t to name in the top layer.
func (m *Map) Enter(t Temp, name string) {
	m.tab[t] = name
}

// Look returns the name bound to t in the first layer that has one.
func (m *Map) Look(t Temp) (string, bool) {
	for cur := m; cur != nil; cur = cur.under {
		if s, ok := cur.tab[t]; ok {
			return s, true
		}
	}
	return "", false
}

// Name is Look with a t<N> fallback, convenient for printing.
func (m *Map) Name(t Temp) string {
	if s, ok := m.Look(t); ok {
		return s
	}
	return t.String()
}

// Len is the number of bindings in the top layer.
func (m *Map) Len() int {
	return len(m.tab)
}

// Temps lists the temps bound in the top layer in ascending order.
func (m *Map) Temps() []Temp {
	ts := make([]Temp, 0, len(m.tab))
	for t := range m.tab {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// Dump writes every layer, top first, separated by a rule.
func (m *Map) Dump(w io.Writer) {
	for cur := m; cur != nil; cur = cur.under {
		for _, t := range cur.Temps() {
			fmt.Fprintf(w, "%s -> %s\n", t, cur.tab[t])
		}
		if cur.under != nil {
			fmt.Fprintln(w, "---------")
		}
	}
}
