// Package temp issues temporaries (virtual registers) and code labels.
// A Factory is threaded through every phase of the backend so that numbering
// is deterministic per compilation and can be seeded by tests.
package temp

import (
	"fmt"
	"strconv"
)

// Temp is an abstract register-sized value holder. Temps are unique for the
// Factory that issued them and are never reused.
type Temp int

// Label names a location in the generated code.
type Label string

const (
	firstTemp  = 100
	firstLabel = 0
)

func (t Temp) String() string {
	return "t" + strconv.Itoa(int(t))
}

// Factory hands out fresh temps and labels.
type Factory struct {
	nextTemp  Temp
	nextLabel int
	names     *Map
}

// NewFactory creates a factory whose first temp is t100 and first label L0.
func NewFactory() *Factory {
	f := &Factory{}
	f.Reset()
	return f
}

// Reset restores the initial counters and forgets every issued name.
func (f *Factory) Reset() {
	f.nextTemp = firstTemp
	f.nextLabel = firstLabel
	f.names = NewMap()
}

// NewTemp allocates a fresh temp and records its default name.
func (f *Factory) NewTemp() Temp {
	t := f.nextTemp
	f.nextTemp++
	f.names.Enter(t, t.String())
	return t
}

// NewLabel allocates a fresh label L<n>.
func (f *Factory) NewLabel() Label {
	l := Label(fmt.Sprintf("L%d", f.nextLabel))
	f.nextLabel++
	return l
}

// NamedLabel returns the label for a fixed symbol such as a function name.
func (f *Factory) NamedLabel(name string) Label {
	return Label(name)
}

// Names is the map of display names for every temp issued by f.
func (f *Factory) Names() *Map {
	return f.names
}

// Issued reports how many temps have been allocated so far.
func (f *Factory) Issued() int {
	return int(f.nextTemp - firstTemp)
}
