package frame

import (
	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// Frag is one unit of translation output: a procedure or a string literal.
type Frag interface {
	implFrag()
}

// ProcFrag is a procedure body together with its frame. Body already has the
// view shift applied.
type ProcFrag struct {
	Body  tree.Stm
	Frame *Frame
}

// StringFrag is a string literal emitted into read-only data.
type StringFrag struct {
	Label temp.Label
	Str   string
}

func (ProcFrag) implFrag()   {}
func (StringFrag) implFrag() {}
