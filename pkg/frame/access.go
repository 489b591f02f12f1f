package frame

import (
	"fmt"

	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// AccessKind tags the two places a variable can live.
type AccessKind int

const (
	KindInReg AccessKind = iota
	KindInFrame
)

// Access locates a formal or local: a temp, or a word at a fixed offset from
// the frame pointer. Accesses are values and never change once issued.
type Access struct {
	Kind   AccessKind
	Temp   temp.Temp // KindInReg
	Offset int       // KindInFrame
}

func InReg(t temp.Temp) Access { return Access{Kind: KindInReg, Temp: t} }
func InFrame(off int) Access   { return Access{Kind: KindInFrame, Offset: off} }

func (a Access) String() string {
	if a.Kind == KindInReg {
		return fmt.Sprintf("InReg(%v)", a.Temp)
	}
	return fmt.Sprintf("InFrame(%d)", a.Offset)
}

// ToExp returns the tree expression that reads or writes the variable, given
// an expression for the frame pointer of the frame that owns it.
func ToExp(a Access, fp tree.Exp) tree.Exp {
	switch a.Kind {
	case KindInReg:
		return tree.Etemp{Temp: a.Temp}
	case KindInFrame:
		return tree.Emem{Addr: tree.Ebinop{Op: tree.Plus, Left: fp, Right: tree.Econst{Value: a.Offset}}}
	}
	panic(fmt.Sprintf("unknown access kind %d", a.Kind))
}
