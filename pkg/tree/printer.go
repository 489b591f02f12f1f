package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// Printer dumps trees in an indented prefix form, one node per line.
type Printer struct {
	w      io.Writer
	names  *temp.Map
	indent int
}

// NewPrinter creates a printer. names may be nil, in which case temps print
// as t<N>.
func NewPrinter(w io.Writer, names *temp.Map) *Printer {
	return &Printer{w: w, names: names}
}

func (p *Printer) tempName(t temp.Temp) string {
	if p.names == nil {
		return t.String()
	}
	return p.names.Name(t)
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, "%s%s\n", strings.Repeat(" ", p.indent), fmt.Sprintf(format, args...))
}

// PrintStm prints a statement tree.
func (p *Printer) PrintStm(s Stm) {
	switch s := s.(type) {
	case Sseq:
		p.line("SEQ(")
		p.nested(func() {
			p.PrintStm(s.Left)
			p.PrintStm(s.Right)
		})
		p.line(")")
	case Slabel:
		p.line("LABEL %s", s.Label)
	case Sjump:
		p.line("JUMP(")
		p.nested(func() { p.PrintExp(s.Target) })
		p.line(")")
	case Scjump:
		p.line("CJUMP(%s,", s.Op)
		p.nested(func() {
			p.PrintExp(s.Left)
			p.PrintExp(s.Right)
			p.line("%s, %s", s.True, s.False)
		})
		p.line(")")
	case Smove:
		p.line("MOVE(")
		p.nested(func() {
			p.PrintExp(s.Dst)
			p.PrintExp(s.Src)
		})
		p.line(")")
	case Sexp:
		p.line("EXP(")
		p.nested(func() { p.PrintExp(s.Exp) })
		p.line(")")
	default:
		p.line("?STM %T", s)
	}
}

// PrintExp prints an expression tree.
func (p *Printer) PrintExp(e Exp) {
	switch e := e.(type) {
	case Ebinop:
		p.line("BINOP(%s,", e.Op)
		p.nested(func() {
			p.PrintExp(e.Left)
			p.PrintExp(e.Right)
		})
		p.line(")")
	case Emem:
		p.line("MEM(")
		p.nested(func() { p.PrintExp(e.Addr) })
		p.line(")")
	case Etemp:
		p.line("TEMP %s", p.tempName(e.Temp))
	case Eeseq:
		p.line("ESEQ(")
		p.nested(func() {
			p.PrintStm(e.Stm)
			p.PrintExp(e.Exp)
		})
		p.line(")")
	case Ename:
		p.line("NAME %s", e.Label)
	case Econst:
		p.line("CONST %d", e.Value)
	case Ecall:
		p.line("CALL(")
		p.nested(func() {
			p.PrintExp(e.Fun)
			for _, a := range e.Args {
				p.PrintExp(a)
			}
		})
		p.line(")")
	default:
		p.line("?EXP %T", e)
	}
}

func (p *Printer) nested(f func()) {
	p.indent++
	f()
	p.indent--
}
