// Package backend drives one procedure at a time through instruction
// selection, register allocation and frame finalization, and writes the
// resulting assembly.
package backend

import (
	"fmt"
	"io"
	"os"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/codegen"
	"github.com/raymyers/ralph-tiger/pkg/fragment"
	"github.com/raymyers/ralph-tiger/pkg/frame"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/regalloc"
	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// Backend compiles procedure fragments for one register file.
type Backend struct {
	rm   *frame.RegManager
	tf   *temp.Factory
	opts Options
}

// New creates a backend. tf must be the factory rm was built from.
func New(rm *frame.RegManager, tf *temp.Factory, opts Options) *Backend {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = regalloc.DefaultMaxRounds
	}
	return &Backend{rm: rm, tf: tf, opts: opts}
}

// NewFromOptions builds the register file named by opts.Target, or x86-64.
func NewFromOptions(opts Options) (*Backend, error) {
	desc := frame.X8664()
	if opts.Target != "" {
		f, err := os.Open(opts.Target)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if desc, err = frame.LoadTarget(f); err != nil {
			return nil, errors.Wrap(err, "target %s", opts.Target)
		}
	}
	tf := temp.NewFactory()
	rm, err := frame.NewRegManager(tf, desc)
	if err != nil {
		return nil, err
	}
	return New(rm, tf, opts), nil
}

func (b *Backend) RegManager() *frame.RegManager { return b.rm }
func (b *Backend) Factory() *temp.Factory        { return b.tf }

// ProcOutput holds a compiled procedure and the intermediate forms the
// dump flags print.
type ProcOutput struct {
	Frag     frame.ProcFrag
	Selected []assem.Instr // after selection, over temps
	Alloc    *regalloc.Result
	Saved    []temp.Temp // callee-saved registers the prologue stores
	Proc     frame.Proc
}

// Name is the procedure's label.
func (o *ProcOutput) Name() temp.Label { return o.Frag.Frame.Name() }

// CompileProc runs one procedure through the pipeline. Internal
// consistency failures come back as errors wrapping an *ice.Error.
func (b *Backend) CompileProc(p frame.ProcFrag) (out *ProcOutput, err error) {
	name := p.Frame.Name()
	defer func() {
		if err != nil {
			out = nil
			err = errors.Wrap(err, "proc %s", name)
		}
	}()
	defer ice.Catch(&err)

	out = &ProcOutput{Frag: p}
	out.Selected = codegen.Codegen(p.Frame, b.rm, tree.Flatten(p.Body))
	body := frame.ProcEntryExit2(b.rm, out.Selected)
	out.Alloc = regalloc.Allocate(body, p.Frame, b.rm, b.tf, regalloc.Options{MaxRounds: b.opts.MaxRounds})
	out.Saved = frame.UsedCalleeSaves(b.rm, out.Alloc.Instrs, out.Alloc.Coloring)
	out.Proc = frame.ProcEntryExit3(p.Frame, out.Alloc.Instrs, out.Saved)

	tlog.V("backend").Printw("compiled", "proc", name,
		"selected", len(out.Selected), "final", len(out.Alloc.Instrs),
		"rounds", out.Alloc.Rounds, "spilled", len(out.Alloc.Spilled),
		"saved", len(out.Saved), "frame_size", p.Frame.Size())
	return out, nil
}

// CompileUnit compiles every procedure of u, stopping at the first error.
func (b *Backend) CompileUnit(u *fragment.Unit) ([]*ProcOutput, error) {
	var outs []*ProcOutput
	for _, p := range u.Procs() {
		out, err := b.CompileProc(p)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// EmitProc writes a compiled procedure.
func EmitProc(w io.Writer, out *ProcOutput) {
	io.WriteString(w, out.Proc.Prologue)
	assem.NewPrinter(w, out.Alloc.Coloring).PrintList(out.Proc.Body)
	io.WriteString(w, out.Proc.Epilogue)
}

// EmitString writes a string literal as a length word followed by its
// bytes.
func EmitString(w io.Writer, s frame.StringFrag) {
	fmt.Fprintf(w, "\t.section .rodata\n%s:\n\t.long %d\n\t.string %s\n", s.Label, len(s.Str), asQuote(s.Str))
}

// asQuote renders s as an assembler string literal. Bytes outside printable
// ASCII become three-digit octal escapes.
func asQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Emit writes the whole unit: strings first, then procedures.
func Emit(w io.Writer, u *fragment.Unit, outs []*ProcOutput) {
	for _, s := range u.Strings() {
		EmitString(w, s)
	}
	for _, out := range outs {
		EmitProc(w, out)
	}
}
