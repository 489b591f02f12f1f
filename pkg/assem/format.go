package assem

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// Format expands the template of instr using names for temps. Label
// instructions format as "name:".
func Format(instr Instr, names *temp.Map) string {
	switch i := instr.(type) {
	case Label:
		return string(i.Label) + ":"
	case Move:
		return expand(i.Assem, []temp.Temp{i.Dst}, []temp.Temp{i.Src}, nil, names)
	case Oper:
		return expand(i.Assem, i.Dst, i.Src, i.Jumps, names)
	}
	ice.Fatalf("assem", "unknown instruction %T", instr)
	return ""
}

func expand(assem string, dst, src []temp.Temp, jumps []temp.Label, names *temp.Map) string {
	var sb strings.Builder
	for i := 0; i < len(assem); i++ {
		c := assem[i]
		if c != '`' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(assem) {
			ice.Fatalf("assem", "dangling backquote in %q", assem)
		}
		kind := assem[i]
		if kind == '`' {
			sb.WriteByte('`')
			continue
		}
		j := i + 1
		for j < len(assem) && assem[j] >= '0' && assem[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(assem[i+1 : j])
		if err != nil {
			ice.Fatalf("assem", "bad operand reference in %q", assem)
		}
		i = j - 1
		switch kind {
		case 's':
			sb.WriteString(operand(src, n, assem, names))
		case 'd':
			sb.WriteString(operand(dst, n, assem, names))
		case 'j':
			if n >= len(jumps) {
				ice.Fatalf("assem", "jump target %d out of range in %q", n, assem)
			}
			sb.WriteString(string(jumps[n]))
		default:
			ice.Fatalf("assem", "unknown operand kind %q in %q", kind, assem)
		}
	}
	return sb.String()
}

func operand(ts []temp.Temp, n int, assem string, names *temp.Map) string {
	if n >= len(ts) {
		ice.Fatalf("assem", "operand %d out of range in %q", n, assem)
	}
	if names == nil {
		return ts[n].String()
	}
	return names.Name(ts[n])
}

// Printer writes instruction lists in assembler layout: labels flush left,
// instructions indented by a tab.
type Printer struct {
	w     io.Writer
	names *temp.Map
}

// NewPrinter creates a printer that names temps through names.
func NewPrinter(w io.Writer, names *temp.Map) *Printer {
	return &Printer{w: w, names: names}
}

// PrintList writes every instruction of list.
func (p *Printer) PrintList(list []Instr) {
	for _, instr := range list {
		p.Print(instr)
	}
}

// Print writes one instruction. Instructions with an empty template, such as
// the return sink, only exist for liveness and print nothing.
func (p *Printer) Print(instr Instr) {
	if _, ok := instr.(Label); ok {
		fmt.Fprintln(p.w, Format(instr, p.names))
		return
	}
	text := Format(instr, p.names)
	if text == "" {
		return
	}
	fmt.Fprintf(p.w, "\t%s\n", text)
}
