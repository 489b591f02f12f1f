// Package fragment reads compilation units written in YAML: procedures as
// tree statements over named locals, formals and registers, plus string
// literals. It plays the part of the translation phase for the backend,
// allocating frames and applying the view shift.
package fragment

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-tiger/pkg/frame"
	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// Unit is a decoded compilation unit.
type Unit struct {
	// Target optionally names the register file the unit was translated for.
	Target string
	Frags  []frame.Frag
}

// Procs returns the procedure fragments in source order.
func (u *Unit) Procs() []frame.ProcFrag {
	var out []frame.ProcFrag
	for _, f := range u.Frags {
		if p, ok := f.(frame.ProcFrag); ok {
			out = append(out, p)
		}
	}
	return out
}

// Strings returns the string fragments in source order.
func (u *Unit) Strings() []frame.StringFrag {
	var out []frame.StringFrag
	for _, f := range u.Frags {
		if s, ok := f.(frame.StringFrag); ok {
			out = append(out, s)
		}
	}
	return out
}

// LoadFile reads a unit from path.
func LoadFile(path string, rm *frame.RegManager, tf *temp.Factory) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	u, err := Load(f, rm, tf)
	if err != nil {
		return nil, errors.Wrap(err, "%s", path)
	}
	return u, nil
}

// Load decodes a unit. Strings come first in the result, then procedures.
func Load(r io.Reader, rm *frame.RegManager, tf *temp.Factory) (*Unit, error) {
	var doc unitDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode unit")
	}

	u := &Unit{Target: doc.Target}
	for _, s := range doc.Strings {
		var l temp.Label
		if s.Label != "" {
			l = tf.NamedLabel(s.Label)
		} else {
			l = tf.NewLabel()
		}
		u.Frags = append(u.Frags, frame.StringFrag{Label: l, Str: s.Value})
	}
	seen := make(map[string]bool)
	for _, p := range doc.Procs {
		if p.Name == "" {
			return nil, errors.New("procedure without a name")
		}
		if seen[p.Name] {
			return nil, errors.New("procedure %s defined twice", p.Name)
		}
		seen[p.Name] = true
		frag, err := translateProc(p, rm, tf)
		if err != nil {
			return nil, errors.Wrap(err, "proc %s", p.Name)
		}
		u.Frags = append(u.Frags, frag)
	}
	return u, nil
}

// translator turns one procedure's nodes into tree form.
type translator struct {
	rm     *frame.RegManager
	tf     *temp.Factory
	fr     *frame.Frame
	fp     tree.Exp
	locals map[string]frame.Access
	temps  map[string]temp.Temp
}

func translateProc(p procDoc, rm *frame.RegManager, tf *temp.Factory) (frame.ProcFrag, error) {
	formals := p.Formals
	if len(formals) == 0 {
		formals = []bool{true} // static link
	}
	fr := frame.NewFrame(rm, tf, tf.NamedLabel(p.Name), formals)
	tr := &translator{
		rm:     rm,
		tf:     tf,
		fr:     fr,
		fp:     tree.Etemp{Temp: rm.FramePointer()},
		locals: make(map[string]frame.Access),
		temps:  make(map[string]temp.Temp),
	}
	for _, l := range p.Locals {
		if _, dup := tr.locals[l.Name]; dup {
			return frame.ProcFrag{}, errors.New("local %s declared twice", l.Name)
		}
		tr.locals[l.Name] = fr.AllocLocal(l.Escape)
	}

	stms := make([]tree.Stm, 0, len(p.Body))
	for _, s := range p.Body {
		stm, err := tr.stm(s)
		if err != nil {
			return frame.ProcFrag{}, err
		}
		stms = append(stms, stm)
	}
	body := frame.ProcEntryExit1(fr, tree.Seq(stms...))
	return frame.ProcFrag{Body: body, Frame: fr}, nil
}

func (tr *translator) stm(s stmNode) (tree.Stm, error) {
	switch {
	case s.Move != nil:
		dst, err := tr.exp(s.Move.Dst)
		if err != nil {
			return nil, err
		}
		src, err := tr.exp(s.Move.Src)
		if err != nil {
			return nil, err
		}
		return tree.Smove{Dst: dst, Src: src}, nil

	case s.Exp != nil:
		e, err := tr.exp(*s.Exp)
		if err != nil {
			return nil, err
		}
		return tree.Sexp{Exp: e}, nil

	case s.Label != "":
		return tree.Slabel{Label: tr.tf.NamedLabel(s.Label)}, nil

	case s.Jump != "":
		return tree.Jump(tr.tf.NamedLabel(s.Jump)), nil

	case s.Cjump != nil:
		op, ok := tree.ParseRelOp(s.Cjump.Op)
		if !ok {
			return nil, errors.New("unknown relational operator %q", s.Cjump.Op)
		}
		left, err := tr.exp(s.Cjump.Left)
		if err != nil {
			return nil, err
		}
		right, err := tr.exp(s.Cjump.Right)
		if err != nil {
			return nil, err
		}
		if s.Cjump.True == "" || s.Cjump.False == "" {
			return nil, errors.New("cjump needs true and false labels")
		}
		return tree.Scjump{
			Op: op, Left: left, Right: right,
			True: tr.tf.NamedLabel(s.Cjump.True), False: tr.tf.NamedLabel(s.Cjump.False),
		}, nil

	case s.Seq != nil:
		stms := make([]tree.Stm, 0, len(s.Seq))
		for _, sub := range s.Seq {
			stm, err := tr.stm(sub)
			if err != nil {
				return nil, err
			}
			stms = append(stms, stm)
		}
		return tree.Seq(stms...), nil
	}
	return nil, errors.New("empty statement")
}

func (tr *translator) exp(e expNode) (tree.Exp, error) {
	switch {
	case e.Const != nil:
		return tree.Econst{Value: *e.Const}, nil

	case e.Temp != "":
		t, ok := tr.temps[e.Temp]
		if !ok {
			t = tr.tf.NewTemp()
			tr.temps[e.Temp] = t
		}
		return tree.Etemp{Temp: t}, nil

	case e.Var != "":
		acc, ok := tr.locals[e.Var]
		if !ok {
			return nil, errors.New("unknown local %q", e.Var)
		}
		return frame.ToExp(acc, tr.fp), nil

	case e.Formal != nil:
		formals := tr.fr.Formals()
		if *e.Formal < 0 || *e.Formal >= len(formals) {
			return nil, errors.New("formal %d out of range (procedure has %d)", *e.Formal, len(formals))
		}
		return frame.ToExp(formals[*e.Formal], tr.fp), nil

	case e.Reg != "":
		r, ok := tr.rm.Reg(e.Reg)
		if !ok {
			return nil, errors.New("unknown register %q", e.Reg)
		}
		return tree.Etemp{Temp: r}, nil

	case e.FP:
		return tr.fp, nil

	case e.Name != "":
		return tree.Ename{Label: tr.tf.NamedLabel(e.Name)}, nil

	case e.Mem != nil:
		addr, err := tr.exp(*e.Mem)
		if err != nil {
			return nil, err
		}
		return tree.Emem{Addr: addr}, nil

	case e.Binop != nil:
		op, ok := tree.ParseBinOp(e.Binop.Op)
		if !ok {
			return nil, errors.New("unknown binary operator %q", e.Binop.Op)
		}
		left, err := tr.exp(e.Binop.Left)
		if err != nil {
			return nil, err
		}
		right, err := tr.exp(e.Binop.Right)
		if err != nil {
			return nil, err
		}
		return tree.Ebinop{Op: op, Left: left, Right: right}, nil

	case e.Call != nil, e.ExtCall != nil:
		c := e.Call
		if c == nil {
			c = e.ExtCall
		}
		args := make([]tree.Exp, 0, len(c.Args))
		for _, a := range c.Args {
			arg, err := tr.exp(a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if e.ExtCall != nil {
			return frame.ExternalCall(tr.tf, c.Fun, args), nil
		}
		if c.Exp != nil {
			fn, err := tr.exp(*c.Exp)
			if err != nil {
				return nil, err
			}
			return tree.Ecall{Fun: fn, Args: args}, nil
		}
		if c.Fun == "" {
			return nil, errors.New("call without a callee")
		}
		return tree.Ecall{Fun: tree.Ename{Label: tr.tf.NamedLabel(c.Fun)}, Args: args}, nil

	case e.Eseq != nil:
		s, err := tr.stm(e.Eseq.Stm)
		if err != nil {
			return nil, err
		}
		x, err := tr.exp(e.Eseq.Exp)
		if err != nil {
			return nil, err
		}
		return tree.Eeseq{Stm: s, Exp: x}, nil
	}
	return nil, errors.New("empty expression")
}
