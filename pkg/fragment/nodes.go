package fragment

import (
	"strconv"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

// unitDoc is the YAML shape of a compilation unit.
type unitDoc struct {
	Target  string      `yaml:"target,omitempty"`
	Strings []stringDoc `yaml:"strings"`
	Procs   []procDoc   `yaml:"procs"`
}

type stringDoc struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type procDoc struct {
	Name    string     `yaml:"name"`
	Formals []bool     `yaml:"formals"` // escapes, static link first
	Locals  []localDoc `yaml:"locals"`
	Body    []stmNode  `yaml:"body"`
}

type localDoc struct {
	Name   string `yaml:"name"`
	Escape bool   `yaml:"escape"`
}

// stmNode is a statement: a mapping with exactly one key naming its kind.
type stmNode struct {
	Move  *moveNode  `yaml:"move"`
	Exp   *expNode   `yaml:"exp"`
	Label string     `yaml:"label"`
	Jump  string     `yaml:"jump"`
	Cjump *cjumpNode `yaml:"cjump"`
	Seq   []stmNode  `yaml:"seq"`
}

type moveNode struct {
	Dst expNode `yaml:"dst"`
	Src expNode `yaml:"src"`
}

type cjumpNode struct {
	Op    string  `yaml:"op"`
	Left  expNode `yaml:"left"`
	Right expNode `yaml:"right"`
	True  string  `yaml:"true"`
	False string  `yaml:"false"`
}

// expNode is an expression. Besides the one-key mapping form, a scalar
// integer is a constant and any other scalar names a local.
type expNode struct {
	Const   *int       `yaml:"const"`
	Temp    string     `yaml:"temp"`
	Var     string     `yaml:"var"`
	Formal  *int       `yaml:"formal"`
	Reg     string     `yaml:"reg"`
	FP      bool       `yaml:"fp"`
	Name    string     `yaml:"name"`
	Mem     *expNode   `yaml:"mem"`
	Binop   *binopNode `yaml:"binop"`
	Call    *callNode  `yaml:"call"`
	ExtCall *callNode  `yaml:"extcall"`
	Eseq    *eseqNode  `yaml:"eseq"`
}

type binopNode struct {
	Op    string  `yaml:"op"`
	Left  expNode `yaml:"left"`
	Right expNode `yaml:"right"`
}

type callNode struct {
	Fun  string    `yaml:"fun"`
	Exp  *expNode  `yaml:"exp"` // computed callee, instead of fun
	Args []expNode `yaml:"args"`
}

type eseqNode struct {
	Stm stmNode `yaml:"stm"`
	Exp expNode `yaml:"exp"`
}

func (e *expNode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		if i, err := strconv.Atoi(n.Value); err == nil {
			e.Const = &i
			return nil
		}
		e.Var = n.Value
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return errors.New("line %d: expression must be a scalar or a mapping", n.Line)
	}
	if len(n.Content) != 2 {
		return errors.New("line %d: expression needs exactly one kind, got %d keys", n.Line, len(n.Content)/2)
	}
	type plain expNode
	return n.Decode((*plain)(e))
}

func (s *stmNode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return errors.New("line %d: statement needs exactly one kind", n.Line)
	}
	type plain stmNode
	return n.Decode((*plain)(s))
}
