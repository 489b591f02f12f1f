// Package tree defines the low-level intermediate tree handed to the backend
// by the translation phase. Statements and expressions are closed variants:
// every case is a struct in this file, and consumers switch over them
// exhaustively.
package tree

import "github.com/raymyers/ralph-tiger/pkg/temp"

// BinOp is an arithmetic or bitwise operator.
type BinOp int

const (
	Plus BinOp = iota
	Minus
	Mul
	Div
	And
	Or
	LShift
	RShift
	ARShift
	Xor
)

var binOpNames = [...]string{"PLUS", "MINUS", "MUL", "DIV", "AND", "OR", "LSHIFT", "RSHIFT", "ARSHIFT", "XOR"}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "BINOP?"
}

// RelOp is a comparison used by conditional jumps.
type RelOp int

const (
	Eq RelOp = iota
	Ne
	Lt
	Gt
	Le
	Ge
	Ult
	Ule
	Ugt
	Uge
)

var relOpNames = [...]string{"EQ", "NE", "LT", "GT", "LE", "GE", "ULT", "ULE", "UGT", "UGE"}

func (op RelOp) String() string {
	if int(op) < len(relOpNames) {
		return relOpNames[op]
	}
	return "RELOP?"
}

// Negate returns the relation that holds exactly when op does not.
func (op RelOp) Negate() RelOp {
	switch op {
	case Eq:
		return Ne
	case Ne:
		return Eq
	case Lt:
		return Ge
	case Ge:
		return Lt
	case Gt:
		return Le
	case Le:
		return Gt
	case Ult:
		return Uge
	case Uge:
		return Ult
	case Ugt:
		return Ule
	default: // Ule
		return Ugt
	}
}

// ParseBinOp maps an operator name (PLUS, MINUS, ...) to its BinOp.
func ParseBinOp(s string) (BinOp, bool) {
	for i, n := range binOpNames {
		if n == s {
			return BinOp(i), true
		}
	}
	return 0, false
}

// ParseRelOp maps a relation name (EQ, LT, ...) to its RelOp.
func ParseRelOp(s string) (RelOp, bool) {
	for i, n := range relOpNames {
		if n == s {
			return RelOp(i), true
		}
	}
	return 0, false
}

// Node is implemented by every statement and expression.
type Node interface {
	implTreeNode()
}

// Stm is a statement: it has effects but no value.
type Stm interface {
	Node
	implTreeStm()
}

// Exp is an expression producing a word-sized value.
type Exp interface {
	Node
	implTreeExp()
}

// --- Statements ---

// Sseq runs Left then Right.
type Sseq struct {
	Left, Right Stm
}

// Slabel defines Label at this point.
type Slabel struct {
	Label temp.Label
}

// Sjump transfers control to the address computed by Target, which must be
// one of Labels.
type Sjump struct {
	Target Exp
	Labels []temp.Label
}

// Scjump evaluates Left Op Right and jumps to True or False.
type Scjump struct {
	Op          RelOp
	Left, Right Exp
	True, False temp.Label
}

// Smove stores Src into Dst, which must be an Etemp or an Emem.
type Smove struct {
	Dst, Src Exp
}

// Sexp evaluates Exp and discards the result.
type Sexp struct {
	Exp Exp
}

// --- Expressions ---

// Ebinop applies Op to Left and Right.
type Ebinop struct {
	Op          BinOp
	Left, Right Exp
}

// Emem is the word of memory at Addr.
type Emem struct {
	Addr Exp
}

// Etemp reads a temporary.
type Etemp struct {
	Temp temp.Temp
}

// Eeseq runs Stm, then evaluates Exp.
type Eeseq struct {
	Stm Stm
	Exp Exp
}

// Ename is the address of a label.
type Ename struct {
	Label temp.Label
}

// Econst is an integer constant.
type Econst struct {
	Value int
}

// Ecall calls Fun with Args. Static links are already explicit in Args.
type Ecall struct {
	Fun  Exp
	Args []Exp
}

func (Sseq) implTreeNode()   {}
func (Slabel) implTreeNode() {}
func (Sjump) implTreeNode()  {}
func (Scjump) implTreeNode() {}
func (Smove) implTreeNode()  {}
func (Sexp) implTreeNode()   {}

func (Sseq) implTreeStm()   {}
func (Slabel) implTreeStm() {}
func (Sjump) implTreeStm()  {}
func (Scjump) implTreeStm() {}
func (Smove) implTreeStm()  {}
func (Sexp) implTreeStm()   {}

func (Ebinop) implTreeNode() {}
func (Emem) implTreeNode()   {}
func (Etemp) implTreeNode()  {}
func (Eeseq) implTreeNode()  {}
func (Ename) implTreeNode()  {}
func (Econst) implTreeNode() {}
func (Ecall) implTreeNode()  {}

func (Ebinop) implTreeExp() {}
func (Emem) implTreeExp()   {}
func (Etemp) implTreeExp()  {}
func (Eeseq) implTreeExp()  {}
func (Ename) implTreeExp()  {}
func (Econst) implTreeExp() {}
func (Ecall) implTreeExp()  {}

// Seq chains statements left to right. Seq() is an empty expression statement.
func Seq(stms ...Stm) Stm {
	switch len(stms) {
	case 0:
		return Sexp{Exp: Econst{Value: 0}}
	case 1:
		return stms[0]
	}
	return Sseq{Left: stms[0], Right: Seq(stms[1:]...)}
}

// Flatten lists the statements of nested Sseq nodes in execution order.
func Flatten(s Stm) []Stm {
	var out []Stm
	var walk func(Stm)
	walk = func(s Stm) {
		if seq, ok := s.(Sseq); ok {
			walk(seq.Left)
			walk(seq.Right)
			return
		}
		out = append(out, s)
	}
	walk(s)
	return out
}

// Jump is an unconditional jump to a known label.
func Jump(l temp.Label) Sjump {
	return Sjump{Target: Ename{Label: l}, Labels: []temp.Label{l}}
}
