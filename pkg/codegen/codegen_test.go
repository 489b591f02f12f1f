package codegen

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/raymyers/ralph-tiger/pkg/assem"
	"github.com/raymyers/ralph-tiger/pkg/frame"
	"github.com/raymyers/ralph-tiger/pkg/ice"
	"github.com/raymyers/ralph-tiger/pkg/temp"
	"github.com/raymyers/ralph-tiger/pkg/tree"
)

// fixture builds an x86-64 frame named f. Register temps take 100-116, so
// the two scratch temps are t117 and t118 and selection starts at t119.
type fixture struct {
	tf   *temp.Factory
	rm   *frame.RegManager
	fr   *frame.Frame
	a, b temp.Temp
	fp   tree.Exp
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tf := temp.NewFactory()
	rm, err := frame.NewRegManager(tf, frame.X8664())
	if err != nil {
		t.Fatalf("NewRegManager: %v", err)
	}
	fx := &fixture{tf: tf, rm: rm, fr: frame.NewFrame(rm, tf, "f", nil)}
	fx.a, fx.b = tf.NewTemp(), tf.NewTemp()
	fx.fp = tree.Etemp{Temp: rm.FramePointer()}
	return fx
}

func (fx *fixture) text(instrs []assem.Instr) []string {
	var out []string
	for _, instr := range instrs {
		out = append(out, assem.Format(instr, fx.tf.Names()))
	}
	return out
}

func tmp(t temp.Temp) tree.Exp { return tree.Etemp{Temp: t} }
func cnst(i int) tree.Exp      { return tree.Econst{Value: i} }
func plus(l, r tree.Exp) tree.Exp {
	return tree.Ebinop{Op: tree.Plus, Left: l, Right: r}
}

func TestSelectPatterns(t *testing.T) {
	tests := []struct {
		name string
		stm  func(fx *fixture) tree.Stm
		want []string
	}{
		{
			name: "constant into temp",
			stm:  func(fx *fixture) tree.Stm { return tree.Smove{Dst: tmp(fx.a), Src: cnst(7)} },
			want: []string{"movq $7, t117"},
		},
		{
			name: "load folds displacement",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Emem{Addr: plus(tmp(fx.b), cnst(8))}}
			},
			want: []string{"movq 8(t118), t119", "movq t119, t117"},
		},
		{
			name: "store folds displacement with constant first",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tree.Emem{Addr: plus(cnst(16), tmp(fx.a))}, Src: tmp(fx.b)}
			},
			want: []string{"movq t118, 16(t117)"},
		},
		{
			name: "memory to memory goes through a temp",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tree.Emem{Addr: tmp(fx.a)}, Src: tree.Emem{Addr: tmp(fx.b)}}
			},
			want: []string{"movq (t118), t119", "movq t119, (t117)"},
		},
		{
			name: "immediate store",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tree.Emem{Addr: tmp(fx.a)}, Src: cnst(5)}
			},
			want: []string{"movq $5, (t117)"},
		},
		{
			name: "frame pointer expands to stack pointer plus frame size",
			stm:  func(fx *fixture) tree.Stm { return tree.Smove{Dst: tmp(fx.a), Src: fx.fp} },
			want: []string{"leaq f_framesize(%rsp), t119", "movq t119, t117"},
		},
		{
			name: "frame slot load",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Emem{Addr: plus(fx.fp, cnst(-8))}}
			},
			want: []string{"movq f_framesize-8(%rsp), t119", "movq t119, t117"},
		},
		{
			name: "frame slot store",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tree.Emem{Addr: plus(fx.fp, cnst(-16))}, Src: cnst(0)}
			},
			want: []string{"movq $0, f_framesize-16(%rsp)"},
		},
		{
			name: "name",
			stm:  func(fx *fixture) tree.Stm { return tree.Smove{Dst: tmp(fx.a), Src: tree.Ename{Label: "L5"}} },
			want: []string{"leaq L5(%rip), t119", "movq t119, t117"},
		},
		{
			name: "commutative constant operand becomes immediate",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: plus(cnst(4), tmp(fx.a))}
			},
			want: []string{"movq t117, t119", "addq $4, t119", "movq t119, t117"},
		},
		{
			name: "subtract",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Ebinop{Op: tree.Minus, Left: tmp(fx.a), Right: tmp(fx.b)}}
			},
			want: []string{"movq t117, t119", "subq t118, t119", "movq t119, t117"},
		},
		{
			name: "multiply goes through rax",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Ebinop{Op: tree.Mul, Left: tmp(fx.a), Right: tmp(fx.b)}}
			},
			want: []string{"movq t117, %rax", "imulq t118", "movq %rax, t119", "movq t119, t117"},
		},
		{
			name: "divide sign-extends into rdx",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Ebinop{Op: tree.Div, Left: tmp(fx.a), Right: tmp(fx.b)}}
			},
			want: []string{"movq t117, %rax", "cqto", "idivq t118", "movq %rax, t119", "movq t119, t117"},
		},
		{
			name: "variable shift count in rcx",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Ebinop{Op: tree.LShift, Left: tmp(fx.a), Right: tmp(fx.b)}}
			},
			want: []string{"movq t117, t119", "movq t118, %rcx", "salq %cl, t119", "movq t119, t117"},
		},
		{
			name: "constant shift",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Ebinop{Op: tree.ARShift, Left: tmp(fx.a), Right: cnst(3)}}
			},
			want: []string{"movq t117, t119", "sarq $3, t119", "movq t119, t117"},
		},
		{
			name: "wide constant operand goes through a temp",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: plus(tmp(fx.a), cnst(1<<40))}
			},
			want: []string{"movq $1099511627776, t119", "movq t117, t120", "addq t119, t120", "movq t120, t117"},
		},
		{
			name: "wide constant store goes through a temp",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tree.Emem{Addr: tmp(fx.a)}, Src: cnst(-1 << 33)}
			},
			want: []string{"movq $-8589934592, t119", "movq t119, (t117)"},
		},
		{
			name: "wide displacement is added explicitly",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Emem{Addr: plus(tmp(fx.b), cnst(1<<32))}}
			},
			want: []string{
				"movq $4294967296, t119", "movq t118, t120", "addq t119, t120",
				"movq (t120), t121", "movq t121, t117",
			},
		},
		{
			name: "out of range shift count uses rcx",
			stm: func(fx *fixture) tree.Stm {
				return tree.Smove{Dst: tmp(fx.a), Src: tree.Ebinop{Op: tree.LShift, Left: tmp(fx.a), Right: cnst(64)}}
			},
			want: []string{"movq $64, t119", "movq t117, t120", "movq t119, %rcx", "salq %cl, t120", "movq t120, t117"},
		},
		{
			name: "call binds argument registers",
			stm: func(fx *fixture) tree.Stm {
				call := tree.Ecall{Fun: tree.Ename{Label: "g"}, Args: []tree.Exp{cnst(1), tmp(fx.b)}}
				return tree.Smove{Dst: tmp(fx.a), Src: call}
			},
			want: []string{
				"movq $1, t119", "movq t119, %rdi", "movq t118, %rsi",
				"callq g", "movq %rax, t120", "movq t120, t117",
			},
		},
		{
			name: "direct jump",
			stm:  func(fx *fixture) tree.Stm { return tree.Jump("L3") },
			want: []string{"jmp L3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			got := fx.text(Codegen(fx.fr, fx.rm, []tree.Stm{tt.stm(fx)}))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("selection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCjumpFallsThroughToFalseLabel(t *testing.T) {
	fx := newFixture(t)
	cj := tree.Scjump{Op: tree.Lt, Left: tmp(fx.a), Right: tmp(fx.b), True: "T", False: "F"}

	got := fx.text(Codegen(fx.fr, fx.rm, []tree.Stm{cj, tree.Slabel{Label: "F"}}))
	if diff := cmp.Diff([]string{"cmpq t118, t117", "jl T", "F:"}, got); diff != "" {
		t.Errorf("fallthrough (-want +got):\n%s", diff)
	}

	instrs := Codegen(fx.fr, fx.rm, []tree.Stm{cj, tree.Slabel{Label: "T"}})
	got = fx.text(instrs)
	if diff := cmp.Diff([]string{"cmpq t118, t117", "jl T", "jmp F", "T:"}, got); diff != "" {
		t.Errorf("explicit false jump (-want +got):\n%s", diff)
	}
	if assem.IsDirectJump(instrs[1]) || !assem.IsDirectJump(instrs[2]) {
		t.Error("only the explicit jmp should be a direct jump")
	}
}

func TestCjumpImmediateAndNestedSeq(t *testing.T) {
	fx := newFixture(t)
	body := tree.Seq(
		tree.Scjump{Op: tree.Uge, Left: tmp(fx.a), Right: cnst(3), True: "T", False: "F"},
		tree.Seq(tree.Slabel{Label: "F"}, tree.Slabel{Label: "T"}),
	)
	got := fx.text(Codegen(fx.fr, fx.rm, []tree.Stm{body}))
	if diff := cmp.Diff([]string{"cmpq $3, t117", "jae T", "F:", "T:"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCjumpWideConstant(t *testing.T) {
	fx := newFixture(t)
	cj := tree.Scjump{Op: tree.Lt, Left: tmp(fx.a), Right: cnst(1 << 31), True: "T", False: "F"}
	got := fx.text(Codegen(fx.fr, fx.rm, []tree.Stm{cj, tree.Slabel{Label: "F"}}))
	want := []string{"movq $2147483648, t119", "cmpq t119, t117", "jl T", "F:"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestIsImm32(t *testing.T) {
	for v, want := range map[int]bool{
		0: true, 2147483647: true, -2147483648: true,
		2147483648: false, -2147483649: false,
	} {
		if got := isImm32(v); got != want {
			t.Errorf("isImm32(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestCallClobbersCallerSaves(t *testing.T) {
	fx := newFixture(t)
	call := tree.Sexp{Exp: tree.Ecall{Fun: tree.Ename{Label: "g"}, Args: []tree.Exp{tmp(fx.a)}}}
	var callInstr assem.Oper
	found := false
	for _, instr := range Codegen(fx.fr, fx.rm, []tree.Stm{call}) {
		if o, ok := instr.(assem.Oper); ok && o.Assem == "callq g" {
			callInstr, found = o, true
		}
	}
	if !found {
		t.Fatal("no call instruction")
	}
	if diff := cmp.Diff(fx.rm.CallerSaves(), callInstr.Def()); diff != "" {
		t.Errorf("call defs (-want +got):\n%s", diff)
	}
	rdi, _ := fx.rm.Reg("%rdi")
	rsi, _ := fx.rm.Reg("%rsi")
	if !assem.Contains(callInstr.Use(), rdi) || assem.Contains(callInstr.Use(), rsi) {
		t.Errorf("call uses %v, want only bound argument registers", callInstr.Use())
	}
}

func TestCallOverflowArguments(t *testing.T) {
	fx := newFixture(t)
	args := make([]tree.Exp, 8)
	for i := range args {
		args[i] = tmp(fx.a)
	}
	got := fx.text(Codegen(fx.fr, fx.rm, []tree.Stm{tree.Sexp{Exp: tree.Ecall{Fun: tree.Ename{Label: "g"}, Args: args}}}))
	want := []string{"movq t117, 0(%rsp)", "movq t117, 8(%rsp)"}
	if diff := cmp.Diff(want, got[:2]); diff != "" {
		t.Errorf("overflow stores (-want +got):\n%s", diff)
	}
	if fx.fr.Size() != 24 {
		t.Errorf("frame size = %d, want 24 with two outgoing words", fx.fr.Size())
	}
}

func TestIndirectCall(t *testing.T) {
	fx := newFixture(t)
	call := tree.Smove{Dst: tmp(fx.a), Src: tree.Ecall{Fun: tmp(fx.b)}}
	got := fx.text(Codegen(fx.fr, fx.rm, []tree.Stm{call}))
	want := []string{"callq *t118", "movq %rax, t119", "movq t119, t117"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		stm  func(fx *fixture) tree.Stm
	}{
		{"move into constant", func(fx *fixture) tree.Stm { return tree.Smove{Dst: cnst(1), Src: cnst(2)} }},
		{"move into frame pointer", func(fx *fixture) tree.Stm { return tree.Smove{Dst: fx.fp, Src: tmp(fx.a)} }},
		{"jump without targets", func(fx *fixture) tree.Stm { return tree.Sjump{Target: tmp(fx.a)} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			err := func() (err error) {
				defer ice.Catch(&err)
				Codegen(fx.fr, fx.rm, []tree.Stm{tt.stm(fx)})
				return nil
			}()
			var ie *ice.Error
			if !errors.As(err, &ie) || ie.Phase != "codegen" {
				t.Errorf("got %v, want codegen internal error", err)
			}
		})
	}
}
