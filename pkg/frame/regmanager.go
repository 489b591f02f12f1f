// Package frame describes the target machine and the activation records of
// procedures: the physical register file, where locals and formals live, and
// the prologue/epilogue wrapped around a finished procedure body.
package frame

import (
	"io"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-tiger/pkg/temp"
)

// TargetDesc is the data form of a register file, as stored in target YAML
// files. Register names are display names used in emitted assembly.
type TargetDesc struct {
	Name         string   `yaml:"name"`
	WordSize     int      `yaml:"word_size"`
	StackAlign   int      `yaml:"stack_align"`
	Registers    []string `yaml:"registers"` // allocatable, in preference order
	ArgRegs      []string `yaml:"arg_regs"`  // calling-convention order
	CallerSaves  []string `yaml:"caller_saves"`
	CalleeSaves  []string `yaml:"callee_saves"`
	StackPointer string   `yaml:"stack_pointer"`
	ReturnValue  string   `yaml:"return_value"`

	// Fixed operands of the wide multiply/divide and variable shifts.
	// Optional for targets that are only used to drive the allocator.
	MulLo      string `yaml:"mul_lo,omitempty"`
	MulHi      string `yaml:"mul_hi,omitempty"`
	ShiftCount string `yaml:"shift_count,omitempty"`
}

// X8664 is the System V x86-64 register file. %rsp is reserved; %rbp is an
// ordinary callee-saved register because the frame pointer is virtual.
func X8664() TargetDesc {
	return TargetDesc{
		Name:       "x86-64",
		WordSize:   8,
		StackAlign: 16,
		Registers: []string{
			"%rax", "%rcx", "%rdx", "%rsi", "%rdi", "%r8", "%r9", "%r10", "%r11",
			"%rbx", "%rbp", "%r12", "%r13", "%r14", "%r15",
		},
		ArgRegs:      []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"},
		CallerSaves:  []string{"%rax", "%rcx", "%rdx", "%rsi", "%rdi", "%r8", "%r9", "%r10", "%r11"},
		CalleeSaves:  []string{"%rbx", "%rbp", "%r12", "%r13", "%r14", "%r15"},
		StackPointer: "%rsp",
		ReturnValue:  "%rax",
		MulLo:        "%rax",
		MulHi:        "%rdx",
		ShiftCount:   "%rcx",
	}
}

// LoadTarget decodes a target description from YAML. Omitted word size and
// stack alignment default to 8 and 16.
func LoadTarget(r io.Reader) (TargetDesc, error) {
	var desc TargetDesc
	if err := yaml.NewDecoder(r).Decode(&desc); err != nil {
		return TargetDesc{}, errors.Wrap(err, "decode target")
	}
	if desc.WordSize == 0 {
		desc.WordSize = 8
	}
	if desc.StackAlign == 0 {
		desc.StackAlign = 16
	}
	return desc, nil
}

// RegManager binds a TargetDesc to temps issued by a Factory. Every physical
// register is a precolored temp; the frame pointer is a temp that never
// reaches the allocator because instruction selection rewrites it.
type RegManager struct {
	desc        TargetDesc
	byName      map[string]temp.Temp
	registers   []temp.Temp
	argRegs     []temp.Temp
	callerSaves []temp.Temp
	calleeSaves []temp.Temp
	sp, rv, fp  temp.Temp
	allocatable temp.Set
	precolored  *temp.Map
}

// NewRegManager validates desc and creates one temp per register.
func NewRegManager(f *temp.Factory, desc TargetDesc) (*RegManager, error) {
	if len(desc.Registers) == 0 {
		return nil, errors.New("target %q has no registers", desc.Name)
	}
	if desc.StackPointer == "" || desc.ReturnValue == "" {
		return nil, errors.New("target %q needs stack_pointer and return_value", desc.Name)
	}
	if desc.WordSize <= 0 || desc.StackAlign <= 0 {
		return nil, errors.New("target %q: bad word size %d or alignment %d", desc.Name, desc.WordSize, desc.StackAlign)
	}

	rm := &RegManager{
		desc:        desc,
		byName:      make(map[string]temp.Temp),
		allocatable: temp.NewSet(),
		precolored:  temp.NewMap(),
	}
	newReg := func(name string) temp.Temp {
		t := f.NewTemp()
		f.Names().Enter(t, name)
		rm.precolored.Enter(t, name)
		rm.byName[name] = t
		return t
	}
	for _, name := range desc.Registers {
		if _, dup := rm.byName[name]; dup {
			return nil, errors.New("target %q: duplicate register %s", desc.Name, name)
		}
		t := newReg(name)
		rm.registers = append(rm.registers, t)
		rm.allocatable.Add(t)
	}
	if _, clash := rm.byName[desc.StackPointer]; clash {
		return nil, errors.New("target %q: stack pointer %s must not be allocatable", desc.Name, desc.StackPointer)
	}
	rm.sp = newReg(desc.StackPointer)

	lookup := func(role string, names []string) ([]temp.Temp, error) {
		ts := make([]temp.Temp, 0, len(names))
		for _, n := range names {
			t, ok := rm.byName[n]
			if !ok || t == rm.sp {
				return nil, errors.New("target %q: %s register %s is not allocatable", desc.Name, role, n)
			}
			ts = append(ts, t)
		}
		return ts, nil
	}
	var err error
	if rm.argRegs, err = lookup("argument", desc.ArgRegs); err != nil {
		return nil, err
	}
	if rm.callerSaves, err = lookup("caller-saved", desc.CallerSaves); err != nil {
		return nil, err
	}
	if rm.calleeSaves, err = lookup("callee-saved", desc.CalleeSaves); err != nil {
		return nil, err
	}
	fixed := []string{desc.ReturnValue}
	for _, n := range []string{desc.MulLo, desc.MulHi, desc.ShiftCount} {
		if n != "" {
			fixed = append(fixed, n)
		}
	}
	if _, err = lookup("fixed", fixed); err != nil {
		return nil, err
	}
	rm.rv = rm.byName[desc.ReturnValue]

	rm.fp = f.NewTemp()
	f.Names().Enter(rm.fp, "fp")
	return rm, nil
}

// Desc returns the description the manager was built from.
func (rm *RegManager) Desc() TargetDesc { return rm.desc }

// Registers lists the allocatable registers in preference order.
func (rm *RegManager) Registers() []temp.Temp { return rm.registers }

// ArgRegs lists the argument registers in calling-convention order.
func (rm *RegManager) ArgRegs() []temp.Temp { return rm.argRegs }

// CallerSaves lists the registers a call may clobber.
func (rm *RegManager) CallerSaves() []temp.Temp { return rm.callerSaves }

// CalleeSaves lists the registers a procedure must preserve.
func (rm *RegManager) CalleeSaves() []temp.Temp { return rm.calleeSaves }

// ReturnSink lists the registers that are live when a procedure returns.
func (rm *RegManager) ReturnSink() []temp.Temp { return []temp.Temp{rm.rv, rm.sp} }

func (rm *RegManager) WordSize() int                  { return rm.desc.WordSize }
func (rm *RegManager) StackPointer() temp.Temp        { return rm.sp }
func (rm *RegManager) ReturnValue() temp.Temp         { return rm.rv }
func (rm *RegManager) FramePointer() temp.Temp        { return rm.fp }
func (rm *RegManager) K() int                         { return len(rm.registers) }
func (rm *RegManager) Precolored() *temp.Map          { return rm.precolored }
func (rm *RegManager) IsAllocatable(t temp.Temp) bool { return rm.allocatable.Contains(t) }

// IsPrecolored reports whether t stands for a physical register, including
// reserved ones such as the stack pointer.
func (rm *RegManager) IsPrecolored(t temp.Temp) bool {
	_, ok := rm.precolored.Look(t)
	return ok
}

// IsCalleeSave reports whether t is a callee-saved register.
func (rm *RegManager) IsCalleeSave(t temp.Temp) bool {
	for _, r := range rm.calleeSaves {
		if r == t {
			return true
		}
	}
	return false
}

// Reg returns the temp of the named register. Unknown names yield false.
func (rm *RegManager) Reg(name string) (temp.Temp, bool) {
	t, ok := rm.byName[name]
	return t, ok
}

// MulLo, MulHi and ShiftCount return the fixed operands of wide multiply,
// divide and variable shifts.
func (rm *RegManager) MulLo() temp.Temp      { return rm.byName[rm.desc.MulLo] }
func (rm *RegManager) MulHi() temp.Temp      { return rm.byName[rm.desc.MulHi] }
func (rm *RegManager) ShiftCount() temp.Temp { return rm.byName[rm.desc.ShiftCount] }
