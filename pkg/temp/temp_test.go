package temp

import (
	"bytes"
	"strings"
	"testing"
)

func TestFactoryNumbering(t *testing.T) {
	f := NewFactory()
	a := f.NewTemp()
	b := f.NewTemp()
	if a != 100 || b != 101 {
		t.Fatalf("got %v %v, want t100 t101", a, b)
	}
	if l := f.NewLabel(); l != "L0" {
		t.Errorf("first label = %q, want L0", l)
	}
	if l := f.NewLabel(); l != "L1" {
		t.Errorf("second label = %q, want L1", l)
	}
	if f.Issued() != 2 {
		t.Errorf("Issued() = %d, want 2", f.Issued())
	}

	f.Reset()
	if got := f.NewTemp(); got != 100 {
		t.Errorf("after Reset got %v, want t100", got)
	}
	if _, ok := f.Names().Look(b); ok {
		t.Error("Reset should forget old names")
	}
}

func TestFactoriesAreIndependent(t *testing.T) {
	f1 := NewFactory()
	f2 := NewFactory()
	f1.NewTemp()
	f1.NewTemp()
	if got := f2.NewTemp(); got != 100 {
		t.Errorf("second factory started at %v", got)
	}
}

func TestMapLayering(t *testing.T) {
	f := NewFactory()
	a := f.NewTemp()
	b := f.NewTemp()

	coloring := NewMap()
	coloring.Enter(a, "%rax")
	m := Layer(coloring, f.Names())

	if got := m.Name(a); got != "%rax" {
		t.Errorf("Name(a) = %q, want %%rax", got)
	}
	if got := m.Name(b); got != "t101" {
		t.Errorf("Name(b) = %q, want t101", got)
	}
	if got := m.Name(Temp(999)); got != "t999" {
		t.Errorf("Name(unknown) = %q, want fallback", got)
	}
	if Layer(nil, coloring) != coloring {
		t.Error("Layer(nil, m) should be m")
	}

	var buf bytes.Buffer
	m.Dump(&buf)
	out := buf.String()
	if !strings.Contains(out, "t100 -> %rax") || !strings.Contains(out, "---------") {
		t.Errorf("unexpected dump:\n%s", out)
	}
}

func TestSetOperations(t *testing.T) {
	t.Run("Add and Contains", func(t *testing.T) {
		s := NewSet()
		s.Add(1)
		s.Add(2)
		if !s.Contains(1) || !s.Contains(2) {
			t.Error("set should contain 1 and 2")
		}
		if s.Contains(3) {
			t.Error("set should not contain 3")
		}
		s.Remove(1)
		if s.Contains(1) {
			t.Error("1 should be removed")
		}
	})

	t.Run("Union", func(t *testing.T) {
		u := NewSet(1, 2).Union(NewSet(2, 3))
		if !u.Equal(NewSet(1, 2, 3)) {
			t.Errorf("union = %v", u.Sorted())
		}
	})

	t.Run("Minus", func(t *testing.T) {
		diff := NewSet(1, 2, 3).Minus(NewSet(2))
		if !diff.Equal(NewSet(1, 3)) {
			t.Errorf("difference = %v", diff.Sorted())
		}
	})

	t.Run("Intersect", func(t *testing.T) {
		in := NewSet(1, 2, 3).Intersect(NewSet(3, 4))
		if !in.Equal(NewSet(3)) {
			t.Errorf("intersection = %v", in.Sorted())
		}
	})

	t.Run("Equal ignores order", func(t *testing.T) {
		if !NewSet(1, 2).Equal(NewSet(2, 1)) {
			t.Error("sets should be equal")
		}
		if NewSet(1, 2).Equal(NewSet(1)) {
			t.Error("sets should differ")
		}
	})

	t.Run("Copy", func(t *testing.T) {
		s := NewSet(1, 2)
		c := s.Copy()
		s.Add(3)
		if c.Contains(3) {
			t.Error("copy should not be affected by modifications to original")
		}
	})

	t.Run("Sorted", func(t *testing.T) {
		got := NewSet(5, 1, 3).Sorted()
		want := []Temp{1, 3, 5}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Sorted() = %v, want %v", got, want)
			}
		}
	})
}

func TestReplace(t *testing.T) {
	in := []Temp{1, 2, 1}
	out := Replace(in, 1, 9)
	if out[0] != 9 || out[1] != 2 || out[2] != 9 {
		t.Errorf("Replace = %v", out)
	}
	if in[0] != 1 {
		t.Error("Replace must not modify its input")
	}
}
