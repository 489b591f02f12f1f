package ice

import (
	"errors"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

func raise() (err error) {
	defer Catch(&err)
	Fatalf("codegen", "unexpected %s", "MOVE")
	return nil
}

func raiseWrapped() (err error) {
	defer Catch(&err)
	Wrap("regalloc", errSentinel, "gave up after %d rounds", 3)
	return nil
}

func TestCatchConvertsFatal(t *testing.T) {
	err := raise()
	if err == nil {
		t.Fatal("expected error")
	}
	var ie *Error
	if !errors.As(err, &ie) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ie.Phase != "codegen" || !strings.Contains(err.Error(), "unexpected MOVE") {
		t.Errorf("unexpected error %q", err)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := raiseWrapped()
	if !errors.Is(err, errSentinel) {
		t.Errorf("expected sentinel cause, got %v", err)
	}
}

func TestCatchPassesOtherPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	func() (err error) {
		defer Catch(&err)
		panic("boom")
	}()
}
