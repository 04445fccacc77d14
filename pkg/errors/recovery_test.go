package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestRecover_WithPanic tests the Recover function when a renderer panics
func TestRecover_WithPanic(t *testing.T) {
	render := func() (err error) {
		defer Recover(&err, "tree render")
		panic("zero width canvas")
	}

	err := render()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "tree render" {
		t.Errorf("Expected operation 'tree render', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if panicErr.Error() != "panic in tree render: zero width canvas" {
		t.Errorf("unexpected message: %s", panicErr.Error())
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	render := func() (err error) {
		defer Recover(&err, "tree render")
		return nil
	}

	if err := render(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

// TestRecover_WithExistingError keeps the original error as the primary one
func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("upload failed")

	render := func() (err error) {
		defer Recover(&err, "tree render")
		err = originalErr
		panic("panic after error")
	}

	err := render()
	if !errors.Is(err, originalErr) {
		t.Fatalf("original error must stay primary, got %v", err)
	}

	detail := fmt.Sprintf("%+v", err)
	if !strings.Contains(detail, "panic in tree render") {
		t.Errorf("detailed output should mention the panic: %s", detail)
	}
}

func TestSafeExecute(t *testing.T) {
	if err := SafeExecute("ok", func() error { return nil }); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	fnErr := fmt.Errorf("function error")
	if err := SafeExecute("fails", func() error { return fnErr }); err != fnErr {
		t.Fatalf("Expected original error, got: %v", err)
	}

	err := SafeExecute("panics", func() error { panic(42) })
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.PanicValue != 42 {
		t.Errorf("Expected panic value 42, got %v", panicErr.PanicValue)
	}
}

func TestPanicError_String(t *testing.T) {
	panicErr := NewPanicError("importance chart", "bad value")

	str := panicErr.String()
	if !strings.Contains(str, "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
	if !strings.Contains(str, "panic in importance chart: bad value") {
		t.Error("String() should include basic error information")
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("BenchmarkOp", func() error {
			return nil
		})
	}
}
