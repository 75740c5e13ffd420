package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewFromRegistry(t *testing.T) {
	e := New("E001")
	if e.Code != "E001" {
		t.Fatalf("code: %q", e.Code)
	}
	if e.Category != CategoryComputed {
		t.Fatalf("category: %q", e.Category)
	}
	if e.Fatal {
		t.Fatal("E001 must be recoverable")
	}
	if e.Message == "" || e.Detail == "" {
		t.Fatal("template must fill message and detail")
	}
}

func TestNewUnknownCode(t *testing.T) {
	e := New("E999")
	if e.Code != "E999" {
		t.Fatalf("code: %q", e.Code)
	}
	if e.Message != "unknown error" {
		t.Fatalf("message: %q", e.Message)
	}
}

func TestFatalCodes(t *testing.T) {
	if !New("E101").Fatal {
		t.Fatal("E101 must be fatal")
	}
	if New("E102").Fatal {
		t.Fatal("E102 must be recoverable")
	}
}

func TestErrorStringAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("cause")
	e := New("E102").WithSource("scheduler").Wrap(cause)

	if got := e.Error(); got != "E102: scheduled job panicked" {
		t.Fatalf("Error(): %q", got)
	}
	if !stderrors.Is(e, cause) {
		t.Fatal("wrapped cause must be reachable through errors.Is")
	}
	if e.Source != "scheduler" {
		t.Fatalf("source: %q", e.Source)
	}
}

func TestWithDetailf(t *testing.T) {
	e := New("E003").WithDetailf("target %d", 42)
	if e.Detail != "target 42" {
		t.Fatalf("detail: %q", e.Detail)
	}
}

func TestWarnHandler(t *testing.T) {
	var got []*Error
	SetWarnHandler(func(e *Error) { got = append(got, e) })
	defer SetWarnHandler(nil)

	Warn(New("E002"))
	Warnf("E004", "effect %d", 7)

	if len(got) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(got))
	}
	if got[0].Code != "E002" || got[1].Code != "E004" {
		t.Fatalf("codes: %s, %s", got[0].Code, got[1].Code)
	}
	if got[1].Detail != "effect 7" {
		t.Fatalf("detail: %q", got[1].Detail)
	}
}
