package xerr

import (
	"errors"
	"testing"
)

func TestAuthClass(t *testing.T) {
	auth := []Code{CodeAuthenticationFailed, CodeVersionIncompatible, CodeServerVersionTooLow}
	for _, c := range auth {
		if !c.AuthClass() {
			t.Error("expected auth-class:", c)
		}
	}
	other := []Code{CodeUnknown, CodeTimeout, CodeConnectionRefused, CodeConnectionRejected, CodeServerError}
	for _, c := range other {
		if c.AuthClass() {
			t.Error("expected retryable:", c)
		}
	}
}

func TestAuthClassNilSafe(t *testing.T) {
	var e *Error
	if e.AuthClass() {
		t.Error("nil error must not be auth-class")
	}
}

func TestErrorString(t *testing.T) {
	e := Wrap(CodeTimeout, "no response", errors.New("context deadline exceeded"))
	want := "timeout: no response (context deadline exceeded)"
	if e.Error() != want {
		t.Errorf("expected %q, got %q", want, e.Error())
	}
	if New(CodeConnectionRefused, "").Error() != "connection refused" {
		t.Error("message-less error should print the code")
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Error("From(nil) must be nil")
	}
	orig := New(CodeServerError, "boom")
	if From(orig) != orig {
		t.Error("From must pass *Error through")
	}
	foreign := From(errors.New("plain"))
	if foreign.Code != CodeUnknown || foreign.Message != "plain" {
		t.Error("foreign error wrapped wrong:", foreign)
	}
}
