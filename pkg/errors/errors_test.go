package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(CodeDependency, cause, "fetch subscription")

	if wrapped.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", wrapped.Code())
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected cause to survive wrapping")
	}
	if wrapped.Error() != "fetch subscription: connection refused" {
		t.Fatalf("unexpected message: %s", wrapped.Error())
	}
}

func TestAsFindsCodedErrorInChain(t *testing.T) {
	inner := New(CodeValidation, "professional_id missing from metadata")
	outer := Wrap(CodeDependency, inner, "handle event")

	typed := As(outer)
	if typed == nil {
		t.Fatalf("expected coded error")
	}
	if typed.Code() != CodeDependency {
		t.Fatalf("expected outermost code, got %s", typed.Code())
	}
	if !Is(outer, CodeDependency) {
		t.Fatalf("Is should match outer code")
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_NEW"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500 fallback, got %d", meta.HTTPStatus)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, errors.New("boom"), "persist account")
	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("expected code in dump, got %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected unwrap chain, got %v", dump.Chain)
	}
}
