package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("load: %w", ErrSessionNotFound)

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected kind sentinel to match")
	}
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected specific sentinel to match")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatalf("different message must not match")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("different kind must not match")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found, got %s", KindOf(err))
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindGateway, "generation request failed", cause)

	if !errors.Is(err, cause) || !errors.Is(err, ErrGateway) {
		t.Fatalf("expected cause and kind to match")
	}
	if err.Error() != "generation request failed: dial tcp: refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("plain errors are internal")
	}
}
