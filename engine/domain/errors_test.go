package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyDeadline(t *testing.T) {
	err := Classify("listing.fetch", fmt.Errorf("get: %w", context.DeadlineExceeded))
	if err.Kind != KindTimeout {
		t.Fatalf("expected timeout kind, got %s", err.Kind)
	}
	if !IsKind(err, KindTimeout) {
		t.Fatal("IsKind should see timeout")
	}
	if IsKind(err, KindTransport) {
		t.Fatal("timeout must not classify as transport")
	}
}

func TestClassifyTransport(t *testing.T) {
	err := Classify("embed", errors.New("connection refused"))
	if err.Kind != KindTransport {
		t.Fatalf("expected transport kind, got %s", err.Kind)
	}
}

func TestErrorWrapping(t *testing.T) {
	inner := errors.New("anchor not found")
	err := E(KindFormat, "listing.parse", inner)
	if !errors.Is(err, inner) {
		t.Fatal("wrapped error should be reachable via errors.Is")
	}
	if err.Error() == "" {
		t.Fatal("error string should not be empty")
	}
}

func TestIsKindNonDomainError(t *testing.T) {
	if IsKind(errors.New("plain"), KindTransport) {
		t.Fatal("plain errors carry no kind")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindTransport: "transport",
		KindTimeout:   "timeout",
		KindFormat:    "format",
		KindData:      "data",
		Kind(99):      "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
