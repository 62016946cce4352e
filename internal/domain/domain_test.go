package domain

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestProbeError_MessageAndKind(t *testing.T) {
	err := &ProbeError{Kind: UnexpectedStatus, Op: "propfind /", StatusCode: 500, Detail: "401"}
	if got := err.Error(); got != "propfind /: unexpected_status 500 (want 401)" {
		t.Fatalf("unexpected message %q", got)
	}

	wrapped := fmt.Errorf("auth: %w", err)
	if KindOf(wrapped) != UnexpectedStatus {
		t.Fatalf("KindOf lost the kind through wrapping")
	}
	if KindOf(io.EOF) != KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}

func TestProbeError_UnwrapsCause(t *testing.T) {
	err := &ProbeError{Kind: TransportException, Op: "propfind /", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("cause should be reachable via errors.Is")
	}
	if !strings.HasSuffix(err.Error(), io.ErrUnexpectedEOF.Error()) {
		t.Fatalf("cause missing from message: %q", err.Error())
	}
}

func TestCheckResult_OK(t *testing.T) {
	if !(CheckResult{Status: "OK"}).OK() || (CheckResult{Status: "WARNING"}).OK() {
		t.Fatalf("OK() mismatch")
	}
}
