package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(UnknownJurisdiction, "jurisdiction 'Atlantis' is not supported", nil)

	msg := err.Error()
	if !strings.Contains(msg, "UNKNOWN_JURISDICTION") {
		t.Errorf("error string should carry the code, got: %s", msg)
	}
	if !strings.Contains(msg, "Atlantis") {
		t.Errorf("error string should name the offending value, got: %s", msg)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := New(DiscoveryUnavailable, "index page unreachable", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error string should include the cause, got: %s", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	err := New(BridgeConflict, "already bound", nil)
	wrapped := fmt.Errorf("ensure bound: %w", err)

	if CodeOf(wrapped) != BridgeConflict {
		t.Errorf("CodeOf should see through wrapping, got %s", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != InternalError {
		t.Error("CodeOf on a plain error should be INTERNAL_ERROR")
	}
}

func TestIsCode(t *testing.T) {
	err := New(FetchFailed, "timeout", nil)
	if !IsCode(err, FetchFailed) {
		t.Error("IsCode should match the error's code")
	}
	if IsCode(err, BridgeUnbound) {
		t.Error("IsCode should not match a different code")
	}
}

func TestDefaultFixes(t *testing.T) {
	err := New(BridgeConflict, "bound to envA, requested envB", nil)
	if len(err.SuggestedFixes) == 0 {
		t.Fatal("BRIDGE_CONFLICT should carry a suggested fix")
	}
	if err.SuggestedFixes[0].Type != RestartProcess {
		t.Errorf("BRIDGE_CONFLICT remediation should be a process restart, got %s",
			err.SuggestedFixes[0].Type)
	}
}

func TestWithFixes(t *testing.T) {
	err := New(InvalidArguments, "both date and start/end supplied", nil).
		WithFixes(FixAction{Type: RunCommand, Command: "downballot results --start 2022-01-01"})
	if len(err.SuggestedFixes) != 1 {
		t.Fatalf("expected 1 fix, got %d", len(err.SuggestedFixes))
	}
}
