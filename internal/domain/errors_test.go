package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("dial", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "dial: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "dial: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewNetworkError("dial", baseErr)
		fatal := NewFatalNetworkError("handshake", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}
		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}
		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})
}

func TestDecodeError(t *testing.T) {
	base := errors.New("short frame")
	err := fmt.Errorf("source: %w", &DecodeError{Offset: 7, Err: base})

	if !errors.Is(err, ErrDecode) {
		t.Error("DecodeError should match ErrDecode")
	}
	if !errors.Is(err, base) {
		t.Error("DecodeError should unwrap to its cause")
	}

	var de *DecodeError
	if !errors.As(err, &de) || de.Offset != 7 {
		t.Errorf("expected DecodeError at offset 7, got %v", de)
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "hotpath.max_symbols", Err: errors.New("must be positive")}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [hotpath.max_symbols]: must be positive"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestOutcome(t *testing.T) {
	if OutcomeNoTrigger.Triggered() || OutcomeUndefined.Triggered() || OutcomeSymbolRejected.Triggered() {
		t.Error("non-trigger outcomes must not report Triggered")
	}
	for _, o := range []Outcome{OutcomeBlockedBuyDisabled, OutcomeBlockedBudget, OutcomeBlockedOpenIntents, OutcomeBlockedCooldown} {
		if !o.Triggered() || !o.GateBlocked() {
			t.Errorf("%s should be a triggered gate block", o)
		}
	}
	if OutcomeEnqueued.GateBlocked() || OutcomeDropped.GateBlocked() {
		t.Error("emit outcomes are not gate blocks")
	}
	if OutcomeDropped.String() != "dropped" {
		t.Errorf("unexpected name %q", OutcomeDropped.String())
	}
}
