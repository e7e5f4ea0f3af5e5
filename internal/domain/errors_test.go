package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Is(t *testing.T) {
	err := fmt.Errorf("create reservation: %w", &ValidationError{
		Reason:   ReasonDurationExceeded,
		RuleName: "rooms",
		Message:  "duration 9h exceeds 8h",
	})

	if !errors.Is(err, ErrValidationFailed) {
		t.Fatal("expected ErrValidationFailed in chain")
	}
	if !errors.Is(err, ErrDurationExceeded) {
		t.Fatal("expected ErrDurationExceeded in chain")
	}
	if errors.Is(err, ErrAdvanceTooEarly) {
		t.Fatal("did not expect ErrAdvanceTooEarly in chain")
	}

	reason, ok := ValidationReasonOf(err)
	if !ok || reason != ReasonDurationExceeded {
		t.Fatalf("expected reason %s, got %s (ok=%v)", ReasonDurationExceeded, reason, ok)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "reservation not found", err: ErrReservationNotFound, want: true},
		{name: "resource not found", err: ErrResourceNotFound, want: true},
		{name: "wrapped in operation error", err: NewOperationError("get", ErrRuleNotFound), want: true},
		{name: "invalid transition", err: ErrInvalidTransition, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperationError(t *testing.T) {
	if NewOperationError("noop", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}

	cause := errors.New("connection refused")
	err := NewOperationError("persist reservation", cause)

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OperationError, got %T", err)
	}
	if opErr.Op != "persist reservation" {
		t.Fatalf("unexpected op %q", opErr.Op)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "persist reservation: connection refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
