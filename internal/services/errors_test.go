package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("renew: %w", validationError("duration must be positive"))

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected wrapped validation error to match ErrValidation")
	}
	if errors.Is(err, ErrStillActive) {
		t.Fatalf("expected validation error to not match ErrStillActive")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected errors.As to find *AppError")
	}
	if appErr.Message != "duration must be positive" {
		t.Fatalf("unexpected message %q", appErr.Message)
	}
}

func TestSlotAlreadyBookedIsRetryable(t *testing.T) {
	if !ErrSlotAlreadyBooked.Retryable {
		t.Fatalf("expected SlotAlreadyBooked to be retryable")
	}
	if ErrInsufficientBalance.Retryable {
		t.Fatalf("expected InsufficientBalance to not be retryable")
	}
}
