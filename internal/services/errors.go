package services

import "fmt"

// AppError is a business failure with a stable machine code. Two AppErrors
// match under errors.Is when their codes are equal.
type AppError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithMessage keeps the code and replaces the human text.
func (e *AppError) WithMessage(format string, args ...any) *AppError {
	return &AppError{Code: e.Code, Message: fmt.Sprintf(format, args...), Retryable: e.Retryable}
}

var (
	ErrValidation             = &AppError{Code: "ValidationError", Message: "invalid input"}
	ErrInsufficientBalance    = &AppError{Code: "InsufficientBalance", Message: "insufficient wallet balance"}
	ErrAlreadyEnrolled        = &AppError{Code: "AlreadyEnrolled", Message: "already enrolled in this platform"}
	ErrStillActive            = &AppError{Code: "StillActive", Message: "enrollment is still active"}
	ErrSlotAlreadyBooked      = &AppError{Code: "SlotAlreadyBooked", Message: "time slot is already booked", Retryable: true}
	ErrSlotInUse              = &AppError{Code: "SlotInUse", Message: "time slot is booked and cannot be deleted"}
	ErrSlotNotFound           = &AppError{Code: "SlotNotFound", Message: "time slot not found"}
	ErrSlotNotClaimable       = &AppError{Code: "SlotNotClaimable", Message: "recurring templates cannot be booked directly"}
	ErrDuplicateSlot          = &AppError{Code: "DuplicateSlot", Message: "time slot already exists"}
	ErrAlreadyPurchased       = &AppError{Code: "AlreadyPurchased", Message: "recorded session already purchased"}
	ErrAlreadyResolved        = &AppError{Code: "AlreadyResolved", Message: "transaction is already resolved"}
	ErrMissingContact         = &AppError{Code: "MissingContact", Message: "whatsapp number is required for face-to-face sessions"}
	ErrInvalidStateTransition = &AppError{Code: "InvalidStateTransition", Message: "invalid booking status transition"}
	ErrNotFound               = &AppError{Code: "NotFound", Message: "not found"}
	ErrPlatformNotFound       = &AppError{Code: "PlatformNotFound", Message: "platform not found"}
	ErrMentorNotFound         = &AppError{Code: "MentorNotFound", Message: "mentor not found"}
	ErrRecordedNotFound       = &AppError{Code: "RecordedSessionNotFound", Message: "recorded session not found"}
	ErrBookingNotFound        = &AppError{Code: "BookingNotFound", Message: "booking not found"}
	ErrTransactionNotFound    = &AppError{Code: "TransactionNotFound", Message: "transaction not found"}
	ErrWalletNotFound         = &AppError{Code: "WalletNotFound", Message: "wallet not found"}
	ErrUnauthorized           = &AppError{Code: "Unauthorized", Message: "authentication required"}
	ErrForbidden              = &AppError{Code: "Forbidden", Message: "forbidden"}
)

func validationError(format string, args ...any) error {
	return ErrValidation.WithMessage(format, args...)
}
