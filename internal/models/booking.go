package models

import "time"

type SessionType string

const (
	SessionRecorded   SessionType = "RECORDED"
	SessionFaceToFace SessionType = "FACE_TO_FACE"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

type MentorshipBooking struct {
	ID                  int64         `json:"id"`
	StudentID           int64         `json:"studentId"`
	MentorID            *int64        `json:"mentorId,omitempty"`
	SessionType         SessionType   `json:"sessionType"`
	DurationMinutes     int           `json:"duration"`
	Amount              Money         `json:"amount"`
	Status              BookingStatus `json:"status"`
	SessionDate         *time.Time    `json:"sessionDate,omitempty"`
	AvailableDateID     *int64        `json:"availableDateId,omitempty"`
	RecordedSessionID   *int64        `json:"recordedSessionId,omitempty"`
	VideoLink           *string       `json:"videoLink,omitempty"`
	MeetingLink         *string       `json:"meetingLink,omitempty"`
	WhatsappNumber      *string       `json:"whatsappNumber,omitempty"`
	StudentNotes        *string       `json:"studentNotes,omitempty"`
	AdminNotes          *string       `json:"adminNotes,omitempty"`
	DateChanged         bool          `json:"dateChanged"`
	OriginalSessionDate *time.Time    `json:"originalSessionDate,omitempty"`
	TransactionID       *int64        `json:"transactionId,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// BookingDetail pairs a booking with the ledger entry that paid for it.
type BookingDetail struct {
	MentorshipBooking
	Transaction *Transaction `json:"transaction,omitempty"`
}
