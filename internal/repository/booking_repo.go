package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ozidan13/codehub/internal/models"
	"github.com/shopspring/decimal"
)

const (
	BookingSlotKey             = "mentorship_bookings_slot_key"
	BookingRecordedPurchaseKey = "mentorship_bookings_recorded_purchase_key"
)

type CreateBookingInput struct {
	StudentID         int64
	MentorID          *int64
	SessionType       models.SessionType
	DurationMinutes   int
	Amount            decimal.Decimal
	Status            models.BookingStatus
	SessionDate       *time.Time
	AvailableDateID   *int64
	RecordedSessionID *int64
	VideoLink         *string
	WhatsappNumber    *string
	StudentNotes      *string
	TransactionID     *int64
}

type BookingListFilter struct {
	StudentID int64
	Status    models.BookingStatus
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, student_id, mentor_id, session_type, duration_min, amount, status, session_date,
	available_date_id, recorded_session_id, video_link, meeting_link, whatsapp_number,
	student_notes, admin_notes, date_changed, original_session_date, transaction_id,
	created_at, updated_at`

func scanBooking(row interface{ Scan(dest ...any) error }) (*models.MentorshipBooking, error) {
	var booking models.MentorshipBooking
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.MentorID,
		&booking.SessionType,
		&booking.DurationMinutes,
		&booking.Amount.Decimal,
		&booking.Status,
		&booking.SessionDate,
		&booking.AvailableDateID,
		&booking.RecordedSessionID,
		&booking.VideoLink,
		&booking.MeetingLink,
		&booking.WhatsappNumber,
		&booking.StudentNotes,
		&booking.AdminNotes,
		&booking.DateChanged,
		&booking.OriginalSessionDate,
		&booking.TransactionID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) Create(
	ctx context.Context,
	input CreateBookingInput,
) (*models.MentorshipBooking, error) {
	query := `
		INSERT INTO mentorship_bookings (
			student_id, mentor_id, session_type, duration_min, amount, status, session_date,
			available_date_id, recorded_session_id, video_link, whatsapp_number, student_notes, transaction_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + bookingColumns
	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		input.StudentID,
		input.MentorID,
		string(input.SessionType),
		input.DurationMinutes,
		input.Amount,
		string(input.Status),
		input.SessionDate,
		input.AvailableDateID,
		input.RecordedSessionID,
		input.VideoLink,
		input.WhatsappNumber,
		input.StudentNotes,
		input.TransactionID,
	))
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.MentorshipBooking, error) {
	query := `SELECT ` + bookingColumns + ` FROM mentorship_bookings WHERE id = $1`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.MentorshipBooking, error) {
	query := `SELECT ` + bookingColumns + ` FROM mentorship_bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(r.db.QueryRow(ctx, query, id))
}

func (r *BookingRepository) HasConfirmedRecordedPurchase(
	ctx context.Context,
	studentID int64,
	recordedSessionID int64,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM mentorship_bookings
			WHERE student_id = $1 AND recorded_session_id = $2
			  AND session_type = 'RECORDED' AND status = 'CONFIRMED'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, studentID, recordedSessionID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Save writes back the fields an admin may change. Callers hold the row lock.
func (r *BookingRepository) Save(
	ctx context.Context,
	booking *models.MentorshipBooking,
) (*models.MentorshipBooking, error) {
	query := `
		UPDATE mentorship_bookings
		SET status = $2,
		    session_date = $3,
		    available_date_id = $4,
		    video_link = $5,
		    meeting_link = $6,
		    admin_notes = $7,
		    date_changed = $8,
		    original_session_date = $9,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns
	return scanBooking(r.db.QueryRow(
		ctx,
		query,
		booking.ID,
		string(booking.Status),
		booking.SessionDate,
		booking.AvailableDateID,
		booking.VideoLink,
		booking.MeetingLink,
		booking.AdminNotes,
		booking.DateChanged,
		booking.OriginalSessionDate,
	))
}

func (r *BookingRepository) List(
	ctx context.Context,
	filter BookingListFilter,
) ([]models.MentorshipBooking, error) {
	args := []any{}
	whereParts := []string{}

	if filter.StudentID > 0 {
		args = append(args, filter.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(whereParts) > 0 {
		where = "WHERE " + strings.Join(whereParts, " AND ")
	}

	query := `SELECT ` + bookingColumns + ` FROM mentorship_bookings ` + where + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.MentorshipBooking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}
