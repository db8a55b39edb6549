package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ozidan13/codehub/internal/database"
	"github.com/ozidan13/codehub/internal/events"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/repository"
	"github.com/ozidan13/codehub/pkg/utils"
	"github.com/rs/zerolog"
)

const (
	defaultSessionMinutes = 60
	maxSessionMinutes     = 240
)

type sessionCatalog interface {
	GetMentor(ctx context.Context, id int64) (*models.Mentor, error)
	GetRecordedSession(ctx context.Context, id int64) (*models.RecordedSession, error)
}

type BookRecordedInput struct {
	RecordedSessionID int64
	DurationMinutes   int
	Notes             *string
}

type BookFaceToFaceInput struct {
	MentorID        int64
	SlotID          int64
	WhatsappNumber  string
	DurationMinutes int
	Notes           *string
}

// AdminUpdateInput is a partial update; nil fields are left untouched.
// A new slot is picked either by AvailableDateID or by SessionDate, which
// must match the start of an existing one-off slot.
type AdminUpdateInput struct {
	Status          *models.BookingStatus
	MeetingLink     *string
	VideoLink       *string
	AvailableDateID *int64
	SessionDate     *time.Time
	AdminNotes      *string
}

func (in AdminUpdateInput) retargets() bool {
	return in.AvailableDateID != nil || in.SessionDate != nil
}

type BookingService struct {
	db        Conn
	ledger    *Ledger
	calendar  *Calendar
	catalog   sessionCatalog
	publisher events.Publisher
	log       zerolog.Logger
}

func NewBookingService(
	db Conn,
	ledger *Ledger,
	calendar *Calendar,
	catalog sessionCatalog,
	publisher events.Publisher,
	log zerolog.Logger,
) *BookingService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &BookingService{
		db:        db,
		ledger:    ledger,
		calendar:  calendar,
		catalog:   catalog,
		publisher: publisher,
		log:       log.With().Str("component", "booking").Logger(),
	}
}

func (s *BookingService) BookRecorded(
	ctx context.Context,
	studentID int64,
	input BookRecordedInput,
) (*models.BookingDetail, error) {
	if input.RecordedSessionID <= 0 {
		return nil, validationError("recordedSessionId is required")
	}
	duration, err := sessionMinutes(input.DurationMinutes)
	if err != nil {
		return nil, err
	}
	notes := trimOptional(input.Notes)

	session, err := s.catalog.GetRecordedSession(ctx, input.RecordedSessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordedNotFound
		}
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrRecordedNotFound
	}

	var detail *models.BookingDetail
	err = database.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		bookings := repository.NewBookingRepository(tx)

		purchased, err := bookings.HasConfirmedRecordedPurchase(ctx, studentID, session.ID)
		if err != nil {
			return err
		}
		if purchased {
			return ErrAlreadyPurchased
		}

		txn, err := s.charge(ctx, tx, studentID, session.Price, "Recorded session: "+session.Title)
		if err != nil {
			return err
		}

		videoLink := session.VideoLink
		booking, err := bookings.Create(ctx, repository.CreateBookingInput{
			StudentID:         studentID,
			SessionType:       models.SessionRecorded,
			DurationMinutes:   duration,
			Amount:            session.Price.Decimal,
			Status:            models.BookingConfirmed,
			RecordedSessionID: &session.ID,
			VideoLink:         &videoLink,
			StudentNotes:      notes,
			TransactionID:     transactionID(txn),
		})
		if err != nil {
			if repository.IsUniqueViolation(err, repository.BookingRecordedPurchaseKey) {
				return ErrAlreadyPurchased
			}
			return err
		}
		detail = &models.BookingDetail{MentorshipBooking: *booking, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("booking_id", detail.ID).Int64("student_id", studentID).Msg("recorded session purchased")
	s.publisher.Publish(ctx, events.New(events.BookingCreated).ForBooking(detail.ID, studentID, string(detail.Status)))
	return detail, nil
}

func (s *BookingService) BookFaceToFace(
	ctx context.Context,
	studentID int64,
	input BookFaceToFaceInput,
) (*models.BookingDetail, error) {
	whatsapp := strings.TrimSpace(input.WhatsappNumber)
	if whatsapp == "" {
		return nil, ErrMissingContact
	}
	if input.MentorID <= 0 || input.SlotID <= 0 {
		return nil, validationError("mentorId and slotId are required")
	}
	duration, err := sessionMinutes(input.DurationMinutes)
	if err != nil {
		return nil, err
	}
	notes := trimOptional(input.Notes)

	mentor, err := s.catalog.GetMentor(ctx, input.MentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMentorNotFound
		}
		return nil, err
	}
	if !mentor.IsActive {
		return nil, ErrMentorNotFound
	}

	var detail *models.BookingDetail
	err = database.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		slot, err := s.calendar.WithTx(tx).Claim(ctx, input.SlotID)
		if err != nil {
			return err
		}
		sessionDate, err := slot.StartsAt()
		if err != nil {
			return err
		}

		txn, err := s.charge(ctx, tx, studentID, mentor.Rate, "Face-to-face session with "+mentor.Name)
		if err != nil {
			return err
		}

		booking, err := repository.NewBookingRepository(tx).Create(ctx, repository.CreateBookingInput{
			StudentID:       studentID,
			MentorID:        &mentor.ID,
			SessionType:     models.SessionFaceToFace,
			DurationMinutes: duration,
			Amount:          mentor.Rate.Decimal,
			Status:          models.BookingPending,
			SessionDate:     &sessionDate,
			AvailableDateID: &slot.ID,
			WhatsappNumber:  &whatsapp,
			StudentNotes:    notes,
			TransactionID:   transactionID(txn),
		})
		if err != nil {
			if repository.IsUniqueViolation(err, repository.BookingSlotKey) {
				return ErrSlotAlreadyBooked
			}
			return err
		}
		detail = &models.BookingDetail{MentorshipBooking: *booking, Transaction: txn}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotAlreadyBooked) {
			s.log.Debug().Int64("slot_id", input.SlotID).Int64("student_id", studentID).Msg("slot claim lost")
		}
		return nil, err
	}

	s.log.Info().
		Int64("booking_id", detail.ID).
		Int64("student_id", studentID).
		Int64("slot_id", input.SlotID).
		Msg("face-to-face session booked")
	s.publisher.Publish(ctx, events.New(events.SlotClaimed).ForSlot(input.SlotID))
	s.publisher.Publish(ctx, events.New(events.BookingCreated).ForBooking(detail.ID, studentID, string(detail.Status)))
	return detail, nil
}

func (s *BookingService) AdminUpdate(
	ctx context.Context,
	bookingID int64,
	patch AdminUpdateInput,
) (*models.BookingDetail, error) {
	if bookingID <= 0 {
		return nil, validationError("bookingId is required")
	}

	var (
		updated  *models.MentorshipBooking
		claimed  *int64
		released *int64
	)
	err := database.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		bookings := repository.NewBookingRepository(tx)
		calendar := s.calendar.WithTx(tx)

		booking, err := bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}
		if err := validatePatch(booking, patch); err != nil {
			return err
		}

		nextStatus := booking.Status
		if patch.Status != nil {
			nextStatus = *patch.Status
		}

		if patch.retargets() {
			target, err := s.resolveTargetSlot(ctx, tx, patch)
			if err != nil {
				return err
			}
			if booking.AvailableDateID == nil || *booking.AvailableDateID != target {
				slot, err := calendar.Claim(ctx, target)
				if err != nil {
					return err
				}
				startsAt, err := slot.StartsAt()
				if err != nil {
					return err
				}
				if booking.AvailableDateID != nil {
					if _, err := calendar.Release(ctx, *booking.AvailableDateID); err != nil && !errors.Is(err, ErrSlotNotFound) {
						return err
					}
					released = booking.AvailableDateID
				}
				if !booking.DateChanged {
					booking.OriginalSessionDate = booking.SessionDate
				}
				booking.DateChanged = true
				booking.SessionDate = &startsAt
				booking.AvailableDateID = &slot.ID
				claimed = &slot.ID
			}
		}

		if nextStatus == models.BookingCancelled && booking.Status != models.BookingCancelled && booking.AvailableDateID != nil {
			if _, err := calendar.Release(ctx, *booking.AvailableDateID); err != nil && !errors.Is(err, ErrSlotNotFound) {
				return err
			}
			released = booking.AvailableDateID
		}

		booking.Status = nextStatus
		if patch.MeetingLink != nil {
			booking.MeetingLink = trimOptional(patch.MeetingLink)
		}
		if patch.VideoLink != nil {
			booking.VideoLink = trimOptional(patch.VideoLink)
		}
		if patch.AdminNotes != nil {
			booking.AdminNotes = trimOptional(patch.AdminNotes)
		}

		saved, err := bookings.Save(ctx, booking)
		if err != nil {
			if repository.IsUniqueViolation(err, repository.BookingSlotKey) {
				return ErrSlotAlreadyBooked
			}
			return err
		}
		updated = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("booking_id", updated.ID).Str("status", string(updated.Status)).Msg("booking updated")
	if released != nil {
		s.publisher.Publish(ctx, events.New(events.SlotReleased).ForSlot(*released))
	}
	if claimed != nil {
		s.publisher.Publish(ctx, events.New(events.SlotClaimed).ForSlot(*claimed))
	}
	s.publisher.Publish(ctx, events.New(events.BookingUpdated).ForBooking(updated.ID, updated.StudentID, string(updated.Status)))
	return s.detail(ctx, updated)
}

func (s *BookingService) List(
	ctx context.Context,
	actorID int64,
	role string,
	status models.BookingStatus,
) ([]models.MentorshipBooking, error) {
	filter := repository.BookingListFilter{Status: status}
	if role != utils.RoleAdmin {
		filter.StudentID = actorID
	}
	return repository.NewBookingRepository(s.db).List(ctx, filter)
}

func (s *BookingService) Get(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID int64,
) (*models.BookingDetail, error) {
	booking, err := repository.NewBookingRepository(s.db).GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrBookingNotFound
	}
	return s.detail(ctx, booking)
}

func (s *BookingService) detail(ctx context.Context, booking *models.MentorshipBooking) (*models.BookingDetail, error) {
	detail := &models.BookingDetail{MentorshipBooking: *booking}
	if booking.TransactionID == nil {
		return detail, nil
	}
	txn, err := repository.NewTransactionRepository(s.db).GetByID(ctx, *booking.TransactionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	detail.Transaction = txn
	return detail, nil
}

func (s *BookingService) charge(
	ctx context.Context,
	tx pgx.Tx,
	studentID int64,
	price models.Money,
	description string,
) (*models.Transaction, error) {
	if !price.IsPositive() {
		return nil, nil
	}
	return s.ledger.WithTx(tx).Debit(ctx, studentID, price.Decimal, DebitMeta{
		Type:        models.TransactionMentorshipPayment,
		Description: description,
	})
}

func (s *BookingService) resolveTargetSlot(ctx context.Context, tx pgx.Tx, patch AdminUpdateInput) (int64, error) {
	if patch.AvailableDateID != nil {
		if *patch.AvailableDateID <= 0 {
			return 0, validationError("availableDateId must be positive")
		}
		return *patch.AvailableDateID, nil
	}

	at := patch.SessionDate.UTC()
	slot, err := repository.NewSlotRepository(tx).FindOneOffByStart(
		ctx,
		at.Format(models.SlotDateLayout),
		at.Format(models.SlotTimeLayout),
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSlotNotFound.WithMessage("no time slot starts at the requested sessionDate")
		}
		return 0, err
	}
	return slot.ID, nil
}

func validatePatch(booking *models.MentorshipBooking, patch AdminUpdateInput) error {
	if booking.SessionType == models.SessionRecorded && (patch.MeetingLink != nil || patch.retargets()) {
		return validationError("meetingLink and sessionDate do not apply to recorded sessions")
	}
	if patch.Status != nil && *patch.Status != booking.Status {
		if err := validateTransition(booking.Status, *patch.Status); err != nil {
			return err
		}
	}
	if patch.retargets() && patch.Status != nil && *patch.Status == models.BookingCancelled {
		return validationError("cannot reschedule and cancel in one update")
	}
	if patch.retargets() && isTerminal(booking.Status) {
		return ErrInvalidStateTransition.WithMessage("cannot reschedule a %s booking", strings.ToLower(string(booking.Status)))
	}
	return nil
}

func validateTransition(from, to models.BookingStatus) error {
	switch from {
	case models.BookingPending:
		if to == models.BookingConfirmed || to == models.BookingCancelled {
			return nil
		}
	case models.BookingConfirmed:
		if to == models.BookingCompleted || to == models.BookingCancelled {
			return nil
		}
	}
	return ErrInvalidStateTransition.WithMessage("cannot move booking from %s to %s", from, to)
}

func isTerminal(status models.BookingStatus) bool {
	return status == models.BookingCompleted || status == models.BookingCancelled
}

// NormalizeBookingStatus accepts the verb or past-tense form in any case.
func NormalizeBookingStatus(status string) (models.BookingStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return models.BookingPending, nil
	case "confirm", "confirmed":
		return models.BookingConfirmed, nil
	case "complete", "completed":
		return models.BookingCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.BookingCancelled, nil
	default:
		return "", validationError("unknown booking status %q", status)
	}
}

func canAccessBooking(role string, actorID int64, booking *models.MentorshipBooking) bool {
	return role == utils.RoleAdmin || booking.StudentID == actorID
}

func sessionMinutes(requested int) (int, error) {
	if requested == 0 {
		return defaultSessionMinutes, nil
	}
	if requested < 0 || requested > maxSessionMinutes {
		return 0, validationError("duration must be between 1 and %d minutes", maxSessionMinutes)
	}
	return requested, nil
}

func transactionID(txn *models.Transaction) *int64 {
	if txn == nil {
		return nil
	}
	return &txn.ID
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
