package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/rs/zerolog"
)

type bookingApplicationService interface {
	BookRecorded(ctx context.Context, studentID int64, input services.BookRecordedInput) (*models.BookingDetail, error)
	BookFaceToFace(ctx context.Context, studentID int64, input services.BookFaceToFaceInput) (*models.BookingDetail, error)
	AdminUpdate(ctx context.Context, bookingID int64, patch services.AdminUpdateInput) (*models.BookingDetail, error)
	List(ctx context.Context, actorID int64, role string, status models.BookingStatus) ([]models.MentorshipBooking, error)
	Get(ctx context.Context, actorID int64, role string, bookingID int64) (*models.BookingDetail, error)
}

type BookingHandler struct {
	service bookingApplicationService
	log     zerolog.Logger
}

func NewBookingHandler(service *services.BookingService, log zerolog.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

type createBookingRequest struct {
	SessionType       string  `json:"sessionType" validate:"required"`
	RecordedSessionID int64   `json:"recordedSessionId"`
	MentorID          int64   `json:"mentorId"`
	SlotID            int64   `json:"slotId"`
	WhatsappNumber    string  `json:"whatsappNumber"`
	Duration          int     `json:"duration" validate:"gte=0"`
	Notes             *string `json:"notes"`
}

type updateBookingRequest struct {
	BookingID       int64   `json:"bookingId" validate:"required,gt=0"`
	Status          *string `json:"status"`
	MeetingLink     *string `json:"meetingLink"`
	VideoLink       *string `json:"videoLink"`
	AvailableDateID *int64  `json:"availableDateId"`
	SessionDate     *string `json:"sessionDate"`
	AdminNotes      *string `json:"adminNotes"`
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	userID, _, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	var req createBookingRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	var detail *models.BookingDetail
	switch models.SessionType(strings.ToUpper(strings.TrimSpace(req.SessionType))) {
	case models.SessionRecorded:
		detail, err = h.service.BookRecorded(c.Context(), userID, services.BookRecordedInput{
			RecordedSessionID: req.RecordedSessionID,
			DurationMinutes:   req.Duration,
			Notes:             req.Notes,
		})
	case models.SessionFaceToFace:
		detail, err = h.service.BookFaceToFace(c.Context(), userID, services.BookFaceToFaceInput{
			MentorID:        req.MentorID,
			SlotID:          req.SlotID,
			WhatsappNumber:  req.WhatsappNumber,
			DurationMinutes: req.Duration,
			Notes:           req.Notes,
		})
	default:
		err = services.ErrValidation.WithMessage("sessionType must be RECORDED or FACE_TO_FACE")
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": detail})
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	userID, role, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	var status models.BookingStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err = services.NormalizeBookingStatus(raw)
		if err != nil {
			return writeError(c, h.log, err)
		}
	}

	bookings, err := h.service.List(c.Context(), userID, role, status)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	userID, role, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	booking, err := h.service.Get(c.Context(), userID, role, bookingID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) Update(c *fiber.Ctx) error {
	var req updateBookingRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	patch, err := req.toPatch()
	if err != nil {
		return writeError(c, h.log, err)
	}

	booking, err := h.service.AdminUpdate(c.Context(), req.BookingID, patch)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (req updateBookingRequest) toPatch() (services.AdminUpdateInput, error) {
	patch := services.AdminUpdateInput{
		MeetingLink:     req.MeetingLink,
		VideoLink:       req.VideoLink,
		AvailableDateID: req.AvailableDateID,
		AdminNotes:      req.AdminNotes,
	}
	if req.Status != nil {
		status, err := services.NormalizeBookingStatus(*req.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	if req.SessionDate != nil && req.AvailableDateID == nil {
		sessionDate, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.SessionDate))
		if err != nil {
			return patch, services.ErrValidation.WithMessage("sessionDate must be a valid RFC3339 timestamp")
		}
		patch.SessionDate = &sessionDate
	}
	return patch, nil
}
