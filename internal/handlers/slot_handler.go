package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/rs/zerolog"
)

type calendarApplicationService interface {
	CreateSlot(ctx context.Context, input services.SlotInput) (*models.TimeSlot, error)
	ExistingSlot(ctx context.Context, input services.SlotInput) (*models.TimeSlot, error)
	CreateBulk(ctx context.Context, date string, ranges []models.TimeRange) (*models.SlotCreateReport, error)
	CreateRange(ctx context.Context, input services.RangeInput) (*models.SlotCreateReport, error)
	Release(ctx context.Context, slotID int64) (*models.TimeSlot, error)
	Delete(ctx context.Context, slotID int64) error
	List(ctx context.Context, input services.SlotListInput) ([]models.TimeSlot, error)
	Templates(ctx context.Context) ([]models.TimeSlot, error)
}

type SlotHandler struct {
	calendar calendarApplicationService
	log      zerolog.Logger
}

func NewSlotHandler(calendar *services.Calendar, log zerolog.Logger) *SlotHandler {
	return &SlotHandler{calendar: calendar, log: log}
}

type createSlotRequest struct {
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
	IsRecurring bool   `json:"isRecurring"`
}

type bulkSlotRequest struct {
	Date  string             `json:"date" validate:"required"`
	Slots []models.TimeRange `json:"slots" validate:"required,min=1"`
}

type rangeSlotRequest struct {
	StartDate       string             `json:"startDate" validate:"required"`
	EndDate         string             `json:"endDate" validate:"required"`
	Slots           []models.TimeRange `json:"slots" validate:"required,min=1"`
	ExcludeWeekends bool               `json:"excludeWeekends"`
}

func (h *SlotHandler) List(c *fiber.Ctx) error {
	slots, err := h.calendar.List(c.Context(), services.SlotListInput{
		From:          c.Query("from"),
		To:            c.Query("to"),
		OnlyAvailable: c.QueryBool("available", false),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"slots": slots})
}

func (h *SlotHandler) Templates(c *fiber.Ctx) error {
	templates, err := h.calendar.Templates(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"templates": templates})
}

// Create treats a duplicate one-off slot as success and returns the slot
// that already holds the time.
func (h *SlotHandler) Create(c *fiber.Ctx) error {
	var req createSlotRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	input := services.SlotInput{
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsRecurring: req.IsRecurring,
	}
	slot, err := h.calendar.CreateSlot(c.Context(), input)
	if err == nil {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slot": slot, "created": true})
	}
	if !errors.Is(err, services.ErrDuplicateSlot) {
		return writeError(c, h.log, err)
	}

	if req.IsRecurring {
		return c.JSON(fiber.Map{"created": false})
	}
	existing, err := h.calendar.ExistingSlot(c.Context(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"slot": existing, "created": false})
}

func (h *SlotHandler) CreateBulk(c *fiber.Ctx) error {
	var req bulkSlotRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	report, err := h.calendar.CreateBulk(c.Context(), req.Date, req.Slots)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *SlotHandler) CreateRange(c *fiber.Ctx) error {
	var req rangeSlotRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	report, err := h.calendar.CreateRange(c.Context(), services.RangeInput{
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Slots:           req.Slots,
		ExcludeWeekends: req.ExcludeWeekends,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *SlotHandler) Delete(c *fiber.Ctx) error {
	slotID, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.calendar.Delete(c.Context(), slotID); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Time slot deleted"})
}

func (h *SlotHandler) Release(c *fiber.Ctx) error {
	slotID, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	slot, err := h.calendar.Release(c.Context(), slotID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"slot": slot})
}
