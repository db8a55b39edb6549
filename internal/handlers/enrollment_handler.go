package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/rs/zerolog"
)

type enrollmentApplicationService interface {
	Enroll(ctx context.Context, userID, platformID int64) (*models.EnrollmentView, error)
	Renew(ctx context.Context, userID, enrollmentID int64) (*models.EnrollmentView, error)
	List(ctx context.Context, userID int64) ([]models.EnrollmentView, error)
}

type EnrollmentHandler struct {
	service enrollmentApplicationService
	log     zerolog.Logger
}

func NewEnrollmentHandler(service *services.EnrollmentService, log zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{service: service, log: log}
}

type enrollRequest struct {
	PlatformID int64 `json:"platformId" validate:"required,gt=0"`
}

type renewRequest struct {
	EnrollmentID int64 `json:"enrollmentId" validate:"required,gt=0"`
}

func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	userID, _, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	var req enrollRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	enrollment, err := h.service.Enroll(c.Context(), userID, req.PlatformID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"enrollment": enrollment})
}

func (h *EnrollmentHandler) Renew(c *fiber.Ctx) error {
	userID, _, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	var req renewRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	enrollment, err := h.service.Renew(c.Context(), userID, req.EnrollmentID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"enrollment": enrollment})
}

func (h *EnrollmentHandler) List(c *fiber.Ctx) error {
	userID, _, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	enrollments, err := h.service.List(c.Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}
