package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/cache"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/rs/zerolog"
)

type catalogInvalidator interface {
	Invalidate(ctx context.Context, entity cache.Entity) error
}

type CacheHandler struct {
	catalog catalogInvalidator
	log     zerolog.Logger
}

func NewCacheHandler(catalog *cache.Catalog, log zerolog.Logger) *CacheHandler {
	return &CacheHandler{catalog: catalog, log: log}
}

// Invalidate drops every cached catalog entry of one entity type after an
// out-of-band catalog edit.
func (h *CacheHandler) Invalidate(c *fiber.Ctx) error {
	entity, err := cache.ParseEntity(c.Params("entity"))
	if err != nil {
		if errors.Is(err, cache.ErrUnknownEntity) {
			return writeError(c, h.log, services.ErrValidation.WithMessage("entity must be platform, mentor or recorded_session"))
		}
		return writeError(c, h.log, err)
	}

	if err := h.catalog.Invalidate(c.Context(), entity); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"invalidated": entity})
}
