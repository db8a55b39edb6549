package routes

import (
	"errors"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/cache"
	"github.com/ozidan13/codehub/internal/config"
	"github.com/ozidan13/codehub/internal/handlers"
	"github.com/ozidan13/codehub/internal/middleware"
	"github.com/ozidan13/codehub/internal/services"
	calendarws "github.com/ozidan13/codehub/internal/websocket"
	"github.com/ozidan13/codehub/pkg/utils"
	"github.com/rs/zerolog"
)

// Dependencies are the application services the HTTP surface is wired to.
// They are built once in cmd/server.
type Dependencies struct {
	Enrollments *services.EnrollmentService
	Bookings    *services.BookingService
	Calendar    *services.Calendar
	Wallet      *services.WalletService
	Catalog     *cache.Catalog
	Hub         *calendarws.Hub
	Log         zerolog.Logger
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, deps Dependencies) error {
	if cfg == nil || cfg.JWTSecret == "" {
		return errors.New("routes: JWT secret is required")
	}

	enrollmentHandler := handlers.NewEnrollmentHandler(deps.Enrollments, deps.Log)
	bookingHandler := handlers.NewBookingHandler(deps.Bookings, deps.Log)
	slotHandler := handlers.NewSlotHandler(deps.Calendar, deps.Log)
	walletHandler := handlers.NewWalletHandler(deps.Wallet, deps.Log)
	cacheHandler := handlers.NewCacheHandler(deps.Catalog, deps.Log)

	adminOnly := middleware.RequireRole(utils.RoleAdmin)
	studentOnly := middleware.RequireRole(utils.RoleStudent)

	api := app.Group("/api")

	// Registered ahead of the v1 group: browsers pass the token as ?token=.
	if deps.Hub != nil {
		feed := handlers.NewCalendarFeedHandler(deps.Hub, cfg.JWTSecret)
		api.Get("/v1/ws/calendar", feed.WebSocketAuth, websocket.New(feed.HandleWebSocket))
	}

	v1 := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	enroll := v1.Group("/enroll")
	enroll.Get("", enrollmentHandler.List)
	enroll.Post("", enrollmentHandler.Enroll)
	enroll.Put("", enrollmentHandler.Renew)

	booking := v1.Group("/booking")
	booking.Get("", bookingHandler.List)
	booking.Post("", studentOnly, bookingHandler.Create)
	booking.Patch("", adminOnly, bookingHandler.Update)
	booking.Get("/:id", bookingHandler.Get)

	slot := v1.Group("/slot")
	slot.Get("", slotHandler.List)
	slot.Post("", adminOnly, slotHandler.Create)
	slot.Post("/bulk", adminOnly, slotHandler.CreateBulk)
	slot.Post("/range", adminOnly, slotHandler.CreateRange)
	slot.Get("/templates", adminOnly, slotHandler.Templates)
	slot.Delete("/:id", adminOnly, slotHandler.Delete)
	slot.Patch("/:id/release", adminOnly, slotHandler.Release)

	wallet := v1.Group("/wallet")
	wallet.Get("", walletHandler.Wallet)
	wallet.Post("/topup", walletHandler.TopUp)

	transaction := v1.Group("/transaction", adminOnly)
	transaction.Get("", walletHandler.Transactions)
	transaction.Patch("", walletHandler.Resolve)
	transaction.Get("/:id/receipt", walletHandler.Receipt)

	v1.Post("/cache/invalidate/:entity", adminOnly, cacheHandler.Invalidate)

	return registerDocsRoutes(app, cfg)
}
