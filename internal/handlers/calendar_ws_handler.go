package handlers

import (
	"errors"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	calendarws "github.com/ozidan13/codehub/internal/websocket"
	"github.com/ozidan13/codehub/pkg/utils"
)

type CalendarFeedHandler struct {
	hub       *calendarws.Hub
	jwtSecret string
}

func NewCalendarFeedHandler(hub *calendarws.Hub, jwtSecret string) *CalendarFeedHandler {
	return &CalendarFeedHandler{hub: hub, jwtSecret: jwtSecret}
}

// WebSocketAuth reads the token from ?token= or the Authorization header.
func (h *CalendarFeedHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(errorBody("UpgradeRequired", "WebSocket upgrade required"))
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody("Unauthorized", "Invalid or expired token"))
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", strings.ToUpper(claims.Role))
	return c.Next()
}

func (h *CalendarFeedHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	client := calendarws.NewClient(h.hub, conn, userID, role)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *CalendarFeedHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
