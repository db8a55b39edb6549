package calendarws

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/ozidan13/codehub/internal/events"
	"github.com/ozidan13/codehub/pkg/utils"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub fans calendar and booking events out to connected dashboards.
// Slot events go to everyone; booking events only to the owning student
// and to admins.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan events.Event
	done       chan struct{}
	log        zerolog.Logger
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	role   string
	send   chan []byte
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan events.Event, 64),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "calendar_hub").Logger(),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, role string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			close(h.done)
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Register closes the client's send channel instead when the hub has stopped,
// so its WritePump exits.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish never blocks the caller; events are dropped when the hub is saturated.
func (h *Hub) Publish(_ context.Context, event events.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn().Str("event_type", string(event.Type)).Msg("calendar hub saturated, dropping event")
	}
}

func (h *Hub) deliver(event events.Event) {
	payload, err := sonic.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("encode calendar event")
		return
	}

	for client := range h.clients {
		if !client.accepts(event) {
			continue
		}
		select {
		case client.send <- payload:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (c *Client) accepts(event events.Event) bool {
	if !event.Private() || c.role == utils.RoleAdmin {
		return true
	}
	return c.userID == strconv.FormatInt(*event.StudentID, 10)
}

// ReadPump only services control frames; the feed is server-to-client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
