package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/solar-storefront/internal/metrics"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	service "github.com/aaravmahajanofficial/solar-storefront/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveReadLimit  = 512
)

const (
	LiveEventRate        = "rate"
	LiveEventCartChanged = "cart_changed"
)

type LiveMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type liveClient struct {
	conn   *websocket.Conn
	send   chan []byte
	cartID uuid.UUID
}

// LiveHub fans exchange-rate changes out to every connection and cart
// changes to the connections watching that cart. Slow clients are dropped.
type LiveHub struct {
	mu       sync.RWMutex
	clients  map[*liveClient]struct{}
	closed   bool
	upgrader websocket.Upgrader
	buffer   int

	cartService service.CartService
	unsubscribe []func()
}

func NewLiveHub(cartService service.CartService, currencyService service.CurrencyService, allowedOrigins []string, buffer int) *LiveHub {

	if buffer < 1 {
		buffer = 16
	}

	h := &LiveHub{
		clients:     make(map[*liveClient]struct{}),
		buffer:      buffer,
		cartService: cartService,
	}

	// nil CheckOrigin means same-origin only
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		}
	}

	h.unsubscribe = append(h.unsubscribe,
		currencyService.Subscribe(h.PublishRate),
		cartService.Subscribe(h.PublishCartChanged),
	)

	return h
}

// Serve godoc
//	@Summary		Live updates
//	@Description	Websocket carrying {"type":"rate"} and {"type":"cart_changed"} messages.
//	@Tags			Live
//	@Router			/live [get]
func (h *LiveHub) Serve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		// resolved before the upgrade; cookies cannot be written afterwards
		cartID, _ := h.cartService.GetCurrentCartID(r.Context(), middleware.IdentityFromContext(r.Context()))

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		client := &liveClient{conn: conn, send: make(chan []byte, h.buffer), cartID: cartID}

		if !h.add(client) {
			conn.Close()
			return
		}

		logger.Debug("Live client connected", slog.String("cartId", cartID.String()))

		go h.writePump(client)
		h.readPump(client)
	}
}

func (h *LiveHub) add(c *liveClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.clients[c] = struct{}{}
	metrics.LiveConnections.Inc()

	return true
}

// remove must be called with h.mu held.
func (h *LiveHub) remove(c *liveClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
	metrics.LiveConnections.Dec()
}

func (h *LiveHub) disconnect(c *liveClient) {
	h.mu.Lock()
	h.remove(c)
	h.mu.Unlock()
}

// readPump only services control frames; client payloads are ignored.
func (h *LiveHub) readPump(c *liveClient) {

	defer h.disconnect(c)

	c.conn.SetReadLimit(liveReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writePump(c *liveClient) {

	ticker := time.NewTicker(livePingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHub) PublishRate(snapshot models.RateSnapshot) {
	h.broadcast(LiveMessage{Type: LiveEventRate, Data: snapshot}, func(*liveClient) bool { return true })
}

func (h *LiveHub) PublishCartChanged(event models.CartChanged) {
	h.broadcast(LiveMessage{Type: LiveEventCartChanged, Data: event}, func(c *liveClient) bool {
		return c.cartID != uuid.Nil && c.cartID == event.CartID
	})
}

// broadcast never blocks the publisher.
func (h *LiveHub) broadcast(msg LiveMessage, match func(*liveClient) bool) {

	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode live message", slog.String("type", msg.Type), slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}

		select {
		case c.send <- payload:
		default:
			slog.Warn("Dropping slow live client", slog.String("type", msg.Type))
			h.remove(c)
		}
	}
}

func (h *LiveHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects every client and stops listening for events.
func (h *LiveHub) Close() {

	for _, unsubscribe := range h.unsubscribe {
		unsubscribe()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for c := range h.clients {
		h.remove(c)
	}
}
