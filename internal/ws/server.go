// Package ws serves live captions to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/obiente/translate/streamrt/internal/transcript"
	"github.com/obiente/translate/streamrt/internal/translation"
)

const (
	defaultReadTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
)

// Translator attaches translations to caption payloads.
type Translator interface {
	Enabled() bool
	Translate(ctx context.Context, text, source string, targets []string, altLimit int) (map[string]translation.Translation, error)
}

// Options configure a Hub.
type Options struct {
	Translator         Translator
	Targets            []string
	SourceLanguage     string
	TranslationTimeout time.Duration
	// ReadTimeout drops a subscriber that answers neither frames nor pings
	// for this long. Pings are sent at 9/10 of it. Defaults to 60s.
	ReadTimeout time.Duration
	Logger      zerolog.Logger
}

// Hub tracks caption subscribers and broadcasts transcript batches to them.
// It implements transcript.Sink.
type Hub struct {
	upgrader websocket.Upgrader
	opts     Options
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
	closed  bool
}

type client struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
	// room filters broadcasts to one session id; empty means all sessions.
	room string
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// keepAlive pings c until done is closed so listen-only subscribers keep
// refreshing their read deadline through pongs.
func (c *client) keepAlive(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// NewHub returns an empty Hub.
func NewHub(opts Options) *Hub {
	if opts.TranslationTimeout <= 0 {
		opts.TranslationTimeout = 8 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024 * 4,
			WriteBufferSize: 1024 * 16,
		},
		opts:    opts,
		log:     opts.Logger.With().Str("component", "ws").Logger(),
		clients: make(map[*websocket.Conn]*client),
	}
}

// Clients is the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handle upgrades the request and serves one subscriber until it goes away.
// The optional "room" query parameter limits captions to one session id.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "session finished", http.StatusGone)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	c := &client{conn: conn, room: strings.TrimSpace(r.URL.Query().Get("room"))}
	if !h.add(c) {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
		return
	}
	done := make(chan struct{})
	defer func() {
		close(done)
		h.remove(conn)
		conn.Close()
	}()

	readTimeout := h.opts.ReadTimeout
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(readTimeout)); return nil })
	go c.keepAlive(readTimeout*9/10, done)

	_ = c.writeJSON(map[string]any{"type": "subscribed", "room_id": c.room})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Msg("ws read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if mt != websocket.TextMessage {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = c.writeJSON(map[string]any{"type": "error", "detail": "invalid json"})
			continue
		}
		switch msg["type"] {
		case "ping":
			_ = c.writeJSON(map[string]any{"type": "pong", "ts": msg["ts"]})
		case "join_room":
			rid, _ := msg["room_id"].(string)
			h.setRoom(conn, strings.TrimSpace(rid))
			_ = c.writeJSON(map[string]any{"type": "room_joined", "room_id": rid})
		case "leave_room":
			h.setRoom(conn, "")
			_ = c.writeJSON(map[string]any{"type": "room_left"})
		default:
			_ = c.writeJSON(map[string]any{"type": "error", "detail": "unknown message type"})
		}
	}
}

// add registers c unless the hub has already been closed.
func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.log.Debug().Msg("caption subscriber rejected after close")
		return false
	}
	h.clients[c.conn] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Str("room", c.room).Int("clients", n).Msg("caption subscriber connected")
	return true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Int("clients", n).Msg("caption subscriber left")
}

func (h *Hub) setRoom(conn *websocket.Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c := h.clients[conn]; c != nil {
		c.room = room
	}
}

// Broadcast sends payload to every subscriber whose room is empty or equals
// room. It returns the number of successful deliveries.
func (h *Hub) Broadcast(room string, payload any) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.room == "" || c.room == room {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.writeJSON(payload); err != nil {
			h.log.Debug().Err(err).Msg("caption delivery failed")
			continue
		}
		delivered++
	}
	return delivered
}

// Name identifies the hub among transcript sinks.
func (h *Hub) Name() string { return "ws" }

// Write broadcasts one batch, translated when targets are configured.
// Translation failures are logged and the untranslated caption still goes out.
func (h *Hub) Write(b transcript.Batch) error {
	msg := NewCaption(b)
	if h.opts.Translator != nil && h.opts.Translator.Enabled() && len(h.opts.Targets) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.TranslationTimeout)
		tr, err := h.opts.Translator.Translate(ctx, msg.Text, h.opts.SourceLanguage, h.opts.Targets, 0)
		cancel()
		if err != nil {
			h.log.Warn().Err(err).Int("sequence", b.Sequence).Msg("translation request failed")
		} else if len(tr) > 0 {
			msg.Translations = tr
		}
	}
	h.Broadcast(b.SessionID, msg)
	return nil
}

// Close tells subscribers the session ended and disconnects them. New
// connections are refused afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.writeJSON(map[string]any{"type": "stopped"})
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
	}
	return nil
}
