package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 16 << 10
	actionTimeout  = 10 * time.Second
	kindAuthed     = "authenticated"
	kindAnonymous  = "anonymous"
	defaultBufSize = 256
)

// Actions are the writes a websocket session may trigger. Implementations
// persist first and broadcast on success.
type Actions interface {
	Send(ctx context.Context, conversationID, senderID int, body string) (models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID int) (models.ReadReceipt, error)
	React(ctx context.Context, messageID int64, callerID int, value string) (models.Reaction, error)
}

// Client is one websocket session. UserID 0 means the session is anonymous.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	actions Actions
	info    ConnInfo
	log     *slog.Logger

	// rooms is guarded by hub.mu.
	rooms map[int]struct{}

	mu     sync.Mutex
	closed bool
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomData struct {
	RoomID int `json:"room_id"`
}

type sendData struct {
	RoomID int    `json:"room_id"`
	Body   string `json:"body"`
}

type reactData struct {
	MessageID int64  `json:"message_id"`
	RoomID    int    `json:"room_id"`
	Value     string `json:"value"`
}

func newClient(hub *Hub, conn *websocket.Conn, actions Actions, info ConnInfo, buffer int, log *slog.Logger) *Client {
	if buffer <= 0 {
		buffer = defaultBufSize
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, buffer),
		actions: actions,
		info:    info,
		log:     log.With("conn_id", info.ConnID, "user_id", info.UserID),
		rooms:   make(map[int]struct{}),
	}
}

func (c *Client) authenticated() bool {
	return c.info.UserID > 0
}

func (c *Client) kind() string {
	if c.authenticated() {
		return kindAuthed
	}
	return kindAnonymous
}

// enqueue hands a frame to the write pump without blocking.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump decodes frames until the connection fails and returns the reason.
func (c *Client) readPump(ctx context.Context) string {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(c.kind(), "ws_error")
				c.log.Warn("websocket read failed", "error", err)
			}
			return err.Error()
		}
		c.handle(ctx, raw)
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
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
				c.log.Debug("websocket write failed", "error", err)
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

// handle dispatches one client frame. Malformed frames, writes from
// anonymous sessions and writes the service rejects are dropped without a reply.
func (c *Client) handle(ctx context.Context, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Debug("websocket frame ignored", "error", err)
		return
	}

	switch frame.Event {
	case models.EventJoinRoom:
		var data roomData
		if c.decode(frame, &data) && data.RoomID > 0 {
			c.hub.Join(data.RoomID, c)
		}
	case models.EventLeaveRoom:
		var data roomData
		if c.decode(frame, &data) {
			c.hub.Leave(data.RoomID, c)
		}
	case models.EventSendMessage:
		var data sendData
		if !c.writable(frame, &data) {
			return
		}
		c.run(ctx, frame.Event, func(ctx context.Context) error {
			_, err := c.actions.Send(ctx, data.RoomID, c.info.UserID, data.Body)
			if err == nil {
				observability.IncMessageSent("ws")
			}
			return err
		})
	case models.EventMarkAsRead:
		var data roomData
		if !c.writable(frame, &data) {
			return
		}
		c.run(ctx, frame.Event, func(ctx context.Context) error {
			_, err := c.actions.MarkRead(ctx, data.RoomID, c.info.UserID)
			return err
		})
	case models.EventReactMessage:
		var data reactData
		if !c.writable(frame, &data) {
			return
		}
		c.run(ctx, frame.Event, func(ctx context.Context) error {
			_, err := c.actions.React(ctx, data.MessageID, c.info.UserID, data.Value)
			return err
		})
	default:
		c.log.Debug("unknown websocket event", "event", frame.Event)
	}
}

func (c *Client) writable(frame inboundFrame, dst interface{}) bool {
	if !c.authenticated() {
		observability.IncWSEvent(kindAnonymous, "write_ignored")
		return false
	}
	return c.decode(frame, dst)
}

func (c *Client) decode(frame inboundFrame, dst interface{}) bool {
	if len(frame.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(frame.Data, dst); err != nil {
		c.log.Debug("websocket payload ignored", "event", frame.Event, "error", err)
		return false
	}
	return true
}

func (c *Client) run(ctx context.Context, event string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		observability.IncWSEvent(c.kind(), event+"_rejected")
		c.log.Info("websocket action rejected", "event", event, "error", err)
		return
	}
	observability.IncWSEvent(c.kind(), event)
}
