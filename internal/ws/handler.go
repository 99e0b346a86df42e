package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/observability"
)

const wsRoutingKey = "ws_events.chat"

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Handler upgrades /ws requests into hub sessions.
type Handler struct {
	hub        *Hub
	actions    Actions
	verifier   TokenVerifier
	sendBuffer int
	log        *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, actions Actions, verifier TokenVerifier, sendBuffer int, log *slog.Logger) *Handler {
	return &Handler{hub: hub, actions: actions, verifier: verifier, sendBuffer: sendBuffer, log: log}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handle upgrades the connection. A missing or invalid token leaves the
// session anonymous: it may join rooms and receive events but not write.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chatroom-service/ws").Start(c.Request.Context(), "ws.handshake")
	userID := h.identify(c)
	span.SetAttributes(attribute.Int("chat.user_id", userID))
	traceID := span.SpanContext().TraceID().String()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	span.End()
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	info := newConnInfo(c.Request, userID, traceID)
	ctx = observability.WithRequestID(ctx, info.RequestID)
	client := newClient(h.hub, conn, h.actions, info, h.sendBuffer, h.log)
	kind := client.kind()

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	publishWSEvent(ctx, info, kind, "ws_connect", "")
	client.log.Info("websocket connected", "kind", kind)

	go client.writePump()
	reason := client.readPump(ctx)

	h.hub.Remove(client)
	client.close()
	observability.DecWSActive(kind)
	observability.IncWSEvent(kind, "ws_disconnect")
	publishWSEvent(context.WithoutCancel(ctx), info, kind, "ws_disconnect", reason)
	client.log.Info("websocket disconnected", "reason", reason, "duration_ms", time.Since(info.ConnectedAt).Milliseconds())
}

func (h *Handler) identify(c *gin.Context) int {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
			token = strings.TrimSpace(value)
		}
	}
	if token == "" || h.verifier == nil {
		return 0
	}
	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.log.Debug("websocket token rejected", "error", err)
		return 0
	}
	return identity.UserID
}

func publishWSEvent(ctx context.Context, info ConnInfo, kind, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType:  "ws_events",
		EventName:  event,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
