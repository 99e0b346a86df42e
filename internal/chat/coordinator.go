package chat

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
)

// Routing keys for domain events published after a successful write.
const (
	RoutingMessageSent    = "chat.message.sent"
	RoutingMessagesRead   = "chat.messages.read"
	RoutingReaction       = "chat.reaction.upserted"
	RoutingMessageDeleted = "chat.message.deleted"
)

// Broadcaster fans an event out to every session joined to a room and
// reports how many sessions it reached.
type Broadcaster interface {
	Broadcast(roomID int, event models.Event) int
}

// Coordinator orders persistence before delivery: an event reaches live
// sessions only after the write it describes has committed, exactly once.
// Both the REST handlers and websocket sessions write through it.
type Coordinator struct {
	service   *Service
	hub       Broadcaster
	publisher observability.EventPublisher
	log       *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCoordinator constructs a Coordinator. publisher may be nil.
func NewCoordinator(service *Service, hub Broadcaster, publisher observability.EventPublisher, log *slog.Logger) *Coordinator {
	return &Coordinator{
		service:   service,
		hub:       hub,
		publisher: publisher,
		log:       log,
		tracer:    otel.Tracer("chatroom-service/chat"),
		now:       time.Now,
	}
}

// Send persists a message and delivers it to the conversation's room.
func (c *Coordinator) Send(ctx context.Context, conversationID, senderID int, body string) (models.Message, error) {
	ctx, span := c.start(ctx, "chat.send", conversationID, senderID)
	defer span.End()

	msg, err := c.service.Send(ctx, conversationID, senderID, body)
	if err != nil {
		fail(span, err)
		return models.Message{}, err
	}
	c.deliver(ctx, msg.ConversationID, models.EventReceiveMessage, msg, RoutingMessageSent)
	return msg, nil
}

// FetchHistory returns the history and announces any messages the fetch marked read.
func (c *Coordinator) FetchHistory(ctx context.Context, conversationID, callerID int) (models.History, error) {
	ctx, span := c.start(ctx, "chat.fetch_history", conversationID, callerID)
	defer span.End()

	history, err := c.service.FetchHistory(ctx, conversationID, callerID)
	if err != nil {
		fail(span, err)
		return models.History{}, err
	}
	span.SetAttributes(attribute.Int("chat.messages", len(history.Messages)))
	if len(history.MarkedRead) > 0 {
		receipt := models.ReadReceipt{
			ConversationID: conversationID,
			ReaderID:       callerID,
			MessageIDs:     history.MarkedRead,
			ReadAt:         c.now().UTC(),
		}
		c.deliver(ctx, conversationID, models.EventMessagesRead, receipt, RoutingMessagesRead)
	}
	return history, nil
}

// MarkRead marks other members' messages read. Nothing is delivered when no row changed.
func (c *Coordinator) MarkRead(ctx context.Context, conversationID, readerID int) (models.ReadReceipt, error) {
	ctx, span := c.start(ctx, "chat.mark_read", conversationID, readerID)
	defer span.End()

	receipt, err := c.service.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		fail(span, err)
		return models.ReadReceipt{}, err
	}
	if len(receipt.MessageIDs) > 0 {
		c.deliver(ctx, conversationID, models.EventMessagesRead, receipt, RoutingMessagesRead)
	}
	return receipt, nil
}

// React stores a reaction and delivers it to the room of the message's conversation.
func (c *Coordinator) React(ctx context.Context, messageID int64, callerID int, value string) (models.Reaction, error) {
	ctx, span := c.start(ctx, "chat.react", 0, callerID)
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.message_id", messageID))

	reaction, err := c.service.React(ctx, messageID, callerID, value)
	if err != nil {
		fail(span, err)
		return models.Reaction{}, err
	}
	c.deliver(ctx, reaction.ConversationID, models.EventReceiveReaction, reaction, RoutingReaction)
	return reaction, nil
}

// DeleteMessage removes the caller's message and tells the room it is gone.
func (c *Coordinator) DeleteMessage(ctx context.Context, messageID int64, callerID int) (models.Message, error) {
	ctx, span := c.start(ctx, "chat.delete_message", 0, callerID)
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.message_id", messageID))

	msg, err := c.service.DeleteMessage(ctx, messageID, callerID)
	if err != nil {
		fail(span, err)
		return models.Message{}, err
	}
	deleted := models.MessageDeleted{ConversationID: msg.ConversationID, MessageID: msg.ID}
	c.deliver(ctx, msg.ConversationID, models.EventMessageDeleted, deleted, RoutingMessageDeleted)
	return msg, nil
}

func (c *Coordinator) deliver(ctx context.Context, roomID int, event string, data interface{}, routingKey string) {
	reached := c.hub.Broadcast(roomID, models.Event{Event: event, Data: data})
	observability.IncBroadcast(event)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("chat.delivered", reached))

	if c.publisher == nil {
		return
	}
	envelope := observability.EventEnvelope{
		EventType:  "chat_events",
		EventName:  event,
		OccurredAt: c.now().UTC().Format(time.RFC3339Nano),
		Payload:    data,
	}
	if err := c.publisher.Publish(ctx, routingKey, envelope, observability.HeadersFromContext(ctx)); err != nil {
		observability.IncAMQPPublishError()
		c.log.Warn("domain event publish failed", "routing_key", routingKey, "room_id", roomID, "error", err)
	}
}

func (c *Coordinator) start(ctx context.Context, name string, conversationID, userID int) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, name)
	span.SetAttributes(attribute.Int("chat.user_id", userID))
	if conversationID > 0 {
		span.SetAttributes(attribute.Int("chat.conversation_id", conversationID))
	}
	return ctx, span
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
