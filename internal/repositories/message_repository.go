package repositories

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx"

	"chatroom-service/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, body, is_read, created_at`

// MessageRepository defines interactions for messages and reactions.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationID int, senderID int, body string) (models.Message, error)
	ListMessages(ctx context.Context, conversationID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID int64, senderID int) (models.Message, error)
	MarkRead(ctx context.Context, conversationID int, readerID int) ([]int64, error)
	UpsertReaction(ctx context.Context, messageID int64, userID int, reaction string) (models.Reaction, error)
	ListReactions(ctx context.Context, conversationID int) ([]models.Reaction, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message; id and created_at are assigned by the store.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID int, senderID int, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `INSERT INTO messages (conversation_id, sender_id, body) VALUES ($1, $2, $3) RETURNING `+messageColumns, conversationID, senderID, body)
	if err != nil {
		return models.Message{}, mapError(err, "insert message")
	}
	return msg, nil
}

// ListMessages returns the full history in (created_at, id) order.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID int) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, mapError(err, "list messages")
	}
	return msgs, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return models.Message{}, mapError(err, "get message")
	}
	return msg, nil
}

// DeleteMessage removes a message owned by senderID and returns the removed row.
// A message that does not exist or belongs to someone else yields NotFound.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID int64, senderID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `DELETE FROM messages WHERE id=$1 AND sender_id=$2 RETURNING `+messageColumns, messageID, senderID)
	if err != nil {
		return models.Message{}, mapError(err, "delete message")
	}
	return msg, nil
}

// MarkRead flips is_read on every unread message not sent by readerID in one
// statement and returns the affected ids in ascending order.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID int, readerID int) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `UPDATE messages SET is_read = TRUE
        WHERE conversation_id=$1 AND sender_id<>$2 AND is_read = FALSE
        RETURNING id`, conversationID, readerID)
	if err != nil {
		return nil, mapError(err, "mark read")
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// UpsertReaction stores the user's reaction, replacing any previous one.
func (r *MessageRepo) UpsertReaction(ctx context.Context, messageID int64, userID int, reaction string) (models.Reaction, error) {
	var out models.Reaction
	err := r.db.GetContext(ctx, &out, `WITH upserted AS (
            INSERT INTO message_reactions (message_id, user_id, reaction) VALUES ($1, $2, $3)
            ON CONFLICT (message_id, user_id) DO UPDATE SET reaction = EXCLUDED.reaction, updated_at = NOW()
            RETURNING message_id, user_id, reaction, updated_at
        )
        SELECT u.message_id, m.conversation_id, u.user_id, u.reaction, u.updated_at
        FROM upserted u INNER JOIN messages m ON m.id = u.message_id`, messageID, userID, reaction)
	if err != nil {
		return models.Reaction{}, mapError(err, "upsert reaction")
	}
	return out, nil
}

// ListReactions returns every reaction in the conversation grouped by message.
func (r *MessageRepo) ListReactions(ctx context.Context, conversationID int) ([]models.Reaction, error) {
	reactions := []models.Reaction{}
	err := r.db.SelectContext(ctx, &reactions, `SELECT r.message_id, m.conversation_id, r.user_id, r.reaction, r.updated_at
        FROM message_reactions r INNER JOIN messages m ON m.id = r.message_id
        WHERE m.conversation_id=$1
        ORDER BY r.message_id, r.updated_at, r.user_id`, conversationID)
	if err != nil {
		return nil, mapError(err, "list reactions")
	}
	return reactions, nil
}
