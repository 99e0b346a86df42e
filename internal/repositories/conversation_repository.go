package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"chatroom-service/internal/apperr"
	"chatroom-service/internal/models"
)

// findOrCreateAttempts bounds the insert/re-select loop when the row that
// won a conflict disappears before it can be read.
const findOrCreateAttempts = 3

const conversationColumns = `id, kind, name, dm_key, created_at`

// ConversationRepository abstracts conversation and membership persistence.
type ConversationRepository interface {
	FindOrCreateDM(ctx context.Context, userA int, userB int) (models.Conversation, bool, error)
	FindOrCreatePublic(ctx context.Context, name string, userID int) (models.Conversation, bool, error)
	CreateGroup(ctx context.Context, name string, memberIDs []int) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	IsMember(ctx context.Context, conversationID int, userID int) (bool, error)
	ListMemberIDs(ctx context.Context, conversationID int) ([]int, error)
	AddMembers(ctx context.Context, conversationID int, userIDs []int) error
	Rename(ctx context.Context, conversationID int, name string) error
	RemoveMember(ctx context.Context, conversationID int, userID int) (bool, error)
	ListSummaries(ctx context.Context, userID int) ([]models.SummaryRow, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// DMKey is the unordered pair identity of a direct conversation.
func DMKey(userA, userB int) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

// FindOrCreateDM returns the direct conversation for the pair, creating it
// when absent. Both users are (re)added as members. The bool reports
// whether this call created the conversation.
func (r *ConversationRepo) FindOrCreateDM(ctx context.Context, userA int, userB int) (models.Conversation, bool, error) {
	key := DMKey(userA, userB)
	var (
		conv    models.Conversation
		created bool
	)
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		conv, created, err = findOrInsert(ctx, tx,
			`INSERT INTO conversations (kind, dm_key) VALUES ('dm', $1)
            ON CONFLICT (dm_key) DO NOTHING RETURNING `+conversationColumns,
			`SELECT `+conversationColumns+` FROM conversations WHERE dm_key = $1 FOR SHARE`,
			[]interface{}{key}, []interface{}{key})
		if err != nil {
			return err
		}
		return addMembers(ctx, tx, conv.ID, []int{userA, userB})
	})
	if err != nil {
		return models.Conversation{}, false, err
	}
	return conv, created, nil
}

// FindOrCreatePublic returns the singleton public conversation and joins userID to it.
func (r *ConversationRepo) FindOrCreatePublic(ctx context.Context, name string, userID int) (models.Conversation, bool, error) {
	var (
		conv    models.Conversation
		created bool
	)
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		conv, created, err = findOrInsert(ctx, tx,
			`INSERT INTO conversations (kind, name) VALUES ('public', $1)
            ON CONFLICT (kind) WHERE kind = 'public' DO NOTHING RETURNING `+conversationColumns,
			`SELECT `+conversationColumns+` FROM conversations WHERE kind = 'public' FOR SHARE`,
			[]interface{}{name}, nil)
		if err != nil {
			return err
		}
		return addMembers(ctx, tx, conv.ID, []int{userID})
	})
	if err != nil {
		return models.Conversation{}, false, err
	}
	return conv, created, nil
}

// findOrInsert runs a conditional insert guarded by a unique index and, when
// another writer holds the row, reads the winner instead. The winner is read
// FOR SHARE: a concurrent last-member delete either completes first and the
// insert is retried, or waits for this transaction.
func findOrInsert(ctx context.Context, tx *sqlx.Tx, insert, selectWinner string, insertArgs, selectArgs []interface{}) (models.Conversation, bool, error) {
	var conv models.Conversation
	for attempt := 0; attempt < findOrCreateAttempts; attempt++ {
		err := tx.GetContext(ctx, &conv, insert, insertArgs...)
		if err == nil {
			return conv, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Conversation{}, false, mapError(err, "insert conversation")
		}

		err = tx.GetContext(ctx, &conv, selectWinner, selectArgs...)
		if err == nil {
			return conv, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Conversation{}, false, mapError(err, "select conversation")
		}
	}
	return models.Conversation{}, false, errors.Wrap(apperr.ErrConflict, "find or create conversation")
}

// CreateGroup creates a group conversation and its members atomically.
func (r *ConversationRepo) CreateGroup(ctx context.Context, name string, memberIDs []int) (models.Conversation, error) {
	var conv models.Conversation
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &conv, `INSERT INTO conversations (kind, name) VALUES ('group', $1) RETURNING `+conversationColumns, name); err != nil {
			return mapError(err, "insert group")
		}
		return addMembers(ctx, tx, conv.ID, memberIDs)
	})
	return conv, err
}

func addMembers(ctx context.Context, tx sqlx.ExecerContext, conversationID int, userIDs []int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO conversation_members (conversation_id, user_id)
        SELECT $1, unnest($2::int[])
        ON CONFLICT (conversation_id, user_id) DO NOTHING`, conversationID, pq.Array(userIDs))
	return mapError(err, "insert members")
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if err != nil {
		return models.Conversation{}, mapError(err, "get conversation")
	}
	return conv, nil
}

// IsMember checks membership.
func (r *ConversationRepo) IsMember(ctx context.Context, conversationID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversation_members WHERE conversation_id=$1 AND user_id=$2)`, conversationID, userID)
	return exists, mapError(err, "check membership")
}

// ListMemberIDs returns member ids in join order.
func (r *ConversationRepo) ListMemberIDs(ctx context.Context, conversationID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM conversation_members WHERE conversation_id=$1 ORDER BY joined_at, user_id`, conversationID)
	return ids, mapError(err, "list members")
}

// AddMembers joins users to an existing conversation. Existing members are left as is.
func (r *ConversationRepo) AddMembers(ctx context.Context, conversationID int, userIDs []int) error {
	return addMembers(ctx, r.db, conversationID, userIDs)
}

// Rename sets the conversation name.
func (r *ConversationRepo) Rename(ctx context.Context, conversationID int, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET name=$1 WHERE id=$2`, name, conversationID)
	if err != nil {
		return mapError(err, "rename conversation")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "rename conversation")
	}
	if count == 0 {
		return errors.Wrap(apperr.ErrNotFound, "rename conversation")
	}
	return nil
}

// RemoveMember deletes a membership and, when it was the last one, the
// conversation with its messages. The bool reports whether the
// conversation was deleted.
func (r *ConversationRepo) RemoveMember(ctx context.Context, conversationID int, userID int) (bool, error) {
	var deleted bool
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var id int
		if err := tx.GetContext(ctx, &id, `SELECT id FROM conversations WHERE id=$1 FOR UPDATE`, conversationID); err != nil {
			return mapError(err, "lock conversation")
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM conversation_members WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
		if err != nil {
			return mapError(err, "delete membership")
		}
		if count, err := res.RowsAffected(); err != nil {
			return mapError(err, "delete membership")
		} else if count == 0 {
			return errors.Wrap(apperr.ErrNotFound, "delete membership")
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1
            AND NOT EXISTS (SELECT 1 FROM conversation_members WHERE conversation_id=$1)`, conversationID)
		if err != nil {
			return mapError(err, "delete empty conversation")
		}
		count, err := res.RowsAffected()
		if err != nil {
			return mapError(err, "delete empty conversation")
		}
		deleted = count > 0
		return nil
	})
	return deleted, err
}

// ListSummaries returns the user's conversations with their last message and
// first other member, most recently active first.
func (r *ConversationRepo) ListSummaries(ctx context.Context, userID int) ([]models.SummaryRow, error) {
	query := `SELECT c.id, c.kind, c.name, c.created_at,
            lm.id AS last_message_id, lm.body AS last_body, lm.sender_id AS last_sender_id,
            lm.created_at AS last_created_at, lm.is_read AS last_is_read,
            p.user_id AS partner_id
        FROM conversations c
        INNER JOIN conversation_members cm ON cm.conversation_id = c.id AND cm.user_id = $1
        LEFT JOIN LATERAL (
            SELECT id, body, sender_id, created_at, is_read FROM messages
            WHERE conversation_id = c.id
            ORDER BY created_at DESC, id DESC
            LIMIT 1
        ) lm ON TRUE
        LEFT JOIN LATERAL (
            SELECT user_id FROM conversation_members
            WHERE conversation_id = c.id AND user_id <> $1
            ORDER BY joined_at, user_id
            LIMIT 1
        ) p ON TRUE
        ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id DESC`
	var rows []models.SummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, mapError(err, "list conversations")
	}
	return rows, nil
}
