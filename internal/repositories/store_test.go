package repositories

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/apperr"
	"chatroom-service/internal/db"
	"chatroom-service/internal/models"
)

// openStore connects to CHAT_TEST_DSN with a clean schema or skips the test.
func openStore(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("CHAT_TEST_DSN")
	if dsn == "" {
		t.Skip("CHAT_TEST_DSN not set")
	}
	ctx := context.Background()
	database, err := db.Connect(ctx, db.Options{DSN: dsn, MaxOpenConns: 10})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = database.ExecContext(ctx, `DROP TABLE IF EXISTS message_reactions, messages, conversation_members, conversations, users CASCADE`)
	require.NoError(t, err)
	require.NoError(t, db.ApplySchema(ctx, database, slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err = database.ExecContext(ctx, `INSERT INTO users (id, username) VALUES (1, 'alice'), (2, 'bob'), (3, 'carol')`)
	require.NoError(t, err)
	return database
}

func TestStoreDMFindOrCreateConcurrent(t *testing.T) {
	database := openStore(t)
	repo := NewConversationRepo(database)
	ctx := context.Background()

	const callers = 8
	ids := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := 1, 2
			if i%2 == 1 {
				a, b = 2, 1
			}
			conv, _, err := repo.FindOrCreateDM(ctx, a, b)
			assert.NoError(t, err)
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int
	require.NoError(t, database.GetContext(ctx, &count, `SELECT COUNT(*) FROM conversations WHERE kind = 'dm'`))
	assert.Equal(t, 1, count)
	members, err := repo.ListMemberIDs(ctx, ids[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, members)
}

func TestStorePublicSingleton(t *testing.T) {
	database := openStore(t)
	repo := NewConversationRepo(database)
	ctx := context.Background()

	first, created, err := repo.FindOrCreatePublic(ctx, "World Chat", 1)
	require.NoError(t, err)
	assert.True(t, created)
	second, created, err := repo.FindOrCreatePublic(ctx, "World Chat", 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	ok, err := repo.IsMember(ctx, first.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorePublicConcurrentFirstCallers(t *testing.T) {
	database := openStore(t)
	repo := NewConversationRepo(database)
	ctx := context.Background()

	users := []int{1, 2, 3, 4, 5}
	ids := make([]int, len(users))
	var wg sync.WaitGroup
	for i, userID := range users {
		wg.Add(1)
		go func(i, userID int) {
			defer wg.Done()
			conv, _, err := repo.FindOrCreatePublic(ctx, "World Chat", userID)
			assert.NoError(t, err)
			ids[i] = conv.ID
		}(i, userID)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int
	require.NoError(t, database.GetContext(ctx, &count, `SELECT COUNT(*) FROM conversations WHERE kind = 'public'`))
	assert.Equal(t, 1, count)
	members, err := repo.ListMemberIDs(ctx, ids[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, users, members)
}

func TestStoreDMResolveWaitsForLastLeave(t *testing.T) {
	database := openStore(t)
	repo := NewConversationRepo(database)
	ctx := context.Background()

	conv, _, err := repo.FindOrCreateDM(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.RemoveMember(ctx, conv.ID, 1)
	require.NoError(t, err)

	// Same locking order as RemoveMember for the last member, held open.
	leaver, err := database.BeginTxx(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = leaver.Rollback() })
	var locked int
	require.NoError(t, leaver.GetContext(ctx, &locked, `SELECT id FROM conversations WHERE id=$1 FOR UPDATE`, conv.ID))
	_, err = leaver.ExecContext(ctx, `DELETE FROM conversation_members WHERE conversation_id=$1 AND user_id=$2`, conv.ID, 2)
	require.NoError(t, err)

	type result struct {
		conv    models.Conversation
		created bool
		err     error
	}
	done := make(chan result, 1)
	go func() {
		resolved, created, err := repo.FindOrCreateDM(ctx, 2, 1)
		done <- result{conv: resolved, created: created, err: err}
	}()

	select {
	case res := <-done:
		t.Fatalf("resolve returned while the conversation was locked: %+v", res)
	case <-time.After(200 * time.Millisecond):
	}

	_, err = leaver.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, conv.ID)
	require.NoError(t, err)
	require.NoError(t, leaver.Commit())

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.created)
	assert.NotEqual(t, conv.ID, res.conv.ID)
	members, err := repo.ListMemberIDs(ctx, res.conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, members)
}

func TestStoreDMResolveAfterAbandonedLeave(t *testing.T) {
	database := openStore(t)
	repo := NewConversationRepo(database)
	ctx := context.Background()

	conv, _, err := repo.FindOrCreateDM(ctx, 1, 2)
	require.NoError(t, err)

	leaver, err := database.BeginTxx(ctx, nil)
	require.NoError(t, err)
	var locked int
	require.NoError(t, leaver.GetContext(ctx, &locked, `SELECT id FROM conversations WHERE id=$1 FOR UPDATE`, conv.ID))

	done := make(chan error, 1)
	var resolved models.Conversation
	go func() {
		var err error
		resolved, _, err = repo.FindOrCreateDM(ctx, 1, 2)
		done <- err
	}()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, leaver.Rollback())

	require.NoError(t, <-done)
	assert.Equal(t, conv.ID, resolved.ID)
}

func TestStoreScenarioSendFetchList(t *testing.T) {
	database := openStore(t)
	convs := NewConversationRepo(database)
	msgs := NewMessageRepo(database)
	ctx := context.Background()

	conv, _, err := convs.FindOrCreateDM(ctx, 1, 2)
	require.NoError(t, err)
	sent, err := msgs.CreateMessage(ctx, conv.ID, 1, "hi")
	require.NoError(t, err)

	history, err := msgs.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsRead)

	marked, err := msgs.MarkRead(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{sent.ID}, marked)

	again, err := msgs.MarkRead(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, again)

	rows, err := convs.ListSummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].LastIsRead)
	assert.True(t, *rows[0].LastIsRead)
	require.NotNil(t, rows[0].PartnerID)
	assert.Equal(t, 2, *rows[0].PartnerID)
}

func TestStoreDeleteByNonSenderKeepsRow(t *testing.T) {
	database := openStore(t)
	convs := NewConversationRepo(database)
	msgs := NewMessageRepo(database)
	ctx := context.Background()

	conv, _, err := convs.FindOrCreateDM(ctx, 1, 2)
	require.NoError(t, err)
	sent, err := msgs.CreateMessage(ctx, conv.ID, 1, "mine")
	require.NoError(t, err)

	_, err = msgs.DeleteMessage(ctx, sent.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = msgs.GetMessage(ctx, sent.ID)
	require.NoError(t, err)

	removed, err := msgs.DeleteMessage(ctx, sent.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, removed.ConversationID)
}

func TestStoreReactionUpsert(t *testing.T) {
	database := openStore(t)
	convs := NewConversationRepo(database)
	msgs := NewMessageRepo(database)
	ctx := context.Background()

	conv, _, err := convs.FindOrCreateDM(ctx, 1, 2)
	require.NoError(t, err)
	sent, err := msgs.CreateMessage(ctx, conv.ID, 1, "react to me")
	require.NoError(t, err)

	_, err = msgs.UpsertReaction(ctx, sent.ID, 2, "+1")
	require.NoError(t, err)
	latest, err := msgs.UpsertReaction(ctx, sent.ID, 2, "heart")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, latest.ConversationID)

	reactions, err := msgs.ListReactions(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, "heart", reactions[0].Reaction)
}

func TestStoreLeaveCascade(t *testing.T) {
	database := openStore(t)
	convs := NewConversationRepo(database)
	msgs := NewMessageRepo(database)
	ctx := context.Background()

	group, err := convs.CreateGroup(ctx, "Team", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, models.KindGroup, group.Kind)
	_, err = msgs.CreateMessage(ctx, group.ID, 1, "hello team")
	require.NoError(t, err)

	deleted, err := convs.RemoveMember(ctx, group.ID, 1)
	require.NoError(t, err)
	assert.False(t, deleted)
	remaining, err := msgs.ListMessages(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	deleted, err = convs.RemoveMember(ctx, group.ID, 2)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = convs.GetConversation(ctx, group.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	var count int
	require.NoError(t, database.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, group.ID))
	assert.Zero(t, count)
}

func TestStoreRenameMissingConversation(t *testing.T) {
	database := openStore(t)
	convs := NewConversationRepo(database)

	err := convs.Rename(context.Background(), 404, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
