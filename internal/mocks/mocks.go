package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindOrCreateDM(ctx context.Context, userA int, userB int) (models.Conversation, bool, error) {
	args := m.Called(ctx, userA, userB)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) FindOrCreatePublic(ctx context.Context, name string, userID int) (models.Conversation, bool, error) {
	args := m.Called(ctx, name, userID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, name string, memberIDs []int) (models.Conversation, error) {
	args := m.Called(ctx, name, memberIDs)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) IsMember(ctx context.Context, conversationID int, userID int) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) ListMemberIDs(ctx context.Context, conversationID int) ([]int, error) {
	args := m.Called(ctx, conversationID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ConversationRepositoryMock) AddMembers(ctx context.Context, conversationID int, userIDs []int) error {
	args := m.Called(ctx, conversationID, userIDs)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) Rename(ctx context.Context, conversationID int, name string) error {
	args := m.Called(ctx, conversationID, name)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) RemoveMember(ctx context.Context, conversationID int, userID int) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) ListSummaries(ctx context.Context, userID int) ([]models.SummaryRow, error) {
	args := m.Called(ctx, userID)
	var rows []models.SummaryRow
	if val := args.Get(0); val != nil {
		rows = val.([]models.SummaryRow)
	}
	return rows, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, conversationID int, senderID int, body string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, conversationID int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, messageID int64, senderID int) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, conversationID int, readerID int) ([]int64, error) {
	args := m.Called(ctx, conversationID, readerID)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *MessageRepositoryMock) UpsertReaction(ctx context.Context, messageID int64, userID int, reaction string) (models.Reaction, error) {
	args := m.Called(ctx, messageID, userID, reaction)
	var out models.Reaction
	if val := args.Get(0); val != nil {
		out = val.(models.Reaction)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) ListReactions(ctx context.Context, conversationID int) ([]models.Reaction, error) {
	args := m.Called(ctx, conversationID)
	var out []models.Reaction
	if val := args.Get(0); val != nil {
		out = val.([]models.Reaction)
	}
	return out, args.Error(1)
}

// UserDirectoryMock stands in for directory.Directory.
type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) Lookup(ctx context.Context, ids []int) (map[int]models.User, error) {
	args := m.Called(ctx, ids)
	var users map[int]models.User
	if val := args.Get(0); val != nil {
		users = val.(map[int]models.User)
	}
	return users, args.Error(1)
}

func (m *UserDirectoryMock) Touch(ctx context.Context, userID int) {
	m.Called(ctx, userID)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Broadcast(roomID int, event models.Event) int {
	args := m.Called(roomID, event)
	return args.Int(0)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ interface {
	Lookup(context.Context, []int) (map[int]models.User, error)
	Touch(context.Context, int)
} = (*UserDirectoryMock)(nil)
