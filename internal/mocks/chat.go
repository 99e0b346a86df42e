package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatroom-service/internal/models"
)

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) ResolveDM(ctx context.Context, callerID, targetID int) (models.Conversation, error) {
	args := m.Called(ctx, callerID, targetID)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ResolverMock) ResolveGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Conversation, error) {
	args := m.Called(ctx, creatorID, name, memberIDs)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ResolverMock) ResolvePublic(ctx context.Context, callerID int) (models.Conversation, error) {
	args := m.Called(ctx, callerID)
	return args.Get(0).(models.Conversation), args.Error(1)
}

func (m *ResolverMock) Join(ctx context.Context, conversationID, callerID int) error {
	args := m.Called(ctx, conversationID, callerID)
	return args.Error(0)
}

func (m *ResolverMock) Invite(ctx context.Context, conversationID, callerID int, memberIDs []int) error {
	args := m.Called(ctx, conversationID, callerID, memberIDs)
	return args.Error(0)
}

type ConversationsMock struct {
	mock.Mock
}

func (m *ConversationsMock) ListConversations(ctx context.Context, callerID int) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, callerID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationsMock) Details(ctx context.Context, conversationID, callerID int) (models.ConversationDetails, error) {
	args := m.Called(ctx, conversationID, callerID)
	return args.Get(0).(models.ConversationDetails), args.Error(1)
}

func (m *ConversationsMock) UpdateName(ctx context.Context, conversationID, callerID int, name string) error {
	args := m.Called(ctx, conversationID, callerID, name)
	return args.Error(0)
}

func (m *ConversationsMock) Leave(ctx context.Context, conversationID, callerID int) (bool, error) {
	args := m.Called(ctx, conversationID, callerID)
	return args.Bool(0), args.Error(1)
}

type DeliveryMock struct {
	mock.Mock
}

func (m *DeliveryMock) Send(ctx context.Context, conversationID, senderID int, body string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, body)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *DeliveryMock) FetchHistory(ctx context.Context, conversationID, callerID int) (models.History, error) {
	args := m.Called(ctx, conversationID, callerID)
	return args.Get(0).(models.History), args.Error(1)
}

func (m *DeliveryMock) React(ctx context.Context, messageID int64, callerID int, value string) (models.Reaction, error) {
	args := m.Called(ctx, messageID, callerID, value)
	return args.Get(0).(models.Reaction), args.Error(1)
}

func (m *DeliveryMock) DeleteMessage(ctx context.Context, messageID int64, callerID int) (models.Message, error) {
	args := m.Called(ctx, messageID, callerID)
	return args.Get(0).(models.Message), args.Error(1)
}
