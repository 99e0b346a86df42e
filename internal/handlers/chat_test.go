package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/apperr"
	"chatroom-service/internal/mocks"
	"chatroom-service/internal/models"
)

type testDeps struct {
	resolver      *mocks.ResolverMock
	conversations *mocks.ConversationsMock
	delivery      *mocks.DeliveryMock
}

func setupChatRouter() (*gin.Engine, testDeps) {
	gin.SetMode(gin.TestMode)
	deps := testDeps{
		resolver:      new(mocks.ResolverMock),
		conversations: new(mocks.ConversationsMock),
		delivery:      new(mocks.DeliveryMock),
	}
	handler := NewChatHandler(deps.resolver, deps.conversations, deps.delivery, nil)
	r := gin.New()
	group := r.Group("/chat", func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	handler.RegisterRoutes(group)
	return r, deps
}

func (d testDeps) assertAll(t *testing.T) {
	d.resolver.AssertExpectations(t)
	d.conversations.AssertExpectations(t)
	d.delivery.AssertExpectations(t)
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListConversationsSuccess(t *testing.T) {
	r, deps := setupChatRouter()
	deps.conversations.On("ListConversations", mock.Anything, 1).Return([]models.ConversationSummary{{ID: 3, Kind: models.KindDM, Label: "bob"}}, nil).Once()

	rec := do(r, http.MethodGet, "/chat/list", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "bob", resp.Conversations[0].Label)
	deps.assertAll(t)
}

func TestListConversationsStoreError(t *testing.T) {
	r, deps := setupChatRouter()
	deps.conversations.On("ListConversations", mock.Anything, 1).Return(nil, fmt.Errorf("list: %w", apperr.ErrUnavailable)).Once()

	rec := do(r, http.MethodGet, "/chat/list", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	deps.assertAll(t)
}

func TestHistory(t *testing.T) {
	r, deps := setupChatRouter()
	deps.delivery.On("FetchHistory", mock.Anything, 5, 1).Return(models.History{Messages: []models.Message{{ID: 1, ConversationID: 5}}, MarkedRead: []int64{1}}, nil).Once()
	deps.delivery.On("FetchHistory", mock.Anything, 6, 1).Return(models.History{}, apperr.ErrForbidden).Once()

	rec := do(r, http.MethodGet, "/chat/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Messages, 1)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/chat/6", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/chat/abc", "").Code)
	deps.assertAll(t)
}

func TestSend(t *testing.T) {
	r, deps := setupChatRouter()
	deps.delivery.On("Send", mock.Anything, 5, 1, "hi").Return(models.Message{ID: 9, ConversationID: 5, SenderID: 1, Body: "hi"}, nil).Once()
	deps.delivery.On("Send", mock.Anything, 5, 1, "").Return(models.Message{}, fmt.Errorf("%w: body required", apperr.ErrInvalidInput)).Once()

	rec := do(r, http.MethodPost, "/chat/send", `{"conversation_id":5,"body":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Equal(t, int64(9), msg.ID)

	rec = do(r, http.MethodPost, "/chat/send", `{"conversation_id":5,"body":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "body required")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/chat/send", `{"body":"x"}`).Code)
	deps.assertAll(t)
}

func TestCreateDM(t *testing.T) {
	r, deps := setupChatRouter()
	deps.resolver.On("ResolveDM", mock.Anything, 1, 2).Return(models.Conversation{ID: 10}, nil).Once()
	deps.resolver.On("ResolveDM", mock.Anything, 1, 1).Return(models.Conversation{}, apperr.ErrInvalidInput).Once()

	rec := do(r, http.MethodPost, "/chat/create", `{"target_user_id":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":10}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/chat/create", `{"target_user_id":1}`).Code)
	deps.assertAll(t)
}

func TestPublicAndJoin(t *testing.T) {
	r, deps := setupChatRouter()
	deps.resolver.On("ResolvePublic", mock.Anything, 1).Return(models.Conversation{ID: 1, Kind: models.KindPublic}, nil).Once()
	deps.resolver.On("Join", mock.Anything, 4, 1).Return(nil).Once()
	deps.resolver.On("Join", mock.Anything, 7, 1).Return(apperr.ErrNotFound).Once()

	rec := do(r, http.MethodGet, "/chat/public", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/chat/join", `{"conversation_id":4}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/chat/join", `{"conversation_id":7}`).Code)
	deps.assertAll(t)
}

func TestRenameAndLeave(t *testing.T) {
	r, deps := setupChatRouter()
	deps.conversations.On("UpdateName", mock.Anything, 5, 1, "New").Return(nil).Once()
	deps.conversations.On("Leave", mock.Anything, 5, 1).Return(true, nil).Once()

	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/chat/5", `{"name":"New"}`).Code)

	rec := do(r, http.MethodDelete, "/chat/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":true}`, rec.Body.String())
	deps.assertAll(t)
}

func TestDeleteMessage(t *testing.T) {
	r, deps := setupChatRouter()
	deps.delivery.On("DeleteMessage", mock.Anything, int64(12), 1).Return(models.Message{ID: 12}, nil).Once()
	deps.delivery.On("DeleteMessage", mock.Anything, int64(13), 1).Return(models.Message{}, apperr.ErrNotFound).Once()

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/chat/message/12", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/chat/message/13", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/chat/message/x", "").Code)
	deps.assertAll(t)
}

func TestReact(t *testing.T) {
	r, deps := setupChatRouter()
	deps.delivery.On("React", mock.Anything, int64(12), 1, "+1").Return(models.Reaction{MessageID: 12, ConversationID: 5, UserID: 1, Reaction: "+1"}, nil).Once()
	deps.delivery.On("React", mock.Anything, int64(14), 1, "+1").Return(models.Reaction{}, apperr.ErrForbidden).Once()

	rec := do(r, http.MethodPost, "/chat/message/12/react", `{"reaction":"+1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var reaction models.Reaction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reaction))
	assert.Equal(t, "+1", reaction.Reaction)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/chat/message/14/react", `{"reaction":"+1"}`).Code)
	deps.assertAll(t)
}

func TestDetails(t *testing.T) {
	r, deps := setupChatRouter()
	deps.conversations.On("Details", mock.Anything, 5, 1).Return(models.ConversationDetails{ID: 5, Kind: models.KindGroup, Label: "Team", IsGroup: true}, nil).Once()

	rec := do(r, http.MethodGet, "/chat/details/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var details models.ConversationDetails
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&details))
	assert.Equal(t, "Team", details.Label)
	deps.assertAll(t)
}

func TestUnclassifiedErrorIsInternal(t *testing.T) {
	r, deps := setupChatRouter()
	deps.conversations.On("Details", mock.Anything, 5, 1).Return(models.ConversationDetails{}, assert.AnError).Once()

	rec := do(r, http.MethodGet, "/chat/details/5", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to load conversation"}`, rec.Body.String())
	deps.assertAll(t)
}
