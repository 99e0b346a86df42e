package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/apperr"
	"chatroom-service/internal/mocks"
	"chatroom-service/internal/models"
	"chatroom-service/internal/telemetry"
)

func TestCreateGroupSuccess(t *testing.T) {
	r, deps := setupChatRouter()
	name := "Team"
	deps.resolver.On("ResolveGroup", mock.Anything, 1, "Team", []int{2, 3}).Return(models.Conversation{ID: 8, Kind: models.KindGroup, Name: &name}, nil).Once()

	rec := do(r, http.MethodPost, "/chat/group/create", `{"name":"Team","member_ids":[2,3]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":8,"name":"Team"}`, rec.Body.String())
	deps.assertAll(t)
}

func TestCreateGroupInvalid(t *testing.T) {
	r, deps := setupChatRouter()
	deps.resolver.On("ResolveGroup", mock.Anything, 1, "", []int(nil)).Return(models.Conversation{}, apperr.ErrInvalidInput).Once()

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/chat/group/create", `{"name":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/chat/group/create", `not json`).Code)
	deps.assertAll(t)
}

func TestInvite(t *testing.T) {
	r, deps := setupChatRouter()
	deps.resolver.On("Invite", mock.Anything, 8, 1, []int{4}).Return(nil).Once()
	deps.resolver.On("Invite", mock.Anything, 9, 1, []int{4}).Return(apperr.ErrForbidden).Once()

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/chat/group/8/invite", `{"member_ids":[4]}`).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/chat/group/9/invite", `{"member_ids":[4]}`).Code)
	deps.assertAll(t)
}

func TestCreateGroupEmitsAudit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resolver := new(mocks.ResolverMock)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.chat", "chat-service", "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := NewChatHandler(resolver, new(mocks.ConversationsMock), new(mocks.DeliveryMock), audit)
	r := gin.New()
	group := r.Group("/chat", func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	handler.RegisterRoutes(group)

	name := "Team"
	resolver.On("ResolveGroup", mock.Anything, 1, "Team", []int{2}).Return(models.Conversation{ID: 8, Name: &name}, nil).Once()
	pub.On("Publish", mock.Anything, "audit.chat", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Text == "Group created" && env.UserID != nil && *env.UserID == 1
	}), mock.Anything).Return(nil).Once()

	rec := do(r, http.MethodPost, "/chat/group/create", `{"name":"Team","member_ids":[2]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	resolver.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestDebugRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.chat", "chat-service", "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	pub.On("Publish", mock.Anything, "audit.chat", mock.Anything, mock.Anything).Return(nil).Once()

	r := gin.New()
	RegisterDebugRoutes(r, audit, true)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/debug/audit-test", "").Code)
	pub.AssertExpectations(t)

	disabled := gin.New()
	RegisterDebugRoutes(disabled, audit, false)
	assert.Equal(t, http.StatusNotFound, do(disabled, http.MethodGet, "/debug/audit-test", "").Code)
}
