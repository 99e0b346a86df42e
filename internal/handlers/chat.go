package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/telemetry"
)

// Resolver finds, creates and joins conversations.
type Resolver interface {
	ResolveDM(ctx context.Context, callerID, targetID int) (models.Conversation, error)
	ResolveGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Conversation, error)
	ResolvePublic(ctx context.Context, callerID int) (models.Conversation, error)
	Join(ctx context.Context, conversationID, callerID int) error
	Invite(ctx context.Context, conversationID, callerID int, memberIDs []int) error
}

// Conversations covers operations that do not produce live events.
type Conversations interface {
	ListConversations(ctx context.Context, callerID int) ([]models.ConversationSummary, error)
	Details(ctx context.Context, conversationID, callerID int) (models.ConversationDetails, error)
	UpdateName(ctx context.Context, conversationID, callerID int, name string) error
	Leave(ctx context.Context, conversationID, callerID int) (bool, error)
}

// Delivery covers writes whose results are broadcast to the room.
type Delivery interface {
	Send(ctx context.Context, conversationID, senderID int, body string) (models.Message, error)
	FetchHistory(ctx context.Context, conversationID, callerID int) (models.History, error)
	React(ctx context.Context, messageID int64, callerID int, value string) (models.Reaction, error)
	DeleteMessage(ctx context.Context, messageID int64, callerID int) (models.Message, error)
}

// ChatHandler serves the /chat REST surface.
type ChatHandler struct {
	resolver      Resolver
	conversations Conversations
	delivery      Delivery
	audit         *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler. audit may be nil.
func NewChatHandler(resolver Resolver, conversations Conversations, delivery Delivery, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		resolver:      resolver,
		conversations: conversations,
		delivery:      delivery,
		audit:         audit,
	}
}

// RegisterRoutes mounts every chat endpoint on the group.
func (h *ChatHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/list", h.ListConversations)
	r.GET("/public", h.PublicConversation)
	r.GET("/details/:conversationId", h.Details)
	r.GET("/:conversationId", h.History)
	r.POST("/send", h.Send)
	r.POST("/create", h.CreateDM)
	r.POST("/join", h.Join)
	r.POST("/group/create", h.CreateGroup)
	r.POST("/group/:conversationId/invite", h.Invite)
	r.POST("/message/:messageId/react", h.React)
	r.PUT("/:conversationId", h.Rename)
	r.DELETE("/message/:messageId", h.DeleteMessage)
	r.DELETE("/:conversationId", h.Leave)
}

// ListConversations handles GET /chat/list.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	list, err := h.conversations.ListConversations(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		respondError(c, err, "failed to load conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// History handles GET /chat/:conversationId. Fetching marks the caller's
// unread messages as read.
func (h *ChatHandler) History(c *gin.Context) {
	conversationID, ok := paramID(c, "conversationId", "conversation id")
	if !ok {
		return
	}
	history, err := h.delivery.FetchHistory(c.Request.Context(), conversationID, c.GetInt("userID"))
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history.Messages, "marked_read": history.MarkedRead})
}

// Send handles POST /chat/send.
func (h *ChatHandler) Send(c *gin.Context) {
	var req struct {
		ConversationID int    `json:"conversation_id" binding:"required"`
		Body           string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.delivery.Send(c.Request.Context(), req.ConversationID, c.GetInt("userID"), req.Body)
	if err != nil {
		respondError(c, err, "failed to store message")
		return
	}
	observability.IncMessageSent("http")
	c.JSON(http.StatusCreated, msg)
}

// CreateDM handles POST /chat/create and returns the pair's conversation.
func (h *ChatHandler) CreateDM(c *gin.Context) {
	var req struct {
		TargetUserID int `json:"target_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.resolver.ResolveDM(c.Request.Context(), c.GetInt("userID"), req.TargetUserID)
	if err != nil {
		respondError(c, err, "could not create conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": conv.ID})
}

// PublicConversation handles GET /chat/public and joins the caller to it.
func (h *ChatHandler) PublicConversation(c *gin.Context) {
	conv, err := h.resolver.ResolvePublic(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		respondError(c, err, "could not load public conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": conv.ID})
}

// Join handles POST /chat/join.
func (h *ChatHandler) Join(c *gin.Context) {
	var req struct {
		ConversationID int `json:"conversation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.resolver.Join(c.Request.Context(), req.ConversationID, c.GetInt("userID")); err != nil {
		respondError(c, err, "could not join conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Rename handles PUT /chat/:conversationId.
func (h *ChatHandler) Rename(c *gin.Context) {
	conversationID, ok := paramID(c, "conversationId", "conversation id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.conversations.UpdateName(c.Request.Context(), conversationID, c.GetInt("userID"), req.Name); err != nil {
		respondError(c, err, "could not rename conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Leave handles DELETE /chat/:conversationId.
func (h *ChatHandler) Leave(c *gin.Context) {
	conversationID, ok := paramID(c, "conversationId", "conversation id")
	if !ok {
		return
	}
	deleted, err := h.conversations.Leave(c.Request.Context(), conversationID, c.GetInt("userID"))
	if err != nil {
		respondError(c, err, "could not leave conversation")
		return
	}
	if deleted {
		emitAudit(c, h.audit, "INFO", "Conversation deleted after last member left")
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// DeleteMessage handles DELETE /chat/message/:messageId. Only the sender may delete.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := paramMessageID(c)
	if !ok {
		return
	}
	if _, err := h.delivery.DeleteMessage(c.Request.Context(), messageID, c.GetInt("userID")); err != nil {
		respondError(c, err, "could not delete message")
		return
	}
	emitAudit(c, h.audit, "INFO", "Message deleted")
	c.Status(http.StatusNoContent)
}

// React handles POST /chat/message/:messageId/react.
func (h *ChatHandler) React(c *gin.Context) {
	messageID, ok := paramMessageID(c)
	if !ok {
		return
	}
	var req struct {
		Reaction string `json:"reaction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reaction, err := h.delivery.React(c.Request.Context(), messageID, c.GetInt("userID"), req.Reaction)
	if err != nil {
		respondError(c, err, "could not store reaction")
		return
	}
	c.JSON(http.StatusOK, reaction)
}

// Details handles GET /chat/details/:conversationId.
func (h *ChatHandler) Details(c *gin.Context) {
	conversationID, ok := paramID(c, "conversationId", "conversation id")
	if !ok {
		return
	}
	details, err := h.conversations.Details(c.Request.Context(), conversationID, c.GetInt("userID"))
	if err != nil {
		respondError(c, err, "failed to load conversation")
		return
	}
	c.JSON(http.StatusOK, details)
}
