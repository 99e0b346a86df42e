package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateGroup handles POST /chat/group/create.
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.resolver.ResolveGroup(c.Request.Context(), c.GetInt("userID"), req.Name, req.MemberIDs)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "group creation failed")
		respondError(c, err, "could not create group")
		return
	}

	emitAudit(c, h.audit, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"id": conv.ID, "name": conv.Name})
}

// Invite handles POST /chat/group/:conversationId/invite.
func (h *ChatHandler) Invite(c *gin.Context) {
	conversationID, ok := paramID(c, "conversationId", "conversation id")
	if !ok {
		return
	}
	var req struct {
		MemberIDs []int `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.resolver.Invite(c.Request.Context(), conversationID, c.GetInt("userID"), req.MemberIDs); err != nil {
		respondError(c, err, "could not invite members")
		return
	}
	emitAudit(c, h.audit, "INFO", "Group members invited")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
