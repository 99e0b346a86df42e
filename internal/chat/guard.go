package chat

import (
	"context"
	"fmt"

	"chatroom-service/internal/apperr"
	"chatroom-service/internal/repositories"
)

// Guard answers whether a user may see or write into a conversation.
type Guard struct {
	conversations repositories.ConversationRepository
}

// NewGuard constructs a Guard.
func NewGuard(conversations repositories.ConversationRepository) *Guard {
	return &Guard{conversations: conversations}
}

// IsMember reports membership. A conversation that does not exist has no members.
func (g *Guard) IsMember(ctx context.Context, conversationID, userID int) (bool, error) {
	return retryRead(ctx, func() (bool, error) {
		return g.conversations.IsMember(ctx, conversationID, userID)
	})
}

// Require fails closed with ErrForbidden unless userID is a member.
func (g *Guard) Require(ctx context.Context, conversationID, userID int) error {
	if conversationID <= 0 || userID <= 0 {
		return fmt.Errorf("%w: conversation %d", apperr.ErrForbidden, conversationID)
	}
	member, err := g.IsMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: conversation %d", apperr.ErrForbidden, conversationID)
	}
	return nil
}
