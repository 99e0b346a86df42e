// Package chat implements conversation resolution, message operations and
// the delivery coordination between the store and live sessions.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"chatroom-service/internal/apperr"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

const unknownLabel = "Unknown"

// Service runs message and membership operations against the store. Every
// operation on an existing conversation passes the Guard first.
type Service struct {
	guard         *Guard
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         UserDirectory
	presence      Toucher
	log           *slog.Logger
	now           func() time.Time
}

// Toucher refreshes a user's last-seen marker.
type Toucher interface {
	Touch(ctx context.Context, userID int)
}

// NewService constructs a Service. presence may be nil.
func NewService(guard *Guard, conversations repositories.ConversationRepository, messages repositories.MessageRepository, users UserDirectory, presence Toucher, log *slog.Logger) *Service {
	return &Service{
		guard:         guard,
		conversations: conversations,
		messages:      messages,
		users:         users,
		presence:      presence,
		log:           log,
		now:           time.Now,
	}
}

// Send persists a message from a member and returns the stored record.
func (s *Service) Send(ctx context.Context, conversationID, senderID int, body string) (models.Message, error) {
	body, err := cleanBody(body)
	if err != nil {
		return models.Message{}, err
	}
	if err := s.guard.Require(ctx, conversationID, senderID); err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.CreateMessage(ctx, conversationID, senderID, body)
	if err != nil {
		return models.Message{}, err
	}
	if users, err := s.users.Lookup(ctx, []int{senderID}); err != nil {
		s.log.Warn("sender lookup failed", "user_id", senderID, "error", err)
	} else {
		msg.SenderUsername = users[senderID].Username
	}
	if s.presence != nil {
		s.presence.Touch(ctx, senderID)
	}
	return msg, nil
}

// FetchHistory returns every message of the conversation in (created_at, id)
// order, then marks all messages from other senders as read in one update.
// The returned messages reflect the state before that update.
func (s *Service) FetchHistory(ctx context.Context, conversationID, callerID int) (models.History, error) {
	if err := s.guard.Require(ctx, conversationID, callerID); err != nil {
		return models.History{}, err
	}

	msgs, err := retryRead(ctx, func() ([]models.Message, error) {
		return s.messages.ListMessages(ctx, conversationID)
	})
	if err != nil {
		return models.History{}, err
	}
	reactions, err := retryRead(ctx, func() ([]models.Reaction, error) {
		return s.messages.ListReactions(ctx, conversationID)
	})
	if err != nil {
		return models.History{}, err
	}

	senderIDs := lo.Uniq(lo.Map(msgs, func(m models.Message, _ int) int { return m.SenderID }))
	senders, err := s.users.Lookup(ctx, senderIDs)
	if err != nil {
		return models.History{}, err
	}
	byMessage := lo.GroupBy(reactions, func(r models.Reaction) int64 { return r.MessageID })
	for i := range msgs {
		msgs[i].SenderUsername = senders[msgs[i].SenderID].Username
		msgs[i].Reactions = byMessage[msgs[i].ID]
	}

	marked, err := s.messages.MarkRead(ctx, conversationID, callerID)
	if err != nil {
		return models.History{}, err
	}
	return models.History{Messages: msgs, MarkedRead: marked}, nil
}

// MarkRead flips the read flag on other members' messages and returns the receipt.
func (s *Service) MarkRead(ctx context.Context, conversationID, readerID int) (models.ReadReceipt, error) {
	if err := s.guard.Require(ctx, conversationID, readerID); err != nil {
		return models.ReadReceipt{}, err
	}
	ids, err := s.messages.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		return models.ReadReceipt{}, err
	}
	return models.ReadReceipt{
		ConversationID: conversationID,
		ReaderID:       readerID,
		MessageIDs:     ids,
		ReadAt:         s.now().UTC(),
	}, nil
}

// ListConversations summarizes the caller's conversations, most recently active first.
func (s *Service) ListConversations(ctx context.Context, callerID int) ([]models.ConversationSummary, error) {
	rows, err := retryRead(ctx, func() ([]models.SummaryRow, error) {
		return s.conversations.ListSummaries(ctx, callerID)
	})
	if err != nil {
		return nil, err
	}

	partnerIDs := lo.FilterMap(rows, func(row models.SummaryRow, _ int) (int, bool) {
		if row.Kind != models.KindDM || row.PartnerID == nil {
			return 0, false
		}
		return *row.PartnerID, true
	})
	partners, err := s.users.Lookup(ctx, partnerIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summary := models.ConversationSummary{
			ID:             row.ID,
			Kind:           row.Kind,
			IsGroup:        row.Kind == models.KindGroup,
			LastActivityAt: row.CreatedAt,
		}

		var partner *models.User
		if row.Kind == models.KindDM && row.PartnerID != nil {
			summary.PartnerID = row.PartnerID
			if u, ok := partners[*row.PartnerID]; ok {
				partner = &u
				summary.PartnerAvatarURL = u.AvatarURL
				summary.PartnerLastActive = u.LastActive
			}
		}
		summary.Label = label(row.Kind, row.Name, partner)

		if row.LastMessageID != nil {
			summary.LastMessage = &models.MessagePreview{
				ID:        *row.LastMessageID,
				Body:      lo.FromPtr(row.LastBody),
				SenderID:  lo.FromPtr(row.LastSenderID),
				IsRead:    lo.FromPtr(row.LastIsRead),
				CreatedAt: lo.FromPtr(row.LastCreatedAt),
			}
			summary.LastActivityAt = summary.LastMessage.CreatedAt
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Details returns the conversation label and the caller's peers in it.
func (s *Service) Details(ctx context.Context, conversationID, callerID int) (models.ConversationDetails, error) {
	if err := s.guard.Require(ctx, conversationID, callerID); err != nil {
		return models.ConversationDetails{}, err
	}
	conv, err := retryRead(ctx, func() (models.Conversation, error) {
		return s.conversations.GetConversation(ctx, conversationID)
	})
	if err != nil {
		return models.ConversationDetails{}, err
	}
	memberIDs, err := retryRead(ctx, func() ([]int, error) {
		return s.conversations.ListMemberIDs(ctx, conversationID)
	})
	if err != nil {
		return models.ConversationDetails{}, err
	}

	others := lo.Without(memberIDs, callerID)
	users, err := s.users.Lookup(ctx, others)
	if err != nil {
		return models.ConversationDetails{}, err
	}

	details := models.ConversationDetails{
		ID:      conv.ID,
		Kind:    conv.Kind,
		Name:    conv.Name,
		IsGroup: conv.Kind == models.KindGroup,
		Members: make([]models.User, 0, len(others)),
	}
	for _, id := range others {
		u, ok := users[id]
		if !ok {
			u = models.User{ID: id, Username: unknownLabel}
		}
		details.Members = append(details.Members, u)
	}
	if conv.Kind == models.KindDM && len(details.Members) > 0 {
		partner := details.Members[0]
		details.Partner = &partner
	}
	details.Label = label(conv.Kind, conv.Name, details.Partner)
	return details, nil
}

// UpdateName renames a conversation. Any member may rename.
func (s *Service) UpdateName(ctx context.Context, conversationID, callerID int, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, conversationID, callerID); err != nil {
		return err
	}
	return s.conversations.Rename(ctx, conversationID, name)
}

// DeleteMessage removes a message sent by the caller. Messages that are
// missing or owned by someone else report NotFound and stay untouched.
func (s *Service) DeleteMessage(ctx context.Context, messageID int64, callerID int) (models.Message, error) {
	if messageID <= 0 {
		return models.Message{}, fmt.Errorf("%w: message %d", apperr.ErrNotFound, messageID)
	}
	return s.messages.DeleteMessage(ctx, messageID, callerID)
}

// Leave removes the caller's membership. The bool reports whether the
// conversation was deleted because no members remained.
func (s *Service) Leave(ctx context.Context, conversationID, callerID int) (bool, error) {
	if err := s.guard.Require(ctx, conversationID, callerID); err != nil {
		return false, err
	}
	deleted, err := s.conversations.RemoveMember(ctx, conversationID, callerID)
	if err != nil {
		return false, err
	}
	s.log.Info("conversation left", "conversation_id", conversationID, "user_id", callerID, "deleted", deleted)
	return deleted, nil
}

// React stores the caller's reaction on a message, replacing any earlier one.
func (s *Service) React(ctx context.Context, messageID int64, callerID int, value string) (models.Reaction, error) {
	value, err := cleanReaction(value)
	if err != nil {
		return models.Reaction{}, err
	}
	msg, err := retryRead(ctx, func() (models.Message, error) {
		return s.messages.GetMessage(ctx, messageID)
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Reaction{}, fmt.Errorf("%w: message %d", apperr.ErrForbidden, messageID)
	}
	if err != nil {
		return models.Reaction{}, err
	}
	if err := s.guard.Require(ctx, msg.ConversationID, callerID); err != nil {
		return models.Reaction{}, err
	}
	return s.messages.UpsertReaction(ctx, messageID, callerID, value)
}

func label(kind models.ConversationKind, name *string, partner *models.User) string {
	switch kind {
	case models.KindPublic:
		if name != nil && *name != "" {
			return *name
		}
		return DefaultPublicName
	case models.KindGroup:
		return lo.FromPtr(name)
	default:
		if partner == nil || partner.Username == "" {
			return unknownLabel
		}
		return partner.Username
	}
}
