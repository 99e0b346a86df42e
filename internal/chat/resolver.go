package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"chatroom-service/internal/apperr"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

// DefaultPublicName names the public room when it is first created.
const DefaultPublicName = "World Chat"

// UserDirectory resolves user profiles by id. Unknown ids are absent from the result.
type UserDirectory interface {
	Lookup(ctx context.Context, ids []int) (map[int]models.User, error)
}

// Resolver finds or creates conversations so that repeated "start a chat"
// calls converge on one conversation.
type Resolver struct {
	conversations repositories.ConversationRepository
	guard         *Guard
	users         UserDirectory
	publicName    string
	log           *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(conversations repositories.ConversationRepository, guard *Guard, users UserDirectory, publicName string, log *slog.Logger) *Resolver {
	if publicName == "" {
		publicName = DefaultPublicName
	}
	return &Resolver{conversations: conversations, guard: guard, users: users, publicName: publicName, log: log}
}

// ResolveDM returns the direct conversation between caller and target.
func (r *Resolver) ResolveDM(ctx context.Context, callerID, targetID int) (models.Conversation, error) {
	if targetID <= 0 {
		return models.Conversation{}, fmt.Errorf("%w: target user id required", apperr.ErrInvalidInput)
	}
	if callerID == targetID {
		return models.Conversation{}, fmt.Errorf("%w: cannot chat with yourself", apperr.ErrInvalidInput)
	}
	if err := r.requireUsers(ctx, []int{targetID}, apperr.ErrNotFound); err != nil {
		return models.Conversation{}, err
	}

	conv, created, err := r.conversations.FindOrCreateDM(ctx, callerID, targetID)
	if err != nil {
		return models.Conversation{}, err
	}
	r.log.Info("dm resolved", "conversation_id", conv.ID, "user_id", callerID, "target_id", targetID, "created", created)
	return conv, nil
}

// ResolveGroup always creates a new group. The creator is added implicitly
// and duplicate member ids collapse.
func (r *Resolver) ResolveGroup(ctx context.Context, creatorID int, name string, memberIDs []int) (models.Conversation, error) {
	name, err := cleanName(name)
	if err != nil {
		return models.Conversation{}, err
	}
	if err := check(membersInput{MemberIDs: memberIDs}); err != nil {
		return models.Conversation{}, err
	}

	members := lo.Uniq(append([]int{creatorID}, memberIDs...))
	sort.Ints(members)
	invited := lo.Without(members, creatorID)
	if err := r.requireUsers(ctx, invited, apperr.ErrInvalidInput); err != nil {
		return models.Conversation{}, err
	}

	conv, err := r.conversations.CreateGroup(ctx, name, members)
	if err != nil {
		return models.Conversation{}, err
	}
	r.log.Info("group created", "conversation_id", conv.ID, "user_id", creatorID, "members", len(members))
	return conv, nil
}

// ResolvePublic returns the singleton public conversation and joins the caller to it.
func (r *Resolver) ResolvePublic(ctx context.Context, callerID int) (models.Conversation, error) {
	conv, created, err := r.conversations.FindOrCreatePublic(ctx, r.publicName, callerID)
	if err != nil {
		return models.Conversation{}, err
	}
	if created {
		r.log.Info("public conversation created", "conversation_id", conv.ID, "user_id", callerID)
	}
	return conv, nil
}

// Join adds the caller to a public or group conversation. A direct
// conversation can only be rejoined by one of its pair. Joining twice is a no-op.
func (r *Resolver) Join(ctx context.Context, conversationID, callerID int) error {
	conv, err := retryRead(ctx, func() (models.Conversation, error) {
		return r.conversations.GetConversation(ctx, conversationID)
	})
	if err != nil {
		return err
	}
	if conv.Kind == models.KindDM && !inPair(conv, callerID) {
		return fmt.Errorf("%w: conversation %d", apperr.ErrForbidden, conversationID)
	}
	return r.conversations.AddMembers(ctx, conversationID, []int{callerID})
}

// Invite adds users to a group the caller belongs to.
func (r *Resolver) Invite(ctx context.Context, conversationID, callerID int, memberIDs []int) error {
	if err := r.guard.Require(ctx, conversationID, callerID); err != nil {
		return err
	}
	if err := check(membersInput{MemberIDs: memberIDs}); err != nil {
		return err
	}
	conv, err := retryRead(ctx, func() (models.Conversation, error) {
		return r.conversations.GetConversation(ctx, conversationID)
	})
	if err != nil {
		return err
	}
	if conv.Kind != models.KindGroup {
		return fmt.Errorf("%w: only groups accept invites", apperr.ErrInvalidInput)
	}

	ids := lo.Uniq(memberIDs)
	sort.Ints(ids)
	if err := r.requireUsers(ctx, ids, apperr.ErrInvalidInput); err != nil {
		return err
	}
	return r.conversations.AddMembers(ctx, conversationID, ids)
}

// requireUsers fails with kind when any id is unknown to the directory.
func (r *Resolver) requireUsers(ctx context.Context, ids []int, kind error) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := r.users.Lookup(ctx, ids)
	if err != nil {
		return err
	}
	missing := lo.Filter(ids, func(id int, _ int) bool {
		_, ok := users[id]
		return !ok
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: unknown users %v", kind, missing)
	}
	return nil
}

func inPair(conv models.Conversation, userID int) bool {
	if conv.DMKey == nil {
		return false
	}
	var a, b int
	if _, err := fmt.Sscanf(*conv.DMKey, "%d:%d", &a, &b); err != nil {
		return false
	}
	return userID == a || userID == b
}
