package models

import "time"

// ConversationKind distinguishes direct, group and public conversations.
type ConversationKind string

const (
	KindDM     ConversationKind = "dm"
	KindGroup  ConversationKind = "group"
	KindPublic ConversationKind = "public"
)

// Conversation is a named or pairwise channel containing members and messages.
type Conversation struct {
	ID        int              `db:"id" json:"id"`
	Kind      ConversationKind `db:"kind" json:"kind"`
	Name      *string          `db:"name" json:"name"`
	DMKey     *string          `db:"dm_key" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// SummaryRow is the raw store projection behind a conversation list entry.
type SummaryRow struct {
	ID            int              `db:"id"`
	Kind          ConversationKind `db:"kind"`
	Name          *string          `db:"name"`
	CreatedAt     time.Time        `db:"created_at"`
	LastMessageID *int64           `db:"last_message_id"`
	LastBody      *string          `db:"last_body"`
	LastSenderID  *int             `db:"last_sender_id"`
	LastCreatedAt *time.Time       `db:"last_created_at"`
	LastIsRead    *bool            `db:"last_is_read"`
	PartnerID     *int             `db:"partner_id"`
}

// MessagePreview is the last message of a conversation as shown in lists.
type MessagePreview struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	SenderID  int       `json:"sender_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary provides an API-friendly view of a conversation for a user.
type ConversationSummary struct {
	ID                int              `json:"id"`
	Kind              ConversationKind `json:"kind"`
	Label             string           `json:"label"`
	IsGroup           bool             `json:"is_group"`
	PartnerID         *int             `json:"partner_id,omitempty"`
	PartnerAvatarURL  *string          `json:"partner_avatar_url,omitempty"`
	PartnerLastActive *time.Time       `json:"partner_last_active,omitempty"`
	LastMessage       *MessagePreview  `json:"last_message"`
	LastActivityAt    time.Time        `json:"last_activity_at"`
}

// ConversationDetails describes a conversation and the caller's peers in it.
type ConversationDetails struct {
	ID      int              `json:"id"`
	Kind    ConversationKind `json:"kind"`
	Name    *string          `json:"name"`
	Label   string           `json:"label"`
	IsGroup bool             `json:"is_group"`
	Partner *User            `json:"partner,omitempty"`
	Members []User           `json:"members"`
}
