package models

import "time"

// Message represents a persisted chat message.
type Message struct {
	ID             int64      `db:"id" json:"id"`
	ConversationID int        `db:"conversation_id" json:"conversation_id"`
	SenderID       int        `db:"sender_id" json:"sender_id"`
	Body           string     `db:"body" json:"body"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	SenderUsername string     `db:"-" json:"sender_username,omitempty"`
	Reactions      []Reaction `db:"-" json:"reactions,omitempty"`
}

// Reaction is a user's single reaction to a message.
type Reaction struct {
	MessageID      int64     `db:"message_id" json:"message_id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	UserID         int       `db:"user_id" json:"user_id"`
	Reaction       string    `db:"reaction" json:"reaction"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ReadReceipt records which messages a reader's bulk mark-read flipped.
type ReadReceipt struct {
	ConversationID int       `json:"conversation_id"`
	ReaderID       int       `json:"reader_id"`
	MessageIDs     []int64   `json:"message_ids"`
	ReadAt         time.Time `json:"read_at"`
}

// History is a conversation's ordered messages plus the ids the fetch marked read.
type History struct {
	Messages   []Message `json:"messages"`
	MarkedRead []int64   `json:"marked_read"`
}

// MessageDeleted is broadcast after a sender removes a message.
type MessageDeleted struct {
	ConversationID int   `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
}
