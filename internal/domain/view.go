package domain

import "time"

// MessageView is the decrypted, annotated form of a message returned to callers.
type MessageView struct {
	Address         string    `json:"address"`
	MessageID       string    `json:"message_id"`
	ConversationID  string    `json:"conversation_id"`
	Sender          string    `json:"sender_id"`
	Recipient       string    `json:"recipient_id"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	ReadBySender    bool      `json:"read_by_sender"`
	ReadByRecipient bool      `json:"read_by_recipient"`
	// Error is set instead of Content when the message could not be decrypted.
	Error string `json:"error,omitempty"`
}

type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

type MessagePreview struct {
	Sender    string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Error     string    `json:"error,omitempty"`
}

// ConversationSummary is one row of the admin inbox.
type ConversationSummary struct {
	ConversationID string          `json:"conversation_id"`
	OtherUser      Participant     `json:"other_user"`
	LastMessage    *MessagePreview `json:"last_message,omitempty"`
	UnreadCount    int             `json:"unread_count"`
	LastUpdated    time.Time       `json:"last_updated"`
}
