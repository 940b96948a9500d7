package models

import "time"

// Message is an entry of the conversation with the advisor. A user message starts as
// StatusPending and transitions exactly once, to StatusDelivered or StatusFailed. Assistant
// messages are always created as StatusDelivered.
type Message struct {
	ID        string
	Text      string
	Role      Role
	Timestamp time.Time
	Status    Status

	// Error is filled only when Status is StatusFailed.
	Error string
}

// Role represents the author of a message.
type Role string

// Status represents the delivery state of a message.
type Status string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a reply produced by the advisor.
	RoleAssistant Role = "assistant"

	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// Prompt is the request sent to the advisor for one user message.
type Prompt struct {
	Message string
	// History holds the delivered conversation preceding Message, oldest first.
	History []Message

	Locale        string
	Timestamp     time.Time
	ClientVersion string
	// Viewing is the symbol of the snapshot on screen, if any.
	Viewing string
}
