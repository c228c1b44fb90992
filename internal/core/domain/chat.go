package domain

import (
	"strings"
	"time"

	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
)

// SenderRole identifies which side of a booking conversation sent a message.
type SenderRole string

const (
	RoleRequester SenderRole = "requester"
	RoleProvider  SenderRole = "provider"
)

// Chat is one conversation in the user's chat list. The preview fields mirror
// whatever the server last reported and are updated in place when a live
// message arrives for the chat.
type Chat struct {
	ID                 int64      `json:"id"`
	ParticipantLabel   string     `json:"participantLabel"`
	SubjectLabel       string     `json:"subjectLabel"`
	LastMessagePreview string     `json:"lastMessagePreview,omitempty"`
	LastMessageAt      *time.Time `json:"lastMessageAt,omitempty"`
}

// Message is one chat message. The in-memory message list for a chat keeps
// insertion order: history first, live pushes appended as they arrive.
type Message struct {
	ID         int64      `json:"id"`
	ChatID     int64      `json:"chatId"`
	SenderID   int64      `json:"senderId"`
	SenderRole SenderRole `json:"senderRole"`
	Body       string     `json:"body"`
	SentAt     time.Time  `json:"sentAt"`
}

// ValidateMessageBody rejects empty or whitespace-only bodies before any
// network call is made.
func ValidateMessageBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return apperrors.ErrEmptyMessage
	}
	return nil
}
