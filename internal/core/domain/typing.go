package domain

// TypingSignal is an ephemeral presence hint. It is never persisted; a signal
// older than a reconnect gap has no remaining meaning.
type TypingSignal struct {
	ChatID   int64 `json:"chatId"`
	UserID   int64 `json:"userId"`
	IsTyping bool  `json:"isTyping"`
}
