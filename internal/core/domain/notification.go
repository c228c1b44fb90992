package domain

import "time"

// Notification is one entry in the user's notification feed. Live pushes
// arrive before the server assigns an ID; ID is 0 until the entry shows up in
// a history load. Stored notifications always carry an ID and a read flag.
type Notification struct {
	ID         int64          `json:"id,omitempty"`
	Kind       string         `json:"kind"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Payload    map[string]any `json:"payload,omitempty"`
	IsRead     bool           `json:"isRead"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Persisted reports whether the server has assigned this entry an ID.
func (n Notification) Persisted() bool {
	return n.ID != 0
}

// Fingerprint keys an un-persisted live push so a later history load of the
// same event does not create a second copy. Only used when ID is absent.
func (n Notification) Fingerprint() string {
	return n.Kind + "\x00" + n.Title + "\x00" + n.Body
}
