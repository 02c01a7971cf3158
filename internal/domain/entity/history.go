package entity

import "time"

// HistoryEntry is one record in an instance's append-only decision trail.
// Entries are never edited; the full trail is reconstructable by replaying
// them in order.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	InstanceID string    `json:"instance_id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Level      int       `json:"level,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NotificationRecord is one entry in an instance's append-only notification log.
// Dispatch failures are recorded here but never fail the owning operation.
type NotificationRecord struct {
	ID          int64     `json:"id"`
	InstanceID  string    `json:"instance_id"`
	RecipientID string    `json:"recipient_id"`
	Kind        string    `json:"kind"`
	Channel     string    `json:"channel"`
	Error       string    `json:"error,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}
