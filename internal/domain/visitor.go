package domain

import "time"

// Visitor is an anonymous per-device identity of a widget user.
type Visitor struct {
	VisitorID  string    `json:"visitor_id"`
	Language   string    `json:"language,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
