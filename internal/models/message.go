package models

import "time"

// Message is an immutable chat message in an event's room. CreatedAt is assigned
// by the database at insert time so ordering per event is a consistent total
// order regardless of client clocks.
type Message struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
