package models

import "time"

// Attendance links a user to an event, unique per (user, event) pair. It is the
// authorization predicate for the event's chat room.
type Attendance struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}
