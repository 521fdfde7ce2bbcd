package models

import "time"

// Event represents a scheduled gathering hosted by a user. An event owns its
// chat room: deleting an event cascades to its messages and attendances.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventTime   time.Time `json:"event_time"`
	Location    string    `json:"location"`
	InviteOnly  bool      `json:"invite_only"`
	HostID      int64     `json:"host_id"`
	CreatedAt   time.Time `json:"created_at"`
}
