package models

import "time"

// User represents a platform user.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Birthday  time.Time `json:"birthday"`
	School    string    `json:"school,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	School string `json:"school,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:     u.ID,
		Email:  u.Email,
		School: u.School,
		Bio:    u.Bio,
	}
}
