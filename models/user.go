package models

import (
	"slices"
	"strings"
	"time"
)

type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialised
	PhotoURL     string    `json:"photoURL,omitempty"`
	JoinedEvents []string  `json:"joinedEvents"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasJoined reports whether eventID is in the user's joined set.
func (u *User) HasJoined(eventID string) bool {
	return slices.Contains(u.JoinedEvents, eventID)
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
