package models

import (
	"slices"
	"time"
)

// UpcomingEventsLimit caps the landing-page highlight list.
const UpcomingEventsLimit = 6

// Event is a hosted gathering. AttendeeCount always equals len(Attendees);
// both are owned by the store and only change through a join.
type Event struct {
	ID            string    `json:"_id"`
	Title         string    `json:"title"`
	Name          string    `json:"name"` // Organizer display name
	Date          time.Time `json:"date"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	AttendeeCount int       `json:"attendeeCount"`
	ImageURL      string    `json:"imageURL,omitempty"`
	CreatedBy     string    `json:"createdBy"`
	Attendees     []string  `json:"attendees"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (e *Event) HasAttendee(userID string) bool {
	return slices.Contains(e.Attendees, userID)
}

func (e *Event) IsOwnedBy(userID string) bool {
	return userID != "" && e.CreatedBy == userID
}

// Clone returns a deep copy so callers can mutate the roster safely.
func (e Event) Clone() Event {
	e.Attendees = slices.Clone(e.Attendees)
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return e
}
