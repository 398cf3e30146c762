// Package datastore defines the persistence contract shared by the MongoDB,
// PostgreSQL and in-memory stores.
package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/coreybb/eventhub/models"
)

var (
	ErrUserExists     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrEventNotFound  = errors.New("event not found")
	ErrAlreadyJoined  = errors.New("user already joined event")
	ErrInvalidID      = errors.New("invalid id format")
	ErrUnknownDriver  = errors.New("unknown store driver")
	ErrStoreNotOpened = errors.New("store not opened")
)

type UserStore interface {
	// CreateUser inserts the user and assigns its ID. Emails are unique.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type EventStore interface {
	// CreateEvent inserts the event and assigns its ID. The roster starts empty.
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	// GetEvents returns every event, newest date first.
	GetEvents(ctx context.Context) ([]models.Event, error)
	// GetEventsByOwner returns the events created by ownerID, newest date first.
	GetEventsByOwner(ctx context.Context, ownerID string) ([]models.Event, error)
	// GetUpcomingEvents returns at most limit events dated strictly after now,
	// soonest first.
	GetUpcomingEvents(ctx context.Context, now time.Time, limit int) ([]models.Event, error)
	// UpdateEvent overwrites the editable fields. Roster and count are untouched.
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, eventID string) error
	// JoinEvent adds userID to the event roster and eventID to the user's joined
	// set as one unit. Returns ErrAlreadyJoined if userID is already on the roster.
	JoinEvent(ctx context.Context, eventID, userID string) (*models.Event, error)
}

type Store interface {
	UserStore
	EventStore
	Close(ctx context.Context) error
}
