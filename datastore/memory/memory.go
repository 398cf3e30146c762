// Package memory is a process-local datastore.Store used for development and
// tests. A single mutex serializes writes, so a join is atomic.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/models"
	"github.com/google/uuid"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	byEmail map[string]string
	events  map[string]*models.Event
}

var _ datastore.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		events:  make(map[string]*models.Event),
	}
}

func (s *Store) Close(_ context.Context) error { return nil }

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return fmt.Errorf("user %s: %w", user.Email, datastore.ErrUserExists)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.JoinedEvents = []string{}

	stored := *user
	stored.JoinedEvents = []string{}
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, datastore.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, datastore.ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) CreateEvent(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[event.CreatedBy]; !ok {
		return fmt.Errorf("owner %s: %w", event.CreatedBy, datastore.ErrUserNotFound)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Attendees = []string{}
	event.AttendeeCount = 0

	stored := event.Clone()
	s.events[event.ID] = &stored
	return nil
}

func (s *Store) GetEventByID(_ context.Context, eventID string) (*models.Event, error) {
	if err := validateID(eventID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
	}
	clone := e.Clone()
	return &clone, nil
}

func (s *Store) GetEvents(_ context.Context) ([]models.Event, error) {
	return s.collect(func(*models.Event) bool { return true }, newestFirst, 0), nil
}

func (s *Store) GetEventsByOwner(_ context.Context, ownerID string) ([]models.Event, error) {
	if err := validateID(ownerID); err != nil {
		return nil, err
	}
	return s.collect(func(e *models.Event) bool { return e.CreatedBy == ownerID }, newestFirst, 0), nil
}

func (s *Store) GetUpcomingEvents(_ context.Context, now time.Time, limit int) ([]models.Event, error) {
	return s.collect(func(e *models.Event) bool { return e.Date.After(now) }, soonestFirst, limit), nil
}

func (s *Store) UpdateEvent(_ context.Context, event *models.Event) error {
	if err := validateID(event.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.events[event.ID]
	if !ok {
		return fmt.Errorf("event %s: %w", event.ID, datastore.ErrEventNotFound)
	}
	stored.Title = event.Title
	stored.Name = event.Name
	stored.Date = event.Date
	stored.Location = event.Location
	stored.Description = event.Description
	stored.ImageURL = event.ImageURL
	stored.UpdatedAt = event.UpdatedAt
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, eventID string) error {
	if err := validateID(eventID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
	}
	for _, userID := range event.Attendees {
		if u, ok := s.users[userID]; ok {
			u.JoinedEvents = slices.DeleteFunc(u.JoinedEvents, func(id string) bool { return id == eventID })
		}
	}
	delete(s.events, eventID)
	return nil
}

func (s *Store) JoinEvent(_ context.Context, eventID, userID string) (*models.Event, error) {
	if err := validateID(eventID); err != nil {
		return nil, err
	}
	if err := validateID(userID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, datastore.ErrUserNotFound)
	}
	if event.HasAttendee(userID) {
		return nil, fmt.Errorf("user %s, event %s: %w", userID, eventID, datastore.ErrAlreadyJoined)
	}

	event.Attendees = append(event.Attendees, userID)
	event.AttendeeCount = len(event.Attendees)
	event.UpdatedAt = time.Now().UTC()
	if !user.HasJoined(eventID) {
		user.JoinedEvents = append(user.JoinedEvents, eventID)
	}

	clone := event.Clone()
	return &clone, nil
}

func (s *Store) collect(keep func(*models.Event) bool, order func(a, b models.Event) int, limit int) []models.Event {
	s.mu.RLock()
	events := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		if keep(e) {
			events = append(events, e.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(events, order)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

func newestFirst(a, b models.Event) int {
	return cmp.Or(b.Date.Compare(a.Date), cmp.Compare(a.ID, b.ID))
}

func soonestFirst(a, b models.Event) int {
	return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	clone.JoinedEvents = slices.Clone(u.JoinedEvents)
	if clone.JoinedEvents == nil {
		clone.JoinedEvents = []string{}
	}
	return &clone
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%q: %w", id, datastore.ErrInvalidID)
	}
	return nil
}
