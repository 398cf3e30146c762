package client

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coreybb/eventhub/models"
)

var (
	ErrEventNotLoaded = errors.New("event not in store")
	ErrAlreadyJoined  = errors.New("event already joined")
	ErrJoinInProgress = errors.New("join already in progress")
)

// EventView is an event as the store holds it, flagged for the current user.
type EventView struct {
	models.Event
	Joined  bool
	Pending bool
}

// Action is one of the state transitions below. The store changes only
// through Dispatch.
type Action interface {
	action()
}

// Loaded replaces the whole list, e.g. after a fetch.
type Loaded struct {
	Events    []models.Event
	JoinedIDs []string
}

// JoinRequested optimistically adds UserID to the event before the server
// has answered.
type JoinRequested struct {
	EventID string
	UserID  string
}

// JoinConfirmed replaces the event with the server's copy.
type JoinConfirmed struct {
	Event models.Event
}

// JoinFailed undoes a pending JoinRequested.
type JoinFailed struct {
	EventID string
	UserID  string
}

// EventSaved inserts or replaces one event after a create or an update.
type EventSaved struct {
	Event models.Event
}

type EventRemoved struct {
	EventID string
}

func (Loaded) action()        {}
func (JoinRequested) action() {}
func (JoinConfirmed) action() {}
func (JoinFailed) action()    {}
func (EventSaved) action()    {}
func (EventRemoved) action()  {}

// EventStore is the client's owned copy of the event list. It is safe for
// concurrent use and never hands out its internal slices.
type EventStore struct {
	mu      sync.RWMutex
	events  []models.Event // Sorted by date, newest first
	joined  map[string]struct{}
	pending map[string]bool // Event id -> whether the optimistic step added the user
}

func NewEventStore() *EventStore {
	return &EventStore{
		joined:  make(map[string]struct{}),
		pending: make(map[string]bool),
	}
}

// Dispatch applies a to the store. Only JoinRequested can be refused.
func (s *EventStore) Dispatch(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch a := a.(type) {
	case Loaded:
		s.load(a)
	case JoinRequested:
		return s.requestJoin(a)
	case JoinConfirmed:
		s.upsert(a.Event)
		s.joined[a.Event.ID] = struct{}{}
		delete(s.pending, a.Event.ID)
	case JoinFailed:
		s.revertJoin(a)
	case EventSaved:
		s.upsert(a.Event)
	case EventRemoved:
		s.events = slices.DeleteFunc(s.events, func(e models.Event) bool { return e.ID == a.EventID })
		delete(s.joined, a.EventID)
		delete(s.pending, a.EventID)
	default:
		return fmt.Errorf("unknown action %T", a)
	}
	return nil
}

func (s *EventStore) load(a Loaded) {
	s.events = make([]models.Event, 0, len(a.Events))
	for _, e := range a.Events {
		s.events = append(s.events, e.Clone())
	}
	s.sort()

	s.joined = make(map[string]struct{}, len(a.JoinedIDs))
	for _, id := range a.JoinedIDs {
		s.joined[id] = struct{}{}
	}
	s.pending = make(map[string]bool)
}

func (s *EventStore) requestJoin(a JoinRequested) error {
	i := s.index(a.EventID)
	if i < 0 {
		return ErrEventNotLoaded
	}
	if _, ok := s.pending[a.EventID]; ok {
		return ErrJoinInProgress
	}
	if _, ok := s.joined[a.EventID]; ok {
		return ErrAlreadyJoined
	}

	e := &s.events[i]
	added := !e.HasAttendee(a.UserID)
	if added {
		e.Attendees = append(e.Attendees, a.UserID)
		e.AttendeeCount++
	}
	s.joined[a.EventID] = struct{}{}
	s.pending[a.EventID] = added
	return nil
}

func (s *EventStore) revertJoin(a JoinFailed) {
	added, ok := s.pending[a.EventID]
	if !ok {
		return
	}
	delete(s.pending, a.EventID)
	delete(s.joined, a.EventID)

	i := s.index(a.EventID)
	if i < 0 || !added {
		return
	}
	e := &s.events[i]
	if e.HasAttendee(a.UserID) {
		e.Attendees = slices.DeleteFunc(e.Attendees, func(id string) bool { return id == a.UserID })
		e.AttendeeCount = max(e.AttendeeCount-1, 0)
	}
}

func (s *EventStore) upsert(e models.Event) {
	e = e.Clone()
	if i := s.index(e.ID); i >= 0 {
		s.events[i] = e
	} else {
		s.events = append(s.events, e)
	}
	s.sort()
}

func (s *EventStore) sort() {
	slices.SortStableFunc(s.events, func(a, b models.Event) int {
		return b.Date.Compare(a.Date)
	})
}

func (s *EventStore) index(id string) int {
	return slices.IndexFunc(s.events, func(e models.Event) bool { return e.ID == id })
}

func (s *EventStore) view(e models.Event) EventView {
	_, joined := s.joined[e.ID]
	_, pending := s.pending[e.ID]
	return EventView{Event: e.Clone(), Joined: joined, Pending: pending}
}

// Events returns a copy of every event, newest first.
func (s *EventStore) Events() []EventView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EventView, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, s.view(e))
	}
	return out
}

func (s *EventStore) Event(id string) (EventView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return EventView{}, false
	}
	return s.view(s.events[i]), true
}

func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Query filters and paginates a snapshot of the store.
func (s *EventStore) Query(f Filter, now time.Time) Page {
	return ApplyFilter(s.Events(), f, now)
}
