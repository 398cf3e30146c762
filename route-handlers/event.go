package routehandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/models"
	"github.com/coreybb/eventhub/webutil"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	joinOutcomeJoined   = "joined"
	joinOutcomeRepeated = "already_joined"
	joinOutcomeFailed   = "failed"
)

// eventRequest is the create and update payload. attendeeCount is accepted
// for compatibility with older clients but the server owns the counter.
type eventRequest struct {
	Title         string `json:"title" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Date          string `json:"date" validate:"required,eventdate"`
	Location      string `json:"location" validate:"required"`
	Description   string `json:"description" validate:"required"`
	AttendeeCount *int   `json:"attendeeCount" validate:"omitempty,min=0"`
	ImageURL      string `json:"imageURL" validate:"omitempty,url"`
}

type eventResponse struct {
	Message string        `json:"message"`
	Event   *models.Event `json:"event"`
}

type EventHandler struct {
	Store datastore.EventStore
	Joins *prometheus.CounterVec
	Now   func() time.Time
}

// NewEventHandler wires the handler; joins may be nil.
func NewEventHandler(store datastore.EventStore, joins *prometheus.CounterVec) *EventHandler {
	return &EventHandler{Store: store, Joins: joins, Now: time.Now}
}

func (h *EventHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) error {
	events, err := h.Store.GetEvents(r.Context())
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to fetch events", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, events)
	return nil
}

func (h *EventHandler) HandleGetUpcomingEvents(w http.ResponseWriter, r *http.Request) error {
	events, err := h.Store.GetUpcomingEvents(r.Context(), h.Now().UTC(), models.UpcomingEventsLimit)
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to fetch upcoming events", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, events)
	return nil
}

func (h *EventHandler) HandleGetMyEvents(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	events, err := h.Store.GetEventsByOwner(r.Context(), user.ID)
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to fetch events of user "+user.ID, err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, events)
	return nil
}

func (h *EventHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) error {
	eventID := chi.URLParam(r, "id")

	event, err := h.Store.GetEventByID(r.Context(), eventID)
	if err != nil {
		return eventStoreError(err, eventID)
	}
	webutil.RespondWithJSON(w, http.StatusOK, event)
	return nil
}

func (h *EventHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req eventRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		return err
	}

	now := h.Now().UTC()
	event := &models.Event{
		CreatedBy: user.ID,
		CreatedAt: now,
	}
	if err := applyEventRequest(event, req, now); err != nil {
		return err
	}

	if err := h.Store.CreateEvent(r.Context(), event); err != nil {
		return webutil.ErrInternalServerWrap("failed to create event", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, eventResponse{
		Message: "Event created successfully",
		Event:   event,
	})
	return nil
}

func (h *EventHandler) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) error {
	eventID := chi.URLParam(r, "id")
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req eventRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		return err
	}

	event, err := h.ownedEvent(r, eventID, user.ID, "Not authorized to update this event")
	if err != nil {
		return err
	}

	if err := applyEventRequest(event, req, h.Now().UTC()); err != nil {
		return err
	}
	if err := h.Store.UpdateEvent(r.Context(), event); err != nil {
		return eventStoreError(err, eventID)
	}

	updated, err := h.Store.GetEventByID(r.Context(), eventID)
	if err != nil {
		return eventStoreError(err, eventID)
	}

	webutil.RespondWithJSON(w, http.StatusOK, eventResponse{
		Message: "Event updated successfully",
		Event:   updated,
	})
	return nil
}

func (h *EventHandler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) error {
	eventID := chi.URLParam(r, "id")
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	if _, err := h.ownedEvent(r, eventID, user.ID, "Not authorized to delete this event"); err != nil {
		return err
	}
	if err := h.Store.DeleteEvent(r.Context(), eventID); err != nil {
		return eventStoreError(err, eventID)
	}

	webutil.RespondWithMessage(w, http.StatusOK, "Event deleted successfully")
	return nil
}

func (h *EventHandler) HandleJoinEvent(w http.ResponseWriter, r *http.Request) error {
	eventID := chi.URLParam(r, "id")
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	event, err := h.Store.JoinEvent(r.Context(), eventID, user.ID)
	switch {
	case err == nil:
		h.recordJoin(joinOutcomeJoined)
	case errors.Is(err, datastore.ErrAlreadyJoined):
		h.recordJoin(joinOutcomeRepeated)
		return webutil.ErrConflictWrap("Already joined this event", err)
	case errors.Is(err, datastore.ErrUserNotFound):
		h.recordJoin(joinOutcomeFailed)
		return webutil.ErrUnauthorizedWrap("User not found", err)
	default:
		h.recordJoin(joinOutcomeFailed)
		return eventStoreError(err, eventID)
	}

	slog.InfoContext(r.Context(), "user joined event",
		slog.String("event_id", eventID),
		slog.String("user_id", user.ID),
		slog.Int("attendee_count", event.AttendeeCount),
	)
	webutil.RespondWithJSON(w, http.StatusOK, event)
	return nil
}

// ownedEvent loads eventID and checks that userID created it.
func (h *EventHandler) ownedEvent(r *http.Request, eventID, userID, forbidden string) (*models.Event, error) {
	event, err := h.Store.GetEventByID(r.Context(), eventID)
	if err != nil {
		return nil, eventStoreError(err, eventID)
	}
	if !event.IsOwnedBy(userID) {
		slog.WarnContext(r.Context(), "event ownership check failed",
			slog.String("event_id", eventID),
			slog.String("user_id", userID),
		)
		return nil, webutil.ErrForbidden(forbidden)
	}
	return event, nil
}

func (h *EventHandler) recordJoin(outcome string) {
	if h.Joins != nil {
		h.Joins.WithLabelValues(outcome).Inc()
	}
}

// applyEventRequest copies the sanitized editable fields onto event. The
// roster and counter are left alone.
func applyEventRequest(event *models.Event, req eventRequest, now time.Time) error {
	date, err := parseEventDate(req.Date)
	if err != nil {
		return webutil.ErrValidation("", []webutil.FieldError{
			{Field: "date", Tag: "eventdate", Message: "must be a valid date"},
		}, err)
	}

	event.Title = webutil.SanitizeText(req.Title)
	event.Name = webutil.SanitizeText(req.Name)
	event.Location = webutil.SanitizeText(req.Location)
	event.Description = webutil.SanitizeText(req.Description)
	event.ImageURL = req.ImageURL
	event.Date = date
	event.UpdatedAt = now

	var empty []webutil.FieldError
	for _, f := range []struct{ name, value string }{
		{"title", event.Title},
		{"name", event.Name},
		{"location", event.Location},
		{"description", event.Description},
	} {
		if f.value == "" {
			empty = append(empty, webutil.FieldError{Field: f.name, Tag: "required", Message: f.name + " is required"})
		}
	}
	if len(empty) > 0 {
		return webutil.ErrValidation("", empty, nil)
	}
	return nil
}

func eventStoreError(err error, eventID string) error {
	switch {
	case errors.Is(err, datastore.ErrInvalidID):
		return webutil.ErrValidation("Invalid event ID", []webutil.FieldError{
			{Field: "id", Tag: "id", Message: "must be a valid event id"},
		}, err)
	case errors.Is(err, datastore.ErrEventNotFound):
		return webutil.ErrNotFoundWrap("Event not found", err)
	default:
		return webutil.ErrInternalServerWrap("event "+eventID, err)
	}
}
