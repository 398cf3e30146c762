package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// The roster is aggregated from event_attendees, so attendeeCount can never
// drift from the attendee list.
const selectEventQuery = `
	SELECT e.id, e.title, e.organizer_name, e.date, e.location, e.description, e.image_url,
	       e.created_by, e.created_at, e.updated_at,
	       ARRAY(SELECT a.user_id::text FROM event_attendees a WHERE a.event_id = e.id ORDER BY a.joined_at, a.user_id)
	FROM events e
`

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if _, err := uuid.Parse(event.CreatedBy); err != nil {
		return fmt.Errorf("invalid owner ID format: %w", datastore.ErrInvalidID)
	}

	query := `
		INSERT INTO events (
			id, title, organizer_name, date, location, description, image_url,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Name, event.Date, event.Location, event.Description, event.ImageURL,
		event.CreatedBy, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if hasPQCode(err, pgForeignKeyViolation) {
			return fmt.Errorf("failed to insert event: owner %s: %w", event.CreatedBy, datastore.ErrUserNotFound)
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}

	event.Attendees = []string{}
	event.AttendeeCount = 0
	return nil
}

func (r *EventRepository) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("invalid event ID format: %w", datastore.ErrInvalidID)
	}

	var event models.Event
	row := r.db.QueryRowContext(ctx, selectEventQuery+" WHERE e.id = $1", eventID)
	if err := scanEvent(row, &event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
		}
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) GetEvents(ctx context.Context) ([]models.Event, error) {
	return r.queryEvents(ctx, selectEventQuery+" ORDER BY e.date DESC")
}

func (r *EventRepository) GetEventsByOwner(ctx context.Context, ownerID string) ([]models.Event, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, fmt.Errorf("invalid owner ID format: %w", datastore.ErrInvalidID)
	}
	return r.queryEvents(ctx, selectEventQuery+" WHERE e.created_by = $1 ORDER BY e.date DESC", ownerID)
}

func (r *EventRepository) GetUpcomingEvents(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	return r.queryEvents(ctx, selectEventQuery+" WHERE e.date > $1 ORDER BY e.date ASC LIMIT $2", now, limit)
}

func (r *EventRepository) UpdateEvent(ctx context.Context, event *models.Event) error {
	if _, err := uuid.Parse(event.ID); err != nil {
		return fmt.Errorf("invalid event ID format: %w", datastore.ErrInvalidID)
	}

	query := `
		UPDATE events
		SET title = $2, organizer_name = $3, date = $4, location = $5,
		    description = $6, image_url = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Name, event.Date, event.Location,
		event.Description, event.ImageURL, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}
	return expectOneRow(result, event.ID)
}

func (r *EventRepository) DeleteEvent(ctx context.Context, eventID string) error {
	if _, err := uuid.Parse(eventID); err != nil {
		return fmt.Errorf("invalid event ID format: %w", datastore.ErrInvalidID)
	}

	// event_attendees rows go with the event, which also drops it from every
	// user's joined events.
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	return expectOneRow(result, eventID)
}

func (r *EventRepository) JoinEvent(ctx context.Context, eventID, userID string) (*models.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("invalid event ID format: %w", datastore.ErrInvalidID)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", datastore.ErrInvalidID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin join transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
		}
		return nil, fmt.Errorf("failed to lock event %s: %w", eventID, err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO event_attendees (event_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, eventID, userID, time.Now().UTC())
	if err != nil {
		if hasPQCode(err, pgForeignKeyViolation) {
			return nil, fmt.Errorf("user %s: %w", userID, datastore.ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to add attendee to event %s: %w", eventID, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected for join (event %s, user %s): %w", eventID, userID, err)
	}
	if inserted == 0 {
		return nil, fmt.Errorf("user %s, event %s: %w", userID, eventID, datastore.ErrAlreadyJoined)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join transaction: %w", err)
	}

	return r.GetEventByID(ctx, eventID)
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := scanEvent(rows, &event); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, event *models.Event) error {
	err := row.Scan(
		&event.ID, &event.Title, &event.Name, &event.Date, &event.Location, &event.Description,
		&event.ImageURL, &event.CreatedBy, &event.CreatedAt, &event.UpdatedAt, pq.Array(&event.Attendees),
	)
	if err != nil {
		return err
	}
	if event.Attendees == nil {
		event.Attendees = []string{}
	}
	event.AttendeeCount = len(event.Attendees)
	return nil
}

func expectOneRow(result sql.Result, eventID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for event %s: %w", eventID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
	}
	return nil
}
