package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Joined events are derived from event_attendees rather than stored on the user.
const selectUserQuery = `
	SELECT u.id, u.name, u.email, u.password_hash, u.photo_url, u.created_at, u.updated_at,
	       ARRAY(SELECT a.event_id::text FROM event_attendees a WHERE a.user_id = u.id ORDER BY a.joined_at)
	FROM users u
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, err := uuid.Parse(user.ID); err != nil {
		return fmt.Errorf("invalid user ID format: %w", datastore.ErrInvalidID)
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.PhotoURL, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if hasPQCode(err, pgUniqueViolation) {
			return fmt.Errorf("failed to insert user %s: %w", user.Email, datastore.ErrUserExists)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.JoinedEvents = []string{}
	return nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", datastore.ErrInvalidID)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserQuery+" WHERE u.id = $1", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserQuery+" WHERE u.email = $1", email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.PhotoURL,
		&user.CreatedAt, &user.UpdatedAt, pq.Array(&user.JoinedEvents),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, datastore.ErrUserNotFound
		}
		return nil, err
	}
	if user.JoinedEvents == nil {
		user.JoinedEvents = []string{}
	}
	return &user, nil
}
