// Package auth registers and logs in users and resolves session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/logging"
	"github.com/coreybb/eventhub/models"
	"github.com/coreybb/eventhub/webutil"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	reasonUnknownEmail  = "unknown_email"
	reasonWrongPassword = "wrong_password"
)

type Service struct {
	log          *slog.Logger
	users        datastore.UserStore
	tokens       *TokenManager
	failedLogins *prometheus.CounterVec
	now          func() time.Time
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	PhotoURL string
}

// New returns the auth service. failedLogins may be nil.
func New(
	log *slog.Logger,
	users datastore.UserStore,
	tokens *TokenManager,
	failedLogins *prometheus.CounterVec,
) *Service {
	return &Service{
		log:          log,
		users:        users,
		tokens:       tokens,
		failedLogins: failedLogins,
		now:          time.Now,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	const op = "auth.Register"
	log := s.log.With("op", op)
	log.Info("registering new user")

	passwordHash, err := webutil.HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", logging.Err(err))
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	user := &models.User{
		Name:         in.Name,
		Email:        models.NormalizeEmail(in.Email),
		PasswordHash: passwordHash,
		PhotoURL:     in.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, datastore.ErrUserExists) {
			log.Warn("user exists", logging.Err(err))
			return nil, "", fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		log.Error("failed to save user", logging.Err(err))
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.Error("failed to generate token", logging.Err(err))
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	const op = "auth.Login"
	log := s.log.With("op", op)
	log.Info("login user")

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, datastore.ErrUserNotFound) {
			log.Warn("user not found")
			s.recordFailedLogin(reasonUnknownEmail)
			return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", logging.Err(err))
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if !webutil.CheckPassword(user.PasswordHash, password) {
		log.Warn("invalid credentials", slog.String("user_id", user.ID))
		s.recordFailedLogin(reasonWrongPassword)
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.Error("failed to generate token", logging.Err(err))
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return user, token, nil
}

// Authenticate resolves a bearer token to the current user. A valid token for
// a user that no longer exists is unauthorized too.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.Authenticate"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, datastore.ErrUserNotFound) || errors.Is(err, datastore.ErrInvalidID) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		s.log.Error("failed to load token user", slog.String("op", op), logging.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Refresh issues a new token with a fresh expiry for an authenticated user.
func (s *Service) Refresh(_ context.Context, user *models.User) (string, error) {
	const op = "auth.Refresh"

	if user == nil {
		return "", fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

func (s *Service) recordFailedLogin(reason string) {
	if s.failedLogins != nil {
		s.failedLogins.WithLabelValues(reason).Inc()
	}
}
