package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/coreybb/eventhub/datastore/memory"
	"github.com/coreybb/eventhub/logging"
	"github.com/coreybb/eventhub/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passDefaultLen = 10

func newTestService(t *testing.T) (*Service, *prometheus.CounterVec) {
	t.Helper()

	failed := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "failed_logins_test"}, []string{"reason"})
	svc := New(logging.Discard(), memory.New(), NewTokenManager(testSecret, time.Hour), failed)
	return svc, failed
}

func generatePassword() string {
	return gofakeit.Password(true, true, true, true, false, passDefaultLen)
}

func TestRegister_HappyPath(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	email := gofakeit.Email()
	user, token, err := svc.Register(ctx, RegisterInput{
		Name:     gofakeit.Name(),
		Email:    "  " + strings.ToUpper(email) + " ",
		Password: generatePassword(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.NormalizeEmail(email), user.Email)
	assert.NotEmpty(t, token)
	assert.NotNil(t, user.JoinedEvents)

	current, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := RegisterInput{Name: gofakeit.Name(), Email: gofakeit.Email(), Password: generatePassword()}
	_, _, err := svc.Register(ctx, in)
	require.NoError(t, err)

	in.Email = strings.ToUpper(in.Email)
	_, _, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	svc, failed := newTestService(t)
	ctx := context.Background()

	var (
		email    = gofakeit.Email()
		password = generatePassword()
	)
	registered, _, err := svc.Register(ctx, RegisterInput{Name: gofakeit.Name(), Email: email, Password: password})
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, strings.ToUpper(email), password)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, email, password+"x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, float64(1), testutil.ToFloat64(failed.WithLabelValues(reasonWrongPassword)))
	assert.Equal(t, float64(1), testutil.ToFloat64(failed.WithLabelValues(reasonUnknownEmail)))
}

func TestAuthenticate_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	orphan, err := svc.tokens.Issue("00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, RegisterInput{Name: gofakeit.Name(), Email: gofakeit.Email(), Password: generatePassword()})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, token, refreshed)

	current, err := svc.Authenticate(ctx, refreshed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	_, err = svc.Refresh(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), &models.User{ID: "u1"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}
