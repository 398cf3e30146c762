package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const (
	testDatabase = "eventmanager_test"
	eventsNS     = testDatabase + "." + eventsCollection
	usersNS      = testDatabase + "." + usersCollection
)

func toD(t *testing.T, v any) bson.D {
	t.Helper()

	raw, err := bson.Marshal(v)
	require.NoError(t, err)

	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func sampleEventDocument(attendees ...primitive.ObjectID) eventDocument {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return eventDocument{
		ID:            primitive.NewObjectID(),
		Title:         "Go meetup",
		Name:          gofakeit.Name(),
		Date:          now.Add(48 * time.Hour),
		Location:      gofakeit.City(),
		Description:   "Talks and pizza",
		AttendeeCount: len(attendees),
		CreatedBy:     primitive.NewObjectID(),
		Attendees:     attendees,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestEventDocument_Conversion(t *testing.T) {
	guest := primitive.NewObjectID()
	event := sampleEventDocument(guest).toModel()

	doc, err := toEventDocument(&event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, doc.ID.Hex())
	assert.Equal(t, event.CreatedBy, doc.CreatedBy.Hex())
	assert.Equal(t, []primitive.ObjectID{guest}, doc.Attendees)
	assert.Equal(t, 1, doc.AttendeeCount)
}

func TestEventDocument_CountFollowsRoster(t *testing.T) {
	doc := sampleEventDocument(primitive.NewObjectID(), primitive.NewObjectID())
	doc.AttendeeCount = 5

	event := doc.toModel()
	assert.Equal(t, 2, event.AttendeeCount)
	assert.Len(t, event.Attendees, 2)
}

func TestEventDocument_EmptyRosterIsNotNil(t *testing.T) {
	event := sampleEventDocument().toModel()
	assert.NotNil(t, event.Attendees)
	assert.Zero(t, event.AttendeeCount)
}

func TestToEventDocument_InvalidIDs(t *testing.T) {
	_, err := toEventDocument(&models.Event{CreatedBy: "owner"})
	assert.ErrorIs(t, err, datastore.ErrInvalidID)

	_, err = toEventDocument(&models.Event{
		CreatedBy: primitive.NewObjectID().Hex(),
		Attendees: []string{"guest"},
	})
	assert.ErrorIs(t, err, datastore.ErrInvalidID)
}

func TestUserDocument_Conversion(t *testing.T) {
	joined := primitive.NewObjectID()
	user := &models.User{
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: "hash",
		JoinedEvents: []string{joined.Hex()},
	}

	doc, err := toUserDocument(user)
	require.NoError(t, err)
	assert.True(t, doc.ID.IsZero())
	assert.Equal(t, "hash", doc.Password)

	back := doc.toModel()
	assert.Equal(t, []string{joined.Hex()}, back.JoinedEvents)
	assert.True(t, back.HasJoined(joined.Hex()))
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create user assigns id", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user := &models.User{Name: gofakeit.Name(), Email: gofakeit.Email()}
		require.NoError(mt, store.CreateUser(context.Background(), user))

		_, err := primitive.ObjectIDFromHex(user.ID)
		assert.NoError(mt, err)
		assert.NotNil(mt, user.JoinedEvents)
	})

	mt.Run("create user duplicate email", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := store.CreateUser(context.Background(), &models.User{Email: gofakeit.Email()})
		assert.ErrorIs(mt, err, datastore.ErrUserExists)
	})

	mt.Run("get user by email not found", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, usersNS, mtest.FirstBatch))

		_, err := store.GetUserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(mt, err, datastore.ErrUserNotFound)
	})

	mt.Run("get event by id", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		doc := sampleEventDocument(primitive.NewObjectID())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, toD(t, doc)))

		event, err := store.GetEventByID(context.Background(), doc.ID.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, doc.Title, event.Title)
		assert.Equal(mt, 1, event.AttendeeCount)
	})

	mt.Run("get event malformed id", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)

		_, err := store.GetEventByID(context.Background(), "not-an-object-id")
		assert.ErrorIs(mt, err, datastore.ErrInvalidID)
	})

	mt.Run("get events", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		first, second := sampleEventDocument(), sampleEventDocument()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, eventsNS, mtest.FirstBatch, toD(t, first)),
			mtest.CreateCursorResponse(0, eventsNS, mtest.NextBatch, toD(t, second)),
		)

		events, err := store.GetEvents(context.Background())
		require.NoError(mt, err)
		require.Len(mt, events, 2)
		assert.Equal(mt, first.ID.Hex(), events[0].ID)
		assert.Equal(mt, second.ID.Hex(), events[1].ID)
	})

	mt.Run("join event", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		user := primitive.NewObjectID()
		joined := sampleEventDocument(user)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, toD(t, joined)),
		)

		event, err := store.JoinEvent(context.Background(), joined.ID.Hex(), user.Hex())
		require.NoError(mt, err)
		assert.True(mt, event.HasAttendee(user.Hex()))
		assert.Equal(mt, 1, event.AttendeeCount)
	})

	mt.Run("join event twice", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		_, err := store.JoinEvent(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, datastore.ErrAlreadyJoined)
	})

	mt.Run("join missing event", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch),
		)

		_, err := store.JoinEvent(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, datastore.ErrEventNotFound)
	})

	mt.Run("join unknown user rolls back roster", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		_, err := store.JoinEvent(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, datastore.ErrUserNotFound)

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 3)
		for _, evt := range started {
			assert.Equal(mt, "update", evt.CommandName)
		}
		undo := started[2].Command.String()
		assert.Contains(mt, undo, eventsCollection)
		assert.Contains(mt, undo, "$pull")
		assert.Contains(mt, undo, "$inc")
	})

	mt.Run("join reports a failed undo", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "undo refused"}),
		)

		_, err := store.JoinEvent(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, datastore.ErrUserNotFound)
		assert.ErrorContains(mt, err, "failed to undo join")
	})

	mt.Run("join in transaction leaves rollback to the session", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, true)
		var txRuns int
		store.runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			txRuns++
			return fn(ctx)
		}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		_, err := store.JoinEvent(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, datastore.ErrUserNotFound)
		assert.Equal(mt, 1, txRuns)
		// No compensating update outside the transaction.
		assert.Len(mt, mt.GetAllStartedEvents(), 2)
	})

	mt.Run("join in transaction", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, true)
		var txRuns int
		store.runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			txRuns++
			return fn(ctx)
		}
		user := primitive.NewObjectID()
		joined := sampleEventDocument(user)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCursorResponse(0, eventsNS, mtest.FirstBatch, toD(t, joined)),
		)

		event, err := store.JoinEvent(context.Background(), joined.ID.Hex(), user.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, 1, txRuns)
		assert.Equal(mt, 1, event.AttendeeCount)
	})

	mt.Run("delete in transaction detaches users", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, true)
		var txRuns int
		store.runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			txRuns++
			return fn(ctx)
		}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}),
		)

		require.NoError(mt, store.DeleteEvent(context.Background(), primitive.NewObjectID().Hex()))
		assert.Equal(mt, 1, txRuns)

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 2)
		assert.Equal(mt, "delete", started[0].CommandName)
		assert.Equal(mt, "update", started[1].CommandName)
		assert.Contains(mt, started[1].Command.String(), "joinedEvents")
	})

	mt.Run("delete missing event", func(mt *mtest.T) {
		store := New(mt.Client, testDatabase, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := store.DeleteEvent(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, datastore.ErrEventNotFound)
	})
}
