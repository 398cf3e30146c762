// Package mongodb implements datastore.Store on MongoDB with one document per
// user in "users" and one per event in "events".
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection  = "users"
	eventsCollection = "events"

	connectTimeout = 10 * time.Second
)

type Store struct {
	client       *mongo.Client
	users        *mongo.Collection
	events       *mongo.Collection
	transactions bool
	runTx        func(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ datastore.Store = (*Store)(nil)

// New wraps an already connected client. With transactions disabled, multi
// document writes fall back to ordered updates with compensation, which is
// what standalone servers without a replica set support.
func New(client *mongo.Client, database string, transactions bool) *Store {
	db := client.Database(database)
	s := &Store{
		client:       client,
		users:        db.Collection(usersCollection),
		events:       db.Collection(eventsCollection),
		transactions: transactions,
	}
	s.runTx = s.sessionTx
	return s
}

// Open connects to uri, pings the primary and ensures indexes.
func Open(ctx context.Context, uri, database string, transactions bool) (*Store, error) {
	const op = "datastore.mongo.Open"

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: failed to ping primary: %w", op, err)
	}

	s := New(client, database, transactions)
	if err := s.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}

	_, err = s.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create events indexes: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return datastore.ErrStoreNotOpened
	}
	return s.client.Disconnect(ctx)
}

// withinTx runs fn inside a session transaction when enabled, otherwise
// directly against ctx.
func (s *Store) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	return s.runTx(ctx, fn)
}

func (s *Store) sessionTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%q: %w", id, datastore.ErrInvalidID)
	}
	return oid, nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

func parseIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := parseID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
