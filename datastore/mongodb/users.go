package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDocument struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Name         string               `bson:"name"`
	Email        string               `bson:"email"`
	Password     string               `bson:"password"`
	PhotoURL     string               `bson:"photoURL,omitempty"`
	JoinedEvents []primitive.ObjectID `bson:"joinedEvents"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func toUserDocument(u *models.User) (userDocument, error) {
	doc := userDocument{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		PhotoURL:  u.PhotoURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.ID != "" {
		oid, err := parseID(u.ID)
		if err != nil {
			return userDocument{}, err
		}
		doc.ID = oid
	}

	joined, err := parseIDs(u.JoinedEvents)
	if err != nil {
		return userDocument{}, err
	}
	doc.JoinedEvents = joined
	return doc, nil
}

func (d userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		PhotoURL:     d.PhotoURL,
		JoinedEvents: hexIDs(d.JoinedEvents),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	doc, err := toUserDocument(user)
	if err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to insert user %s: %w", user.Email, datastore.ErrUserExists)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = doc.ID.Hex()
	user.JoinedEvents = hexIDs(doc.JoinedEvents)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	oid, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, datastore.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel(), nil
}
