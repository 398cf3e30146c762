package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"github.com/coreybb/eventhub/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type eventDocument struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	Title         string               `bson:"title"`
	Name          string               `bson:"name"`
	Date          time.Time            `bson:"date"`
	Location      string               `bson:"location"`
	Description   string               `bson:"description"`
	AttendeeCount int                  `bson:"attendeeCount"`
	ImageURL      string               `bson:"imageURL,omitempty"`
	CreatedBy     primitive.ObjectID   `bson:"createdBy"`
	Attendees     []primitive.ObjectID `bson:"attendees"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

func toEventDocument(e *models.Event) (eventDocument, error) {
	owner, err := parseID(e.CreatedBy)
	if err != nil {
		return eventDocument{}, err
	}
	attendees, err := parseIDs(e.Attendees)
	if err != nil {
		return eventDocument{}, err
	}

	doc := eventDocument{
		Title:         e.Title,
		Name:          e.Name,
		Date:          e.Date,
		Location:      e.Location,
		Description:   e.Description,
		AttendeeCount: len(attendees),
		ImageURL:      e.ImageURL,
		CreatedBy:     owner,
		Attendees:     attendees,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.ID != "" {
		if doc.ID, err = parseID(e.ID); err != nil {
			return eventDocument{}, err
		}
	}
	return doc, nil
}

// toModel trusts the roster over the stored counter, so documents written by
// older non-transactional code still satisfy count == len(attendees).
func (d eventDocument) toModel() models.Event {
	attendees := hexIDs(d.Attendees)
	return models.Event{
		ID:            d.ID.Hex(),
		Title:         d.Title,
		Name:          d.Name,
		Date:          d.Date,
		Location:      d.Location,
		Description:   d.Description,
		AttendeeCount: len(attendees),
		ImageURL:      d.ImageURL,
		CreatedBy:     d.CreatedBy.Hex(),
		Attendees:     attendees,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	event.Attendees = []string{}
	doc, err := toEventDocument(event)
	if err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := s.events.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	event.ID = doc.ID.Hex()
	event.AttendeeCount = 0
	return nil
}

func (s *Store) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	oid, err := parseID(eventID)
	if err != nil {
		return nil, err
	}

	var doc eventDocument
	if err := s.events.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
		}
		return nil, fmt.Errorf("failed to find event %s: %w", eventID, err)
	}

	event := doc.toModel()
	return &event, nil
}

func (s *Store) GetEvents(ctx context.Context) ([]models.Event, error) {
	return s.findEvents(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

func (s *Store) GetEventsByOwner(ctx context.Context, ownerID string) ([]models.Event, error) {
	oid, err := parseID(ownerID)
	if err != nil {
		return nil, err
	}
	return s.findEvents(ctx, bson.M{"createdBy": oid}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

func (s *Store) GetUpcomingEvents(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetLimit(int64(limit))
	return s.findEvents(ctx, bson.M{"date": bson.M{"$gt": now}}, opts)
}

func (s *Store) UpdateEvent(ctx context.Context, event *models.Event) error {
	oid, err := parseID(event.ID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"title":       event.Title,
		"name":        event.Name,
		"date":        event.Date,
		"location":    event.Location,
		"description": event.Description,
		"imageURL":    event.ImageURL,
		"updatedAt":   event.UpdatedAt,
	}}
	res, err := s.events.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("event %s: %w", event.ID, datastore.ErrEventNotFound)
	}
	return nil
}

// DeleteEvent removes the event and pulls it from every user's joined set.
func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	oid, err := parseID(eventID)
	if err != nil {
		return err
	}

	return s.withinTx(ctx, func(ctx context.Context) error {
		res, err := s.events.DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("failed to delete event %s: %w", eventID, err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("event %s: %w", eventID, datastore.ErrEventNotFound)
		}

		_, err = s.users.UpdateMany(ctx,
			bson.M{"joinedEvents": oid},
			bson.M{"$pull": bson.M{"joinedEvents": oid}},
		)
		if err != nil {
			return fmt.Errorf("failed to detach event %s from users: %w", eventID, err)
		}
		return nil
	})
}

// JoinEvent pushes the user onto the roster only if absent and bumps the
// counter in the same update, then records the event on the user.
func (s *Store) JoinEvent(ctx context.Context, eventID, userID string) (*models.Event, error) {
	eid, err := parseID(eventID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	err = s.withinTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		res, err := s.events.UpdateOne(ctx,
			bson.M{"_id": eid, "attendees": bson.M{"$ne": uid}},
			bson.M{
				"$push": bson.M{"attendees": uid},
				"$inc":  bson.M{"attendeeCount": 1},
				"$set":  bson.M{"updatedAt": now},
			},
		)
		if err != nil {
			return fmt.Errorf("failed to add attendee to event %s: %w", eventID, err)
		}
		if res.MatchedCount == 0 {
			return s.joinMissReason(ctx, eid)
		}

		res, err = s.users.UpdateOne(ctx,
			bson.M{"_id": uid},
			bson.M{"$addToSet": bson.M{"joinedEvents": eid}},
		)
		if err == nil && res.MatchedCount == 0 {
			err = fmt.Errorf("user %s: %w", userID, datastore.ErrUserNotFound)
		}
		if err != nil {
			if !errors.Is(err, datastore.ErrUserNotFound) {
				err = fmt.Errorf("failed to record joined event for user %s: %w", userID, err)
			}
			if !s.transactions {
				if undoErr := s.undoJoin(ctx, eid, uid); undoErr != nil {
					err = errors.Join(err, undoErr)
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetEventByID(ctx, eventID)
}

// joinMissReason tells a missing event apart from a repeat join.
func (s *Store) joinMissReason(ctx context.Context, eid primitive.ObjectID) error {
	n, err := s.events.CountDocuments(ctx, bson.M{"_id": eid})
	if err != nil {
		return fmt.Errorf("failed to check event %s: %w", eid.Hex(), err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", eid.Hex(), datastore.ErrEventNotFound)
	}
	return fmt.Errorf("event %s: %w", eid.Hex(), datastore.ErrAlreadyJoined)
}

// undoJoin takes uid back off the roster when the user side of a join failed
// without a transaction to roll it back.
func (s *Store) undoJoin(ctx context.Context, eid, uid primitive.ObjectID) error {
	_, err := s.events.UpdateOne(ctx,
		bson.M{"_id": eid, "attendees": uid},
		bson.M{
			"$pull": bson.M{"attendees": uid},
			"$inc":  bson.M{"attendeeCount": -1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to undo join of user %s on event %s: %w", uid.Hex(), eid.Hex(), err)
	}
	return nil
}

func (s *Store) findEvents(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Event, error) {
	cursor, err := s.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	for cursor.Next(ctx) {
		var doc eventDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
