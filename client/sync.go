package client

import (
	"context"
	"fmt"

	"github.com/coreybb/eventhub/models"
)

// LoadEvents fetches every event and, when logged in, the ids the user has
// joined, then replaces the store's contents. If the user lookup fails the
// events are still loaded, unflagged, and the lookup error is returned so the
// caller can offer a new login.
func (c *Client) LoadEvents(ctx context.Context, store *EventStore) error {
	events, err := c.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	var (
		joined []string
		meErr  error
	)
	if c.LoggedIn() {
		user, err := c.Me(ctx)
		if err != nil {
			meErr = fmt.Errorf("failed to load current user: %w", err)
		} else {
			joined = user.JoinedEvents
		}
	}

	if err := store.Dispatch(Loaded{Events: events, JoinedIDs: joined}); err != nil {
		return err
	}
	return meErr
}

// Join marks the event joined in store straight away, then asks the API. The
// store ends up holding the server's copy on success, or its prior state on
// failure. A conflict means the server already has the user on the roster, so
// the store is reconciled with a fresh copy instead of reverted.
func (c *Client) Join(ctx context.Context, store *EventStore, eventID, userID string) (*models.Event, error) {
	if err := store.Dispatch(JoinRequested{EventID: eventID, UserID: userID}); err != nil {
		return nil, err
	}

	event, err := c.JoinEvent(ctx, eventID)
	if err != nil && IsConflict(err) {
		if fresh, getErr := c.GetEvent(ctx, eventID); getErr == nil {
			event, err = fresh, nil
		}
	}
	if err != nil {
		_ = store.Dispatch(JoinFailed{EventID: eventID, UserID: userID})
		return nil, err
	}

	_ = store.Dispatch(JoinConfirmed{Event: *event})
	return event, nil
}
