package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreybb/eventhub/logging"
)

// DefaultRefreshInterval matches how often the web front end renews its token.
const DefaultRefreshInterval = 30 * time.Minute

// Refresher renews the client's token on a fixed interval for as long as the
// context given to Run lives. A failed renewal ends the session: the token is
// cleared, OnExpired fires and Run returns.
type Refresher struct {
	client    *Client
	interval  time.Duration
	OnExpired func(err error)
}

func NewRefresher(c *Client, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{client: c, interval: interval}
}

// Run blocks until ctx is done or a refresh fails. It returns the refresh
// error, or nil on cancellation.
func (r *Refresher) Run(ctx context.Context) error {
	const op = "client.Refresher.Run"
	log := r.client.log.With("op", op)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("refresher stopped")
			return nil
		case <-ticker.C:
			if !r.client.LoggedIn() {
				continue
			}
			if _, err := r.client.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn("token refresh failed, ending session", logging.Err(err))
				r.client.Logout()
				if r.OnExpired != nil {
					r.OnExpired(err)
				}
				return err
			}
			log.Debug("token refreshed", slog.Duration("next_in", r.interval))
		}
	}
}
