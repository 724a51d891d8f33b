package client

import (
	"context"
	"log"
	"time"
)

// FetchFunc performs one poll. Errors are logged and the next tick retries;
// there is no backoff.
type FetchFunc func(ctx context.Context) error

// Poller fetches on a fixed interval. Fetches are serialized: a tick that
// arrives while a fetch is still running is dropped, so a slow endpoint never
// accumulates in-flight requests. Cancel the context to stop.
type Poller struct {
	interval time.Duration
	fetch    FetchFunc
}

// NewPoller constructs a Poller. A non-positive interval defaults to 10s,
// the interval the mobile clients use.
func NewPoller(interval time.Duration, fetch FetchFunc) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{interval: interval, fetch: fetch}
}

// Run fetches immediately, then on every tick, until ctx is canceled. It
// returns ctx.Err.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetchOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.fetchOnce(ctx)
			// drop the tick that may have queued while fetching
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (p *Poller) fetchOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
		log.Printf("poll fetch failed: %v", err)
	}
}
