package paginate

import (
	"context"
	"time"

	"fliplytics/markup"
)

// WaitStrategy decides when the live page has settled after a navigation
// click. The fixed delay is the parity behavior; it is a best-effort
// synchronization point, not a guarantee that new content loaded.
type WaitStrategy interface {
	Wait(ctx context.Context, page *markup.LivePage) error
}

// FixedDelay waits a constant duration.
type FixedDelay struct {
	D time.Duration
}

func (f FixedDelay) Wait(ctx context.Context, _ *markup.LivePage) error {
	return sleep(ctx, f.D)
}

// StableCardCount polls the page until the number of order-detail links
// stops changing between two consecutive polls, or attempts run out.
type StableCardCount struct {
	Selector string        // defaults to the order-detail link selector
	Interval time.Duration // defaults to 500ms
	Attempts int           // defaults to 10
}

func (s StableCardCount) Wait(ctx context.Context, page *markup.LivePage) error {
	selector := s.Selector
	if selector == "" {
		selector = `a[href*="/order_details"]`
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	attempts := s.Attempts
	if attempts <= 0 {
		attempts = 10
	}

	last := -1
	for i := 0; i < attempts; i++ {
		if err := sleep(ctx, interval); err != nil {
			return err
		}
		n, err := page.Count(selector)
		if err != nil {
			return err
		}
		if n == last {
			return nil
		}
		last = n
	}
	// The page never stabilized; proceed with whatever rendered.
	return nil
}
