package limiter

import (
	"context"
	"strconv"
	"time"
)

// Throttle bounds outbound requests per panel to a fixed per-second quota.
// When the quota is exhausted the caller blocks until the window resets
// rather than failing, so the upstream panel's own throttling is never
// tripped.
type Throttle struct {
	store Store
	limit int
}

func NewThrottle(store Store, perSecond int) *Throttle {
	if perSecond <= 0 {
		perSecond = 5
	}
	return &Throttle{store: store, limit: perSecond}
}

// Acquire blocks until a request slot is available for the panel.
func (t *Throttle) Acquire(ctx context.Context, panelID uint) error {
	key := "panel:" + strconv.FormatUint(uint64(panelID), 10)
	for {
		ok, retryAfter, err := t.store.TryAcquire(ctx, key, t.limit, time.Second)
		if err != nil {
			// Throttling is advisory; a broken counter must not block calls.
			return nil
		}
		if ok {
			return nil
		}
		wait := retryAfter
		if wait <= 0 {
			wait = 50 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
