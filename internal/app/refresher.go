package app

import (
	"context"
	"log"
	"time"

	"github.com/Hargou/captioncraft/internal/feed"
	"github.com/Hargou/captioncraft/internal/session"
)

const (
	defaultRefreshInterval = 30 * time.Second
	maxBackoff             = 30 * time.Second
)

// StartRefresher launches a background goroutine that reloads the feed
// at a fixed cadence, backing off exponentially while the server stays
// unreachable. It returns immediately.
func StartRefresher(ctx context.Context, engine *feed.Engine, sess *session.Manager, interval time.Duration) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	go func() {
		failures := 0
		for {
			wait := calculateBackoff(failures, interval)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			if _, ok := sess.Current(); !ok {
				failures = 0
				continue
			}
			if err := engine.LoadFeed(ctx); err != nil {
				failures++
				log.Printf("background refresh failed: %v", err)
				continue
			}
			if snap := engine.Snapshot(); snap.Err != "" {
				failures++
				continue
			}
			failures = 0
		}
	}()
}

// calculateBackoff doubles the base interval per consecutive failure,
// capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
