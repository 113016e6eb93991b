package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Hargou/captioncraft/internal/api"
	"github.com/Hargou/captioncraft/internal/config"
	"github.com/Hargou/captioncraft/internal/feed"
	"github.com/Hargou/captioncraft/internal/prefs"
	"github.com/Hargou/captioncraft/internal/session"
	"github.com/Hargou/captioncraft/internal/store"
	"github.com/Hargou/captioncraft/internal/ui"
)

// Options configure the CaptionCraft application.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses default ~/.config/captioncraft/prefs.toml
	RefreshEvery int    // seconds; zero uses the config value
}

// Run boots the CaptionCraft TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	client, err := api.NewClient(cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	cache, err := store.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	if err := ensureServerAvailable(ctx, client); err != nil {
		// A populated cache can carry the session offline; an empty
		// one cannot show anything, so refuse to start.
		cached, cacheErr := cache.AllPosts(ctx)
		if cacheErr != nil || len(cached) == 0 {
			return err
		}
		log.Printf("starting offline from cache: %v", err)
	}

	sess := session.NewManager(client, cache)
	engine := feed.NewEngine(client, cache, sess)
	mutator := feed.NewMutator(engine, client, sess)

	// Resume the session persisted from the last run, if any. Mutations
	// still require a fresh login since the credential is memory-only.
	_, _ = sess.Resume(ctx)

	interval := time.Duration(cfg.RefreshSeconds) * time.Second
	if opts.RefreshEvery > 0 {
		interval = time.Duration(opts.RefreshEvery) * time.Second
	}

	// External cache writes reach the view through the change feed.
	changes, cancelChanges := cache.Subscribe()
	defer cancelChanges()
	go bridgeCacheChanges(changes, func() error { return engine.SyncFromCache(ctx) })

	StartRefresher(ctx, engine, sess, interval)

	uiOpts := ui.Options{
		Context:   ctx,
		Engine:    engine,
		Mutator:   mutator,
		Session:   sess,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		Username:  userPrefs.LastUsername,
	}
	return ui.Run(uiOpts)
}

// bridgeCacheChanges syncs the view on every cache change notification
// until the feed closes. One failed sync must not sever the bridge;
// later cache writes still deserve a chance to reach the view.
func bridgeCacheChanges(changes <-chan struct{}, sync func() error) {
	for range changes {
		if err := sync(); err != nil {
			log.Printf("cache sync failed: %v", err)
		}
	}
}

// ensureServerAvailable fails fast when the server cannot be reached at
// startup. Later outages are absorbed by the cache instead.
func ensureServerAvailable(ctx context.Context, client *api.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Health(checkCtx); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	return nil
}
