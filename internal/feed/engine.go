package feed

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Hargou/captioncraft/internal/api"
	"github.com/Hargou/captioncraft/internal/session"
	"github.com/Hargou/captioncraft/internal/store"
)

// Engine mirrors server-side posts and captions into the local cache
// and publishes the feed snapshot consumers render. It favors cache
// availability over freshness when the network fails.
type Engine struct {
	gateway api.Gateway
	cache   *store.Store
	session *session.Manager

	view     viewStore
	captions *captionCache

	// generation tags each load attempt; a superseded load's result is
	// neither merged into the cache nor published.
	generation atomic.Uint64
}

// NewEngine builds an Engine over the given collaborators.
func NewEngine(gateway api.Gateway, cache *store.Store, sess *session.Manager) *Engine {
	e := &Engine{
		gateway:  gateway,
		cache:    cache,
		session:  sess,
		captions: newCaptionCache(),
	}
	e.view.subs = make(map[int]*viewSub)
	return e
}

// Snapshot returns the current feed view.
func (e *Engine) Snapshot() Snapshot {
	return e.view.Snapshot()
}

// Subscribe delivers every snapshot version published after the call,
// in order. Cancellation is unsubscription.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	return e.view.Subscribe()
}

// LoadFeed refreshes the feed: fetch posts, merge into the cache, then
// resolve captions per post and publish a consistent snapshot.
//
// A remote post-fetch failure is absorbed: the last known-good cache is
// served and the error surfaces on the snapshot, not as a return value.
// Only the absence of a session aborts before any network attempt.
func (e *Engine) LoadFeed(ctx context.Context) error {
	gen := e.generation.Add(1)

	e.view.Apply(func(s Snapshot) Snapshot {
		s.Loading = true
		s.Err = ""
		return s
	})

	if _, ok := e.session.Current(); !ok {
		e.view.Apply(func(s Snapshot) Snapshot {
			s.Loading = false
			s.Err = session.ErrNotAuthenticated.Error()
			return s
		})
		return session.ErrNotAuthenticated
	}

	fetched, remoteErr := e.gateway.FetchAllPosts(ctx)

	var fetchErr error
	if remoteErr != nil {
		// Cache serves stale: keep going with whatever we have.
		fetchErr = remoteErr
		log.Printf("feed fetch failed, serving cache: %v", remoteErr)
	}

	// A newer load may have committed while the fetch was in flight. Its
	// posts own the cache of record now; warming the caption cache with
	// this result is still worthwhile, merging or publishing it is not.
	if e.generation.Load() != gen {
		if remoteErr == nil {
			e.resolveCaptions(ctx, fetched)
		}
		return nil
	}

	if remoteErr == nil {
		if err := e.cache.ReplaceAllPosts(ctx, fetched); err != nil {
			fetchErr = err
		}
	}

	cached, err := e.cache.AllPosts(ctx)
	if err != nil {
		fetchErr = err
	}

	posts := e.resolveCaptions(ctx, cached)

	published := e.view.ApplyIf(func(s Snapshot) (Snapshot, bool) {
		if e.generation.Load() != gen {
			return Snapshot{}, false
		}
		s.Posts = decorateLikes(posts, s.LikedPosts)
		s.Loading = false
		if fetchErr != nil {
			s.Err = fetchErr.Error()
		}
		return s, true
	})
	if !published {
		// Superseded by a newer load; its result stands, not ours.
		return nil
	}
	return nil
}

// LoadUserPosts fetches one user's posts with captions resolved through
// the session cache. It does not touch the cached feed of record.
func (e *Engine) LoadUserPosts(ctx context.Context, userID int) ([]api.Post, error) {
	posts, err := e.gateway.FetchUserPosts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.resolveCaptions(ctx, posts), nil
}

// SyncFromCache republishes the post list from the local cache without
// touching the network. The app calls this on cache change
// notifications so external writes (a logout wipe, an upserted post)
// reach the view.
func (e *Engine) SyncFromCache(ctx context.Context) error {
	cached, err := e.cache.AllPosts(ctx)
	if err != nil {
		return err
	}
	posts := withCachedCaptions(cached, e.captions)
	e.view.Apply(func(s Snapshot) Snapshot {
		s.Posts = decorateLikes(posts, s.LikedPosts)
		return s
	})
	return nil
}

// resolveCaptions attaches each post's caption list, reusing the
// session cache and fetching misses in parallel. A failed fetch leaves
// that single post with no captions; siblings are unaffected.
func (e *Engine) resolveCaptions(ctx context.Context, posts []api.Post) []api.Post {
	resolved := make([]api.Post, len(posts))
	var wg sync.WaitGroup
	for i, p := range posts {
		resolved[i] = p
		if captions, ok := e.captions.Get(p.ID); ok {
			resolved[i].Captions = captions
			continue
		}
		wg.Add(1)
		go func(i, postID int) {
			defer wg.Done()
			captions, err := e.gateway.FetchCaptions(ctx, postID)
			if err != nil {
				log.Printf("caption fetch failed for post %d: %v", postID, err)
				return
			}
			e.captions.Put(postID, captions)
			resolved[i].Captions = captions
		}(i, p.ID)
	}
	wg.Wait()

	for i := range resolved {
		resolved[i].CaptionCount = displayedCaptionCount(resolved[i])
	}
	return resolved
}

// withCachedCaptions attaches captions from the session cache only.
func withCachedCaptions(posts []api.Post, captions *captionCache) []api.Post {
	resolved := make([]api.Post, len(posts))
	for i, p := range posts {
		resolved[i] = p
		if cached, ok := captions.Get(p.ID); ok {
			resolved[i].Captions = cached
		}
		resolved[i].CaptionCount = displayedCaptionCount(resolved[i])
	}
	return resolved
}

// displayedCaptionCount keeps the advertised count monotonic: never
// below the captions actually held, never below the server's figure.
func displayedCaptionCount(p api.Post) int {
	if n := len(p.Captions); n > p.CaptionCount {
		return n
	}
	return p.CaptionCount
}

func decorateLikes(posts []api.Post, likedPosts map[int]struct{}) []api.Post {
	for i := range posts {
		_, liked := likedPosts[posts[i].ID]
		posts[i].LikedByUser = liked
	}
	return posts
}
