package feed

import (
	"sync"

	"github.com/Hargou/captioncraft/internal/api"
)

// captionCache holds the captions fetched for each post during this
// session. Entries are never invalidated implicitly; the mutator evicts
// a post's entry when a new caption changes that post's caption identity.
type captionCache struct {
	mu      sync.Mutex
	entries map[int][]api.Caption
}

func newCaptionCache() *captionCache {
	return &captionCache{entries: make(map[int][]api.Caption)}
}

// Get returns the cached captions for a post, if present.
func (c *captionCache) Get(postID int) ([]api.Caption, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	captions, ok := c.entries[postID]
	if !ok {
		return nil, false
	}
	return cloneCaptions(captions), true
}

// Put stores the captions for a post.
func (c *captionCache) Put(postID int, captions []api.Caption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[postID] = cloneCaptions(captions)
}

// Evict removes a post's entry, forcing the next load to re-fetch.
func (c *captionCache) Evict(postID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, postID)
}
