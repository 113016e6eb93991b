package feed

import (
	"sync"
	"time"

	"github.com/Hargou/captioncraft/internal/api"
)

// Snapshot is the externally observed feed state. Each published version
// is immutable; transitions replace the whole snapshot so consumers
// never see a torn read.
type Snapshot struct {
	Posts   []api.Post
	Loading bool
	Err     string

	// LikedPosts and LikedCaptions are client-local optimistic state;
	// the server is never re-queried for per-user like status.
	LikedPosts    map[int]struct{}
	LikedCaptions map[int]struct{}

	// CommentsByCaption is populated lazily on user action. OpenCaption
	// names the single caption whose comments are expanded (0 = none).
	CommentsByCaption map[int][]api.Comment
	OpenCaption       int

	Version   uint64
	UpdatedAt time.Time
}

// CaptionLiked reports whether the current user has liked the caption.
func (s Snapshot) CaptionLiked(captionID int) bool {
	_, ok := s.LikedCaptions[captionID]
	return ok
}

// PostLiked reports whether the current user has liked the post.
func (s Snapshot) PostLiked(postID int) bool {
	_, ok := s.LikedPosts[postID]
	return ok
}

func (s Snapshot) clone() Snapshot {
	dup := s
	if len(s.Posts) > 0 {
		dup.Posts = make([]api.Post, len(s.Posts))
		copy(dup.Posts, s.Posts)
		for i := range dup.Posts {
			dup.Posts[i].Captions = cloneCaptions(dup.Posts[i].Captions)
		}
	}
	dup.LikedPosts = cloneSet(s.LikedPosts)
	dup.LikedCaptions = cloneSet(s.LikedCaptions)
	if s.CommentsByCaption != nil {
		dup.CommentsByCaption = make(map[int][]api.Comment, len(s.CommentsByCaption))
		for id, comments := range s.CommentsByCaption {
			cc := make([]api.Comment, len(comments))
			copy(cc, comments)
			dup.CommentsByCaption[id] = cc
		}
	}
	return dup
}

func cloneCaptions(captions []api.Caption) []api.Caption {
	if len(captions) == 0 {
		return nil
	}
	dup := make([]api.Caption, len(captions))
	copy(dup, captions)
	return dup
}

func cloneSet(set map[int]struct{}) map[int]struct{} {
	if set == nil {
		return nil
	}
	dup := make(map[int]struct{}, len(set))
	for k := range set {
		dup[k] = struct{}{}
	}
	return dup
}

// viewStore serializes every read-modify-publish of the snapshot through
// one mutex, so two concurrent mutations can never clobber each other's
// base version.
type viewStore struct {
	mu       sync.Mutex
	snapshot Snapshot
	subs     map[int]*viewSub
	nextSub  int
}

// Snapshot returns a copy of the current snapshot.
func (v *viewStore) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot.clone()
}

// Apply atomically transforms the snapshot and publishes the result.
// It returns the version that was replaced, for rollback use.
func (v *viewStore) Apply(fn func(Snapshot) Snapshot) (prev Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev = v.snapshot.clone()
	v.publishLocked(fn(v.snapshot.clone()))
	return prev
}

// ApplyIf behaves like Apply but lets fn decline the publish, used to
// discard results of superseded loads.
func (v *viewStore) ApplyIf(fn func(Snapshot) (Snapshot, bool)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	next, ok := fn(v.snapshot.clone())
	if !ok {
		return false
	}
	v.publishLocked(next)
	return true
}

func (v *viewStore) publishLocked(next Snapshot) {
	next.Version = v.snapshot.Version + 1
	next.UpdatedAt = time.Now()
	v.snapshot = next
	for _, sub := range v.subs {
		sub.push(next.clone())
	}
}

// Subscribe registers for snapshot updates. The returned channel yields
// every version published after the call, in order; cancel unsubscribes
// and closes it.
func (v *viewStore) Subscribe() (<-chan Snapshot, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextSub
	v.nextSub++
	sub := newViewSub()
	v.subs[id] = sub

	cancel := func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// viewSub queues published versions so a slow consumer delays nobody
// and still receives every version in order.
type viewSub struct {
	ch   chan Snapshot
	quit chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Snapshot
	closed  bool
}

func newViewSub() *viewSub {
	s := &viewSub{ch: make(chan Snapshot), quit: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.drain()
	return s
}

func (s *viewSub) push(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = append(s.pending, snap)
	s.cond.Signal()
}

func (s *viewSub) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.quit)
	s.cond.Signal()
}

func (s *viewSub) drain() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.ch <- next:
		case <-s.quit:
			return
		}
	}
}
