package feed

import (
	"context"
	"log"
	"time"

	"github.com/Hargou/captioncraft/internal/api"
	"github.com/Hargou/captioncraft/internal/session"
)

// Mutator applies user actions to the feed view before the network
// confirms them. Every attempt terminates in exactly one of two states:
// confirmed (the optimistic change stands) or rolled back (the prior
// snapshot is restored verbatim).
type Mutator struct {
	engine  *Engine
	gateway api.Gateway
	session *session.Manager
}

// NewMutator builds a Mutator sharing the engine's view.
func NewMutator(engine *Engine, gateway api.Gateway, sess *session.Manager) *Mutator {
	return &Mutator{engine: engine, gateway: gateway, session: sess}
}

// ToggleCaptionLike flips the caller's like on a caption with immediate
// local feedback. A remote failure restores the retained prior snapshot
// wholesale, not field by field, so interleaved mutations cannot leave
// partial state behind.
func (m *Mutator) ToggleCaptionLike(ctx context.Context, captionID int) error {
	creds, err := m.session.Credentials()
	if err != nil {
		m.surface(err)
		return err
	}

	prev := m.engine.view.Apply(func(s Snapshot) Snapshot {
		if s.LikedCaptions == nil {
			s.LikedCaptions = make(map[int]struct{})
		}
		if _, wasLiked := s.LikedCaptions[captionID]; wasLiked {
			delete(s.LikedCaptions, captionID)
			s.Posts = adjustCaptionLikes(s.Posts, captionID, -1)
		} else {
			s.LikedCaptions[captionID] = struct{}{}
			s.Posts = adjustCaptionLikes(s.Posts, captionID, +1)
		}
		return s
	})

	if err := m.gateway.LikeCaption(ctx, creds, captionID); err != nil {
		prev.Err = err.Error()
		m.engine.view.Apply(func(Snapshot) Snapshot { return prev })
		return err
	}
	return nil
}

// TogglePostLike flips the caller's like on a post. The optimistic
// change is kept even when the remote call fails; only the error
// message surfaces. Caption likes roll back, post likes do not; the
// upstream service behaves this way and the difference is preserved.
func (m *Mutator) TogglePostLike(ctx context.Context, postID int) error {
	creds, err := m.session.Credentials()
	if err != nil {
		m.surface(err)
		return err
	}

	var updated api.Post
	var found bool
	m.engine.view.Apply(func(s Snapshot) Snapshot {
		if s.LikedPosts == nil {
			s.LikedPosts = make(map[int]struct{})
		}
		delta := +1
		if _, wasLiked := s.LikedPosts[postID]; wasLiked {
			delete(s.LikedPosts, postID)
			delta = -1
		} else {
			s.LikedPosts[postID] = struct{}{}
		}
		for i := range s.Posts {
			if s.Posts[i].ID == postID {
				s.Posts[i].LikeCount = floorZero(s.Posts[i].LikeCount + delta)
				_, s.Posts[i].LikedByUser = s.LikedPosts[postID]
				updated = s.Posts[i]
				found = true
				break
			}
		}
		return s
	})

	// Keep the cached row in step so the next cache read agrees with
	// what the user already sees.
	if found {
		if err := m.engine.cache.UpsertPost(ctx, updated); err != nil {
			log.Printf("post like cache write failed for post %d: %v", postID, err)
		}
	}

	if err := m.gateway.LikePost(ctx, creds, postID); err != nil {
		m.surface(err)
		return err
	}
	return nil
}

// AddCaption submits a new caption. No optimistic caption is
// synthesized: the server owns the new id, so success evicts the post's
// caption-cache entry and reloads the feed through the normal merge path.
func (m *Mutator) AddCaption(ctx context.Context, postID int, text string) error {
	creds, err := m.session.Credentials()
	if err != nil {
		m.surface(err)
		return err
	}

	if _, err := m.gateway.CreateCaption(ctx, creds, postID, text); err != nil {
		m.surface(err)
		return err
	}

	m.engine.captions.Evict(postID)
	return m.engine.LoadFeed(ctx)
}

// AddComment submits a comment and appends the server-returned record.
// The append happens only after remote success; there is no optimistic
// comment and therefore no rollback path.
func (m *Mutator) AddComment(ctx context.Context, captionID int, text string) error {
	creds, err := m.session.Credentials()
	if err != nil {
		m.surface(err)
		return err
	}

	comment, err := m.gateway.CreateComment(ctx, creds, captionID, text)
	if err != nil {
		m.surface(err)
		return err
	}

	m.engine.view.Apply(func(s Snapshot) Snapshot {
		if s.CommentsByCaption == nil {
			s.CommentsByCaption = make(map[int][]api.Comment)
		}
		s.CommentsByCaption[captionID] = append(s.CommentsByCaption[captionID], comment)
		return s
	})
	return nil
}

// LoadComments fetches a caption's comments and expands them in the view.
func (m *Mutator) LoadComments(ctx context.Context, captionID int) error {
	comments, err := m.gateway.FetchComments(ctx, captionID)
	if err != nil {
		m.surface(err)
		return err
	}

	m.engine.view.Apply(func(s Snapshot) Snapshot {
		if s.CommentsByCaption == nil {
			s.CommentsByCaption = make(map[int][]api.Comment)
		}
		s.CommentsByCaption[captionID] = comments
		s.OpenCaption = captionID
		return s
	})
	return nil
}

// HideComments collapses the expanded caption, if any.
func (m *Mutator) HideComments() {
	m.engine.view.Apply(func(s Snapshot) Snapshot {
		s.OpenCaption = 0
		return s
	})
}

// CreatePost uploads an image post. On success a provisional row is
// cached (the server assigned the id) and the feed reloads so the post
// arrives through the normal merge path.
func (m *Mutator) CreatePost(ctx context.Context, imagePath, captionText string) error {
	creds, err := m.session.Credentials()
	if err != nil {
		m.surface(err)
		return err
	}

	created, err := m.gateway.CreatePost(ctx, creds, imagePath, captionText)
	if err != nil {
		m.surface(err)
		return err
	}

	user, _ := m.session.Current()
	captionCount := 0
	if captionText != "" {
		captionCount = 1
	}
	provisional := api.Post{
		ID:           created.PostID,
		AuthorID:     creds.UserID,
		CreatedAt:    time.Now().Format("2006-01-02 15:04:05"),
		CaptionCount: captionCount,
		Username:     user.Username,
	}
	if err := m.engine.cache.UpsertPost(ctx, provisional); err != nil {
		log.Printf("provisional post cache write failed: %v", err)
	}

	return m.engine.LoadFeed(ctx)
}

// surface attaches an error message to the view without touching data.
func (m *Mutator) surface(err error) {
	m.engine.view.Apply(func(s Snapshot) Snapshot {
		s.Err = err.Error()
		return s
	})
}

func adjustCaptionLikes(posts []api.Post, captionID, delta int) []api.Post {
	for i := range posts {
		for j := range posts[i].Captions {
			if posts[i].Captions[j].ID == captionID {
				posts[i].Captions[j].LikeCount = floorZero(posts[i].Captions[j].LikeCount + delta)
				return posts
			}
		}
	}
	return posts
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
