package feed

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Hargou/captioncraft/internal/api"
	"github.com/Hargou/captioncraft/internal/session"
	"github.com/Hargou/captioncraft/internal/store"
)

// fakeGateway is an in-memory Gateway with per-operation failure
// injection and call counting.
type fakeGateway struct {
	mu sync.Mutex

	posts             []api.Post
	captionsByPost    map[int][]api.Caption
	commentsByCaption map[int][]api.Comment

	fetchPostsErr    error
	captionErrs      map[int]error
	likeCaptionErr   error
	likePostErr      error
	createCaptionErr error
	createCommentErr error
	fetchCommentsErr error
	createPostErr    error

	fetchPostsCalls  int
	captionFetches   map[int]int
	likeCaptionCalls int
	likePostCalls    int

	// fetchPostsHook, when set, runs inside FetchAllPosts with the
	// sequence number of the call (1-based), outside the lock.
	fetchPostsHook func(call int)
}

var _ api.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		captionsByPost:    make(map[int][]api.Caption),
		commentsByCaption: make(map[int][]api.Comment),
		captionErrs:       make(map[int]error),
		captionFetches:    make(map[int]int),
	}
}

func (g *fakeGateway) FetchAllPosts(ctx context.Context) ([]api.Post, error) {
	g.mu.Lock()
	g.fetchPostsCalls++
	call := g.fetchPostsCalls
	hook := g.fetchPostsHook
	err := g.fetchPostsErr
	posts := make([]api.Post, len(g.posts))
	copy(posts, g.posts)
	g.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (g *fakeGateway) FetchUserPosts(ctx context.Context, userID int) ([]api.Post, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []api.Post
	for _, p := range g.posts {
		if p.AuthorID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *fakeGateway) CreatePost(ctx context.Context, creds api.Credentials, imagePath, captionText string) (api.PostCreated, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createPostErr != nil {
		return api.PostCreated{}, g.createPostErr
	}
	id := 100 + len(g.posts)
	g.posts = append(g.posts, api.Post{
		ID: id, AuthorID: creds.UserID, CreatedAt: "2025-08-05 12:00:00", Username: "alice",
	})
	return api.PostCreated{PostID: id, ImageName: "fake.jpg"}, nil
}

func (g *fakeGateway) LikePost(ctx context.Context, creds api.Credentials, postID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.likePostCalls++
	return g.likePostErr
}

func (g *fakeGateway) FetchCaptions(ctx context.Context, postID int) ([]api.Caption, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captionFetches[postID]++
	if err := g.captionErrs[postID]; err != nil {
		return nil, err
	}
	captions := make([]api.Caption, len(g.captionsByPost[postID]))
	copy(captions, g.captionsByPost[postID])
	return captions, nil
}

func (g *fakeGateway) CreateCaption(ctx context.Context, creds api.Credentials, postID int, text string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createCaptionErr != nil {
		return 0, g.createCaptionErr
	}
	id := 1000 + len(g.captionsByPost[postID])
	g.captionsByPost[postID] = append(g.captionsByPost[postID], api.Caption{
		ID: id, PostID: postID, AuthorID: creds.UserID, Text: text,
	})
	return id, nil
}

func (g *fakeGateway) LikeCaption(ctx context.Context, creds api.Credentials, captionID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.likeCaptionCalls++
	return g.likeCaptionErr
}

func (g *fakeGateway) FetchComments(ctx context.Context, captionID int) ([]api.Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchCommentsErr != nil {
		return nil, g.fetchCommentsErr
	}
	comments := make([]api.Comment, len(g.commentsByCaption[captionID]))
	copy(comments, g.commentsByCaption[captionID])
	return comments, nil
}

func (g *fakeGateway) CreateComment(ctx context.Context, creds api.Credentials, captionID int, text string) (api.Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createCommentErr != nil {
		return api.Comment{}, g.createCommentErr
	}
	c := api.Comment{
		ID:        500 + len(g.commentsByCaption[captionID]),
		CaptionID: captionID,
		AuthorID:  creds.UserID,
		Username:  "alice",
		Text:      text,
	}
	g.commentsByCaption[captionID] = append(g.commentsByCaption[captionID], c)
	return c, nil
}

func (g *fakeGateway) Login(ctx context.Context, username, password string) (api.User, error) {
	return api.User{ID: 7, Username: username, Name: "Alice"}, nil
}

func (g *fakeGateway) Register(ctx context.Context, username, name, password string) error {
	return nil
}

func (g *fakeGateway) Health(ctx context.Context) error { return nil }

func (g *fakeGateway) captionFetchCount(postID int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.captionFetches[postID]
}

func (g *fakeGateway) postFetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchPostsCalls
}

func (g *fakeGateway) setFetchPostsErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchPostsErr = err
}

func (g *fakeGateway) setPosts(posts []api.Post) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.posts = posts
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestEngine wires an Engine and Mutator over a fresh cache with a
// logged-in session.
func newTestEngine(t *testing.T, gw *fakeGateway) (*Engine, *Mutator, *store.Store) {
	t.Helper()
	cache := newTestStore(t)
	sess := session.NewManager(gw, cache)
	if _, err := sess.Login(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	engine := NewEngine(gw, cache, sess)
	return engine, NewMutator(engine, gw, sess), cache
}

func findPost(t *testing.T, posts []api.Post, id int) api.Post {
	t.Helper()
	for _, p := range posts {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("post %d not in snapshot (%d posts)", id, len(posts))
	return api.Post{}
}
