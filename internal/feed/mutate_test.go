package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/Hargou/captioncraft/internal/api"
	"github.com/Hargou/captioncraft/internal/session"
	"github.com/Hargou/captioncraft/internal/store"
)

func loadedEngine(t *testing.T, gw *fakeGateway) (*Engine, *Mutator, *store.Store) {
	t.Helper()
	engine, mutator, cache := newTestEngine(t, gw)
	if err := engine.LoadFeed(context.Background()); err != nil {
		t.Fatalf("LoadFeed() error = %v", err)
	}
	return engine, mutator, cache
}

func TestMutator_ToggleCaptionLikeAppliesImmediately(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	gw.captionsByPost[1] = []api.Caption{{ID: 10, PostID: 1, Text: "nice", LikeCount: 5}}
	engine, mutator, _ := loadedEngine(t, gw)

	if err := mutator.ToggleCaptionLike(context.Background(), 10); err != nil {
		t.Fatalf("ToggleCaptionLike() error = %v", err)
	}
	snap := engine.Snapshot()
	if !snap.CaptionLiked(10) {
		t.Fatal("CaptionLiked(10) = false after like")
	}
	p := findPost(t, snap.Posts, 1)
	if p.Captions[0].LikeCount != 6 {
		t.Fatalf("LikeCount = %d, want 6", p.Captions[0].LikeCount)
	}

	if err := mutator.ToggleCaptionLike(context.Background(), 10); err != nil {
		t.Fatalf("second ToggleCaptionLike() error = %v", err)
	}
	snap = engine.Snapshot()
	if snap.CaptionLiked(10) {
		t.Fatal("CaptionLiked(10) = true after unlike")
	}
	p = findPost(t, snap.Posts, 1)
	if p.Captions[0].LikeCount != 5 {
		t.Fatalf("LikeCount = %d, want 5 after unlike", p.Captions[0].LikeCount)
	}
}

func TestMutator_CaptionLikeRollsBackOnFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	gw.captionsByPost[1] = []api.Caption{{ID: 10, PostID: 1, Text: "nice", LikeCount: 5}}
	engine, mutator, _ := loadedEngine(t, gw)

	gw.likeCaptionErr = errors.New("server said no")
	if err := mutator.ToggleCaptionLike(context.Background(), 10); err == nil {
		t.Fatal("ToggleCaptionLike() error = nil, want failure")
	}

	snap := engine.Snapshot()
	if snap.CaptionLiked(10) {
		t.Fatal("CaptionLiked(10) = true after rollback")
	}
	p := findPost(t, snap.Posts, 1)
	if p.Captions[0].LikeCount != 5 {
		t.Fatalf("LikeCount = %d, want 5 restored", p.Captions[0].LikeCount)
	}
	if snap.Err == "" {
		t.Fatal("Err empty, want failure surfaced")
	}
}

func TestMutator_CaptionUnlikeFloorsAtZero(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	gw.captionsByPost[1] = []api.Caption{{ID: 10, PostID: 1, Text: "nice", LikeCount: 0}}
	engine, mutator, _ := loadedEngine(t, gw)

	// A server refresh can hand back a zero count while the local like
	// is still set; the unlike must not go negative.
	engine.view.Apply(func(s Snapshot) Snapshot {
		s.LikedCaptions = map[int]struct{}{10: {}}
		return s
	})

	if err := mutator.ToggleCaptionLike(context.Background(), 10); err != nil {
		t.Fatalf("ToggleCaptionLike() error = %v", err)
	}
	p := findPost(t, engine.Snapshot().Posts, 1)
	if p.Captions[0].LikeCount != 0 {
		t.Fatalf("LikeCount = %d, want floor at 0", p.Captions[0].LikeCount)
	}
}

func TestMutator_PostLikeKeptOnFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	engine, mutator, cache := loadedEngine(t, gw)

	gw.likePostErr = errors.New("timeout")
	if err := mutator.TogglePostLike(context.Background(), 1); err == nil {
		t.Fatal("TogglePostLike() error = nil, want failure")
	}

	snap := engine.Snapshot()
	if !snap.PostLiked(1) {
		t.Fatal("PostLiked(1) = false, want optimistic like kept on failure")
	}
	p := findPost(t, snap.Posts, 1)
	if p.LikeCount != 4 {
		t.Fatalf("LikeCount = %d, want 4 kept", p.LikeCount)
	}
	if !p.LikedByUser {
		t.Fatal("LikedByUser = false, want true")
	}
	if snap.Err == "" {
		t.Fatal("Err empty, want failure surfaced")
	}

	row, found, err := cache.PostByID(context.Background(), 1)
	if err != nil || !found {
		t.Fatalf("PostByID(1) = found %v, err %v", found, err)
	}
	if row.LikeCount != 4 {
		t.Fatalf("cached LikeCount = %d, want 4", row.LikeCount)
	}
}

func TestMutator_PostUnlikeDecrements(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	engine, mutator, _ := loadedEngine(t, gw)

	if err := mutator.TogglePostLike(context.Background(), 2); err != nil {
		t.Fatalf("TogglePostLike() error = %v", err)
	}
	if err := mutator.TogglePostLike(context.Background(), 2); err != nil {
		t.Fatalf("second TogglePostLike() error = %v", err)
	}

	snap := engine.Snapshot()
	if snap.PostLiked(2) {
		t.Fatal("PostLiked(2) = true after unlike")
	}
	p := findPost(t, snap.Posts, 2)
	if p.LikeCount != 0 {
		t.Fatalf("LikeCount = %d, want back to 0", p.LikeCount)
	}
}

func TestMutator_AddCaptionEvictsAndReloads(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	gw.captionsByPost[1] = []api.Caption{{ID: 10, PostID: 1, Text: "old"}}
	engine, mutator, _ := loadedEngine(t, gw)

	fetchesBefore := gw.postFetchCount()
	if err := mutator.AddCaption(context.Background(), 1, "fresh take"); err != nil {
		t.Fatalf("AddCaption() error = %v", err)
	}

	if got := gw.captionFetchCount(1); got != 2 {
		t.Fatalf("caption fetches for post 1 = %d, want 2 (cache evicted)", got)
	}
	if got := gw.postFetchCount(); got != fetchesBefore+1 {
		t.Fatalf("post fetches = %d, want %d (feed reloaded)", got, fetchesBefore+1)
	}
	p := findPost(t, engine.Snapshot().Posts, 1)
	if len(p.Captions) != 2 {
		t.Fatalf("captions = %d, want 2 including the new one", len(p.Captions))
	}
}

func TestMutator_AddCaptionFailureLeavesFeedAlone(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	gw.captionsByPost[1] = []api.Caption{{ID: 10, PostID: 1, Text: "old"}}
	engine, mutator, _ := loadedEngine(t, gw)

	fetchesBefore := gw.postFetchCount()
	gw.createCaptionErr = errors.New("rejected")
	if err := mutator.AddCaption(context.Background(), 1, "nope"); err == nil {
		t.Fatal("AddCaption() error = nil, want failure")
	}

	if got := gw.postFetchCount(); got != fetchesBefore {
		t.Fatalf("post fetches = %d, want %d (no reload on failure)", got, fetchesBefore)
	}
	snap := engine.Snapshot()
	if snap.Err == "" {
		t.Fatal("Err empty, want failure surfaced")
	}
	p := findPost(t, snap.Posts, 1)
	if len(p.Captions) != 1 {
		t.Fatalf("captions = %d, want unchanged 1", len(p.Captions))
	}
}

func TestMutator_AddCommentAppendsServerRecord(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	engine, mutator, _ := loadedEngine(t, gw)

	if err := mutator.AddComment(context.Background(), 10, "agreed"); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}

	comments := engine.Snapshot().CommentsByCaption[10]
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(comments))
	}
	if comments[0].Text != "agreed" || comments[0].AuthorID != 7 {
		t.Fatalf("comment = %+v, want server record with author 7", comments[0])
	}
}

func TestMutator_AddCommentFailureAppendsNothing(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	engine, mutator, _ := loadedEngine(t, gw)

	gw.createCommentErr = errors.New("rejected")
	if err := mutator.AddComment(context.Background(), 10, "agreed"); err == nil {
		t.Fatal("AddComment() error = nil, want failure")
	}
	if got := len(engine.Snapshot().CommentsByCaption[10]); got != 0 {
		t.Fatalf("comments = %d, want 0 (no optimistic comment)", got)
	}
}

func TestMutator_LoadAndHideComments(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	gw.commentsByCaption[10] = []api.Comment{
		{ID: 500, CaptionID: 10, AuthorID: 8, Username: "bob", Text: "ha"},
		{ID: 501, CaptionID: 10, AuthorID: 7, Username: "alice", Text: "indeed"},
	}
	engine, mutator, _ := loadedEngine(t, gw)

	if err := mutator.LoadComments(context.Background(), 10); err != nil {
		t.Fatalf("LoadComments() error = %v", err)
	}
	snap := engine.Snapshot()
	if snap.OpenCaption != 10 {
		t.Fatalf("OpenCaption = %d, want 10", snap.OpenCaption)
	}
	if len(snap.CommentsByCaption[10]) != 2 {
		t.Fatalf("comments = %d, want 2", len(snap.CommentsByCaption[10]))
	}

	mutator.HideComments()
	if got := engine.Snapshot().OpenCaption; got != 0 {
		t.Fatalf("OpenCaption = %d, want 0 after hide", got)
	}
}

func TestMutator_CreatePostReloadsWithNewRow(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	engine, mutator, cache := loadedEngine(t, gw)

	fetchesBefore := gw.postFetchCount()
	if err := mutator.CreatePost(context.Background(), "/tmp/cat.jpg", "look at this"); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	if got := gw.postFetchCount(); got != fetchesBefore+1 {
		t.Fatalf("post fetches = %d, want %d (feed reloaded)", got, fetchesBefore+1)
	}
	p := findPost(t, engine.Snapshot().Posts, 102)
	if p.AuthorID != 7 {
		t.Fatalf("AuthorID = %d, want 7", p.AuthorID)
	}
	if _, found, err := cache.PostByID(context.Background(), 102); err != nil || !found {
		t.Fatalf("PostByID(102) = found %v, err %v", found, err)
	}
}

func TestMutator_MutationsRequireSession(t *testing.T) {
	gw := newFakeGateway()
	gw.setPosts(twoPosts())
	cache := newTestStore(t)
	sess := session.NewManager(gw, cache)
	engine := NewEngine(gw, cache, sess)
	mutator := NewMutator(engine, gw, sess)

	if err := mutator.ToggleCaptionLike(context.Background(), 10); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("ToggleCaptionLike() error = %v, want ErrNotAuthenticated", err)
	}
	if err := mutator.TogglePostLike(context.Background(), 1); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("TogglePostLike() error = %v, want ErrNotAuthenticated", err)
	}
	if err := mutator.AddCaption(context.Background(), 1, "hi"); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("AddCaption() error = %v, want ErrNotAuthenticated", err)
	}
	if gw.likeCaptionCalls != 0 || gw.likePostCalls != 0 {
		t.Fatal("gateway reached without a session")
	}
}
