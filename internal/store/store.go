// Package store persists the feed cache in a local SQLite database.
// It is the durable mirror the sync engine falls back to when the
// network is unavailable.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Hargou/captioncraft/internal/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id            INTEGER PRIMARY KEY,
	author_id     INTEGER NOT NULL,
	image_url     TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	like_count    INTEGER NOT NULL DEFAULT 0,
	caption_count INTEGER NOT NULL DEFAULT 0,
	username      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY,
	username        TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	profile_picture TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS current_user (
	slot    INTEGER PRIMARY KEY CHECK (slot = 0),
	user_id INTEGER NOT NULL REFERENCES users(id)
);
`

// Store is the local row store. All writes notify active subscribers
// after they commit, so readers always observe a fully applied change.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// A single connection serializes writers and keeps replace-all
	// atomic with respect to readers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Store{db: db, subs: make(map[int]chan struct{})}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceAllPosts replaces the whole cached post set in one transaction.
// A concurrent read observes either the old set or the new set, never a mix.
func (s *Store) ReplaceAllPosts(ctx context.Context, posts []api.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}
	for _, p := range posts {
		if err := insertPost(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	s.notify()
	return nil
}

// UpsertPost inserts or replaces a single post row.
func (s *Store) UpsertPost(ctx context.Context, p api.Post) error {
	if err := insertPost(ctx, s.db, p); err != nil {
		return err
	}
	s.notify()
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPost(ctx context.Context, db execer, p api.Post) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO posts
			(id, author_id, image_url, created_at, like_count, caption_count, username)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.ImageURL, p.CreatedAt, p.LikeCount, p.CaptionCount, p.Username)
	if err != nil {
		return fmt.Errorf("write post %d: %w", p.ID, err)
	}
	return nil
}

// AllPosts returns every cached post, newest first.
func (s *Store) AllPosts(ctx context.Context) ([]api.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, image_url, created_at, like_count, caption_count, username
		FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("read posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []api.Post
	for rows.Next() {
		var p api.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.ImageURL, &p.CreatedAt,
			&p.LikeCount, &p.CaptionCount, &p.Username); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// PostByID returns the cached post with the given id, if present.
func (s *Store) PostByID(ctx context.Context, id int) (api.Post, bool, error) {
	var p api.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, image_url, created_at, like_count, caption_count, username
		FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.AuthorID, &p.ImageURL, &p.CreatedAt,
			&p.LikeCount, &p.CaptionCount, &p.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Post{}, false, nil
	}
	if err != nil {
		return api.Post{}, false, fmt.Errorf("read post %d: %w", id, err)
	}
	return p, true, nil
}

// DeleteAllPosts empties the post cache.
func (s *Store) DeleteAllPosts(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	s.notify()
	return nil
}

// SetCurrentUser records u and marks it as the signed-in identity.
func (s *Store) SetCurrentUser(ctx context.Context, u api.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (id, username, name, profile_picture, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, u.ProfilePicture, u.CreatedAt); err != nil {
		return fmt.Errorf("write user %d: %w", u.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO current_user (slot, user_id) VALUES (0, ?)`, u.ID); err != nil {
		return fmt.Errorf("write session slot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session write: %w", err)
	}
	s.notify()
	return nil
}

// CurrentUser returns the signed-in identity, if any.
func (s *Store) CurrentUser(ctx context.Context) (api.User, bool, error) {
	var u api.User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.name, u.profile_picture, u.created_at
		FROM current_user c JOIN users u ON u.id = c.user_id
		WHERE c.slot = 0`).
		Scan(&u.ID, &u.Username, &u.Name, &u.ProfilePicture, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return api.User{}, false, nil
	}
	if err != nil {
		return api.User{}, false, fmt.Errorf("read session: %w", err)
	}
	return u, true, nil
}

// ClearCurrentUser signs the identity out.
func (s *Store) ClearCurrentUser(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM current_user`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.notify()
	return nil
}

// Subscribe registers for change notifications. Every committed write
// signals the returned channel; call cancel to unsubscribe.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return ch, cancel
}

// notify wakes subscribers without blocking; a pending signal already
// covers the new change.
func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
