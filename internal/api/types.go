package api

import (
	"fmt"
	"time"
)

const serverTimestampLayout = "2006-01-02 15:04:05"

// Post is a feed entry as the server reports it, plus the client-local
// like flag and the caption list resolved by the sync engine.
type Post struct {
	ID           int
	AuthorID     int
	ImageURL     string
	CreatedAt    string
	LikeCount    int
	CaptionCount int
	Username     string
	Captions     []Caption
	LikedByUser  bool
}

// DisplayName returns the author's username, falling back to a
// synthesized name when the server omitted it.
func (p Post) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return fmt.Sprintf("User %d", p.AuthorID)
}

// ParsedCreatedAt returns the parsed creation timestamp.
func (p Post) ParsedCreatedAt() time.Time {
	return parseTime(p.CreatedAt)
}

// Caption is a crowd-sourced caption attached to a post.
type Caption struct {
	ID        int
	PostID    int
	AuthorID  int
	Text      string
	CreatedAt string
	LikeCount int
	Username  string
}

// ParsedCreatedAt returns the parsed creation timestamp.
func (c Caption) ParsedCreatedAt() time.Time {
	return parseTime(c.CreatedAt)
}

// Comment is a reply on a caption. Append-only from the client's view.
type Comment struct {
	ID        int    `json:"id"`
	CaptionID int    `json:"captionId"`
	AuthorID  int    `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// ParsedCreatedAt returns the parsed creation timestamp.
func (c Comment) ParsedCreatedAt() time.Time {
	return parseTime(c.CreatedAt)
}

// User mirrors the server's user record.
type User struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
	CreatedAt      string `json:"created_at"`
}

// Credentials carry the identity material the server demands on every
// mutating call.
type Credentials struct {
	UserID   int
	Password string
}

// PostCreated is the server's answer to a successful post upload.
type PostCreated struct {
	PostID    int    `json:"postId"`
	ImageName string `json:"imageName"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(serverTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
