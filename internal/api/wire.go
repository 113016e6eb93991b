package api

import (
	"encoding/json"
	"fmt"
)

// The server wraps every response in {status, message, data} and encodes
// list payloads as positional rows. All index knowledge lives in this
// file; the rest of the client only sees named fields. Short rows are
// recovered by substituting documented defaults, never by failing the
// whole fetch.

const statusOK = "green"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type row []json.RawMessage

// intAt reads the integer at idx, tolerating the float encoding JSON
// numbers arrive in. Returns def when the field is missing or unreadable.
func (r row) intAt(idx, def int) int {
	if idx >= len(r) || len(r[idx]) == 0 {
		return def
	}
	var f float64
	if err := json.Unmarshal(r[idx], &f); err != nil {
		return def
	}
	return int(f)
}

// strAt reads the string at idx, returning def when missing or null.
func (r row) strAt(idx int, def string) string {
	if idx >= len(r) || len(r[idx]) == 0 {
		return def
	}
	var s string
	if err := json.Unmarshal(r[idx], &s); err != nil {
		return def
	}
	return s
}

// Post rows: [id, authorId, imageName, createdAt, likeCount,
// ownerCaption, captionCount?, username?]. Index 5 is the uploader's own
// caption text, which the client does not display. The two trailing
// fields are optional.
func decodePostRow(r row, imageBase string) Post {
	return Post{
		ID:           r.intAt(0, -1),
		AuthorID:     r.intAt(1, -1),
		ImageURL:     imageBase + r.strAt(2, ""),
		CreatedAt:    r.strAt(3, ""),
		LikeCount:    r.intAt(4, 0),
		CaptionCount: r.intAt(6, 0),
		Username:     r.strAt(7, ""),
	}
}

// Caption rows: [id, postId, authorId, text, createdAt, likeCount,
// username?]. A missing username is replaced with "User {authorId}".
func decodeCaptionRow(r row) Caption {
	authorID := r.intAt(2, -1)
	return Caption{
		ID:        r.intAt(0, -1),
		PostID:    r.intAt(1, -1),
		AuthorID:  authorID,
		Text:      r.strAt(3, ""),
		CreatedAt: r.strAt(4, ""),
		LikeCount: r.intAt(5, 0),
		Username:  r.strAt(6, fmt.Sprintf("User %d", authorID)),
	}
}

func decodeRows(data json.RawMessage) ([]row, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
