package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gateway defines the remote calls the sync engine and mutator consume.
// This interface is implemented by *Client and can be used for testing.
type Gateway interface {
	FetchAllPosts(ctx context.Context) ([]Post, error)
	FetchUserPosts(ctx context.Context, userID int) ([]Post, error)
	CreatePost(ctx context.Context, creds Credentials, imagePath, captionText string) (PostCreated, error)
	LikePost(ctx context.Context, creds Credentials, postID int) error
	FetchCaptions(ctx context.Context, postID int) ([]Caption, error)
	CreateCaption(ctx context.Context, creds Credentials, postID int, text string) (int, error)
	LikeCaption(ctx context.Context, creds Credentials, captionID int) error
	FetchComments(ctx context.Context, captionID int) ([]Comment, error)
	CreateComment(ctx context.Context, creds Credentials, captionID int, text string) (Comment, error)
	Login(ctx context.Context, username, password string) (User, error)
	Register(ctx context.Context, username, name, password string) error
	Health(ctx context.Context) error
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

// Client talks to the CaptionCraft HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultUserAgent = "captioncraft/0.1"
	requestTimeout   = 10 * time.Second
	imagePathPrefix  = "/post/user_post_images/"
)

// NewClient builds a Client using the provided base address (host:port
// or full URL).
func NewClient(addr string) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// FetchAllPosts retrieves the full feed.
func (c *Client) FetchAllPosts(ctx context.Context) ([]Post, error) {
	return c.fetchPosts(ctx, &url.URL{Path: "/post"}, "fetch posts")
}

// FetchUserPosts retrieves the posts authored by a single user.
func (c *Client) FetchUserPosts(ctx context.Context, userID int) ([]Post, error) {
	values := url.Values{}
	values.Set("userId", strconv.Itoa(userID))
	rel := &url.URL{Path: "/post", RawQuery: values.Encode()}
	return c.fetchPosts(ctx, rel, "fetch user posts")
}

func (c *Client) fetchPosts(ctx context.Context, rel *url.URL, op string) ([]Post, error) {
	env, err := c.get(ctx, rel, op)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(env.Data)
	if err != nil {
		return nil, newError(KindMalformed, op, fmt.Errorf("decode response: %w", err))
	}
	base := c.baseURL.String() + imagePathPrefix
	posts := make([]Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, decodePostRow(r, base))
	}
	return posts, nil
}

// FetchCaptions retrieves the captions attached to a post.
func (c *Client) FetchCaptions(ctx context.Context, postID int) ([]Caption, error) {
	const op = "fetch captions"
	rel := &url.URL{Path: "/captions/post/" + strconv.Itoa(postID)}
	env, err := c.get(ctx, rel, op)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(env.Data)
	if err != nil {
		return nil, newError(KindMalformed, op, fmt.Errorf("decode response: %w", err))
	}
	captions := make([]Caption, 0, len(rows))
	for _, r := range rows {
		captions = append(captions, decodeCaptionRow(r))
	}
	return captions, nil
}

// CreateCaption submits a new caption and returns its server-assigned id.
func (c *Client) CreateCaption(ctx context.Context, creds Credentials, postID int, text string) (int, error) {
	const op = "create caption"
	body := map[string]any{
		"postId":   postID,
		"userId":   creds.UserID,
		"password": creds.Password,
		"text":     text,
	}
	env, err := c.postJSON(ctx, "/captions", body, op)
	if err != nil {
		return 0, err
	}
	var data struct {
		CaptionID int `json:"captionId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, newError(KindMalformed, op, fmt.Errorf("decode response: %w", err))
	}
	return data.CaptionID, nil
}

// LikeCaption toggles the caller's like on a caption. The server tracks
// per-user like state; the client mirrors it locally without re-querying.
func (c *Client) LikeCaption(ctx context.Context, creds Credentials, captionID int) error {
	body := map[string]any{
		"captionId": captionID,
		"userId":    creds.UserID,
		"password":  creds.Password,
	}
	_, err := c.postJSON(ctx, "/captions/like", body, "like caption")
	return err
}

// LikePost toggles the caller's like on a post.
func (c *Client) LikePost(ctx context.Context, creds Credentials, postID int) error {
	body := map[string]any{
		"postId":   postID,
		"userId":   creds.UserID,
		"password": creds.Password,
	}
	_, err := c.postJSON(ctx, "/post/like", body, "like post")
	return err
}

// FetchComments retrieves the comments on a caption.
func (c *Client) FetchComments(ctx context.Context, captionID int) ([]Comment, error) {
	const op = "fetch comments"
	rel := &url.URL{Path: "/captions/comments/" + strconv.Itoa(captionID)}
	var comments []Comment
	if err := c.doJSON(ctx, http.MethodGet, rel, nil, &comments, op); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment submits a comment and returns the stored record.
func (c *Client) CreateComment(ctx context.Context, creds Credentials, captionID int, text string) (Comment, error) {
	const op = "create comment"
	body := map[string]any{
		"captionId": captionID,
		"userId":    creds.UserID,
		"password":  creds.Password,
		"text":      text,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Comment{}, newError(KindMalformed, op, err)
	}
	var comment Comment
	rel := &url.URL{Path: "/captions/comment"}
	if err := c.doJSON(ctx, http.MethodPost, rel, bytes.NewReader(payload), &comment, op); err != nil {
		return Comment{}, err
	}
	return comment, nil
}

// CreatePost uploads an image with an optional caption from its author.
func (c *Client) CreatePost(ctx context.Context, creds Credentials, imagePath, captionText string) (PostCreated, error) {
	const op = "create post"

	file, err := os.Open(imagePath)
	if err != nil {
		return PostCreated{}, newError(KindTransient, op, fmt.Errorf("open image: %w", err))
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("userId", strconv.Itoa(creds.UserID))
	_ = w.WriteField("password", creds.Password)
	if captionText != "" {
		_ = w.WriteField("userCaptionText", captionText)
	}
	part, err := w.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return PostCreated{}, newError(KindTransient, op, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return PostCreated{}, newError(KindTransient, op, fmt.Errorf("read image: %w", err))
	}
	if err := w.Close(); err != nil {
		return PostCreated{}, newError(KindTransient, op, err)
	}

	rel := &url.URL{Path: "/post/create"}
	env, err := c.do(ctx, http.MethodPost, rel, &buf, w.FormDataContentType(), op)
	if err != nil {
		return PostCreated{}, err
	}
	var created PostCreated
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return PostCreated{}, newError(KindMalformed, op, fmt.Errorf("decode response: %w", err))
	}
	return created, nil
}

// Login exchanges credentials for the caller's user record.
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	const op = "login"
	body := map[string]any{
		"username": username,
		"password": password,
	}
	env, err := c.postJSON(ctx, "/login", body, op)
	if err != nil {
		return User{}, err
	}
	var user User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return User{}, newError(KindMalformed, op, fmt.Errorf("decode response: %w", err))
	}
	return user, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, name, password string) error {
	body := map[string]any{
		"username": username,
		"name":     name,
		"password": password,
	}
	_, err := c.postJSON(ctx, "/register", body, "register")
	return err
}

// Health probes the API root to confirm the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	const op = "health check"
	rel := &url.URL{Path: "/"}
	req, err := c.newRequest(ctx, http.MethodGet, rel, nil, "")
	if err != nil {
		return newError(KindTransient, op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return newError(KindTransient, op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return newError(KindTransient, op, fmt.Errorf("api / returned status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) get(ctx context.Context, rel *url.URL, op string) (envelope, error) {
	return c.do(ctx, http.MethodGet, rel, nil, "", op)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, op string) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, newError(KindMalformed, op, err)
	}
	rel := &url.URL{Path: path}
	return c.do(ctx, http.MethodPost, rel, bytes.NewReader(payload), "application/json", op)
}

// do executes a request and decodes the {status, message, data} envelope.
func (c *Client) do(ctx context.Context, method string, rel *url.URL, body io.Reader, contentType, op string) (envelope, error) {
	req, err := c.newRequest(ctx, method, rel, body, contentType)
	if err != nil {
		return envelope{}, newError(KindTransient, op, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, newError(KindTransient, op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return envelope{}, newError(KindAuth, op, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return envelope{}, newError(KindTransient, op, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, newError(KindMalformed, op, fmt.Errorf("decode response: %w", err))
	}
	if env.Status != statusOK {
		return envelope{}, newError(rejectionKind(rel.Path), op, fmt.Errorf("api %s rejected request: %s", rel.Path, env.Message))
	}
	return env, nil
}

// rejectionKind maps a non-ok envelope to an error kind. Only the
// credential endpoints signal rejection through the envelope status;
// elsewhere a rejection is a server-side refusal worth retrying, not a
// reason to drop the session.
func rejectionKind(path string) Kind {
	switch path {
	case "/login", "/register":
		return KindAuth
	}
	return KindTransient
}

// doJSON executes a request whose response is a bare JSON document
// rather than the positional envelope.
func (c *Client) doJSON(ctx context.Context, method string, rel *url.URL, body io.Reader, dest any, op string) error {
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, rel, body, contentType)
	if err != nil {
		return newError(KindTransient, op, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return newError(KindTransient, op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return newError(KindAuth, op, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return newError(KindTransient, op, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return newError(KindMalformed, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body io.Reader, contentType string) (*http.Request, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return nil, fmt.Errorf("server address is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server address %q: %w", addr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
