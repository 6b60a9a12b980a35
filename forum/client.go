// Package forum is a typed client for the forum REST API. Reads go through
// refetch executors, one per logical data need, so that repeated renders of
// the same feed are served from the cache. Writes always go straight to the
// network. Authentication state lives in an injected session store and only
// moves through the session package's transitions.
package forum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/creativecreature/refetch"
	"github.com/creativecreature/refetch/session"
)

// ErrNotAuthenticated is returned by operations that need a token when the
// session store doesn't hold an authenticated session.
var ErrNotAuthenticated = errors.New("forum: not authenticated")

// Client talks to the forum backend.
type Client struct {
	cfg       Config
	store     session.Store
	transport *http.Client
	log       refetch.Logger
	clock     refetch.Clock

	posts *refetch.Executor[[]Post]

	commentsMu sync.Mutex
	comments   map[int64]*refetch.Executor[[]Comment]

	// refresh collapses concurrent token refreshes into a single request.
	refresh singleflight.Group
}

// ClientOption allows for additional configuration to be applied to the client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client and its executors.
func WithLogger(log refetch.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithClock can be used to change the clock that the client uses. This is
// useful for testing.
func WithClock(clock refetch.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a forum client. The session store is a required
// collaborator; pass a session.MemoryStore if logins shouldn't outlive
// the process.
func NewClient(cfg Config, store session.Store, opts ...ClientOption) *Client {
	c := &Client{
		cfg:       cfg,
		store:     store,
		transport: &http.Client{Timeout: cfg.Timeout},
		log:       refetch.NewNoopLogger(),
		clock:     refetch.NewClock(),
		comments:  make(map[int64]*refetch.Executor[[]Comment]),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.posts = refetch.New[[]Post](
		c.url("/posts"),
		refetch.RequestOptions{},
		cfg.TTL,
		refetch.WithHTTPClient(c.transport),
		refetch.WithLogger(c.log),
		refetch.WithClock(c.clock),
	)
	return c
}

// Close tears down every executor the client owns.
func (c *Client) Close() {
	c.posts.Close()
	c.commentsMu.Lock()
	defer c.commentsMu.Unlock()
	for _, executor := range c.comments {
		executor.Close()
	}
}

// Posts returns the post feed, served from the cache when it is fresh.
func (c *Client) Posts(ctx context.Context) ([]Post, error) {
	return c.posts.Execute(ctx, c.url("/posts"), refetch.RequestOptions{})
}

// RefreshPosts forces a network round trip for the post feed.
func (c *Client) RefreshPosts(ctx context.Context) ([]Post, error) {
	return c.posts.Refetch(ctx)
}

// Comments returns the comments for a post, served from the cache when they
// are fresh.
func (c *Client) Comments(ctx context.Context, postID int64) ([]Comment, error) {
	return c.commentsExecutor(postID).Execute(
		ctx, c.url("/posts/"+strconv.FormatInt(postID, 10)+"/comments"), refetch.RequestOptions{},
	)
}

// RefreshComments forces a network round trip for a post's comments.
func (c *Client) RefreshComments(ctx context.Context, postID int64) ([]Comment, error) {
	return c.commentsExecutor(postID).Refetch(ctx)
}

// commentsExecutor returns the executor for a post's comments, creating it
// on first use. One executor per post keeps the one-request-in-flight rule
// scoped to the data need it belongs to.
func (c *Client) commentsExecutor(postID int64) *refetch.Executor[[]Comment] {
	c.commentsMu.Lock()
	defer c.commentsMu.Unlock()

	if executor, ok := c.comments[postID]; ok {
		return executor
	}

	executor := refetch.New[[]Comment](
		c.url("/posts/"+strconv.FormatInt(postID, 10)+"/comments"),
		refetch.RequestOptions{},
		c.cfg.TTL,
		refetch.WithHTTPClient(c.transport),
		refetch.WithLogger(c.log),
		refetch.WithClock(c.clock),
	)
	c.comments[postID] = executor
	return executor
}

// CreatePost publishes a new post. Requires an authenticated session.
func (c *Client) CreatePost(ctx context.Context, title, body string) (Post, error) {
	var post Post
	err := c.do(ctx, http.MethodPost, "/posts", newPost{Title: title, Body: body}, &post, true)
	return post, err
}

// AddComment adds a comment to a post. Requires an authenticated session.
func (c *Client) AddComment(ctx context.Context, postID int64, body string) (Comment, error) {
	var comment Comment
	path := "/posts/" + strconv.FormatInt(postID, 10) + "/comments"
	err := c.do(ctx, http.MethodPost, path, newComment{Body: body}, &comment, true)
	return comment, err
}

// React records a reaction on a post. Requires an authenticated session.
func (c *Client) React(ctx context.Context, postID int64, kind string) error {
	path := "/posts/" + strconv.FormatInt(postID, 10) + "/reactions"
	return c.do(ctx, http.MethodPost, path, newReaction{Kind: kind}, nil, true)
}

// Login performs a login attempt and records every step of it in the
// session store: Authenticating while the request is out, Authenticated or
// Failed once it resolves. The returned session is the stored one.
func (c *Client) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	current, _ := c.store.Load()
	attempt, err := session.Begin(current)
	if err != nil {
		return current, err
	}
	if err := c.store.Save(attempt); err != nil {
		return attempt, err
	}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp, false); err != nil {
		rejected, transitionErr := session.Reject(attempt, err.Error())
		if transitionErr != nil {
			return attempt, transitionErr
		}
		if saveErr := c.store.Save(rejected); saveErr != nil {
			return rejected, saveErr
		}
		return rejected, err
	}

	authenticated, err := session.Authenticate(attempt, resp.Token, resp.UserID, c.clock.Now())
	if err != nil {
		return attempt, err
	}
	if err := c.store.Save(authenticated); err != nil {
		return authenticated, err
	}
	return authenticated, nil
}

// Logout resets the session and clears the store.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// Session returns the stored session, or an anonymous one if the store is
// empty.
func (c *Client) Session() session.Session {
	s, ok := c.store.Load()
	if !ok {
		return session.Session{Status: session.Anonymous}
	}
	return s
}

// token returns a token that is fresh enough to use, refreshing it through
// the API when it has passed its max age. Concurrent callers share a single
// refresh request.
func (c *Client) token(ctx context.Context) (string, error) {
	s, ok := c.store.Load()
	if !ok || s.Status != session.Authenticated {
		return "", ErrNotAuthenticated
	}
	if !c.tokenExpired(s) {
		return s.Token, nil
	}

	value, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		// Another caller may have refreshed while we waited for the flight.
		if s, ok := c.store.Load(); ok && s.Status == session.Authenticated && !c.tokenExpired(s) {
			return s.Token, nil
		}
		return c.refreshToken(ctx, s)
	})
	if err != nil {
		return "", err
	}
	//nolint:forcetypeassert // The flight only ever stores strings.
	return value.(string), nil
}

func (c *Client) refreshToken(ctx context.Context, s session.Session) (string, error) {
	attempt, err := session.Begin(s)
	if err != nil {
		return "", err
	}

	var resp authResponse
	req := refreshRequest{Token: s.Token}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", req, &resp, false); err != nil {
		rejected, transitionErr := session.Reject(attempt, err.Error())
		if transitionErr != nil {
			return "", transitionErr
		}
		if saveErr := c.store.Save(rejected); saveErr != nil {
			return "", saveErr
		}
		return "", err
	}

	authenticated, err := session.Authenticate(attempt, resp.Token, resp.UserID, c.clock.Now())
	if err != nil {
		return "", err
	}
	if err := c.store.Save(authenticated); err != nil {
		return "", err
	}
	c.log.Debugf("forum: refreshed auth token for user %s", resp.UserID)
	return resp.Token, nil
}

type refreshRequest struct {
	Token string `json:"token"`
}

func (c *Client) tokenExpired(s session.Session) bool {
	return c.clock.Now().After(s.IssuedAt.Add(c.cfg.TokenMaxAge))
}

func (c *Client) url(path string) string {
	return c.cfg.BaseURL + path
}

// do performs an uncached round trip. Non-2xx responses come back as a
// *refetch.RequestError so that callers handle failures from reads and
// writes the same way.
func (c *Client) do(ctx context.Context, method, path string, payload, out any, authed bool) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("forum: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("forum: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return fmt.Errorf("forum: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		//nolint:errcheck
		io.Copy(io.Discard, resp.Body)
		return &refetch.RequestError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("forum: decode response: %w", err)
	}
	return nil
}
