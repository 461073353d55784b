// Package api talks to the Bookshelf HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwalsh/bookshelf/internal/library"
)

// Bookshelf defines the operations the backend exposes. It is implemented
// by *Client and can be substituted in tests.
type Bookshelf interface {
	Login(ctx context.Context, creds Credentials) (library.User, error)
	Register(ctx context.Context, creds Credentials) (library.User, error)
	Bootstrap(ctx context.Context, token string) (BootstrapData, error)
	SearchBooks(ctx context.Context, token, query string) ([]library.Book, error)
	GetBook(ctx context.Context, token, bookID string) (library.Book, error)
	ListItems(ctx context.Context, token string) ([]library.ListItem, error)
	CreateListItem(ctx context.Context, token, bookID string) (library.ListItem, error)
	UpdateListItem(ctx context.Context, token, itemID string, patch library.ListItemPatch) (library.ListItem, error)
	RemoveListItem(ctx context.Context, token, itemID string) error
}

// Ensure Client implements Bookshelf at compile time.
var _ Bookshelf = (*Client)(nil)

// Credentials is a username/password pair for login and register.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// BootstrapData is the current user plus their list items, pre-seeded so the
// first screen renders without a second round trip.
type BootstrapData struct {
	User      library.User       `json:"user"`
	ListItems []library.ListItem `json:"listItems"`
}

// Client talks to the Bookshelf HTTP API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	userAgent      string
	onUnauthorized func()
}

const (
	defaultUserAgent = "bookshelf/0.1"
	requestTimeout   = 5 * time.Second
)

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	base, err := parseBaseURL(baseURL)
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

// OnUnauthorized registers a hook invoked whenever any request comes back
// with HTTP 401. The hook runs before the error is returned to the caller.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// Login exchanges credentials for an authenticated user.
func (c *Client) Login(ctx context.Context, creds Credentials) (library.User, error) {
	var payload struct {
		User library.User `json:"user"`
	}
	req := Request{Method: http.MethodPost, Path: "/login", Body: creds}
	if err := c.Do(ctx, req, &payload); err != nil {
		return library.User{}, err
	}
	return payload.User, nil
}

// Register creates an account and returns the authenticated user.
func (c *Client) Register(ctx context.Context, creds Credentials) (library.User, error) {
	var payload struct {
		User library.User `json:"user"`
	}
	req := Request{Method: http.MethodPost, Path: "/register", Body: creds}
	if err := c.Do(ctx, req, &payload); err != nil {
		return library.User{}, err
	}
	return payload.User, nil
}

// Bootstrap exchanges a stored token for the user profile and their list
// items.
func (c *Client) Bootstrap(ctx context.Context, token string) (BootstrapData, error) {
	var payload BootstrapData
	req := Request{Path: "/bootstrap", Token: token}
	if err := c.Do(ctx, req, &payload); err != nil {
		return BootstrapData{}, err
	}
	return payload, nil
}

// SearchBooks queries the catalog. An empty query returns the default set.
func (c *Client) SearchBooks(ctx context.Context, token, query string) ([]library.Book, error) {
	var payload struct {
		Books []library.Book `json:"books"`
	}
	req := Request{
		Path:  "/books",
		Token: token,
		Query: url.Values{"query": []string{query}},
	}
	if err := c.Do(ctx, req, &payload); err != nil {
		return nil, err
	}
	return payload.Books, nil
}

// GetBook fetches one book by id.
func (c *Client) GetBook(ctx context.Context, token, bookID string) (library.Book, error) {
	var payload struct {
		Book library.Book `json:"book"`
	}
	req := Request{Path: "/books/" + url.PathEscape(bookID), Token: token}
	if err := c.Do(ctx, req, &payload); err != nil {
		return library.Book{}, err
	}
	return payload.Book, nil
}

// ListItems fetches the user's reading list.
func (c *Client) ListItems(ctx context.Context, token string) ([]library.ListItem, error) {
	var payload struct {
		ListItems []library.ListItem `json:"listItems"`
	}
	req := Request{Path: "/list-items", Token: token}
	if err := c.Do(ctx, req, &payload); err != nil {
		return nil, err
	}
	return payload.ListItems, nil
}

// CreateListItem adds a book to the user's list. The server rejects a second
// item for the same book with a duplicate error (see IsDuplicate).
func (c *Client) CreateListItem(ctx context.Context, token, bookID string) (library.ListItem, error) {
	var payload struct {
		ListItem library.ListItem `json:"listItem"`
	}
	body := struct {
		BookID string `json:"bookId"`
	}{BookID: bookID}
	req := Request{Method: http.MethodPost, Path: "/list-items", Token: token, Body: body}
	if err := c.Do(ctx, req, &payload); err != nil {
		return library.ListItem{}, err
	}
	return payload.ListItem, nil
}

// UpdateListItem applies a partial update to a list item.
func (c *Client) UpdateListItem(ctx context.Context, token, itemID string, patch library.ListItemPatch) (library.ListItem, error) {
	var payload struct {
		ListItem library.ListItem `json:"listItem"`
	}
	req := Request{
		Method: http.MethodPut,
		Path:   "/list-items/" + url.PathEscape(itemID),
		Token:  token,
		Body:   patch,
	}
	if err := c.Do(ctx, req, &payload); err != nil {
		return library.ListItem{}, err
	}
	return payload.ListItem, nil
}

// RemoveListItem deletes a list item.
func (c *Client) RemoveListItem(ctx context.Context, token, itemID string) error {
	req := Request{
		Method: http.MethodDelete,
		Path:   "/list-items/" + url.PathEscape(itemID),
		Token:  token,
	}
	return c.Do(ctx, req, nil)
}

// Request describes one API call for Do. Method defaults to GET without a
// body and POST with one.
type Request struct {
	Method string
	Path   string
	Token  string
	Query  url.Values
	Body   any
}

// Do performs a request and decodes the JSON response into dest. Non-2xx
// responses return *Error parsed from the JSON error body; a 401 also fires
// the unauthorized hook.
func (c *Client) Do(ctx context.Context, r Request, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
		if r.Body != nil {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if r.Body != nil {
		encoded, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	rel := &url.URL{Path: r.Path, RawQuery: r.Query.Encode()}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("api base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
