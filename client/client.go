// Package client talks to the eventhub API and keeps the local view of
// events a front end renders from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreybb/eventhub/models"
	"github.com/coreybb/eventhub/webutil"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  NewMemoryTokenStore(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Tokens() TokenStore { return c.tokens }

// LoggedIn reports whether a token is held. It does not check expiry.
func (c *Client) LoggedIn() bool { return c.tokens.Token() != "" }

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// EventInput is the editable part of an event.
type EventInput struct {
	Title       string    `json:"title"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageURL,omitempty"`
}

type Session struct {
	Token string
	User  *models.User
}

type sessionResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type eventResponse struct {
	Message string        `json:"message"`
	Event   *models.Event `json:"event"`
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, in Registration) (*Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &resp); err != nil {
		return nil, err
	}
	c.tokens.SetToken(resp.Token)
	return &Session{Token: resp.Token, User: resp.User}, nil
}

// Login exchanges credentials for a token and keeps it.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	c.tokens.SetToken(resp.Token)
	return &Session{Token: resp.Token, User: resp.User}, nil
}

// Logout only forgets the token; the API keeps no session state.
func (c *Client) Logout() {
	c.tokens.Clear()
}

func (c *Client) Verify(ctx context.Context) (*models.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Refresh swaps the held token for one with a fresh expiry.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, &resp); err != nil {
		return "", err
	}
	c.tokens.SetToken(resp.Token)
	return resp.Token, nil
}

func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) UpcomingEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/events/upcoming", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) MyEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/events/my-events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := c.do(ctx, http.MethodGet, eventPath(id), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	var resp eventResponse
	if err := c.do(ctx, http.MethodPost, "/api/events", in, &resp); err != nil {
		return nil, err
	}
	return resp.Event, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id string, in EventInput) (*models.Event, error) {
	var resp eventResponse
	if err := c.do(ctx, http.MethodPut, eventPath(id), in, &resp); err != nil {
		return nil, err
	}
	return resp.Event, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, eventPath(id), nil, nil)
}

// JoinEvent returns the event as stored after the join.
func (c *Client) JoinEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := c.do(ctx, http.MethodPost, eventPath(id)+"/join", nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func eventPath(id string) string {
	return "/api/events/" + url.PathEscape(id)
}

// do sends one request and decodes a 2xx body into out, which may be nil.
// Any other status becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	req.Header.Set(webutil.HeaderAccept, webutil.ContentTypeJSON)
	if in != nil {
		req.Header.Set(webutil.HeaderContentType, webutil.ContentTypeJSON)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set(webutil.HeaderAuthorization, webutil.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := decodeAPIError(resp)
		c.log.Debug("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}
	var body webutil.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	apiErr.Message = body.Message
	apiErr.Fields = body.Errors
	return apiErr
}
