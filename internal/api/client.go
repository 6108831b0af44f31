// Package api implements the service.Service interface over the task
// service's JSON REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasksync/internal/config"
	"tasksync/internal/service"
)

const (
	// HeaderAuthToken carries the raw session token on every
	// authenticated request.
	HeaderAuthToken = "x-auth-token"

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 64 << 10
)

// Client implements service.Service against the REST API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

var _ service.Service = (*Client)(nil)

// New creates a client for the API configured in cfg.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.APIURL,
		http:    &http.Client{},
		timeout: cfg.APITimeout,
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// baseURL is used as-is and should already end in /api.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: config.DefaultAPITimeout,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register implements service.Service.
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.authenticate(ctx, "/auth/register", body)
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("no token in response")
	}
	return resp.Token, nil
}

// Me implements service.Service.
func (c *Client) Me(ctx context.Context, cred oauth2.TokenSource) (service.User, error) {
	var u service.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", cred, nil, &u); err != nil {
		return service.User{}, err
	}
	return u, nil
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, cred oauth2.TokenSource) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", cred, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, cred oauth2.TokenSource, in service.TaskInput) (service.Task, error) {
	var t service.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", cred, in, &t); err != nil {
		return service.Task{}, err
	}
	return checkTask(t)
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, cred oauth2.TokenSource, id string, patch service.TaskPatch) (service.Task, error) {
	var t service.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), cred, patch, &t); err != nil {
		return service.Task{}, err
	}
	return checkTask(t)
}

// checkTask rejects a decoded task without an id, e.g. from an empty body.
func checkTask(t service.Task) (service.Task, error) {
	if t.ID == "" {
		return service.Task{}, fmt.Errorf("%w: task has no id", service.ErrBadResponse)
	}
	return t, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, cred oauth2.TokenSource, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), cred, nil, nil)
}

// ListCategories implements service.Service.
// Entries may be plain strings or objects with a name field.
func (c *Client) ListCategories(ctx context.Context, cred oauth2.TokenSource) ([]string, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/categories", cred, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var name string
		if err := json.Unmarshal(r, &name); err == nil {
			out = append(out, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			return nil, fmt.Errorf("invalid category entry: %s", r)
		}
		out = append(out, obj.Name)
	}
	return out, nil
}

// do sends one request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, cred oauth2.TokenSource, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != nil {
		tok, err := cred.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", service.ErrNotAuthenticated, err)
		}
		req.Header.Set(HeaderAuthToken, tok.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return wrapError(err)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// checkResponse turns a non-2xx response into a *googleapi.Error whose
// Message is the server's user-facing message, if any.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &googleapi.Error{
		Code:    resp.StatusCode,
		Message: errorMessage(data),
		Body:    string(data),
		Header:  resp.Header,
	}
}

// errorMessage extracts {"msg"}, {"message"} or {"error"} from a body.
func errorMessage(data []byte) string {
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Msg != "":
		return payload.Msg
	case payload.Message != "":
		return payload.Message
	}
	if s, ok := payload.Error.(string); ok {
		return s
	}
	return ""
}

// StatusError is a failed response classified into the service error
// taxonomy. errors.Is matches Kind; errors.As recovers the *googleapi.Error.
type StatusError struct {
	Kind error
	Err  *googleapi.Error
}

func (e *StatusError) Error() string {
	msg := e.Err.Message
	if msg == "" {
		msg = http.StatusText(e.Err.Code)
	}
	if e.Kind != nil && !strings.EqualFold(msg, e.Kind.Error()) {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return msg
}

func (e *StatusError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// wrapError maps transport and HTTP errors onto the service taxonomy.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", service.ErrTimeout, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		se := &StatusError{Err: gerr}
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			se.Kind = service.ErrUnauthorized
		case http.StatusNotFound:
			se.Kind = service.ErrNotFound
		}
		return se
	}

	return fmt.Errorf("request failed: %w", err)
}
