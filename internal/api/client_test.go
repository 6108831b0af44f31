package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasksync/internal/api"
	"tasksync/internal/config"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

func newClient(t *testing.T) (*api.Client, *testutil.Server) {
	t.Helper()
	srv := testutil.NewServer(t)
	return api.NewWithHTTPClient(srv.APIURL(), srv.Client()), srv
}

func cred(tok string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})
}

func TestClient_RegisterLoginMe(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	tok, err := c.Register(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	tok, err = c.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	u, err := c.Me(ctx, cred(tok))
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEmpty(t, u.ID)

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/api/auth/me", last.Path)
	assert.Equal(t, tok, last.Token)
}

func TestClient_LoginFailureCarriesServerMessage(t *testing.T) {
	c, srv := newClient(t)
	srv.AddUser("Ada", "ada@example.com", "secret")

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)

	var gerr *googleapi.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusBadRequest, gerr.Code)
	assert.Equal(t, "Invalid credentials", gerr.Message)
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestClient_MeWithoutCredential(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.Me(context.Background(), nil)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = c.Me(context.Background(), cred("bogus"))
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Token is not valid")
}

func TestClient_TaskLifecycle(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	tok := srv.AddUser("Ada", "ada@example.com", "secret")
	ts := cred(tok)

	tasks, err := c.ListTasks(ctx, ts)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	created, err := c.CreateTask(ctx, ts, service.TaskInput{
		Title:      "Draft memo",
		Priority:   service.PriorityHigh,
		DueDate:    &due,
		Categories: []string{"Work Projects"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Draft memo", created.Title)
	require.NotNil(t, created.DueDate)
	assert.True(t, due.Equal(*created.DueDate))

	done := true
	updated, err := c.UpdateTask(ctx, ts, created.ID, service.TaskPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Draft memo", updated.Title)

	tasks, err = c.ListTasks(ctx, ts)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)

	require.NoError(t, c.DeleteTask(ctx, ts, created.ID))
	tasks, err = c.ListTasks(ctx, ts)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestClient_NotFound(t *testing.T) {
	c, srv := newClient(t)
	ts := cred(srv.AddUser("Ada", "ada@example.com", "secret"))

	err := c.DeleteTask(context.Background(), ts, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)

	var se *api.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Err.Code)
}

func TestClient_ServerError(t *testing.T) {
	c, srv := newClient(t)
	ts := cred(srv.AddUser("Ada", "ada@example.com", "secret"))
	srv.FailOnce("GET /api/tasks", http.StatusInternalServerError, "database down")

	_, err := c.ListTasks(context.Background(), ts)
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrNotFound)
	assert.NotErrorIs(t, err, service.ErrUnauthorized)
	assert.Equal(t, "database down", err.Error())
}

func TestClient_Categories(t *testing.T) {
	c, srv := newClient(t)
	ts := cred(srv.AddUser("Ada", "ada@example.com", "secret"))

	cats, err := c.ListCategories(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, service.DefaultCategories, cats)
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer hs.Close()
	defer close(block)

	cfg := &config.Config{APIURL: hs.URL + "/api", APITimeout: 50 * time.Millisecond}
	c := api.New(cfg)

	_, err := c.Login(context.Background(), "a@b.com", "x")
	assert.ErrorIs(t, err, service.ErrTimeout)
}

func TestClient_TransportError(t *testing.T) {
	hs := httptest.NewServer(http.NotFoundHandler())
	url := hs.URL + "/api"
	hs.Close()

	c := api.NewWithHTTPClient(url, http.DefaultClient)
	_, err := c.Login(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_TaskWithoutID(t *testing.T) {
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer hs.Close()
	c := api.NewWithHTTPClient(hs.URL+"/api", hs.Client())

	_, err := c.CreateTask(context.Background(), cred("tok"), service.TaskInput{Title: "Draft memo"})
	assert.ErrorIs(t, err, service.ErrBadResponse)

	_, err = c.UpdateTask(context.Background(), cred("tok"), "t1", service.TaskPatch{})
	assert.ErrorIs(t, err, service.ErrBadResponse)
}
