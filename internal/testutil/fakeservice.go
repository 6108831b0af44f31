// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/oauth2"

	"tasksync/internal/service"
)

// Operation names used for error injection, hooks and call counting.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpMe             = "me"
	OpListTasks      = "list"
	OpCreateTask     = "create"
	OpUpdateTask     = "update"
	OpDeleteTask     = "delete"
	OpListCategories = "categories"
)

type fakeUser struct {
	user     service.User
	password string
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu         sync.Mutex
	users      map[string]fakeUser // email -> account
	tokens     map[string]string   // token -> email
	tasks      map[string][]service.Task
	categories []string
	nextID     int
	calls      map[string]int
	errs       map[string]error

	// Hook, if set, runs at the start of every call without the lock
	// held. Tests use it to pause a call mid-flight.
	Hook func(op string)
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		users:  make(map[string]fakeUser),
		tokens: make(map[string]string),
		tasks:  make(map[string][]service.Task),
		calls:  make(map[string]int),
		errs:   make(map[string]error),
	}
}

// AddUser registers an account and returns a valid token for it.
func (f *FakeService) AddUser(name, email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.users[email] = fakeUser{
		user:     service.User{ID: fmt.Sprintf("u%d", f.nextID), Name: name, Email: email},
		password: password,
	}
	return f.issueToken(email)
}

// AddTask seeds a task for the account owning email. The newest task is
// listed first, matching the server.
func (f *FakeService) AddTask(email string, t service.Task) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		f.nextID++
		t.ID = fmt.Sprintf("t%d", f.nextID)
	}
	f.tasks[email] = append([]service.Task{t.Clone()}, f.tasks[email]...)
	return t
}

// Tasks returns the server-side collection for email.
func (f *FakeService) Tasks(email string) []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneTasks(f.tasks[email])
}

// SetCategories sets the vocabulary returned by ListCategories.
func (f *FakeService) SetCategories(c []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = slices.Clone(c)
}

// RevokeTokens invalidates every issued token.
func (f *FakeService) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (f *FakeService) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Calls returns how many times op was called.
func (f *FakeService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (f *FakeService) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// begin runs the hook, counts the call and returns any injected error.
// The caller holds the lock on return.
func (f *FakeService) begin(op string) error {
	if f.Hook != nil {
		f.Hook(op)
	}
	f.mu.Lock()
	f.calls[op]++
	return f.errs[op]
}

func (f *FakeService) issueToken(email string) string {
	f.nextID++
	tok := fmt.Sprintf("tok-%d", f.nextID)
	f.tokens[tok] = email
	return tok
}

// owner resolves a credential to an account email.
func (f *FakeService) owner(cred oauth2.TokenSource) (string, error) {
	if cred == nil {
		return "", service.ErrUnauthorized
	}
	tok, err := cred.Token()
	if err != nil {
		return "", service.ErrUnauthorized
	}
	email, ok := f.tokens[tok.AccessToken]
	if !ok {
		return "", service.ErrUnauthorized
	}
	return email, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, name, email, password string) (string, error) {
	err := f.begin(OpRegister)
	defer f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if _, exists := f.users[email]; exists {
		return "", fmt.Errorf("%w: user already exists", service.ErrUnauthorized)
	}
	f.nextID++
	f.users[email] = fakeUser{
		user:     service.User{ID: fmt.Sprintf("u%d", f.nextID), Name: name, Email: email},
		password: password,
	}
	return f.issueToken(email), nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, email, password string) (string, error) {
	err := f.begin(OpLogin)
	defer f.mu.Unlock()
	if err != nil {
		return "", err
	}
	u, ok := f.users[email]
	if !ok || u.password != password {
		return "", fmt.Errorf("%w: invalid credentials", service.ErrUnauthorized)
	}
	return f.issueToken(email), nil
}

// Me implements service.Service.
func (f *FakeService) Me(ctx context.Context, cred oauth2.TokenSource) (service.User, error) {
	err := f.begin(OpMe)
	defer f.mu.Unlock()
	if err != nil {
		return service.User{}, err
	}
	email, err := f.owner(cred)
	if err != nil {
		return service.User{}, err
	}
	return f.users[email].user, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, cred oauth2.TokenSource) ([]service.Task, error) {
	err := f.begin(OpListTasks)
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	email, err := f.owner(cred)
	if err != nil {
		return nil, err
	}
	out := cloneTasks(f.tasks[email])
	if out == nil {
		out = []service.Task{}
	}
	return out, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, cred oauth2.TokenSource, in service.TaskInput) (service.Task, error) {
	err := f.begin(OpCreateTask)
	defer f.mu.Unlock()
	if err != nil {
		return service.Task{}, err
	}
	email, err := f.owner(cred)
	if err != nil {
		return service.Task{}, err
	}
	f.nextID++
	t := service.Task{
		ID:          fmt.Sprintf("t%d", f.nextID),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Completed:   in.Completed,
		Categories:  slices.Clone(in.Categories),
	}
	if t.Priority == "" {
		t.Priority = service.PriorityMedium
	}
	f.tasks[email] = append([]service.Task{t.Clone()}, f.tasks[email]...)
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, cred oauth2.TokenSource, id string, patch service.TaskPatch) (service.Task, error) {
	err := f.begin(OpUpdateTask)
	defer f.mu.Unlock()
	if err != nil {
		return service.Task{}, err
	}
	email, err := f.owner(cred)
	if err != nil {
		return service.Task{}, err
	}
	for i, t := range f.tasks[email] {
		if t.ID == id {
			updated := patch.Apply(t)
			f.tasks[email][i] = updated
			return updated.Clone(), nil
		}
	}
	return service.Task{}, service.ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, cred oauth2.TokenSource, id string) error {
	err := f.begin(OpDeleteTask)
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	email, err := f.owner(cred)
	if err != nil {
		return err
	}
	tasks := f.tasks[email]
	for i, t := range tasks {
		if t.ID == id {
			f.tasks[email] = append(tasks[:i:i], tasks[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}

// ListCategories implements service.Service.
func (f *FakeService) ListCategories(ctx context.Context, cred oauth2.TokenSource) ([]string, error) {
	err := f.begin(OpListCategories)
	defer f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, err := f.owner(cred); err != nil {
		return nil, err
	}
	return slices.Clone(f.categories), nil
}

func cloneTasks(tasks []service.Task) []service.Task {
	if tasks == nil {
		return nil
	}
	out := make([]service.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
