// Package cache keeps a local task collection synchronized with the
// remote authority.
//
// Updates and deletes are applied locally before the remote call is
// made, so readers see them immediately. The server's response then
// replaces the local guess; on failure the change is rolled back and the
// collection is refetched. Creates are not optimistic because only the
// server can assign an ID.
//
// Concurrent mutations of the same task are not queued: the last response
// to arrive wins.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"tasksync/internal/service"
	"tasksync/internal/session"
)

// Session is the part of session.Manager the cache depends on.
type Session interface {
	Authenticated() bool
	Credential() oauth2.TokenSource
	Subscribe(l session.Listener) func()
}

// Cache owns the task collection. Consumers read snapshots and route
// every mutation through its methods.
type Cache struct {
	svc  service.Service
	sess Session
	log  *slog.Logger

	mu         sync.Mutex
	tasks      []service.Task
	categories []string
	loading    bool
	err        error
	gen        uint64 // bumped on reset; stale responses are dropped

	unsubscribe func()
}

// New creates a Cache and subscribes it to sess: it loads on entering
// StateAuthenticated and clears on leaving it.
func New(svc service.Service, sess Session, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Cache{
		svc:  svc,
		sess: sess,
		log:  logger.With("component", "cache"),
	}
	c.unsubscribe = sess.Subscribe(c.onSession)
	return c
}

// Close detaches the cache from the session.
func (c *Cache) Close() {
	c.unsubscribe()
}

func (c *Cache) onSession(ctx context.Context, st session.State) {
	c.reset()
	if st != session.StateAuthenticated {
		return
	}
	if err := c.Fetch(ctx, false); err != nil {
		c.log.Warn("initial fetch failed", "error", err)
	}
	if err := c.FetchCategories(ctx); err != nil {
		c.log.Warn("category fetch failed", "error", err)
	}
}

func (c *Cache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.tasks = nil
	c.categories = nil
	c.loading = false
	c.err = nil
}

// Fetch loads the full collection. It does nothing when unauthenticated,
// or when the collection is already populated and force is false.
// On failure the previous collection is kept and Err reports the error.
func (c *Cache) Fetch(ctx context.Context, force bool) error {
	if !c.sess.Authenticated() {
		return nil
	}

	c.mu.Lock()
	if len(c.tasks) > 0 && !force {
		c.mu.Unlock()
		return nil
	}
	c.loading = len(c.tasks) == 0
	gen := c.gen
	c.mu.Unlock()

	tasks, err := c.svc.ListTasks(ctx, c.sess.Credential())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.loading = false
	if err != nil {
		c.err = fmt.Errorf("fetch tasks: %w", err)
		c.log.Warn("fetch failed", "error", err)
		return c.err
	}
	c.tasks = tasks
	c.err = nil
	c.log.Debug("fetched tasks", "count", len(tasks))
	return nil
}

// FetchCategories loads the server's category vocabulary.
func (c *Cache) FetchCategories(ctx context.Context) error {
	if !c.sess.Authenticated() {
		return nil
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	cats, err := c.svc.ListCategories(ctx, c.sess.Credential())
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.categories = cats
	}
	return nil
}

// Add creates a task. It rejects an empty title, an unknown priority, and
// a task whose title (trimmed, case-insensitive) and category set match
// an existing one, all without contacting the server. On success the
// server's task is prepended to the collection.
func (c *Cache) Add(ctx context.Context, in service.TaskInput) (service.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return service.Task{}, service.ErrEmptyTitle
	}
	if in.Priority == "" {
		in.Priority = service.PriorityMedium
	}
	if !in.Priority.Valid() {
		return service.Task{}, service.ErrInvalidPriority
	}
	if !c.sess.Authenticated() {
		return service.Task{}, service.ErrNotAuthenticated
	}

	c.mu.Lock()
	dup := slices.ContainsFunc(c.tasks, func(t service.Task) bool {
		return service.SameTitle(t.Title, in.Title) && service.SameCategories(t.Categories, in.Categories)
	})
	gen := c.gen
	c.mu.Unlock()
	if dup {
		return service.Task{}, service.ErrDuplicate
	}

	created, err := c.svc.CreateTask(ctx, c.sess.Credential(), in)
	if err != nil {
		c.log.Warn("create failed", "title", in.Title, "error", err)
		return service.Task{}, fmt.Errorf("create task: %w", err)
	}

	c.mu.Lock()
	if c.gen == gen {
		c.tasks = append([]service.Task{created.Clone()}, c.tasks...)
	}
	c.mu.Unlock()
	return created, nil
}

// Update merges patch into the task immediately, then reconciles with the
// server's representation. If the server rejects it, the local task is
// restored and the collection refetched before the error is returned.
func (c *Cache) Update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return service.Task{}, service.ErrEmptyTitle
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return service.Task{}, service.ErrInvalidPriority
	}
	if !c.sess.Authenticated() {
		return service.Task{}, service.ErrNotAuthenticated
	}

	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return service.Task{}, fmt.Errorf("task %s: %w", id, service.ErrNotFound)
	}
	prev := c.tasks[i].Clone()
	c.tasks[i] = patch.Apply(prev)
	gen := c.gen
	c.mu.Unlock()

	updated, err := c.svc.UpdateTask(ctx, c.sess.Credential(), id, patch)
	if err != nil {
		c.log.Warn("update failed, rolling back", "id", id, "error", err)
		c.mu.Lock()
		if c.gen == gen {
			if i := c.indexLocked(id); i >= 0 {
				c.tasks[i] = prev
			}
		}
		c.mu.Unlock()
		if ferr := c.Fetch(ctx, true); ferr != nil {
			c.log.Warn("refetch after failed update", "error", ferr)
		}
		return service.Task{}, fmt.Errorf("update task: %w", err)
	}

	c.mu.Lock()
	if c.gen == gen {
		if i := c.indexLocked(id); i >= 0 {
			c.tasks[i] = updated.Clone()
		}
	}
	c.mu.Unlock()
	return updated, nil
}

// Toggle flips the completed flag of a task through Update.
func (c *Cache) Toggle(ctx context.Context, id string) (service.Task, error) {
	t, ok := c.Task(id)
	if !ok {
		return service.Task{}, fmt.Errorf("task %s: %w", id, service.ErrNotFound)
	}
	completed := !t.Completed
	return c.Update(ctx, id, service.TaskPatch{Completed: &completed})
}

// Delete removes the task immediately, then confirms with the server. On
// failure the collection is refetched, which restores the task if the
// server still has it.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if !c.sess.Authenticated() {
		return service.ErrNotAuthenticated
	}

	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("task %s: %w", id, service.ErrNotFound)
	}
	c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
	c.mu.Unlock()

	if err := c.svc.DeleteTask(ctx, c.sess.Credential(), id); err != nil {
		c.log.Warn("delete failed, refetching", "id", id, "error", err)
		if ferr := c.Fetch(ctx, true); ferr != nil {
			c.log.Warn("refetch after failed delete", "error", ferr)
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (c *Cache) indexLocked(id string) int {
	return slices.IndexFunc(c.tasks, func(t service.Task) bool { return t.ID == id })
}

// Tasks returns a copy of the collection, newest first.
func (c *Cache) Tasks() []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]service.Task, len(c.tasks))
	for i, t := range c.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Task returns a copy of the task with the given ID.
func (c *Cache) Task(id string) (service.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return service.Task{}, false
	}
	return c.tasks[i].Clone(), true
}

// Loading reports whether a fetch is running over an empty collection.
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last failed fetch, cleared by the next
// successful one.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Categories returns the server's vocabulary, or DefaultCategories when
// none has been loaded.
func (c *Cache) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.categories) == 0 {
		return slices.Clone(service.DefaultCategories)
	}
	return slices.Clone(c.categories)
}

// Filter returns the tasks matching f, in collection order.
func (c *Cache) Filter(f Filter) []service.Task {
	return f.Apply(c.Tasks())
}

// Stats summarizes the collection.
func (c *Cache) Stats() Stats {
	return ComputeStats(c.Tasks())
}

// Recent returns up to n of the newest tasks.
func (c *Cache) Recent(n int) []service.Task {
	tasks := c.Tasks()
	n = max(n, 0)
	if n < len(tasks) {
		tasks = tasks[:n]
	}
	return tasks
}
