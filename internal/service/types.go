// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Priority is a task priority level.
type Priority string

// Priority levels.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists all priority levels, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// ParsePriority parses a priority name (case-insensitive, trimmed).
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// DefaultCategories is the category vocabulary used until the server
// supplies its own.
var DefaultCategories = []string{
	"Work Projects",
	"Personal Projects",
	"Urgent Projects",
	"Project Ideas",
}

// User is the profile of the authenticated account.
type User struct {
	ID    string `json:"_id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// UnmarshalJSON accepts both "_id" and "id".
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.plain)
	if u.ID == "" {
		u.ID = raw.AltID
	}
	return nil
}

// Task represents a single task item.
type Task struct {
	ID          string     `json:"_id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
	Completed   bool       `json:"completed" yaml:"completed"`
	Categories  []string   `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id".
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)
	if t.ID == "" {
		t.ID = raw.AltID
	}
	return nil
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	t.Categories = slices.Clone(t.Categories)
	return t
}

// HasCategory reports whether the task is tagged with category (exact match).
func (t Task) HasCategory(category string) bool {
	return slices.Contains(t.Categories, category)
}

// TaskInput holds the fields of a task to create. The server assigns the ID.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
	Categories  []string   `json:"categories,omitempty"`
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Categories  *[]string  `json:"categories,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && p.Completed == nil && p.Categories == nil
}

// Apply returns t with the patch merged in (shallow merge).
func (p TaskPatch) Apply(t Task) Task {
	t = t.Clone()
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Categories != nil {
		t.Categories = slices.Clone(*p.Categories)
	}
	return t
}

// SameTitle compares titles case-insensitively, ignoring surrounding space.
func SameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SameCategories compares two category sets, ignoring order and repeats.
func SameCategories(a, b []string) bool {
	as := normalizeSet(a)
	bs := normalizeSet(b)
	return slices.Equal(as, bs)
}

func normalizeSet(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}
