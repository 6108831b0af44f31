package cache

import (
	"fmt"
	"strings"

	"tasksync/internal/service"
)

// Status filters by completion.
type Status string

// Completion filters. StatusAll matches every task.
const (
	StatusAll       Status = ""
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ParseStatus parses "pending", "completed" or "all"/"" (case-insensitive).
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, nil
	case "pending":
		return StatusPending, nil
	case "completed", "done":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("invalid status: %s", s)
	}
}

// Filter is a read-only query over the collection. Zero-valued fields
// match everything; set fields compose by AND.
type Filter struct {
	Status   Status
	Category string
	Priority service.Priority
}

// Match reports whether t satisfies every set predicate.
func (f Filter) Match(t service.Task) bool {
	switch f.Status {
	case StatusPending:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if f.Category != "" && !t.HasCategory(f.Category) {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

// Apply returns the matching tasks in their original order. It never
// modifies tasks.
func (f Filter) Apply(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Stats counts tasks by status and priority.
type Stats struct {
	Total     int `json:"total" yaml:"total"`
	Completed int `json:"completed" yaml:"completed"`
	Pending   int `json:"pending" yaml:"pending"`
	Low       int `json:"low" yaml:"low"`
	Medium    int `json:"medium" yaml:"medium"`
	High      int `json:"high" yaml:"high"`
}

// ComputeStats summarizes tasks.
func ComputeStats(tasks []service.Task) Stats {
	var s Stats
	s.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		switch t.Priority {
		case service.PriorityLow:
			s.Low++
		case service.PriorityMedium:
			s.Medium++
		case service.PriorityHigh:
			s.High++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}
