package commands

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"tasksync/internal/service"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Pos int    // 1-based position in the unfiltered collection, 0 if ID is set
	ID  string // task ID
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// An all-digit argument is a position as printed by `tasksync list`.
// Anything else is taken as a task ID. Only one argument is accepted.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", strings.Join(args, " "))
	}

	arg := strings.TrimSpace(args[0])
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if isAllDigits(arg) {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{Pos: n}, nil
	}
	return TaskRef{ID: arg}, nil
}

// Resolve finds the referenced task in tasks.
func (r TaskRef) Resolve(tasks []service.Task) (service.Task, error) {
	if r.ID != "" {
		i := slices.IndexFunc(tasks, func(t service.Task) bool { return t.ID == r.ID })
		if i < 0 {
			return service.Task{}, fmt.Errorf("task not found: %s", r.ID)
		}
		return tasks[i], nil
	}
	if r.Pos < 1 || r.Pos > len(tasks) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", r.Pos)
	}
	return tasks[r.Pos-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
