package commands

import (
	"fmt"
	"strings"
	"time"

	"tasksync/internal/output"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("empty value")
	}
	*s = append(*s, v)
	return nil
}

// optString is a string flag that records whether it was given.
type optString struct {
	val string
	set bool
}

func (o *optString) String() string { return o.val }

func (o *optString) Set(v string) error {
	o.val = v
	o.set = true
	return nil
}

// parseDue parses a --due value in output.DueLayout, as a UTC date.
func parseDue(s string) (*time.Time, error) {
	d, err := time.Parse(output.DueLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid due date: %s (want YYYY-MM-DD)", s)
	}
	return &d, nil
}
