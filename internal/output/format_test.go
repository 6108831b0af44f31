package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"tasksync/internal/cache"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

func TestPrinter_Tasks(t *testing.T) {
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Pos: 1, Task: service.Task{Title: "Draft memo", Priority: service.PriorityHigh, DueDate: &due, Categories: []string{"Work Projects"}}},
		{Pos: 2, Task: service.Task{Title: "Buy milk", Priority: service.PriorityLow, Completed: true}},
		{Pos: 3, Task: service.Task{Title: " ", Priority: service.PriorityMedium}},
	}

	var buf bytes.Buffer
	NewPrinter(&buf).Tasks(entries)

	testutil.GoldenString(t, "tasks", buf.String())
}

func TestPrinter_Stats(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Stats(cache.Stats{Total: 4, Completed: 1, Pending: 3, High: 2, Medium: 1, Low: 1})

	testutil.GoldenString(t, "stats", buf.String())
}

func TestPrinter_LongTitleTruncated(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Tasks([]Entry{{Pos: 1, Task: service.Task{
		Title:    strings.Repeat("x", 100),
		Priority: service.PriorityLow,
	}}})

	line := strings.TrimSuffix(buf.String(), "\n")
	title := strings.TrimSuffix(strings.TrimPrefix(line, "   1  [ ] "), "  low")
	if w := runewidth.StringWidth(title); w > MaxTitleWidth {
		t.Errorf("title width %d exceeds %d: %q", w, MaxTitleWidth, title)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Buy milk", "Buy milk"},
		{"", "(untitled)"},
		{"   ", "(untitled)"},
		{"line1\nline2", "line1 line2"},
		{"a\r\nb", "a  b"},
	}
	for _, tt := range tests {
		if got := normalizeTitle(tt.in); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestEncode(t *testing.T) {
	tasks := []service.Task{{ID: "t1", Title: "Draft memo", Priority: service.PriorityHigh}}

	var js bytes.Buffer
	if err := Encode(&js, FormatJSON, tasks); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(js.String(), `"_id": "t1"`) {
		t.Errorf("json output missing wire id: %s", js.String())
	}

	var ym bytes.Buffer
	if err := Encode(&ym, FormatYAML, tasks); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var decoded []map[string]any
	if err := yaml.Unmarshal(ym.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["id"] != "t1" || decoded[0]["priority"] != "high" {
		t.Errorf("unexpected yaml: %s", ym.String())
	}

	if err := Encode(&js, FormatText, tasks); err == nil {
		t.Error("expected error for text format")
	}
}
