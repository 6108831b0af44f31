// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

const (
	// ListSeparator separates successive snapshots in watch output.
	ListSeparator = "------------"

	// MaxTitleWidth is the display width at which titles are truncated.
	MaxTitleWidth = 48

	// DueLayout is the date format for due dates.
	DueLayout = "2006-01-02"
)

// Format selects machine or human output.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a --format value. An empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %s", s)
	}
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %s is not an encoding", f)
	}
}

// Entry is a task together with its 1-based position in the unfiltered
// collection, which is what task refs address.
type Entry struct {
	Pos  int
	Task service.Task
}

// Printer renders tasks for a terminal. Styles degrade to plain text when
// the writer is not a TTY.
type Printer struct {
	w      io.Writer
	high   lipgloss.Style
	medium lipgloss.Style
	low    lipgloss.Style
	faint  lipgloss.Style
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		high:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		medium: r.NewStyle().Foreground(lipgloss.Color("11")),
		low:    r.NewStyle().Foreground(lipgloss.Color("10")),
		faint:  r.NewStyle().Faint(true),
	}
}

// Tasks prints one line per entry:
//
//	{POS:>4}  [x] {TITLE padded}  {PRIORITY}  due {DATE}  {CATEGORIES}
//
// Titles are padded to the widest title shown, capped at MaxTitleWidth.
func (p *Printer) Tasks(entries []Entry) {
	width := 0
	for _, e := range entries {
		width = max(width, runewidth.StringWidth(displayTitle(e.Task.Title)))
	}

	for _, e := range entries {
		t := e.Task
		mark := "[ ]"
		if t.Completed {
			mark = p.faint.Render("[x]")
		}
		parts := []string{
			fmt.Sprintf("%4d", e.Pos),
			mark + " " + runewidth.FillRight(displayTitle(t.Title), width),
			p.priority(t.Priority),
		}
		if t.DueDate != nil {
			parts = append(parts, "due "+t.DueDate.Format(DueLayout))
		}
		if len(t.Categories) > 0 {
			parts = append(parts, strings.Join(t.Categories, ", "))
		}
		fmt.Fprintln(p.w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

// Task prints the full detail of a single task.
func (p *Printer) Task(t service.Task) {
	fmt.Fprintf(p.w, "id:          %s\n", t.ID)
	fmt.Fprintf(p.w, "title:       %s\n", normalizeTitle(t.Title))
	fmt.Fprintf(p.w, "priority:    %s\n", p.priority(t.Priority))
	fmt.Fprintf(p.w, "completed:   %t\n", t.Completed)
	if t.DueDate != nil {
		fmt.Fprintf(p.w, "due:         %s\n", t.DueDate.Format(DueLayout))
	}
	if len(t.Categories) > 0 {
		fmt.Fprintf(p.w, "categories:  %s\n", strings.Join(t.Categories, ", "))
	}
	if t.Description != "" {
		fmt.Fprintf(p.w, "description: %s\n", t.Description)
	}
}

// Stats prints the collection summary.
func (p *Printer) Stats(s cache.Stats) {
	fmt.Fprintf(p.w, "total      %d\n", s.Total)
	fmt.Fprintf(p.w, "completed  %d\n", s.Completed)
	fmt.Fprintf(p.w, "pending    %d\n", s.Pending)
	fmt.Fprintf(p.w, "%s       %d\n", p.priority(service.PriorityHigh), s.High)
	fmt.Fprintf(p.w, "%s     %d\n", p.priority(service.PriorityMedium), s.Medium)
	fmt.Fprintf(p.w, "%s        %d\n", p.priority(service.PriorityLow), s.Low)
}

func (p *Printer) priority(pr service.Priority) string {
	switch pr {
	case service.PriorityHigh:
		return p.high.Render(string(pr))
	case service.PriorityMedium:
		return p.medium.Render(string(pr))
	case service.PriorityLow:
		return p.low.Render(string(pr))
	default:
		return string(pr)
	}
}

func displayTitle(title string) string {
	return runewidth.Truncate(normalizeTitle(title), MaxTitleWidth, "…")
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
