// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ltask/internal/store"
)

// FormatTask writes one task line:
//
//	{N:>4}  [ ] {TITLE} | {NOTES} | {DUE} ({STATUS})
//
// Notes and due date are omitted when empty. today fixes the reference
// day for the due status so output is reproducible.
func FormatTask(w io.Writer, num int, t *store.Task, today time.Time) {
	var b strings.Builder
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	fmt.Fprintf(&b, "%4d  %s %s", num, box, normalizeTitle(t.Title))
	if t.Notes != "" {
		fmt.Fprintf(&b, " | %s", flatten(t.Notes))
	}
	if !t.Due.IsZero() {
		fmt.Fprintf(&b, " | %s", t.Due.Format("2006-01-02"))
		if s := dueStatus(t.Due, today); s != "" && !t.Completed {
			fmt.Fprintf(&b, " (%s)", s)
		}
	}
	fmt.Fprintln(w, b.String())
}

// FormatRun writes one sync log entry line.
func FormatRun(w io.Writer, r store.RunLog) {
	fmt.Fprintf(w, "%s  %-7s  pushed %d/%d/%d  pulled %d/%d/%d  conflicts %d\n",
		r.StartedAt.UTC().Format("2006-01-02 15:04:05"), r.Outcome,
		r.PushedCreated, r.PushedUpdated, r.PushedDeleted,
		r.PulledCreated, r.PulledUpdated, r.PulledDeleted,
		r.Conflicts)
}

// FormatSummary writes the user-facing sync result.
func FormatSummary(w io.Writer, r store.RunLog) {
	fmt.Fprintf(w, "sync %s: pushed %d created, %d updated, %d deleted; pulled %d created, %d updated, %d deleted",
		r.Outcome,
		r.PushedCreated, r.PushedUpdated, r.PushedDeleted,
		r.PulledCreated, r.PulledUpdated, r.PulledDeleted)
	if r.Conflicts > 0 {
		fmt.Fprintf(w, "; %d conflict(s) resolved", r.Conflicts)
	}
	fmt.Fprintln(w)
}

// dueStatus mirrors the original tool's urgency labels.
func dueStatus(due, today time.Time) string {
	d := int(due.Sub(today.Truncate(24 * time.Hour)).Hours() / 24)
	switch {
	case d < 0:
		return fmt.Sprintf("%dd overdue", -d)
	case d == 0:
		return "today"
	case d <= 4:
		return fmt.Sprintf("%dd left", d)
	}
	return ""
}

// normalizeTitle normalizes a task title for display.
// Empty or whitespace-only titles become "(untitled)".
func normalizeTitle(title string) string {
	title = flatten(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
