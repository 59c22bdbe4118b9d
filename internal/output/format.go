// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todo/internal/service"
)

// FormatTask formats a task line for the list command.
// Format: "{ID:>4}  [ ] {TITLE}\n", with [x] for completed tasks.
func FormatTask(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", task.ID, checkbox(task.IsCompleted), normalizeTitle(task.Title))
}

// FormatTaskDetail formats every field of a task for the show command.
// Server timestamps are printed only when present.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %d\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	fmt.Fprintf(w, "status:      %s\n", status(task.IsCompleted))
	if desc := strings.TrimSpace(task.Description); desc != "" {
		fmt.Fprintln(w, "description:")
		for _, line := range strings.Split(desc, "\n") {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))
		}
	}
	if task.CreatedAt != "" {
		fmt.Fprintf(w, "created:     %s\n", task.CreatedAt)
	}
	if task.UpdatedAt != "" {
		fmt.Fprintf(w, "updated:     %s\n", task.UpdatedAt)
	}
}

// FormatUser formats the signed-in user for the whoami command.
func FormatUser(w io.Writer, user service.User) {
	fmt.Fprintf(w, "%s (id %d)\n", user.Email, user.ID)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func status(done bool) string {
	if done {
		return "completed"
	}
	return "open"
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
