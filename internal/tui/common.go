package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTasks viewState = iota
	viewDone
	viewFocus
)

var viewNames = []string{"Tasks", "Done", "Focus"}

// --- Messages ---

type listLoadedMsg struct {
	done    bool
	listing *taskstore.Listing
	err     error
}

// mutationMsg reports the outcome of a write issued by a list view.
type mutationMsg struct {
	status statusMsg
	// cursor is the row to select after reloading, or -1 to keep it.
	cursor int
}

type statusMsg struct {
	text      string
	isError   bool
	isWarning bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// failure turns an error from the task store into a status line. Rejected
// input is a warning; anything else is an error.
func failure(op string, err error) statusMsg {
	if errors.Is(err, taskstore.ErrValidation) {
		return statusMsg{text: err.Error(), isWarning: true}
	}
	if errors.Is(err, store.ErrNotFound) {
		return statusMsg{text: op + ": task no longer exists", isWarning: true}
	}
	return statusMsg{text: fmt.Sprintf("%s: %v", op, err), isError: true}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatMinutes(d time.Duration) string {
	m := int(d.Round(time.Minute).Minutes())
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

// units renders planned pomodoros as filled dots.
func units(n int) string {
	return strings.Repeat("●", n)
}

func dayLabel(d, today time.Time) string {
	switch d.Sub(store.Day(today)).Hours() / 24 {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	case -1:
		return "Yesterday"
	}
	return d.Format("Mon, Jan 02")
}
