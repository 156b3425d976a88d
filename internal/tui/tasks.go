package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
)

// listModel shows either the ranked active tasks or the completed ones.
type listModel struct {
	backend taskstore.Backend
	done    bool
	unit    time.Duration
	now     func() time.Time
	width   int
	height  int

	listing *taskstore.Listing
	cursor  int
	timer   focusTimer

	formActive bool
	form       *huh.Form
	formType   string // "new", "edit"
	fields     *taskFields
	editingID  string
}

func newListModel(b taskstore.Backend, done bool, unit time.Duration) listModel {
	return listModel{
		backend: b,
		done:    done,
		unit:    unit,
		now:     time.Now,
		listing: &taskstore.Listing{},
		timer:   newFocusTimer(),
		fields:  &taskFields{},
	}
}

func (l *listModel) setSize(w, h int) {
	l.width = w
	l.height = h
}

func (l listModel) selected() *store.Task {
	if l.cursor < 0 || l.cursor >= len(l.listing.Tasks) {
		return nil
	}
	return l.listing.Tasks[l.cursor]
}

func (l listModel) refresh() tea.Cmd {
	b, done := l.backend, l.done
	return func() tea.Msg {
		listing, err := b.ListActive(context.Background(), done)
		return listLoadedMsg{done: done, listing: listing, err: err}
	}
}

func (l listModel) update(msg tea.Msg) (listModel, tea.Cmd) {
	if l.formActive && l.form != nil {
		return l.updateForm(msg)
	}

	switch msg := msg.(type) {
	case listLoadedMsg:
		if msg.done != l.done {
			return l, nil
		}
		if msg.err != nil {
			status := failure("load", msg.err)
			return l, func() tea.Msg { return status }
		}
		l.listing = msg.listing
		if l.cursor >= len(l.listing.Tasks) {
			l.cursor = max(0, len(l.listing.Tasks)-1)
		}
		return l, nil

	case mutationMsg:
		if msg.cursor >= 0 {
			l.cursor = msg.cursor
		}
		status := msg.status
		return l, tea.Batch(l.refresh(), func() tea.Msg { return status })

	case tea.KeyMsg:
		return l.updateKeys(msg)
	}
	return l, nil
}

func (l listModel) updateKeys(msg tea.KeyMsg) (listModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.MoveUp):
		return l.move(-1)
	case key.Matches(msg, keys.MoveDown):
		return l.move(1)
	case key.Matches(msg, keys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case key.Matches(msg, keys.Down):
		if l.cursor < len(l.listing.Tasks)-1 {
			l.cursor++
		}
	case key.Matches(msg, keys.Delete):
		if t := l.selected(); t != nil {
			if l.timer.on(t.ID) {
				l.timer.stop()
			}
			return l, l.deleteTask(t)
		}
	}

	if l.done {
		return l, nil
	}

	switch {
	case key.Matches(msg, keys.New):
		return l.showForm("new", nil)
	case key.Matches(msg, keys.Edit):
		if t := l.selected(); t != nil {
			return l.showForm("edit", t)
		}
	case key.Matches(msg, keys.Complete):
		if t := l.selected(); t != nil {
			focused := time.Duration(t.DurationUnits) * l.unit
			if l.timer.on(t.ID) {
				focused = l.timer.stop()
			}
			return l, l.completeTask(t, focused)
		}
	case key.Matches(msg, keys.Focus):
		if t := l.selected(); t != nil {
			if l.timer.on(t.ID) {
				spent := l.timer.stop()
				return l, status(fmt.Sprintf("Focus stopped after %s", formatDuration(spent)))
			}
			l.timer.start(t.ID, t.Title)
			return l, status("Focusing on " + t.Title)
		}
	case key.Matches(msg, keys.Pause):
		l.timer.toggle()
	}
	return l, nil
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

// move swaps the selected task with its neighbour in the ranking.
func (l listModel) move(delta int) (listModel, tea.Cmd) {
	t := l.selected()
	if t == nil || l.done {
		return l, nil
	}
	target := l.cursor + delta
	if target < 0 || target >= len(l.listing.Tasks) {
		return l, nil
	}
	from, to := t.Rank(), l.listing.Tasks[target].Rank()
	b := l.backend
	return l, func() tea.Msg {
		if err := b.ReorderTask(context.Background(), from, to); err != nil {
			return mutationMsg{status: failure("move", err), cursor: -1}
		}
		return mutationMsg{cursor: target}
	}
}

func (l listModel) deleteTask(t *store.Task) tea.Cmd {
	b, id, title := l.backend, t.ID, t.Title
	return func() tea.Msg {
		if err := b.DeleteTask(context.Background(), id); err != nil {
			return mutationMsg{status: failure("delete", err), cursor: -1}
		}
		return mutationMsg{status: statusMsg{text: "Deleted " + title}, cursor: -1}
	}
}

func (l listModel) completeTask(t *store.Task, focused time.Duration) tea.Cmd {
	b, id := l.backend, t.ID
	return func() tea.Msg {
		done, err := b.CompleteTask(context.Background(), id, focused)
		if err != nil {
			return mutationMsg{status: failure("complete", err), cursor: -1}
		}
		return mutationMsg{
			status: statusMsg{text: fmt.Sprintf("Completed %s (%s focused)", done.Title, formatMinutes(done.Focused()))},
			cursor: -1,
		}
	}
}

func (l listModel) showForm(formType string, t *store.Task) (listModel, tea.Cmd) {
	l.formType = formType
	if t != nil {
		l.fields.load(t)
		l.editingID = t.ID
	} else {
		l.fields.reset(l.now())
		l.editingID = ""
	}
	l.form = newTaskForm(l.fields, l.now)
	l.formActive = true
	return l, l.form.Init()
}

func (l listModel) updateForm(msg tea.Msg) (listModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			l.formActive = false
			l.form = nil
			return l, nil
		}
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}

	switch l.form.State {
	case huh.StateAborted:
		l.formActive = false
		l.form = nil
		return l, nil
	case huh.StateCompleted:
		l.formActive = false
		l.form = nil
		return l, l.submit()
	}
	return l, cmd
}

func (l listModel) submit() tea.Cmd {
	b, now := l.backend, l.now()
	fields := *l.fields

	if l.formType == "edit" {
		id := l.editingID
		return func() tea.Msg {
			p, err := fields.patch(now)
			if err != nil {
				return mutationMsg{status: failure("edit", err), cursor: -1}
			}
			before, err := b.GetTask(context.Background(), id)
			if err != nil {
				return mutationMsg{status: failure("edit", err), cursor: -1}
			}
			t, err := b.UpdateTask(context.Background(), id, p)
			if err != nil {
				return mutationMsg{status: failure("edit", err), cursor: -1}
			}
			text := "Saved " + t.Title
			if !before.Date.Equal(t.Date) {
				text += " (new date; use K/J to move it)"
			}
			return mutationMsg{status: statusMsg{text: text}, cursor: -1}
		}
	}

	return func() tea.Msg {
		d, err := fields.draft(now)
		if err != nil {
			return mutationMsg{status: failure("new", err), cursor: -1}
		}
		t, err := b.CreateTask(context.Background(), d)
		if err != nil {
			return mutationMsg{status: failure("new", err), cursor: -1}
		}
		return mutationMsg{status: statusMsg{text: "Added " + t.Title}, cursor: t.Rank() - 1}
	}
}

func (l listModel) view() string {
	if l.formActive && l.form != nil {
		title := titleStyle.Render("New Task")
		if l.formType == "edit" {
			title = titleStyle.Render("Edit Task")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", l.form.View())
		return panelStyle.Width(l.width - 4).Render(content)
	}
	if l.done {
		return l.renderDone()
	}
	return l.renderActive()
}

func (l listModel) renderActive() string {
	w := l.width - 4
	tasks := l.listing.Tasks
	title := titleStyle.Render("Tasks")

	if len(tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("Nothing planned. Press n to add a task."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var planned int
	for _, t := range tasks {
		planned += t.DurationUnits
	}
	summary := mutedStyle.Render(fmt.Sprintf("%d tasks over %d days, %s planned",
		len(tasks), len(l.listing.Days), formatMinutes(time.Duration(planned)*l.unit)))

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", summary)}
	now := l.now()
	var lastDay string
	for i, t := range tasks {
		if day := t.Date.Format("2006-01-02"); day != lastDay {
			lastDay = day
			rows = append(rows, "", dayStyle.Render(dayLabel(t.Date, now)))
		}

		cursor := "  "
		style := normalItemStyle
		if i == l.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := style.Render(fmt.Sprintf("%s%2d. %s", cursor, t.Rank(), t.Title))
		line += " " + accentStyle.Render(units(t.DurationUnits))
		if len(t.Categories) > 0 {
			line += mutedStyle.Render(" [" + strings.Join(t.Categories, ", ") + "]")
		}
		if l.timer.on(t.ID) {
			line += " " + timerRunningStyle.Render(formatDuration(l.timer.currentElapsed()))
		}
		rows = append(rows, line)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  x: complete  d: delete  K/J: move  s: focus"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (l listModel) renderDone() string {
	w := l.width - 4
	tasks := l.listing.Tasks
	title := titleStyle.Render("Done")

	if len(tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No completed tasks yet."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var total time.Duration
	for _, t := range tasks {
		total += t.Focused()
	}

	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", mutedStyle.Render(formatMinutes(total)+" focused")),
		"",
		mutedStyle.Render(fmt.Sprintf("  %-12s %-32s %8s  %s", "Date", "Title", "Focused", "Added")),
	}
	for i, t := range tasks {
		cursor := "  "
		style := normalItemStyle
		if i == l.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-12s %-32s %8s  %s",
			cursor, t.Date.Format("2006-01-02"), truncate(t.Title, 32), formatMinutes(t.Focused()),
			humanize.RelTime(t.CreatedAt, l.now(), "ago", "from now"))))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
