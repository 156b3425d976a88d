package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomolist/internal/export"
	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
)

// App is the root Bubble Tea model.
type App struct {
	backend taskstore.Backend
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string

	tasks listModel
	done  listModel
	focus focusModel

	help   help.Model
	status statusMsg
}

// NewApp builds the UI over b. unit is the length of one pomodoro and is
// credited as focus time when a task is completed without the stopwatch.
func NewApp(b taskstore.Backend, unit time.Duration) App {
	h := help.New()
	h.ShowAll = false

	dir, _ := os.UserHomeDir()
	return App{
		backend:    b,
		activeView: viewTasks,
		exportDir:  dir,
		tasks:      newListModel(b, false, unit),
		done:       newListModel(b, true, unit),
		focus:      newFocusModel(b),
		help:       h,
	}
}

// Run starts the program and blocks until the user quits.
func Run(b taskstore.Backend, unit time.Duration) error {
	_, err := tea.NewProgram(NewApp(b, unit), tea.WithAltScreen()).Run()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.tasks.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tasks.setSize(a.width, contentHeight)
		a.done.setSize(a.width, contentHeight)
		a.focus.setSize(a.width, contentHeight)
		a.focus.buildChart()
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTasks
			return a, a.refreshCurrentView()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewDone
			return a, a.refreshCurrentView()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewFocus
			return a, a.refreshCurrentView()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		// Ticks only redraw the stopwatch.
		return a, tickCmd()

	case listLoadedMsg:
		var cmd tea.Cmd
		if msg.done {
			a.done, cmd = a.done.update(msg)
		} else {
			a.tasks, cmd = a.tasks.update(msg)
		}
		return a, cmd

	case focusDataMsg:
		var cmd tea.Cmd
		a.focus, cmd = a.focus.update(msg)
		return a, cmd

	case statusMsg:
		a.status = msg
		return a, nil

	case exportDoneMsg:
		a.status = statusMsg{text: "Exported to " + msg.path}
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewDone:
		a.done, cmd = a.done.update(msg)
	case viewFocus:
		a.focus, cmd = a.focus.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewTasks && a.tasks.formActive
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTasks:
		return a.tasks.refresh()
	case viewDone:
		return a.done.refresh()
	case viewFocus:
		return a.focus.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTasks:
		content = a.tasks.view()
	case viewDone:
		content = a.done.view()
	case viewFocus:
		content = a.focus.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("pomolist")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status.text != "" {
		style := mutedStyle
		switch {
		case a.status.isError:
			style = errorStyle
		case a.status.isWarning:
			style = warningStyle
		}
		status = style.Render(" " + a.status.text)
	}

	// Stopwatch indicator in footer
	timerInfo := ""
	if t := a.tasks.timer; t.running() {
		elapsed := formatDuration(t.currentElapsed())
		timerInfo = successStyle.Render(" ● " + truncate(t.taskTitle, 20) + " " + elapsed)
		if t.paused() {
			timerInfo = warningStyle.Render(" ⏸ " + truncate(t.taskTitle, 20) + " " + elapsed)
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// allTasks returns the active tasks in rank order followed by the done ones.
func allTasks(ctx context.Context, b taskstore.Backend) ([]*store.Task, error) {
	active, err := b.ListActive(ctx, false)
	if err != nil {
		return nil, err
	}
	done, err := b.ListActive(ctx, true)
	if err != nil {
		return nil, err
	}
	return append(active.Tasks, done.Tasks...), nil
}

func (a App) doExport(format int) tea.Cmd {
	b, dir := a.backend, a.exportDir
	return func() tea.Msg {
		tasks, err := allTasks(context.Background(), b)
		if err != nil {
			return failure("export", err)
		}

		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("pomolist-export-%s.csv", dateStr))
			if err := export.ToCSV(tasks, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("pomolist-export-%s.json", dateStr))
			if err := export.ToJSON(tasks, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
