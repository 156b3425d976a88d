package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
)

// focusModel charts the focus time of completed tasks per day.
type focusModel struct {
	backend taskstore.Backend
	now     func() time.Time
	width   int
	height  int

	done   []*store.Task
	offset int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newFocusModel(b taskstore.Backend) focusModel {
	return focusModel{
		backend: b,
		now:     time.Now,
		chart:   barchart.New(60, 12),
	}
}

func (f *focusModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

type focusDataMsg struct {
	tasks []*store.Task
	err   error
}

func (f focusModel) refresh() tea.Cmd {
	b := f.backend
	return func() tea.Msg {
		l, err := b.ListActive(context.Background(), true)
		if err != nil {
			return focusDataMsg{err: err}
		}
		return focusDataMsg{tasks: l.Tasks}
	}
}

// dateRange returns the 7 days ending today, shifted back by offset weeks.
func (f focusModel) dateRange() (time.Time, time.Time) {
	today := store.Day(f.now())
	end := today.AddDate(0, 0, 1-7*f.offset)
	return end.AddDate(0, 0, -7), end
}

func (f focusModel) update(msg tea.Msg) (focusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case focusDataMsg:
		if msg.err != nil {
			status := failure("load", msg.err)
			return f, func() tea.Msg { return status }
		}
		f.done = msg.tasks
		f.buildChart()
		return f, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			f.offset++
			f.buildChart()
		case key.Matches(msg, keys.Right):
			if f.offset > 0 {
				f.offset--
			}
			f.buildChart()
		}
	}
	return f, nil
}

// perDay sums focus time per calendar day inside the current range.
func (f focusModel) perDay() map[string]time.Duration {
	from, to := f.dateRange()
	sums := make(map[string]time.Duration)
	for _, t := range f.done {
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		sums[t.Date.Format("2006-01-02")] += t.Focused()
	}
	return sums
}

func (f *focusModel) buildChart() {
	chartWidth := f.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if f.height > 30 {
		chartHeight = 16
	}

	f.chart = barchart.New(chartWidth, chartHeight)

	sums := f.perDay()
	from, to := f.dateRange()
	barStyle := lipgloss.NewStyle().Foreground(colorPrimary)

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		minutes := sums[d.Format("2006-01-02")].Minutes()
		style := barStyle
		if minutes == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: []barchart.BarValue{{Name: "focus", Value: minutes, Style: style}},
		})
	}

	f.chart.PushAll(bars)
	f.chart.Draw()
}

func (f focusModel) view() string {
	w := f.width - 4

	from, to := f.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))

	var total time.Duration
	for _, d := range f.perDay() {
		total += d
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Focus"), "  ", dateLabel, "  ", successStyle.Render(formatMinutes(total)),
	)

	nav := mutedStyle.Render("  ←/→: navigate weeks")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", f.chart.View(), "", f.renderTable(w), "", nav,
		),
	)
}

func (f focusModel) renderTable(w int) string {
	from, to := f.dateRange()
	var rows []string
	for _, t := range f.done {
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		rows = append(rows, fmt.Sprintf("  %-12s %-32s %8s %s",
			t.Date.Format("2006-01-02"), truncate(t.Title, 32), formatMinutes(t.Focused()), units(t.DurationUnits)))
	}
	if len(rows) == 0 {
		return mutedStyle.Render("  No focus time in this period")
	}

	head := []string{
		mutedStyle.Render(fmt.Sprintf("  %-12s %-32s %8s %s", "Date", "Task", "Focused", "Planned")),
		mutedStyle.Render("  " + strings.Repeat("─", min(w-6, 64))),
	}
	return strings.Join(append(head, rows...), "\n")
}
