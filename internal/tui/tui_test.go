package tui

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
)

var testDay = store.Day(time.Date(2024, 5, 14, 9, 0, 0, 0, time.Local))

func newTestBackend(t *testing.T) *taskstore.Service {
	t.Helper()
	s, err := store.NewMemory(context.Background())
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return taskstore.New(s, zerolog.Nop())
}

func addTask(t *testing.T, b taskstore.Backend, title string, date time.Time, units int) *store.Task {
	t.Helper()
	task, err := b.CreateTask(context.Background(), taskstore.Draft{Date: date, Title: title, DurationUnits: units})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return task
}

// loaded runs the model's refresh and feeds the result back in.
func loaded(t *testing.T, l listModel) listModel {
	t.Helper()
	l, _ = l.update(l.refresh()())
	return l
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// fakeClock returns a settable clock.
func fakeClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

// ============================================================
// Focus timer
// ============================================================

func TestTimerStartStop(t *testing.T) {
	now, clock := fakeClock(time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC))
	tm := newFocusTimer()
	tm.now = clock

	if tm.running() {
		t.Fatal("timer should start stopped")
	}

	tm.start("a", "Write report")
	if !tm.running() || tm.paused() {
		t.Fatal("timer should be running after start")
	}
	if !tm.on("a") || tm.on("b") {
		t.Fatal("timer should only be on task a")
	}

	*now = now.Add(90 * time.Second)
	if got := tm.stop(); got != 90*time.Second {
		t.Fatalf("stop returned %v, want 1m30s", got)
	}
	if tm.running() || tm.taskID != "" {
		t.Fatal("timer should be reset after stop")
	}
}

func TestTimerStopWhenStopped(t *testing.T) {
	tm := newFocusTimer()
	if got := tm.stop(); got != 0 {
		t.Fatalf("stop on stopped timer returned %v", got)
	}
}

func TestTimerPauseResume(t *testing.T) {
	now, clock := fakeClock(time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC))
	tm := newFocusTimer()
	tm.now = clock
	tm.start("a", "A")

	*now = now.Add(10 * time.Minute)
	tm.pause()
	if !tm.paused() {
		t.Fatal("timer should be paused")
	}

	*now = now.Add(5 * time.Minute)
	if got := tm.currentElapsed(); got != 10*time.Minute {
		t.Fatalf("elapsed while paused = %v, want 10m", got)
	}

	tm.resume()
	*now = now.Add(time.Minute)
	if got := tm.currentElapsed(); got != 11*time.Minute {
		t.Fatalf("elapsed after resume = %v, want 11m", got)
	}
}

func TestTimerToggle(t *testing.T) {
	tm := newFocusTimer()
	tm.toggle()
	if tm.running() {
		t.Fatal("toggle should not start a stopped timer")
	}

	tm.start("a", "A")
	tm.toggle()
	if !tm.paused() {
		t.Fatal("toggle should pause")
	}
	tm.toggle()
	if tm.paused() || !tm.running() {
		t.Fatal("toggle should resume")
	}
}

func TestTimerPauseWhenNotRunning(t *testing.T) {
	tm := newFocusTimer()
	tm.pause()
	if tm.paused() {
		t.Fatal("should not pause a stopped timer")
	}
	tm.resume()
	if tm.running() {
		t.Fatal("should not resume a stopped timer")
	}
}

// ============================================================
// Helper functions
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{90 * time.Second, "00:01:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m"},
		{25 * time.Minute, "25m"},
		{29*time.Minute + 40*time.Second, "30m"},
		{75 * time.Minute, "1h15m"},
		{2 * time.Hour, "2h00m"},
	}
	for _, tt := range tests {
		if got := formatMinutes(tt.d); got != tt.want {
			t.Errorf("formatMinutes(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestUnits(t *testing.T) {
	if got := units(3); got != "●●●" {
		t.Fatalf("units(3) = %q", got)
	}
}

func TestDayLabel(t *testing.T) {
	today := testDay.Add(10 * time.Hour)
	tests := []struct {
		d    time.Time
		want string
	}{
		{testDay, "Today"},
		{testDay.AddDate(0, 0, 1), "Tomorrow"},
		{testDay.AddDate(0, 0, -1), "Yesterday"},
		{testDay.AddDate(0, 0, 3), "Fri, May 17"},
	}
	for _, tt := range tests {
		if got := dayLabel(tt.d, today); got != tt.want {
			t.Errorf("dayLabel(%s) = %q, want %q", tt.d.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("a long task title", 6); got != "a lon…" {
		t.Fatalf("got %q", got)
	}
}

func TestFailure(t *testing.T) {
	if s := failure("new", &taskstore.ValidationError{Field: "title", Reason: "must not be empty"}); !s.isWarning {
		t.Fatal("validation errors should be warnings")
	}
	if s := failure("edit", store.ErrNotFound); !s.isWarning || !strings.Contains(s.text, "no longer exists") {
		t.Fatalf("not found status = %+v", s)
	}
	if s := failure("load", errors.New("disk on fire")); !s.isError || !strings.Contains(s.text, "load") {
		t.Fatalf("other error status = %+v", s)
	}
}

// ============================================================
// View state
// ============================================================

func TestViewNames(t *testing.T) {
	if len(viewNames) != 3 {
		t.Fatalf("expected 3 view names, got %d", len(viewNames))
	}
	if viewNames[viewTasks] != "Tasks" || viewNames[viewDone] != "Done" || viewNames[viewFocus] != "Focus" {
		t.Fatalf("unexpected view names %v", viewNames)
	}
}

// ============================================================
// Task list
// ============================================================

func TestListLoadsActiveTasks(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "A", testDay, 1)
	addTask(t, b, "B", testDay.AddDate(0, 0, 1), 2)

	l := loaded(t, newListModel(b, false, 25*time.Minute))
	if len(l.listing.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(l.listing.Tasks))
	}
	if l.selected().Title != "A" {
		t.Fatalf("expected A selected, got %q", l.selected().Title)
	}
}

func TestListIgnoresOtherListing(t *testing.T) {
	b := newTestBackend(t)
	l := newListModel(b, false, time.Minute)
	l, _ = l.update(listLoadedMsg{done: true, listing: &taskstore.Listing{Tasks: []*store.Task{{ID: "x"}}}})
	if len(l.listing.Tasks) != 0 {
		t.Fatal("active list should ignore the done listing")
	}
}

func TestListCursorNavigation(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "A", testDay, 1)
	addTask(t, b, "B", testDay, 1)

	l := loaded(t, newListModel(b, false, time.Minute))
	l, _ = l.update(runes("j"))
	if l.cursor != 1 {
		t.Fatalf("cursor = %d after down", l.cursor)
	}
	l, _ = l.update(runes("j"))
	if l.cursor != 1 {
		t.Fatal("cursor should stop at the last row")
	}
	l, _ = l.update(tea.KeyMsg{Type: tea.KeyUp})
	if l.cursor != 0 {
		t.Fatalf("cursor = %d after up", l.cursor)
	}
}

func TestListCursorClampsAfterReload(t *testing.T) {
	b := newTestBackend(t)
	a := addTask(t, b, "A", testDay, 1)
	addTask(t, b, "B", testDay, 1)

	l := loaded(t, newListModel(b, false, time.Minute))
	l.cursor = 1
	if err := b.DeleteTask(context.Background(), a.ID); err != nil {
		t.Fatal(err)
	}
	l = loaded(t, l)
	if l.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", l.cursor)
	}
}

func TestListMoveDownReorders(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "A", testDay, 1)
	addTask(t, b, "B", testDay, 1)

	l := loaded(t, newListModel(b, false, time.Minute))
	l, cmd := l.update(runes("J"))
	if cmd == nil {
		t.Fatal("move should return a command")
	}
	msg, ok := cmd().(mutationMsg)
	if !ok {
		t.Fatal("move should produce a mutation message")
	}
	if msg.cursor != 1 {
		t.Fatalf("cursor after move = %d, want 1", msg.cursor)
	}

	listing, err := b.ListActive(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if listing.Tasks[0].Title != "B" || listing.Tasks[1].Title != "A" {
		t.Fatalf("unexpected order after move: %s, %s", listing.Tasks[0].Title, listing.Tasks[1].Title)
	}
}

func TestListMoveAtEdgeIsNoop(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "A", testDay, 1)

	l := loaded(t, newListModel(b, false, time.Minute))
	if _, cmd := l.update(runes("K")); cmd != nil {
		t.Fatal("moving the first task up should do nothing")
	}
}

func TestListCompleteCreditsPlannedUnits(t *testing.T) {
	b := newTestBackend(t)
	task := addTask(t, b, "A", testDay, 2)

	l := loaded(t, newListModel(b, false, 25*time.Minute))
	_, cmd := l.update(runes("x"))
	if cmd == nil {
		t.Fatal("complete should return a command")
	}
	cmd()

	got, err := b.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Done || got.Focused() != 50*time.Minute {
		t.Fatalf("done=%v focused=%v, want done with 50m", got.Done, got.Focused())
	}
}

func TestListCompleteUsesStopwatch(t *testing.T) {
	b := newTestBackend(t)
	task := addTask(t, b, "A", testDay, 4)

	now, clock := fakeClock(time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC))
	l := loaded(t, newListModel(b, false, 25*time.Minute))
	l.timer.now = clock

	l, _ = l.update(runes("s"))
	if !l.timer.on(task.ID) {
		t.Fatal("focus key should start the stopwatch")
	}
	*now = now.Add(7 * time.Minute)

	l, cmd := l.update(runes("x"))
	if l.timer.running() {
		t.Fatal("completing should stop the stopwatch")
	}
	cmd()

	got, err := b.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Focused() != 7*time.Minute {
		t.Fatalf("focused = %v, want 7m", got.Focused())
	}
}

func TestListDelete(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "A", testDay, 1)
	addTask(t, b, "B", testDay, 1)

	l := loaded(t, newListModel(b, false, time.Minute))
	_, cmd := l.update(runes("d"))
	cmd()

	listing, err := b.ListActive(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Tasks) != 1 || listing.Tasks[0].Title != "B" || listing.Tasks[0].Rank() != 1 {
		t.Fatal("B should be the only task, ranked first")
	}
}

func TestDoneListIsReadOnly(t *testing.T) {
	b := newTestBackend(t)
	task := addTask(t, b, "A", testDay, 1)
	if _, err := b.CompleteTask(context.Background(), task.ID, time.Minute); err != nil {
		t.Fatal(err)
	}

	l := loaded(t, newListModel(b, true, time.Minute))
	if len(l.listing.Tasks) != 1 {
		t.Fatalf("expected 1 done task, got %d", len(l.listing.Tasks))
	}
	for _, k := range []string{"n", "e", "x", "J"} {
		if _, cmd := l.update(runes(k)); cmd != nil {
			t.Fatalf("key %q should do nothing on the done list", k)
		}
	}
}

func TestListNewFormActivates(t *testing.T) {
	b := newTestBackend(t)
	l := loaded(t, newListModel(b, false, time.Minute))
	l, _ = l.update(runes("n"))
	if !l.formActive || l.formType != "new" {
		t.Fatal("n should open the new task form")
	}

	l, _ = l.update(tea.KeyMsg{Type: tea.KeyEsc})
	if l.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestListViews(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "Write report", testDay, 2)

	for _, done := range []bool{false, true} {
		l := loaded(t, newListModel(b, done, time.Minute))
		l.setSize(120, 40)
		if out := l.view(); out == "" {
			t.Fatalf("view (done=%v) rendered empty", done)
		}
	}

	l := loaded(t, newListModel(b, false, time.Minute))
	l.setSize(120, 40)
	if !strings.Contains(l.view(), "Write report") {
		t.Fatal("active view should list the task")
	}
}

// ============================================================
// Task form
// ============================================================

func TestTaskFieldsDraft(t *testing.T) {
	f := &taskFields{}
	f.reset(testDay)
	if f.date != "2024-05-14" || f.units != 1 {
		t.Fatalf("reset = %+v", f)
	}

	f.title = "  Plan sprint "
	f.categories = "work, , planning"
	d, err := f.draft(testDay)
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Plan sprint" {
		t.Fatalf("title = %q", d.Title)
	}
	if len(d.Categories) != 2 {
		t.Fatalf("categories = %v", d.Categories)
	}
	if !d.Date.Equal(testDay) {
		t.Fatalf("date = %v", d.Date)
	}
}

func TestTaskFieldsBadDate(t *testing.T) {
	f := &taskFields{title: "A", date: "someday", units: 1}
	if _, err := f.draft(testDay); !errors.Is(err, taskstore.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.patch(testDay); !errors.Is(err, taskstore.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTaskFieldsLoad(t *testing.T) {
	f := &taskFields{}
	f.load(&store.Task{Title: "A", Date: testDay, Categories: []string{"x", "y"}, DurationUnits: 3})
	if f.title != "A" || f.date != "2024-05-14" || f.categories != "x, y" || f.units != 3 {
		t.Fatalf("load = %+v", f)
	}
}

// ============================================================
// Focus chart
// ============================================================

func TestFocusPerDay(t *testing.T) {
	f := newFocusModel(nil)
	f.now = func() time.Time { return testDay.Add(12 * time.Hour) }
	f.done = []*store.Task{
		{Title: "A", Date: testDay, FocusedMillis: (25 * time.Minute).Milliseconds(), Done: true},
		{Title: "B", Date: testDay, FocusedMillis: (5 * time.Minute).Milliseconds(), Done: true},
		{Title: "C", Date: testDay.AddDate(0, 0, -3), FocusedMillis: time.Hour.Milliseconds(), Done: true},
		{Title: "old", Date: testDay.AddDate(0, 0, -20), FocusedMillis: time.Hour.Milliseconds(), Done: true},
	}

	sums := f.perDay()
	if sums["2024-05-14"] != 30*time.Minute {
		t.Fatalf("today = %v, want 30m", sums["2024-05-14"])
	}
	if sums["2024-05-11"] != time.Hour {
		t.Fatalf("May 11 = %v, want 1h", sums["2024-05-11"])
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 days in range, got %d", len(sums))
	}

	f.offset = 2
	if sums := f.perDay(); sums["2024-04-24"] != time.Hour {
		t.Fatalf("two weeks back = %v", sums)
	}
}

func TestFocusNavigation(t *testing.T) {
	f := newFocusModel(nil)
	f.setSize(100, 40)
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyLeft})
	if f.offset != 1 {
		t.Fatalf("offset = %d after left", f.offset)
	}
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyRight})
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyRight})
	if f.offset != 0 {
		t.Fatalf("offset = %d, should not go into the future", f.offset)
	}
}

func TestFocusLoadsDoneTasks(t *testing.T) {
	b := newTestBackend(t)
	task := addTask(t, b, "A", store.Day(time.Now()), 1)
	if _, err := b.CompleteTask(context.Background(), task.ID, 20*time.Minute); err != nil {
		t.Fatal(err)
	}

	f := newFocusModel(b)
	f.setSize(100, 40)
	f, _ = f.update(f.refresh()())
	if len(f.done) != 1 {
		t.Fatalf("expected 1 done task, got %d", len(f.done))
	}
	if !strings.Contains(f.view(), "20m") {
		t.Fatal("view should show today's focus time")
	}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)

	if app.activeView != viewTasks {
		t.Fatal("default view should be tasks")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppViewStates(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)
	app.width = 120
	app.height = 40

	for _, v := range []viewState{viewTasks, viewDone, viewFocus} {
		app.activeView = v
		if output := app.View(); output == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppTabSwitching(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)

	m, cmd := app.Update(runes("2"))
	app = m.(App)
	if app.activeView != viewDone {
		t.Fatal("2 should switch to the done view")
	}
	if cmd == nil {
		t.Fatal("switching views should refresh")
	}

	m, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = m.(App)
	if app.activeView != viewFocus {
		t.Fatal("tab should advance to the focus view")
	}

	m, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = m.(App)
	if app.activeView != viewTasks {
		t.Fatal("tab should wrap around to tasks")
	}
}

func TestAppRoutesLoadedListing(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "A", testDay, 1)
	app := NewApp(b, 25*time.Minute)

	m, _ := app.Update(app.tasks.refresh()())
	app = m.(App)
	if len(app.tasks.listing.Tasks) != 1 {
		t.Fatal("tasks view should receive the active listing")
	}
	if len(app.done.listing.Tasks) != 0 {
		t.Fatal("done view should not receive the active listing")
	}
}

func TestAppFormCapturesKeys(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)
	m, _ := app.Update(runes("n"))
	app = m.(App)
	if !app.isFormActive() {
		t.Fatal("n should open the form")
	}

	m, _ = app.Update(runes("2"))
	app = m.(App)
	if app.activeView != viewTasks {
		t.Fatal("keys should go to the form while it is open")
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)
	app.width = 120
	app.height = 40

	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)
	// Width 0 means not yet sized
	if output := app.View(); output != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", output)
	}
}

func TestAppStatusMessage(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)
	app.width = 120
	app.height = 40

	m, _ := app.Update(statusMsg{text: "test status", isWarning: true})
	app = m.(App)
	if !strings.Contains(app.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppFooterShowsStopwatch(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)
	app.width = 160
	app.height = 40
	app.tasks.timer.start("a", "Deep work")

	if !strings.Contains(app.renderFooter(), "Deep work") {
		t.Fatal("footer should show the running stopwatch")
	}
}

func TestAppExportPicker(t *testing.T) {
	app := NewApp(newTestBackend(t), 25*time.Minute)
	m, _ := app.Update(runes("E"))
	app = m.(App)
	if !app.exportPicking {
		t.Fatal("E should open the export picker")
	}

	m, _ = app.Update(runes("j"))
	app = m.(App)
	if app.exportCursor != 1 {
		t.Fatal("down should select JSON")
	}

	m, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = m.(App)
	if app.exportPicking {
		t.Fatal("esc should close the export picker")
	}
}

func TestAppExport(t *testing.T) {
	b := newTestBackend(t)
	addTask(t, b, "A", testDay, 1)
	done := addTask(t, b, "B", testDay, 1)
	if _, err := b.CompleteTask(context.Background(), done.ID, time.Minute); err != nil {
		t.Fatal(err)
	}

	app := NewApp(b, 25*time.Minute)
	app.exportDir = t.TempDir()

	for format, ext := range []string{".csv", ".json"} {
		msg, ok := app.doExport(format)().(exportDoneMsg)
		if !ok {
			t.Fatalf("export %s did not finish", ext)
		}
		if !strings.HasSuffix(msg.path, ext) {
			t.Fatalf("export path %q, want %s", msg.path, ext)
		}
		if _, err := os.Stat(msg.path); err != nil {
			t.Fatalf("export file missing: %v", err)
		}
	}

	tasks, err := allTasks(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].Title != "A" || tasks[1].Title != "B" {
		t.Fatal("export should hold the active tasks then the done ones")
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}
