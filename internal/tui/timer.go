package tui

import "time"

// timerState tracks the focus stopwatch.
type timerState int

const (
	timerStopped timerState = iota
	timerRunning
	timerPaused
)

// focusTimer measures focus time on one task. It holds no storage; the
// measured time is handed to CompleteTask when the task is completed.
type focusTimer struct {
	state     timerState
	startTime time.Time
	pausedAt  time.Time
	pauseGap  time.Duration

	taskID    string
	taskTitle string

	now func() time.Time
}

func newFocusTimer() focusTimer {
	return focusTimer{state: timerStopped, now: time.Now}
}

func (t *focusTimer) start(taskID, title string) {
	t.state = timerRunning
	t.startTime = t.now()
	t.pauseGap = 0
	t.taskID = taskID
	t.taskTitle = title
}

// stop resets the timer and returns the focus time it measured.
func (t *focusTimer) stop() time.Duration {
	if t.state == timerStopped {
		return 0
	}
	elapsed := t.currentElapsed()
	*t = focusTimer{state: timerStopped, now: t.now}
	return elapsed
}

func (t *focusTimer) pause() {
	if t.state != timerRunning {
		return
	}
	t.state = timerPaused
	t.pausedAt = t.now()
}

func (t *focusTimer) resume() {
	if t.state != timerPaused {
		return
	}
	t.pauseGap += t.now().Sub(t.pausedAt)
	t.state = timerRunning
}

func (t *focusTimer) toggle() {
	switch t.state {
	case timerRunning:
		t.pause()
	case timerPaused:
		t.resume()
	}
}

func (t focusTimer) running() bool { return t.state != timerStopped }
func (t focusTimer) paused() bool  { return t.state == timerPaused }

// on reports whether the timer is measuring the given task.
func (t focusTimer) on(taskID string) bool {
	return t.running() && t.taskID == taskID
}

func (t focusTimer) currentElapsed() time.Duration {
	switch t.state {
	case timerRunning:
		return t.now().Sub(t.startTime) - t.pauseGap
	case timerPaused:
		return t.pausedAt.Sub(t.startTime) - t.pauseGap
	}
	return 0
}
