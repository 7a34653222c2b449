// Package tasks records the lifecycle of long-running privileged
// operations for the UI. It is an observability aid, not a system of
// record: every mutation is a no-op on unknown or terminal ids.
package tasks

import (
	"sync"
	"time"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusCancelled
}

// Task is one tracked operation. Progress is clamped to [0, 100]; on
// success it is forced to 100, on cancel it freezes at the last value.
type Task struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Target    string     `json:"target"`
	Status    Status     `json:"status"`
	Progress  int        `json:"progress"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Event is pushed through the notify hook on every visible change.
type Event struct {
	Channel string `json:"channel"`
	Task    Task   `json:"task"`
}

// DefaultRetention is how long a successful task stays visible before
// automatic removal.
const DefaultRetention = 30 * time.Second

// Tracker owns the visible task list. Ids are monotonically increasing
// and never reused; the list is kept most-recent-first.
type Tracker struct {
	mu        sync.Mutex
	nextID    int64
	order     []int64
	tasks     map[int64]*Task
	timers    map[int64]*time.Timer
	retention time.Duration
	now       func() time.Time
	notify    func(Event)
	closed    bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRetention overrides the success auto-removal delay.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

// WithClock injects a time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithNotify registers a hook invoked (outside the tracker lock) with
// progress and completion events.
func WithNotify(fn func(Event)) Option {
	return func(t *Tracker) { t.notify = fn }
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		tasks:     make(map[int64]*Task),
		timers:    make(map[int64]*time.Timer),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Create allocates a new running task and returns its id.
func (t *Tracker) Create(name, target string) int64 {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	task := &Task{
		ID:        id,
		Name:      name,
		Target:    target,
		Status:    StatusRunning,
		StartTime: t.now(),
	}
	t.tasks[id] = task
	t.order = append([]int64{id}, t.order...)
	snapshot := *task
	t.mu.Unlock()

	t.emit(Event{Channel: "task:progress", Task: snapshot})
	return id
}

// UpdateProgress clamps progress into [0, 100] and stores it. No-op
// unless the task exists and is still running.
func (t *Tracker) UpdateProgress(id int64, progress int) {
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok || task.Status != StatusRunning {
		t.mu.Unlock()
		return
	}
	task.Progress = progress
	snapshot := *task
	t.mu.Unlock()

	t.emit(Event{Channel: "task:progress", Task: snapshot})
}

// Complete transitions a running task to success or error and stamps
// the end time. Success schedules automatic removal after the
// retention delay.
func (t *Tracker) Complete(id int64, success bool) {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok || task.Status != StatusRunning {
		t.mu.Unlock()
		return
	}

	end := t.now()
	task.EndTime = &end
	if success {
		task.Status = StatusSuccess
		task.Progress = 100
		if !t.closed {
			t.timers[id] = time.AfterFunc(t.retention, func() { t.remove(id) })
		}
	} else {
		task.Status = StatusError
	}
	snapshot := *task
	t.mu.Unlock()

	t.emit(Event{Channel: "task:completed", Task: snapshot})
}

// Cancel marks a running task cancelled. Progress freezes at its last
// observed value; the in-flight privileged command is not signalled.
func (t *Tracker) Cancel(id int64) {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok || task.Status != StatusRunning {
		t.mu.Unlock()
		return
	}

	end := t.now()
	task.Status = StatusCancelled
	task.EndTime = &end
	snapshot := *task
	t.mu.Unlock()

	t.emit(Event{Channel: "task:completed", Task: snapshot})
}

// ClearCompleted removes every non-running task immediately, bypassing
// the retention delay.
func (t *Tracker) ClearCompleted() {
	t.mu.Lock()
	var keep []int64
	for _, id := range t.order {
		task := t.tasks[id]
		if task.Status == StatusRunning {
			keep = append(keep, id)
			continue
		}
		delete(t.tasks, id)
		if timer, ok := t.timers[id]; ok {
			timer.Stop()
			delete(t.timers, id)
		}
	}
	t.order = keep
	t.mu.Unlock()
}

// List returns a most-recent-first snapshot of the visible tasks.
func (t *Tracker) List() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Task, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.tasks[id])
	}
	return out
}

// Get returns a snapshot of one task.
func (t *Tracker) Get(id int64) (Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Close stops all pending removal timers so teardown is deterministic.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *Tracker) remove(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tasks[id]; !ok {
		return
	}
	delete(t.tasks, id)
	delete(t.timers, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *Tracker) emit(ev Event) {
	if t.notify != nil {
		t.notify(ev)
	}
}
