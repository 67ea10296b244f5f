package tasklog

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/tbd/internal/domain/task"
)

// TaskLog owns a task store and the action log recording every mutation
// applied to it. It is not safe for concurrent use.
type TaskLog struct {
	store   *task.Store
	entries []LogEntry

	now    func() time.Time
	newID  func() string
	policy task.CooldownPolicy
}

// Option configures a TaskLog.
type Option func(*TaskLog)

// WithClock sets the time source used for due dates and entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *TaskLog) { l.now = now }
}

// WithIDGenerator sets the generator for log entry IDs.
func WithIDGenerator(fn func() string) Option {
	return func(l *TaskLog) { l.newID = fn }
}

// WithCooldownPolicy sets how activation treats eligible tasks that were not promoted.
func WithCooldownPolicy(p task.CooldownPolicy) Option {
	return func(l *TaskLog) { l.policy = p }
}

// New creates an empty TaskLog.
func New(opts ...Option) *TaskLog {
	return Restore(task.NewStore(), nil, opts...)
}

// Restore creates a TaskLog from an existing store and log.
func Restore(store *task.Store, entries []LogEntry, opts ...Option) *TaskLog {
	l := &TaskLog{
		store:   store,
		entries: slices.Clone(entries),
		now:     time.Now,
		newID:   newEntryID,
		policy:  task.CooldownKeep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (l *TaskLog) append(now time.Time, a Action) LogEntry {
	e := LogEntry{ID: l.newID(), Timestamp: now, Action: a}
	l.entries = append(l.entries, e)
	return e
}

func (l *TaskLog) clock() time.Time {
	return l.now().UTC()
}

// Schedule adds an active task due dueIn from now and logs a ScheduleTask.
func (l *TaskLog) Schedule(title, description string, factor float64, dueIn time.Duration) (task.ActiveTask, error) {
	now := l.clock()
	a, err := l.store.AddActive(task.Task{Title: title, Description: description, Factor: factor}, dueIn, now)
	if err != nil {
		return task.ActiveTask{}, err
	}
	l.append(now, ScheduleTask{Task: a})
	return a, nil
}

// Pool adds a pooled task and logs a PoolTask.
func (l *TaskLog) Pool(title, description string, factor, probability float64, coolDown, dueDays time.Duration) (task.PooledTask, error) {
	now := l.clock()
	p, err := l.store.AddPooled(task.Task{Title: title, Description: description, Factor: factor}, probability, coolDown, dueDays, now)
	if err != nil {
		return task.PooledTask{}, err
	}
	l.append(now, PoolTask{Task: p})
	return p, nil
}

// MarkDone completes the active task with the given title and logs a
// CompleteTask. It returns false without touching the store or the log when
// no active task has that title.
func (l *TaskLog) MarkDone(title string) bool {
	a, ok := l.store.Complete(title)
	if !ok {
		return false
	}
	l.append(l.clock(), CompleteTask{Task: a})
	return true
}

// Activate runs the activation engine against the current time and logs
// the promoted tasks as a single ActivateTask entry. Calls that promote
// nothing are not logged.
func (l *TaskLog) Activate(rng task.Rand) []task.ActiveTask {
	now := l.clock()
	promoted := l.store.Activate(rng, now, l.policy)
	if len(promoted) > 0 {
		l.append(now, ActivateTask{Tasks: slices.Clone(promoted)})
	}
	return promoted
}

// Actives returns all active tasks ordered by title.
func (l *TaskLog) Actives() []task.ActiveTask { return l.store.Actives() }

// Pooled returns all pooled tasks ordered by title.
func (l *TaskLog) Pooled() []task.PooledTask { return l.store.Pooled() }

// Entries returns a copy of the log in insertion order.
func (l *TaskLog) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of log entries.
func (l *TaskLog) Len() int { return len(l.entries) }

// Last returns the most recent log entry.
func (l *TaskLog) Last() (LogEntry, bool) {
	if len(l.entries) == 0 {
		return LogEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}
