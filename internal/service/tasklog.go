package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	cfotel "github.com/Strob0t/tbd/internal/adapter/otel"
	"github.com/Strob0t/tbd/internal/domain"
	"github.com/Strob0t/tbd/internal/domain/task"
	"github.com/Strob0t/tbd/internal/domain/tasklog"
	"github.com/Strob0t/tbd/internal/port/snapshot"
)

// TaskLogService serializes access to one task log and connects it to a
// snapshot store, metrics, and the entry event stream.
type TaskLogService struct {
	mu  sync.Mutex
	log *tasklog.TaskLog
	rev uint64

	store    snapshot.Store
	location string
	backend  string
	opts     []tasklog.Option

	metrics *cfotel.Metrics
	events  *EntryPublisher
}

// NewTaskLogService creates a service holding an empty task log. Save and
// Load go to location on store; backend names the store in spans and metrics.
// opts configure the empty log; stores apply their own options on Load.
func NewTaskLogService(store snapshot.Store, location, backend string, opts ...tasklog.Option) *TaskLogService {
	m, _ := cfotel.NewMetrics(noop.NewMeterProvider())
	return &TaskLogService{
		log:      tasklog.New(opts...),
		store:    store,
		location: location,
		backend:  backend,
		opts:     opts,
		metrics:  m,
	}
}

// SetMetrics replaces the no-op instruments.
func (s *TaskLogService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// SetEvents enables publishing of new log entries.
func (s *TaskLogService) SetEvents(p *EntryPublisher) { s.events = p }

// Location returns the snapshot location used by Save and Load.
func (s *TaskLogService) Location() string { return s.location }

// Revision increases whenever the task log changes, including on Load.
func (s *TaskLogService) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Schedule adds an active task due dueInDays from now.
func (s *TaskLogService) Schedule(ctx context.Context, title, description string, factor float64, dueInDays int) (task.ActiveTask, error) {
	if err := ctx.Err(); err != nil {
		return task.ActiveTask{}, err
	}
	dueIn, err := task.DaysOf(dueInDays)
	if err != nil {
		return task.ActiveTask{}, fmt.Errorf("schedule %q: due in: %w", title, err)
	}
	s.mu.Lock()
	a, err := s.log.Schedule(title, description, factor, dueIn)
	if err != nil {
		s.mu.Unlock()
		return task.ActiveTask{}, fmt.Errorf("schedule %q: %w", title, err)
	}
	entry := s.commitLocked()
	s.mu.Unlock()

	s.metrics.TasksScheduled.Add(ctx, 1)
	s.publish(ctx, entry)
	return a, nil
}

// Pool adds a pooled task. Durations are given in whole days.
func (s *TaskLogService) Pool(ctx context.Context, title, description string, factor, probability float64, coolDownDays, dueDays int) (task.PooledTask, error) {
	if err := ctx.Err(); err != nil {
		return task.PooledTask{}, err
	}
	coolDown, err := task.DaysOf(coolDownDays)
	if err != nil {
		return task.PooledTask{}, fmt.Errorf("pool %q: cool down: %w", title, err)
	}
	due, err := task.DaysOf(dueDays)
	if err != nil {
		return task.PooledTask{}, fmt.Errorf("pool %q: due days: %w", title, err)
	}
	s.mu.Lock()
	p, err := s.log.Pool(title, description, factor, probability, coolDown, due)
	if err != nil {
		s.mu.Unlock()
		return task.PooledTask{}, fmt.Errorf("pool %q: %w", title, err)
	}
	entry := s.commitLocked()
	s.mu.Unlock()

	s.metrics.TasksPooled.Add(ctx, 1)
	s.publish(ctx, entry)
	return p, nil
}

// MarkDone completes the active task with the given title. It reports false
// when no active task has that title.
func (s *TaskLogService) MarkDone(ctx context.Context, title string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	if !s.log.MarkDone(title) {
		s.mu.Unlock()
		return false, nil
	}
	entry := s.commitLocked()
	s.mu.Unlock()

	s.metrics.TasksCompleted.Add(ctx, 1)
	s.publish(ctx, entry)
	return true, nil
}

// Activate runs one activation pass with rng and returns the promoted tasks.
func (s *TaskLogService) Activate(ctx context.Context, rng task.Rand) ([]task.ActiveTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	ctx, span := cfotel.StartActivationSpan(ctx, len(s.log.Pooled()))
	defer span.End()

	promoted := s.log.Activate(rng)
	var entry *tasklog.LogEntry
	if len(promoted) > 0 {
		entry = s.commitLocked()
	}
	s.mu.Unlock()

	s.metrics.Activations.Add(ctx, 1)
	if entry != nil {
		s.metrics.TasksPromoted.Add(ctx, int64(len(promoted)))
		s.publish(ctx, entry)
	}
	slog.DebugContext(ctx, "activation finished", "promoted", len(promoted))
	return promoted, nil
}

// Actives returns the active tasks ordered by title.
func (s *TaskLogService) Actives(_ context.Context) []task.ActiveTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Actives()
}

// Pooled returns the pooled tasks ordered by title.
func (s *TaskLogService) Pooled(_ context.Context) []task.PooledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Pooled()
}

// Entries returns the action log in insertion order.
func (s *TaskLogService) Entries(_ context.Context) []tasklog.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entries()
}

// Save writes the current task log to the configured location.
func (s *TaskLogService) Save(ctx context.Context) error {
	ctx, span := cfotel.StartSnapshotSpan(ctx, "save", s.backend, s.location)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	err := s.store.Save(ctx, s.location, s.log)
	s.mu.Unlock()

	s.recordSnapshot(ctx, span, "save", start, err)
	if err != nil {
		return fmt.Errorf("save %s: %w", s.location, err)
	}
	slog.InfoContext(ctx, "task log saved", "location", s.location, "backend", s.backend)
	return nil
}

// Load replaces the current task log with the snapshot at the configured
// location. On error the current log is kept.
func (s *TaskLogService) Load(ctx context.Context) error {
	ctx, span := cfotel.StartSnapshotSpan(ctx, "load", s.backend, s.location)
	defer span.End()
	start := time.Now()

	loaded, err := s.store.Load(ctx, s.location)
	s.recordSnapshot(ctx, span, "load", start, err)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.location, err)
	}

	s.mu.Lock()
	s.log = loaded
	s.rev++
	s.mu.Unlock()

	slog.InfoContext(ctx, "task log loaded", "location", s.location, "backend", s.backend, "entries", loaded.Len())
	return nil
}

// LoadOrEmpty loads the snapshot and starts from an empty log when nothing
// was saved at the location yet.
func (s *TaskLogService) LoadOrEmpty(ctx context.Context) error {
	err := s.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		slog.InfoContext(ctx, "no snapshot found, starting empty", "location", s.location)
		return nil
	}
	return err
}

// commitLocked bumps the revision and returns the entry just appended.
// s.mu must be held.
func (s *TaskLogService) commitLocked() *tasklog.LogEntry {
	s.rev++
	e, _ := s.log.Last()
	return &e
}

func (s *TaskLogService) publish(ctx context.Context, e *tasklog.LogEntry) {
	if s.events != nil {
		s.events.Publish(ctx, e)
	}
}

func (s *TaskLogService) recordSnapshot(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	s.metrics.SnapshotDuration.Record(ctx, time.Since(start).Seconds(), cfotel.SnapshotAttrs(op, s.backend, err == nil))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
}
