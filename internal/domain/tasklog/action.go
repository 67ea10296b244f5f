// Package tasklog defines the append-only action log and the TaskLog facade
// that couples every store mutation with exactly one log entry.
package tasklog

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/tbd/internal/domain/task"
)

// Kind identifies the variant of an Action.
type Kind string

const (
	KindSchedule Kind = "schedule"
	KindPool     Kind = "pool"
	KindComplete Kind = "complete"
	KindActivate Kind = "activate"
)

// Kinds returns every action kind. Code that switches over actions is
// expected to handle all of them.
func Kinds() []Kind {
	return []Kind{KindSchedule, KindPool, KindComplete, KindActivate}
}

// Action is a closed set of log actions. Only the four types in this
// package implement it.
type Action interface {
	Kind() Kind
	isAction()
}

// ScheduleTask records a task added directly to the active collection.
type ScheduleTask struct {
	Task task.ActiveTask
}

// PoolTask records a task added to the pool.
type PoolTask struct {
	Task task.PooledTask
}

// CompleteTask records an active task marked done.
type CompleteTask struct {
	Task task.ActiveTask
}

// ActivateTask records one activation call and every task it promoted.
type ActivateTask struct {
	Tasks []task.ActiveTask
}

func (ScheduleTask) Kind() Kind { return KindSchedule }
func (PoolTask) Kind() Kind     { return KindPool }
func (CompleteTask) Kind() Kind { return KindComplete }
func (ActivateTask) Kind() Kind { return KindActivate }

func (ScheduleTask) isAction() {}
func (PoolTask) isAction()     {}
func (CompleteTask) isAction() {}
func (ActivateTask) isAction() {}

// LogEntry is a single immutable record in the action log.
type LogEntry struct {
	ID        string
	Timestamp time.Time
	Action    Action
}

// Describe returns a one-line summary of an action for logs and events.
func Describe(a Action) string {
	switch v := a.(type) {
	case ScheduleTask:
		return fmt.Sprintf("schedule %q", v.Task.Title)
	case PoolTask:
		return fmt.Sprintf("pool %q (p=%g)", v.Task.Title, v.Task.Probability)
	case CompleteTask:
		return fmt.Sprintf("complete %q", v.Task.Title)
	case ActivateTask:
		titles := make([]string, len(v.Tasks))
		for i := range v.Tasks {
			titles[i] = fmt.Sprintf("%q", v.Tasks[i].Title)
		}
		return "activate [" + strings.Join(titles, ", ") + "]"
	default:
		return fmt.Sprintf("unknown action %T", a)
	}
}
