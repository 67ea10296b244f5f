package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/Strob0t/tbd/internal/domain/task"
	"github.com/Strob0t/tbd/internal/domain/tasklog"
)

const (
	dayLayout  = "02.01.2006"
	timeLayout = "02.01.2006 15:04:05"
)

// printer renders tasks and log entries in the terminal format.
type printer struct {
	w   io.Writer
	loc *time.Location
}

func (p printer) day(t time.Time) string  { return t.In(p.loc).Format(dayLayout) }
func (p printer) stamp(t time.Time) string { return t.In(p.loc).Format(timeLayout) }

func (p printer) activeLine(a *task.ActiveTask) string {
	return fmt.Sprintf("%s: %s", a.Title, p.day(a.Due))
}

func (p printer) pooledLine(t *task.PooledTask) string {
	return fmt.Sprintf("%s: %s (cd: %d, dd: %d)",
		p.day(t.CoolingUntil), t.Title, task.InDays(t.CoolDown), task.InDays(t.DueDays))
}

func (p printer) actives(tasks []task.ActiveTask) {
	fmt.Fprintf(p.w, "Having %d tasks\n", len(tasks))
	for i := range tasks {
		fmt.Fprintln(p.w, p.activeLine(&tasks[i]))
	}
}

func (p printer) pooled(tasks []task.PooledTask) {
	fmt.Fprintf(p.w, "Having %d tasks\n", len(tasks))
	for i := range tasks {
		fmt.Fprintln(p.w, p.pooledLine(&tasks[i]))
	}
}

func (p printer) entry(e *tasklog.LogEntry) {
	fmt.Fprintf(p.w, "%s: ", p.stamp(e.Timestamp))
	switch a := e.Action.(type) {
	case tasklog.ScheduleTask:
		fmt.Fprintln(p.w, "Added active task: "+p.activeLine(&a.Task))
	case tasklog.PoolTask:
		fmt.Fprintln(p.w, "Added pooled task: "+p.pooledLine(&a.Task))
	case tasklog.CompleteTask:
		fmt.Fprintln(p.w, "Complete task: "+p.activeLine(&a.Task))
	case tasklog.ActivateTask:
		fmt.Fprintln(p.w, "Many tasks:")
		for i := range a.Tasks {
			fmt.Fprintln(p.w, " - "+p.activeLine(&a.Tasks[i]))
		}
	default:
		fmt.Fprintln(p.w, tasklog.Describe(e.Action))
	}
}

func (p printer) entries(entries []tasklog.LogEntry) {
	for i := range entries {
		p.entry(&entries[i])
	}
}
