// Package task defines the active and pooled task entities, the in-memory
// task store, and the activation engine that promotes pooled tasks.
package task

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Strob0t/tbd/internal/domain"
)

// Task holds the fields shared by active and pooled tasks.
type Task struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Factor      float64 `json:"factor"`
}

// ActiveTask is a committed task with a due date.
type ActiveTask struct {
	Task
	Due time.Time `json:"due"`
}

// PooledTask is a candidate that may be promoted to an ActiveTask once its
// cooldown has elapsed.
type PooledTask struct {
	Task
	Probability  float64       `json:"probability"`
	CoolDown     time.Duration `json:"cool_down"`
	DueDays      time.Duration `json:"due_days"`
	CoolingUntil time.Time     `json:"cooling_until"`
}

// Eligible reports whether the cooldown has elapsed at now.
func (p *PooledTask) Eligible(now time.Time) bool {
	return !p.CoolingUntil.After(now)
}

// Promote converts the pooled task into an active task due DueDays after now.
func (p *PooledTask) Promote(now time.Time) ActiveTask {
	return ActiveTask{Task: p.Task, Due: now.Add(p.DueDays)}
}

// Validate checks the shared task fields.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if math.IsNaN(t.Factor) || math.IsInf(t.Factor, 0) {
		return fmt.Errorf("%w: factor must be a finite number", domain.ErrValidation)
	}
	return nil
}

// ValidatePooled checks the pool-specific parameters.
func ValidatePooled(probability float64, coolDown, dueDays time.Duration) error {
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return fmt.Errorf("%w: probability must be within [0, 1]", domain.ErrValidation)
	}
	if coolDown < 0 {
		return fmt.Errorf("%w: cool down must not be negative", domain.ErrValidation)
	}
	if dueDays < 0 {
		return fmt.Errorf("%w: due days must not be negative", domain.ErrValidation)
	}
	return nil
}

const day = 24 * time.Hour

// MaxDays is the largest day count a time.Duration can hold.
const MaxDays = int(math.MaxInt64 / int64(day))

// DaysOf converts a whole number of days into a duration. Counts beyond
// ±MaxDays are rejected with ErrValidation.
func DaysOf(n int) (time.Duration, error) {
	if n > MaxDays || n < -MaxDays {
		return 0, fmt.Errorf("%w: %d days is out of range (at most %d)", domain.ErrValidation, n, MaxDays)
	}
	return time.Duration(n) * day, nil
}

// Days is DaysOf for counts known to be in range. Out-of-range counts
// saturate at ±MaxDays instead of wrapping.
func Days(n int) time.Duration {
	n = max(min(n, MaxDays), -MaxDays)
	return time.Duration(n) * day
}

// InDays returns the number of whole days in d, truncated.
func InDays(d time.Duration) int {
	return int(d / day)
}
