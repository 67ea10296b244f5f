package task

import (
	"fmt"
	"slices"
	"time"

	"github.com/Strob0t/tbd/internal/domain"
)

// Store holds the active and pooled collections, each keyed by title.
// The two collections are independent namespaces.
type Store struct {
	active map[string]ActiveTask
	pooled map[string]PooledTask
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		active: make(map[string]ActiveTask),
		pooled: make(map[string]PooledTask),
	}
}

// Restore rebuilds a Store from persisted collections.
// Duplicate titles within a collection are rejected.
func Restore(actives []ActiveTask, pooled []PooledTask) (*Store, error) {
	s := NewStore()
	for i := range actives {
		a := actives[i]
		if _, ok := s.active[a.Title]; ok {
			return nil, fmt.Errorf("restore active %q: %w", a.Title, domain.ErrDuplicateTitle)
		}
		a.Due = normalize(a.Due)
		s.active[a.Title] = a
	}
	for i := range pooled {
		p := pooled[i]
		if _, ok := s.pooled[p.Title]; ok {
			return nil, fmt.Errorf("restore pooled %q: %w", p.Title, domain.ErrDuplicateTitle)
		}
		p.CoolingUntil = normalize(p.CoolingUntil)
		s.pooled[p.Title] = p
	}
	return s, nil
}

// AddActive inserts an active task due dueIn after now.
func (s *Store) AddActive(t Task, dueIn time.Duration, now time.Time) (ActiveTask, error) {
	if err := t.Validate(); err != nil {
		return ActiveTask{}, err
	}
	if _, ok := s.active[t.Title]; ok {
		return ActiveTask{}, fmt.Errorf("add active %q: %w", t.Title, domain.ErrDuplicateTitle)
	}
	a := ActiveTask{Task: t, Due: normalize(now.Add(dueIn))}
	s.active[t.Title] = a
	return a, nil
}

// AddPooled inserts a pooled task. The task is eligible for activation
// immediately: CoolingUntil starts at now.
func (s *Store) AddPooled(t Task, probability float64, coolDown, dueDays time.Duration, now time.Time) (PooledTask, error) {
	if err := t.Validate(); err != nil {
		return PooledTask{}, err
	}
	if err := ValidatePooled(probability, coolDown, dueDays); err != nil {
		return PooledTask{}, err
	}
	if _, ok := s.pooled[t.Title]; ok {
		return PooledTask{}, fmt.Errorf("add pooled %q: %w", t.Title, domain.ErrDuplicateTitle)
	}
	p := PooledTask{
		Task:         t,
		Probability:  probability,
		CoolDown:     coolDown,
		DueDays:      dueDays,
		CoolingUntil: normalize(now),
	}
	s.pooled[t.Title] = p
	return p, nil
}

// Complete removes the active task with the given title.
// It reports false and leaves the store untouched when no such task exists.
func (s *Store) Complete(title string) (ActiveTask, bool) {
	a, ok := s.active[title]
	if !ok {
		return ActiveTask{}, false
	}
	delete(s.active, title)
	return a, true
}

// Active returns the active task with the given title.
func (s *Store) Active(title string) (ActiveTask, bool) {
	a, ok := s.active[title]
	return a, ok
}

// Actives returns all active tasks ordered by title.
func (s *Store) Actives() []ActiveTask {
	out := make([]ActiveTask, 0, len(s.active))
	for _, title := range sortedKeys(s.active) {
		out = append(out, s.active[title])
	}
	return out
}

// Pooled returns all pooled tasks ordered by title.
func (s *Store) Pooled() []PooledTask {
	out := make([]PooledTask, 0, len(s.pooled))
	for _, title := range sortedKeys(s.pooled) {
		out = append(out, s.pooled[title])
	}
	return out
}

// Len returns the sizes of the active and pooled collections.
func (s *Store) Len() (active, pooled int) {
	return len(s.active), len(s.pooled)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// normalize strips the monotonic reading and location so that a value
// survives a persistence round trip unchanged.
func normalize(t time.Time) time.Time {
	return t.UTC()
}
