// Package snapshot defines the persistence port for task logs.
package snapshot

import (
	"context"

	"github.com/Strob0t/tbd/internal/domain/tasklog"
)

// Store saves and loads complete task logs.
type Store interface {
	// Save persists tl at location, replacing any prior snapshot there.
	Save(ctx context.Context, location string, tl *tasklog.TaskLog) error

	// Load restores the task log saved at location. It returns an error
	// wrapping domain.ErrNotFound when nothing was ever saved there and
	// domain.ErrCorrupt when the stored content cannot be decoded.
	Load(ctx context.Context, location string) (*tasklog.TaskLog, error)
}
