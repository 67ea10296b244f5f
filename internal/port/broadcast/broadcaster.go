// Package broadcast defines the port through which new log entries reach
// live viewers.
package broadcast

import (
	"context"

	"github.com/Strob0t/tbd/internal/port/messagequeue"
)

// Broadcaster pushes each appended log entry to connected viewers.
// Delivery is best effort and must not block the caller for long.
type Broadcaster interface {
	BroadcastEntry(ctx context.Context, entry messagequeue.EntryPayload)
}
