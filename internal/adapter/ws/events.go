package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/tbd/internal/port/messagequeue"
)

// EventLogEntry is the message type carrying one appended log entry.
const EventLogEntry = "log.entry"

// BroadcastEntry sends entry to every client as an EventLogEntry message.
func (h *Hub) BroadcastEntry(ctx context.Context, entry messagequeue.EntryPayload) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.ErrorContext(ctx, "marshal log entry for ws", "entry_id", entry.ID, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: EventLogEntry, Payload: data})
}
