package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/tbd/internal/domain/tasklog"
	"github.com/Strob0t/tbd/internal/port/broadcast"
	"github.com/Strob0t/tbd/internal/port/messagequeue"
	"github.com/Strob0t/tbd/internal/resilience"
)

// idPublisher is implemented by queues that de-duplicate on a message ID.
type idPublisher interface {
	PublishWithID(ctx context.Context, subject, msgID string, data []byte) error
}

// EntryPublisher fans new log entries out to the message queue and to
// websocket clients. Delivery is best effort: failures are logged and the
// mutation that produced the entry stands.
type EntryPublisher struct {
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	breaker *resilience.Breaker
}

// NewEntryPublisher creates a publisher. queue and hub may each be nil.
// A nil breaker sends every publish straight to the queue.
func NewEntryPublisher(queue messagequeue.Queue, hub broadcast.Broadcaster, breaker *resilience.Breaker) *EntryPublisher {
	return &EntryPublisher{queue: queue, hub: hub, breaker: breaker}
}

// Payload builds the wire form of a log entry.
func Payload(e *tasklog.LogEntry) (messagequeue.EntryPayload, error) {
	kind, action, err := tasklog.EncodeAction(e.Action)
	if err != nil {
		return messagequeue.EntryPayload{}, err
	}
	return messagequeue.EntryPayload{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Kind:      string(kind),
		Summary:   tasklog.Describe(e.Action),
		Action:    json.RawMessage(action),
	}, nil
}

// Publish sends e to subscribers.
func (p *EntryPublisher) Publish(ctx context.Context, e *tasklog.LogEntry) {
	payload, err := Payload(e)
	if err != nil {
		slog.ErrorContext(ctx, "encode log entry event", "entry_id", e.ID, "error", err)
		return
	}

	if p.hub != nil {
		p.hub.BroadcastEntry(ctx, payload)
	}
	if p.queue == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal log entry event", "entry_id", e.ID, "error", err)
		return
	}
	subject := messagequeue.SubjectFor(payload.Kind)
	send := func(ctx context.Context) error {
		if idp, ok := p.queue.(idPublisher); ok {
			return idp.PublishWithID(ctx, subject, e.ID, data)
		}
		return p.queue.Publish(ctx, subject, data)
	}

	if p.breaker != nil {
		err = p.breaker.Execute(ctx, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		slog.WarnContext(ctx, "publish log entry failed", "subject", subject, "entry_id", e.ID, "error", err)
	}
}
