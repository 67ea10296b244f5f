// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/tbd/internal/logger"
	"github.com/Strob0t/tbd/internal/port/messagequeue"
)

const (
	streamName      = "TASKLOG"
	headerRequestID = "X-Request-ID"
	nakDelay        = 2 * time.Second
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url, nats.Name("tbd"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{messagequeue.SubjectAll},
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// JetStream exposes the JetStream context, e.g. for opening KV buckets.
func (q *Queue) JetStream() jetstream.JetStream { return q.js }

// Publish validates data against the subject schema and sends it. The
// request ID carried by ctx travels in a header.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	return q.publish(ctx, subject, data)
}

// PublishWithID behaves like Publish and additionally sets the JetStream
// message ID so that a retried publish of the same entry is de-duplicated.
func (q *Queue) PublishWithID(ctx context.Context, subject, msgID string, data []byte) error {
	return q.publish(ctx, subject, data, jetstream.WithMsgID(msgID))
}

func (q *Queue) publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}

	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	if _, err := q.js.PublishMsg(ctx, msg, opts...); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject.
// Messages that fail schema validation are terminated; handler errors
// are redelivered after a short delay.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
			slog.Error("invalid message", "subject", msg.Subject(), "error", err)
			if termErr := msg.Term(); termErr != nil {
				slog.Error("nats term failed", "error", termErr)
			}
			return
		}

		hctx := context.Background()
		if h := msg.Headers(); h != nil {
			if id := h.Get(headerRequestID); id != "" {
				hctx = logger.WithRequestID(hctx, id)
			}
		}

		if err := handler(hctx, msg.Subject(), msg.Data()); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject(), "error", err)
			if nakErr := msg.NakWithDelay(nakDelay); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// Drain processes pending messages and closes the connection.
func (q *Queue) Drain() error {
	return q.nc.Drain()
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the underlying connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc.IsConnected()
}
