// Package natskv implements the snapshot port on a NATS JetStream KeyValue
// bucket. Each location maps to one key holding the whole snapshot as a
// single document, so a save is one atomic put.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/tbd/internal/domain"
	"github.com/Strob0t/tbd/internal/domain/tasklog"
)

const keyPrefix = "snapshot."

// Store wraps a NATS JetStream KeyValue bucket as a snapshot store.
type Store struct {
	kv   jetstream.KeyValue
	now  func() time.Time
	opts []tasklog.Option
}

// New creates a KV-backed snapshot store. opts are applied to every loaded
// task log.
func New(kv jetstream.KeyValue, opts ...tasklog.Option) *Store {
	return &Store{kv: kv, now: time.Now, opts: opts}
}

// OpenBucket returns the named bucket, creating it on first use.
func OpenBucket(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "tbd task log snapshots",
		History:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Key maps a location to a valid KV key. Locations may contain characters
// (slashes, spaces, dots) that KV keys reject.
func Key(location string) string {
	return keyPrefix + base64.RawURLEncoding.EncodeToString([]byte(location))
}

// Save stores tl under the key for location.
func (s *Store) Save(ctx context.Context, location string, tl *tasklog.TaskLog) error {
	snap, err := tasklog.EncodeSnapshot(tl, s.now())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	doc, err := snap.MarshalDocument()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := s.kv.Put(ctx, Key(location), doc); err != nil {
		return fmt.Errorf("kv put %s: %w", location, err)
	}
	return nil
}

// Load reads the snapshot stored for location.
func (s *Store) Load(ctx context.Context, location string) (*tasklog.TaskLog, error) {
	entry, err := s.kv.Get(ctx, Key(location))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("snapshot %s: %w", location, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("kv get %s: %w", location, err)
	}

	snap, err := tasklog.UnmarshalDocument(entry.Value())
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", location, err)
	}
	tl, err := tasklog.DecodeSnapshot(snap, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", location, err)
	}
	return tl, nil
}
