package tasklog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Strob0t/tbd/internal/domain"
	"github.com/Strob0t/tbd/internal/domain/task"
)

// SnapshotFormat identifies the persisted layout written by EncodeSnapshot.
const SnapshotFormat = "tbd/v1"

// Manifest describes a snapshot and carries a checksum for every part.
type Manifest struct {
	Format       string    `json:"format"`
	SavedAt      time.Time `json:"saved_at"`
	ActiveCount  int       `json:"active_count"`
	PooledCount  int       `json:"pooled_count"`
	EntryCount   int       `json:"entry_count"`
	ActiveSHA256 string    `json:"active_sha256"`
	PooledSHA256 string    `json:"pooled_sha256"`
	LogSHA256    string    `json:"log_sha256"`
}

// Snapshot is the serialized form of a TaskLog: the active collection, the
// pooled collection and the ordered log, each as compact JSON.
type Snapshot struct {
	Manifest Manifest
	Active   []byte
	Pooled   []byte
	Log      []byte
}

// entryRecord is the wire form of a LogEntry.
type entryRecord struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// EncodeSnapshot serializes the full state of l.
func EncodeSnapshot(l *TaskLog, savedAt time.Time) (*Snapshot, error) {
	actives := l.Actives()
	pooled := l.Pooled()
	entries := l.Entries()

	activeData, err := json.Marshal(actives)
	if err != nil {
		return nil, fmt.Errorf("marshal active tasks: %w", err)
	}
	pooledData, err := json.Marshal(pooled)
	if err != nil {
		return nil, fmt.Errorf("marshal pooled tasks: %w", err)
	}

	records := make([]entryRecord, 0, len(entries))
	for i := range entries {
		rec, err := encodeEntry(&entries[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	logData, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal log: %w", err)
	}

	return &Snapshot{
		Manifest: Manifest{
			Format:       SnapshotFormat,
			SavedAt:      savedAt.UTC(),
			ActiveCount:  len(actives),
			PooledCount:  len(pooled),
			EntryCount:   len(records),
			ActiveSHA256: checksum(activeData),
			PooledSHA256: checksum(pooledData),
			LogSHA256:    checksum(logData),
		},
		Active: activeData,
		Pooled: pooledData,
		Log:    logData,
	}, nil
}

// DecodeSnapshot verifies and deserializes a snapshot. Every failure wraps
// domain.ErrCorrupt.
func DecodeSnapshot(s *Snapshot, opts ...Option) (*TaskLog, error) {
	if s.Manifest.Format != SnapshotFormat {
		return nil, fmt.Errorf("unsupported format %q: %w", s.Manifest.Format, domain.ErrCorrupt)
	}
	if err := verify("active", s.Active, s.Manifest.ActiveSHA256); err != nil {
		return nil, err
	}
	if err := verify("pooled", s.Pooled, s.Manifest.PooledSHA256); err != nil {
		return nil, err
	}
	if err := verify("log", s.Log, s.Manifest.LogSHA256); err != nil {
		return nil, err
	}

	var actives []task.ActiveTask
	if err := DecodeStrict(s.Active, &actives); err != nil {
		return nil, fmt.Errorf("decode active tasks: %w", err)
	}
	var pooled []task.PooledTask
	if err := DecodeStrict(s.Pooled, &pooled); err != nil {
		return nil, fmt.Errorf("decode pooled tasks: %w", err)
	}
	var records []entryRecord
	if err := DecodeStrict(s.Log, &records); err != nil {
		return nil, fmt.Errorf("decode log: %w", err)
	}

	if len(actives) != s.Manifest.ActiveCount || len(pooled) != s.Manifest.PooledCount || len(records) != s.Manifest.EntryCount {
		return nil, fmt.Errorf("manifest counts do not match content: %w", domain.ErrCorrupt)
	}

	store, err := task.Restore(actives, pooled)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorrupt, err)
	}

	entries := make([]LogEntry, 0, len(records))
	for i := range records {
		e, err := DecodeEntry(records[i].ID, records[i].Timestamp, records[i].Kind, records[i].Payload)
		if err != nil {
			return nil, fmt.Errorf("log entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}

	return Restore(store, entries, opts...), nil
}

// EncodeAction returns the kind and JSON payload of an action.
func EncodeAction(a Action) (Kind, []byte, error) {
	var payload any
	switch v := a.(type) {
	case ScheduleTask:
		payload = v.Task
	case PoolTask:
		payload = v.Task
	case CompleteTask:
		payload = v.Task
	case ActivateTask:
		tasks := v.Tasks
		if tasks == nil {
			tasks = []task.ActiveTask{}
		}
		payload = tasks
	default:
		return "", nil, fmt.Errorf("encode action: unknown type %T", a)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s payload: %w", a.Kind(), err)
	}
	return a.Kind(), data, nil
}

// DecodeEntry rebuilds a LogEntry from its stored columns. Unknown kinds and
// malformed payloads wrap domain.ErrCorrupt.
func DecodeEntry(id string, ts time.Time, kind Kind, payload []byte) (LogEntry, error) {
	var a Action
	switch kind {
	case KindSchedule:
		var t task.ActiveTask
		if err := DecodeStrict(payload, &t); err != nil {
			return LogEntry{}, err
		}
		t.Due = t.Due.UTC()
		a = ScheduleTask{Task: t}
	case KindPool:
		var t task.PooledTask
		if err := DecodeStrict(payload, &t); err != nil {
			return LogEntry{}, err
		}
		t.CoolingUntil = t.CoolingUntil.UTC()
		a = PoolTask{Task: t}
	case KindComplete:
		var t task.ActiveTask
		if err := DecodeStrict(payload, &t); err != nil {
			return LogEntry{}, err
		}
		t.Due = t.Due.UTC()
		a = CompleteTask{Task: t}
	case KindActivate:
		var tasks []task.ActiveTask
		if err := DecodeStrict(payload, &tasks); err != nil {
			return LogEntry{}, err
		}
		if tasks == nil {
			return LogEntry{}, fmt.Errorf("activate payload is null: %w", domain.ErrCorrupt)
		}
		for i := range tasks {
			tasks[i].Due = tasks[i].Due.UTC()
		}
		a = ActivateTask{Tasks: tasks}
	default:
		return LogEntry{}, fmt.Errorf("unknown action kind %q: %w", kind, domain.ErrCorrupt)
	}
	return LogEntry{ID: id, Timestamp: ts.UTC(), Action: a}, nil
}

func encodeEntry(e *LogEntry) (entryRecord, error) {
	kind, payload, err := EncodeAction(e.Action)
	if err != nil {
		return entryRecord{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return entryRecord{ID: e.ID, Timestamp: e.Timestamp, Kind: kind, Payload: payload}, nil
}

// DecodeStrict unmarshals data into dst rejecting unknown fields and
// trailing content. Failures wrap domain.ErrCorrupt.
func DecodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCorrupt, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing content", domain.ErrCorrupt)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func verify(part string, data []byte, want string) error {
	if got := checksum(data); got != want {
		return fmt.Errorf("%s checksum mismatch: %w", part, domain.ErrCorrupt)
	}
	return nil
}

// document is the single-blob form of a Snapshot.
type document struct {
	Manifest Manifest        `json:"manifest"`
	Active   json.RawMessage `json:"active"`
	Pooled   json.RawMessage `json:"pooled"`
	Log      json.RawMessage `json:"log"`
}

// MarshalDocument packs the snapshot into a single JSON document.
func (s *Snapshot) MarshalDocument() ([]byte, error) {
	return json.Marshal(document{
		Manifest: s.Manifest,
		Active:   s.Active,
		Pooled:   s.Pooled,
		Log:      s.Log,
	})
}

// UnmarshalDocument unpacks a document written by MarshalDocument.
// Checksums are verified later by DecodeSnapshot.
func UnmarshalDocument(data []byte) (*Snapshot, error) {
	var doc document
	if err := DecodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &Snapshot{
		Manifest: doc.Manifest,
		Active:   doc.Active,
		Pooled:   doc.Pooled,
		Log:      doc.Log,
	}, nil
}
