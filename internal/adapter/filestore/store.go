// Package filestore implements the snapshot port on the local filesystem.
//
// A snapshot location is a directory holding one file per part plus a
// manifest:
//
//	<location>/manifest.json
//	<location>/active.json
//	<location>/pooled.json
//	<location>/log.json
//
// Parts are written first and the manifest last. Every file is replaced
// atomically (temp file, fsync, rename, directory fsync).
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Strob0t/tbd/internal/domain"
	"github.com/Strob0t/tbd/internal/domain/tasklog"
)

const (
	manifestFile = "manifest.json"
	activeFile   = "active.json"
	pooledFile   = "pooled.json"
	logFile      = "log.json"
)

// Store implements snapshot.Store on a directory per location.
type Store struct {
	now  func() time.Time
	opts []tasklog.Option
}

// New creates a filesystem snapshot store. opts are applied to every
// loaded task log.
func New(opts ...tasklog.Option) *Store {
	return &Store{now: time.Now, opts: opts}
}

// Save writes tl to the directory at location, creating it if needed.
func (s *Store) Save(ctx context.Context, location string, tl *tasklog.TaskLog) error {
	snap, err := tasklog.EncodeSnapshot(tl, s.now())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	manifest, err := jsonMarshalStable(snap.Manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := ensureDirDurable(location, 0o755); err != nil {
		return fmt.Errorf("ensure snapshot dir: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{activeFile, snap.Active},
		{pooledFile, snap.Pooled},
		{logFile, snap.Log},
		{manifestFile, manifest},
	}
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFileAtomicDurable(filepath.Join(location, p.name), p.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	return nil
}

// Load reads the snapshot in the directory at location. A missing
// directory or manifest means nothing was saved there.
func (s *Store) Load(ctx context.Context, location string) (*tasklog.TaskLog, error) {
	manifestData, err := os.ReadFile(filepath.Join(location, manifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", location, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	snap := &tasklog.Snapshot{}
	if err := tasklog.DecodeStrict(manifestData, &snap.Manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	for _, p := range []struct {
		name string
		dst  *[]byte
	}{
		{activeFile, &snap.Active},
		{pooledFile, &snap.Pooled},
		{logFile, &snap.Log},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(location, p.name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s missing: %w", p.name, domain.ErrCorrupt)
			}
			return nil, fmt.Errorf("read %s: %w", p.name, err)
		}
		*p.dst = data
	}

	tl, err := tasklog.DecodeSnapshot(snap, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", location, err)
	}
	return tl, nil
}
