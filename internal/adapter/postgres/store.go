package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/tbd/internal/domain"
	"github.com/Strob0t/tbd/internal/domain/task"
	"github.com/Strob0t/tbd/internal/domain/tasklog"
)

// Store implements snapshot.Store using PostgreSQL. A location names one
// row in the snapshots table; its tasks and log entries hang off it.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
	opts []tasklog.Option
}

// NewStore creates a new Store backed by the given connection pool. opts
// are applied to every loaded task log.
func NewStore(pool *pgxpool.Pool, opts ...tasklog.Option) *Store {
	return &Store{pool: pool, now: time.Now, opts: opts}
}

// Save replaces the snapshot at location in a single transaction.
func (s *Store) Save(ctx context.Context, location string, tl *tasklog.TaskLog) error {
	actives := tl.Actives()
	pooled := tl.Pooled()
	entries := tl.Entries()

	logRows := make([][]any, 0, len(entries))
	for i := range entries {
		kind, payload, err := tasklog.EncodeAction(entries[i].Action)
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", entries[i].ID, err)
		}
		sec, nsec, err := splitTime(entries[i].Timestamp)
		if err != nil {
			return fmt.Errorf("entry %s: %w", entries[i].ID, err)
		}
		logRows = append(logRows, []any{location, i, entries[i].ID, sec, nsec, string(kind), payload})
	}

	activeRows := make([][]any, 0, len(actives))
	for i := range actives {
		a := &actives[i]
		sec, nsec, err := splitTime(a.Due)
		if err != nil {
			return fmt.Errorf("active task %q due: %w", a.Title, err)
		}
		activeRows = append(activeRows, []any{location, a.Title, a.Description, a.Factor, sec, nsec})
	}

	pooledRows := make([][]any, 0, len(pooled))
	for i := range pooled {
		p := &pooled[i]
		sec, nsec, err := splitTime(p.CoolingUntil)
		if err != nil {
			return fmt.Errorf("pooled task %q cooling until: %w", p.Title, err)
		}
		pooledRows = append(pooledRows, []any{
			location, p.Title, p.Description, p.Factor, p.Probability,
			int64(p.CoolDown), int64(p.DueDays), sec, nsec,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO snapshots (location, format, saved_at, active_count, pooled_count, entry_count)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (location) DO UPDATE
		 SET format = EXCLUDED.format, saved_at = EXCLUDED.saved_at,
		     active_count = EXCLUDED.active_count, pooled_count = EXCLUDED.pooled_count,
		     entry_count = EXCLUDED.entry_count`,
		location, tasklog.SnapshotFormat, s.now().UTC(), len(actives), len(pooled), len(entries))
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", location, err)
	}

	for _, table := range []string{"active_tasks", "pooled_tasks", "log_entries"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE location = $1`, location); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"active_tasks"},
		[]string{"location", "title", "description", "factor", "due_s", "due_nsec"},
		pgx.CopyFromRows(activeRows)); err != nil {
		return fmt.Errorf("copy active tasks: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"pooled_tasks"},
		[]string{"location", "title", "description", "factor", "probability", "cool_down_ns", "due_days_ns", "cooling_until_s", "cooling_until_nsec"},
		pgx.CopyFromRows(pooledRows)); err != nil {
		return fmt.Errorf("copy pooled tasks: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"log_entries"},
		[]string{"location", "seq", "id", "ts_s", "ts_nsec", "kind", "payload"},
		pgx.CopyFromRows(logRows)); err != nil {
		return fmt.Errorf("copy log entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", location, err)
	}
	return nil
}

// Load reads the snapshot at location from a single read-only transaction.
func (s *Store) Load(ctx context.Context, location string) (*tasklog.TaskLog, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		format                               string
		activeCount, pooledCount, entryCount int
	)
	err = tx.QueryRow(ctx,
		`SELECT format, active_count, pooled_count, entry_count FROM snapshots WHERE location = $1`, location,
	).Scan(&format, &activeCount, &pooledCount, &entryCount)
	if err != nil {
		return nil, notFoundWrap(err, "get snapshot %s", location)
	}
	if format != tasklog.SnapshotFormat {
		return nil, fmt.Errorf("snapshot %s: unsupported format %q: %w", location, format, domain.ErrCorrupt)
	}

	actives, err := s.listActive(ctx, tx, location)
	if err != nil {
		return nil, err
	}
	pooled, err := s.listPooled(ctx, tx, location)
	if err != nil {
		return nil, err
	}
	entries, err := s.listEntries(ctx, tx, location)
	if err != nil {
		return nil, err
	}

	if len(actives) != activeCount || len(pooled) != pooledCount || len(entries) != entryCount {
		return nil, fmt.Errorf("snapshot %s: row counts do not match: %w", location, domain.ErrCorrupt)
	}

	store, err := task.Restore(actives, pooled)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w: %w", location, domain.ErrCorrupt, err)
	}
	return tasklog.Restore(store, entries, s.opts...), nil
}

func (s *Store) listActive(ctx context.Context, tx pgx.Tx, location string) ([]task.ActiveTask, error) {
	rows, err := tx.Query(ctx,
		`SELECT title, description, factor, due_s, due_nsec FROM active_tasks WHERE location = $1 ORDER BY title`, location)
	if err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}
	defer rows.Close()

	var out []task.ActiveTask
	for rows.Next() {
		a, err := scanActive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active task: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanActive(row scannable) (task.ActiveTask, error) {
	var (
		a       task.ActiveTask
		dueSec  int64
		dueNsec int32
	)
	if err := row.Scan(&a.Title, &a.Description, &a.Factor, &dueSec, &dueNsec); err != nil {
		return task.ActiveTask{}, err
	}
	due, err := joinTime(dueSec, dueNsec)
	if err != nil {
		return task.ActiveTask{}, err
	}
	a.Due = due
	return a, nil
}

func (s *Store) listPooled(ctx context.Context, tx pgx.Tx, location string) ([]task.PooledTask, error) {
	rows, err := tx.Query(ctx,
		`SELECT title, description, factor, probability, cool_down_ns, due_days_ns, cooling_until_s, cooling_until_nsec
		 FROM pooled_tasks WHERE location = $1 ORDER BY title`, location)
	if err != nil {
		return nil, fmt.Errorf("list pooled tasks: %w", err)
	}
	defer rows.Close()

	var out []task.PooledTask
	for rows.Next() {
		p, err := scanPooled(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pooled task: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPooled(row scannable) (task.PooledTask, error) {
	var (
		p                             task.PooledTask
		coolDown, dueDays, coolingSec int64
		coolingNsec                   int32
	)
	if err := row.Scan(&p.Title, &p.Description, &p.Factor, &p.Probability, &coolDown, &dueDays, &coolingSec, &coolingNsec); err != nil {
		return task.PooledTask{}, err
	}
	cooling, err := joinTime(coolingSec, coolingNsec)
	if err != nil {
		return task.PooledTask{}, err
	}
	p.CoolDown = time.Duration(coolDown)
	p.DueDays = time.Duration(dueDays)
	p.CoolingUntil = cooling
	return p, nil
}

func (s *Store) listEntries(ctx context.Context, tx pgx.Tx, location string) ([]tasklog.LogEntry, error) {
	rows, err := tx.Query(ctx,
		`SELECT seq, id, ts_s, ts_nsec, kind, payload FROM log_entries WHERE location = $1 ORDER BY seq`, location)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()

	var out []tasklog.LogEntry
	for rows.Next() {
		var (
			seq     int
			id      string
			tsSec   int64
			tsNsec  int32
			kind    string
			payload []byte
		)
		if err := rows.Scan(&seq, &id, &tsSec, &tsNsec, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		ts, err := joinTime(tsSec, tsNsec)
		if err != nil {
			return nil, fmt.Errorf("log entry %d: %w", seq, err)
		}
		if seq != len(out) {
			return nil, fmt.Errorf("log entry sequence gap at %d: %w", seq, domain.ErrCorrupt)
		}
		e, err := tasklog.DecodeEntry(id, ts, tasklog.Kind(kind), payload)
		if err != nil {
			return nil, fmt.Errorf("log entry %d: %w", seq, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
