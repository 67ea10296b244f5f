package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/tbd/internal/domain"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// notFoundWrap checks whether err is pgx.ErrNoRows and, if so, wraps
// domain.ErrNotFound with the given message. Otherwise it wraps the
// original error.
func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Timestamps are stored as Unix seconds plus the nanosecond within the
// second. TIMESTAMPTZ drops nanoseconds and UnixNano ends in 2262.
// The accepted years match what the JSON snapshot codec can encode.
const (
	minYear = 1
	maxYear = 9999
)

var errTimeRange = errors.New("timestamp out of range")

func splitTime(t time.Time) (sec int64, nsec int32, err error) {
	if y := t.Year(); y < minYear || y > maxYear {
		return 0, 0, fmt.Errorf("%w: %s", errTimeRange, t.UTC().Format(time.RFC3339Nano))
	}
	return t.Unix(), int32(t.Nanosecond()), nil
}

func joinTime(sec int64, nsec int32) (time.Time, error) {
	if nsec < 0 || nsec >= int32(time.Second) {
		return time.Time{}, fmt.Errorf("nanoseconds %d outside a second: %w", nsec, domain.ErrCorrupt)
	}
	return time.Unix(sec, int64(nsec)).UTC(), nil
}
