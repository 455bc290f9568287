package store

import (
	"context"
	"fmt"
	"time"

	"github.com/joescharf/ptime/internal/models"
)

// Store defines the persistence interface for tracked intervals.
type Store interface {
	// OpenInterval appends a new interval with no end and returns its id.
	OpenInterval(ctx context.Context, project, branch string, now time.Time) (string, error)
	// CloseOpenInterval sets end=now on every open interval. It is a no-op
	// when nothing is open. The stored end is never earlier than start.
	CloseOpenInterval(ctx context.Context, now time.Time) error
	// OpenIntervals lists intervals whose end is not yet recorded.
	OpenIntervals(ctx context.Context) ([]*models.Interval, error)

	// FetchAll returns every interval. Order is unspecified.
	FetchAll(ctx context.Context) ([]*models.Interval, error)
	// FetchAfter returns intervals with start > after (ms since epoch).
	FetchAfter(ctx context.Context, after int64) ([]*models.Interval, error)
	// FetchBetween returns intervals with start in [start, end] inclusive.
	FetchBetween(ctx context.Context, start, end int64) ([]*models.Interval, error)
	// Projects lists the distinct project names that have intervals.
	Projects(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// StorageError wraps any failure reading from or writing to the interval
// store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
