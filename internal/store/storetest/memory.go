// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/joescharf/ptime/internal/models"
	"github.com/joescharf/ptime/internal/store"
)

// Memory is a goroutine-safe in-memory store.Store. Setting one of the
// *Err fields makes the matching call fail with a *store.StorageError.
type Memory struct {
	mu        sync.Mutex
	intervals []*models.Interval
	seq       int

	OpenErr  error
	CloseErr error
	FetchErr error

	// MaxOpenSeen is the largest number of simultaneously open intervals
	// ever observed after a mutation.
	MaxOpenSeen int
	OpenCalls   int
	CloseCalls  int
}

var _ store.Store = (*Memory)(nil)

// New returns an empty Memory store.
func New() *Memory {
	return &Memory{}
}

// Seed appends intervals as-is.
func (m *Memory) Seed(ivs ...*models.Interval) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, iv := range ivs {
		cp := *iv
		if cp.ID == "" {
			m.seq++
			cp.ID = fmt.Sprintf("seed-%d", m.seq)
		}
		m.intervals = append(m.intervals, &cp)
	}
	m.observe()
}

// SetErrors replaces the injected errors under the lock.
func (m *Memory) SetErrors(open, close, fetch error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenErr, m.CloseErr, m.FetchErr = open, close, fetch
}

// Stats returns call counters and the open-interval high-water mark.
func (m *Memory) Stats() (openCalls, closeCalls, maxOpen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.OpenCalls, m.CloseCalls, m.MaxOpenSeen
}

func (m *Memory) OpenInterval(_ context.Context, project, branch string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenCalls++
	if m.OpenErr != nil {
		return "", &store.StorageError{Op: "open interval", Err: m.OpenErr}
	}
	m.seq++
	id := fmt.Sprintf("iv-%d", m.seq)
	m.intervals = append(m.intervals, &models.Interval{
		ID: id, Project: project, Branch: branch, Start: now.UnixMilli(),
	})
	m.observe()
	return id, nil
}

func (m *Memory) CloseOpenInterval(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	if m.CloseErr != nil {
		return &store.StorageError{Op: "close open interval", Err: m.CloseErr}
	}
	for _, iv := range m.intervals {
		if iv.End == nil {
			end := max(now.UnixMilli(), iv.Start)
			iv.End = &end
		}
	}
	return nil
}

func (m *Memory) OpenIntervals(_ context.Context) ([]*models.Interval, error) {
	return m.filter("open intervals", func(iv *models.Interval) bool { return iv.End == nil })
}

func (m *Memory) FetchAll(_ context.Context) ([]*models.Interval, error) {
	return m.filter("fetch all intervals", func(*models.Interval) bool { return true })
}

func (m *Memory) FetchAfter(_ context.Context, after int64) ([]*models.Interval, error) {
	return m.filter("fetch intervals after", func(iv *models.Interval) bool { return iv.Start > after })
}

func (m *Memory) FetchBetween(_ context.Context, start, end int64) ([]*models.Interval, error) {
	return m.filter("fetch intervals between", func(iv *models.Interval) bool {
		return iv.Start >= start && iv.Start <= end
	})
}

func (m *Memory) Projects(_ context.Context) ([]string, error) {
	ivs, err := m.filter("list projects", func(*models.Interval) bool { return true })
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, iv := range ivs {
		if !seen[iv.Project] {
			seen[iv.Project] = true
			out = append(out, iv.Project)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Migrate(context.Context) error { return nil }
func (m *Memory) Close() error                  { return nil }

func (m *Memory) filter(op string, keep func(*models.Interval) bool) ([]*models.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, &store.StorageError{Op: op, Err: m.FetchErr}
	}
	var out []*models.Interval
	for _, iv := range m.intervals {
		if keep(iv) {
			cp := *iv
			if iv.End != nil {
				end := *iv.End
				cp.End = &end
			}
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) observe() {
	n := 0
	for _, iv := range m.intervals {
		if iv.End == nil {
			n++
		}
	}
	m.MaxOpenSeen = max(m.MaxOpenSeen, n)
}
