// Package testutil provides test doubles for the list cache: an in-memory
// source of record with call counters and a cache store that always fails.
package testutil

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Sternrassler/fastlist/pkg/cache"
)

// Widget is a minimal listable row.
type Widget struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
}

// MemorySource is a mutable in-memory source of record.
type MemorySource[T any] struct {
	mu    sync.RWMutex
	rows  []T
	match func(T, cache.QueryFilterSpec) bool
	err   error

	// Call counters
	FindCalls  atomic.Int64
	CountCalls atomic.Int64
}

// NewMemorySource creates a source. match decides whether a row passes the
// filter; nil matches everything.
func NewMemorySource[T any](match func(T, cache.QueryFilterSpec) bool, rows ...T) *MemorySource[T] {
	if match == nil {
		match = func(T, cache.QueryFilterSpec) bool { return true }
	}
	return &MemorySource[T]{rows: rows, match: match}
}

// NewWidgetSource creates a source of widgets filtered by company and name search.
func NewWidgetSource(rows ...Widget) *MemorySource[Widget] {
	return NewMemorySource(func(w Widget, spec cache.QueryFilterSpec) bool {
		if spec.HasCompany() && w.CompanyID != spec.Company {
			return false
		}
		if spec.Search != "" && !strings.Contains(strings.ToLower(w.Name), spec.Search) {
			return false
		}
		return true
	}, rows...)
}

// Add appends a row, as a create would.
func (s *MemorySource[T]) Add(row T) {
	s.mu.Lock()
	s.rows = append(s.rows, row)
	s.mu.Unlock()
}

// Replace swaps the row at index i, as an update would.
func (s *MemorySource[T]) Replace(i int, row T) {
	s.mu.Lock()
	s.rows[i] = row
	s.mu.Unlock()
}

// FailWith makes subsequent queries return err; nil restores normal behavior.
func (s *MemorySource[T]) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// FindMany implements listing.Source.
func (s *MemorySource[T]) FindMany(_ context.Context, spec cache.QueryFilterSpec) ([]T, error) {
	s.FindCalls.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	matched := s.filter(spec)
	if spec.Skip >= len(matched) {
		return []T{}, nil
	}
	end := len(matched)
	if spec.Take > 0 && spec.Skip+spec.Take < end {
		end = spec.Skip + spec.Take
	}
	return append([]T(nil), matched[spec.Skip:end]...), nil
}

// Count implements listing.Source.
func (s *MemorySource[T]) Count(_ context.Context, spec cache.QueryFilterSpec) (int64, error) {
	s.CountCalls.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.filter(spec))), nil
}

func (s *MemorySource[T]) filter(spec cache.QueryFilterSpec) []T {
	out := make([]T, 0, len(s.rows))
	for _, row := range s.rows {
		if s.match(row, spec) {
			out = append(out, row)
		}
	}
	return out
}
