// Package mock provides an in-memory test double for [meeting.Store].
//
// Store behaves like a real backend (identifier allocation, date ordering,
// case-insensitive search) and additionally records every call so tests can
// assert on what the caller did. Set the Err fields to inject failures.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

var _ meeting.Store = (*Store)(nil)

// Store is an in-memory [meeting.Store]. The zero value is ready to use.
type Store struct {
	mu     sync.Mutex
	rows   map[int64]meeting.Record
	nextID int64

	// SaveErr, if non-nil, is returned by Save (wrapped with meeting.ErrStorage).
	SaveErr error

	// ReadErr, if non-nil, is returned by Get, GetAll, and Search.
	ReadErr error

	// DeleteErr, if non-nil, is returned by Delete.
	DeleteErr error

	// PingErr, if non-nil, is returned by Ping.
	PingErr error

	// SaveCalls records a copy of every record passed to Save.
	SaveCalls []meeting.Record

	// DeleteCalls records every identifier passed to Delete.
	DeleteCalls []int64

	// SearchCalls records every query passed to Search.
	SearchCalls []string

	// Closed is set by Close.
	Closed bool
}

// Save implements [meeting.Store].
func (s *Store) Save(_ context.Context, rec *meeting.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec != nil {
		s.SaveCalls = append(s.SaveCalls, clone(*rec))
	}
	if s.SaveErr != nil {
		return 0, fmt.Errorf("mock store: %w: %w", meeting.ErrStorage, s.SaveErr)
	}
	if rec == nil {
		return 0, fmt.Errorf("mock store: nil record")
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	if s.rows == nil {
		s.rows = make(map[int64]meeting.Record)
	}
	if rec.Saved() {
		if _, ok := s.rows[rec.ID]; !ok {
			return 0, fmt.Errorf("mock store: update %d: %w", rec.ID, meeting.ErrNotFound)
		}
		s.rows[rec.ID] = clone(*rec)
		return rec.ID, nil
	}
	s.nextID++
	rec.ID = s.nextID
	s.rows[rec.ID] = clone(*rec)
	return rec.ID, nil
}

// Get implements [meeting.Store].
func (s *Store) Get(_ context.Context, id int64) (*meeting.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, fmt.Errorf("mock store: %w: %w", meeting.ErrStorage, s.ReadErr)
	}
	rec, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	out := clone(rec)
	return &out, nil
}

// GetAll implements [meeting.Store].
func (s *Store) GetAll(_ context.Context) ([]meeting.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, fmt.Errorf("mock store: %w: %w", meeting.ErrStorage, s.ReadErr)
	}
	return s.sorted(func(meeting.Record) bool { return true }), nil
}

// Delete implements [meeting.Store].
func (s *Store) Delete(_ context.Context, id int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls = append(s.DeleteCalls, id)
	if s.DeleteErr != nil {
		return "", false, fmt.Errorf("mock store: %w: %w", meeting.ErrStorage, s.DeleteErr)
	}
	rec, ok := s.rows[id]
	if !ok {
		return "", false, nil
	}
	delete(s.rows, id)
	return rec.AudioPath, true, nil
}

// Search implements [meeting.Store].
func (s *Store) Search(_ context.Context, query string) ([]meeting.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchCalls = append(s.SearchCalls, query)
	if s.ReadErr != nil {
		return nil, fmt.Errorf("mock store: %w: %w", meeting.ErrStorage, s.ReadErr)
	}
	q := strings.ToLower(query)
	return s.sorted(func(r meeting.Record) bool {
		return strings.Contains(strings.ToLower(r.Title), q) ||
			strings.Contains(strings.ToLower(r.Transcript), q) ||
			strings.Contains(strings.ToLower(r.Summary), q)
	}), nil
}

// Ping implements [meeting.Store].
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PingErr != nil {
		return fmt.Errorf("mock store: %w: %w", meeting.ErrStorage, s.PingErr)
	}
	return nil
}

// Close implements [meeting.Store].
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// sorted returns matching rows newest first. Caller holds s.mu.
func (s *Store) sorted(match func(meeting.Record) bool) []meeting.Record {
	out := []meeting.Record{}
	for _, r := range s.rows {
		if match(r) {
			out = append(out, clone(r))
		}
	}
	slices.SortFunc(out, func(a, b meeting.Record) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func clone(r meeting.Record) meeting.Record {
	r.KeyPoints = slices.Clone(r.KeyPoints)
	r.ActionItems = slices.Clone(r.ActionItems)
	if r.KeyPoints == nil {
		r.KeyPoints = []string{}
	}
	if r.ActionItems == nil {
		r.ActionItems = []string{}
	}
	return r
}
