package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	audit "petcare/pkg/platform/audit"
)

// InMemoryStore is an append-only audit store for tests and single-node dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	// failWith, when set, is returned by Append (used to exercise dead-lettering).
	failWith error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// FailAppends makes subsequent Append calls return err (nil restores).
func (s *InMemoryStore) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if entry.Detail != nil {
		detail := make(map[string]any, len(entry.Detail))
		for k, v := range entry.Detail {
			detail[k] = v
		}
		entry.Detail = detail
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, filter audit.Filter, page audit.Page) ([]audit.Entry, error) {
	page = page.Normalize()

	s.mu.RLock()
	matched := make([]audit.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) > 0
	})

	if page.Offset >= len(matched) {
		return []audit.Entry{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries. Test helper only.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

var _ audit.Store = (*InMemoryStore)(nil)
