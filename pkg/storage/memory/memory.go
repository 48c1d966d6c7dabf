// Package memory provides an in-memory implementation of transport.SessionStore
// for testing and single-replica deployments. Summaries are lost when the
// process restarts. Optional LRU eviction limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/storage"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// entry holds a stored summary and its tenant.
type entry struct {
	session  *api.SessionSummary
	tenantID string
	lruElem  *list.Element
}

// Store is an in-memory SessionStore with optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List // front = most recently used, back = least recently used
	maxSize int        // 0 = unlimited
}

// Ensure Store implements transport.SessionStore at compile time.
var _ transport.SessionStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently used entry is evicted
// when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// SaveSession stores a copy of the summary under the context's tenant.
func (s *Store) SaveSession(ctx context.Context, sess *api.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sess.ID]; exists {
		return storage.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(sess.ID)
	s.entries[sess.ID] = &entry{
		session:  clone(sess),
		tenantID: storage.GetTenant(ctx),
		lruElem:  elem,
	}
	return nil
}

// GetSession retrieves a summary by ID and marks it recently used.
// Scoped by tenant when a tenant is present in the context.
func (s *Store) GetSession(ctx context.Context, id string) (*api.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !visible(ctx, e) {
		return nil, storage.ErrNotFound
	}
	s.lruList.MoveToFront(e.lruElem)
	return clone(e.session), nil
}

// ListSessions returns the tenant's summaries, newest first.
func (s *Store) ListSessions(ctx context.Context, opts transport.ListOptions) (*transport.SessionList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]*api.SessionSummary, 0, len(s.entries))
	for _, e := range s.entries {
		if !visible(ctx, e) {
			continue
		}
		if opts.Dialect != "" && e.session.Dialect != opts.Dialect {
			continue
		}
		matches = append(matches, e.session)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt != matches[j].CreatedAt {
			return matches[i].CreatedAt > matches[j].CreatedAt
		}
		return matches[i].ID > matches[j].ID
	})

	limit := storage.ClampLimit(opts.Limit)
	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	data := make([]*api.SessionSummary, len(matches))
	for i, m := range matches {
		data[i] = clone(m)
	}
	return &transport.SessionList{Object: "list", Data: data, HasMore: hasMore}, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored summaries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func visible(ctx context.Context, e *entry) bool {
	tenantID := storage.GetTenant(ctx)
	return tenantID == "" || e.tenantID == tenantID
}

func clone(sess *api.SessionSummary) *api.SessionSummary {
	c := *sess
	c.SkillIDs = append([]string(nil), sess.SkillIDs...)
	c.FileIDs = append([]string(nil), sess.FileIDs...)
	return &c
}

// evictOldest removes the least recently used entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}
