package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
)

// DocumentStore is an in-memory implementation of app.DocumentStore.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	commits     int
	failures    map[int]error
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]map[string]any),
		failures:    make(map[int]error),
	}
}

// FailCommit makes the n-th CommitBatch call (1-based) fail with err (useful for tests).
func (s *DocumentStore) FailCommit(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[n] = err
}

// Commits reports how many CommitBatch calls were attempted.
func (s *DocumentStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Count reports how many documents collection holds.
func (s *DocumentStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *DocumentStore) Get(_ context.Context, collection, id string) (app.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.collections[collection][id]
	if !ok {
		return app.Document{}, domain.ErrDocumentNotFound
	}
	return app.Document{ID: id, Fields: cloneMap(fields)}, nil
}

func (s *DocumentStore) Set(_ context.Context, collection, id string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(collection, id, fields, merge)
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *DocumentStore) Query(_ context.Context, collection string, filters []app.Filter, limit int) ([]app.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []app.Document
	for _, id := range ids {
		if !matches(docs[id], filters) {
			continue
		}
		out = append(out, app.Document{ID: id, Fields: cloneMap(docs[id])})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CommitBatch applies ops all-or-nothing.
func (s *DocumentStore) CommitBatch(_ context.Context, ops []app.WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	if err, ok := s.failures[s.commits]; ok {
		return err
	}
	for _, op := range ops {
		switch op.Kind {
		case app.OpSet:
			s.setLocked(op.Collection, op.ID, op.Fields, op.Merge)
		case app.OpDelete:
			delete(s.collections[op.Collection], op.ID)
		}
	}
	return nil
}

func (s *DocumentStore) setLocked(collection, id string, fields map[string]any, merge bool) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	current, exists := docs[id]
	if !merge || !exists {
		docs[id] = cloneMap(fields)
		return
	}
	for k, v := range fields {
		current[k] = cloneValue(v)
	}
}

func matches(fields map[string]any, filters []app.Filter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case domain.RegistryRecord:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
