package requests

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-memory Store with the same compare-and-swap
// semantics as the Mongo-backed one. Used by tests.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*ServiceRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[primitive.ObjectID]*ServiceRequest)}
}

func (s *MemoryStore) Insert(_ context.Context, r *ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.docs[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id primitive.ObjectID) (*ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Find(_ context.Context, f Filter) ([]*ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ServiceRequest
	for _, doc := range s.docs {
		if f.matches(doc) {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, r *ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[r.ID]
	if !ok {
		return ErrNotFound
	}
	if doc.Version != r.Version {
		return ErrConflict
	}
	r.Version++
	s.docs[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}
