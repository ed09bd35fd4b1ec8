// Package memory is an in-process storage.Store used by tests and the
// memory data backend.
package memory

import (
	"context"
	"os"
	"sync"

	"saldo/internal/core"
	"saldo/internal/storage"
)

type Store struct {
	mu        sync.Mutex
	templates map[string]core.Template
	order     []string
	methods   map[string]core.PaymentMethod
	names     []string
	revision  int64
}

var _ storage.Store = (*Store)(nil)

// New returns a store holding the default payment methods.
func New() *Store {
	s := &Store{
		templates: map[string]core.Template{},
		methods:   map[string]core.PaymentMethod{},
	}
	for _, pm := range storage.DefaultPaymentMethods() {
		s.putMethod(pm)
	}
	return s
}

// NewFromFile seeds a store from an export document. A missing file yields
// an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	snap, err := storage.ReadSnapshot(f)
	if err != nil {
		return nil, err
	}
	if err := storage.Import(context.Background(), s, snap); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return core.Template{}, storage.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *Store) UpsertTemplate(_ context.Context, t core.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.templates[t.ID] = t.Clone()
	s.revision++
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.templates, id)
	s.order = without(s.order, id)
	s.revision++
	return nil
}

func (s *Store) ListTemplates(_ context.Context) ([]core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Template, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.templates[id].Clone())
	}
	return out, nil
}

func (s *Store) GetPaymentMethod(_ context.Context, name string) (core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pm, ok := s.methods[name]
	if !ok {
		return core.PaymentMethod{}, storage.ErrNotFound
	}
	return pm, nil
}

func (s *Store) UpsertPaymentMethod(_ context.Context, pm core.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putMethod(pm)
	s.revision++
	return nil
}

func (s *Store) putMethod(pm core.PaymentMethod) {
	if _, ok := s.methods[pm.Name]; !ok {
		s.names = append(s.names, pm.Name)
	}
	s.methods[pm.Name] = pm
}

func (s *Store) DeletePaymentMethod(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.methods[name]; !ok {
		return storage.ErrNotFound
	}
	delete(s.methods, name)
	s.names = without(s.names, name)
	s.revision++
	return nil
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PaymentMethod, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.methods[name])
	}
	return out, nil
}

func (s *Store) Revision(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision, nil
}

func (s *Store) Close() error { return nil }

func without(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
