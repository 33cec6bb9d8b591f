package client

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is an in-memory copy of one collection. Writes show up locally at
// once and are undone if the server rejects them.
type Store[T any] struct {
	res *Resource[T]
	log *zap.Logger

	mu        sync.Mutex
	items     []T
	listeners map[int]func([]T)
	nextID    int
}

func NewStore[T any](res *Resource[T]) *Store[T] {
	return &Store[T]{
		res:       res,
		log:       res.c.log,
		listeners: make(map[int]func([]T)),
	}
}

// Load replaces the local items with the server's list.
func (s *Store[T]) Load(ctx context.Context) error {
	items, err := s.res.List(ctx)
	if err != nil {
		return err
	}
	s.commit(func([]T) []T { return items })
	return nil
}

// Items returns a copy of the current items.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

// OnChange registers fn to run after every change. The returned func
// removes it.
func (s *Store[T]) OnChange(fn func([]T)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Add inserts v at the front. An empty id is filled with a fresh UUID so the
// optimistic row can be found again; the server row replaces it on success.
func (s *Store[T]) Add(ctx context.Context, v T) (T, error) {
	if s.res.id(v) == "" {
		s.res.setID(&v, uuid.NewString())
	}
	tempID := s.res.id(v)
	return mutate(ctx, s,
		func(items []T) []T { return append([]T{v}, items...) },
		func(ctx context.Context) (T, error) { return s.res.Create(ctx, v) },
		func(items []T) []T { return s.without(items, map[string]struct{}{tempID: {}}) },
		func(items []T, created T) []T { return s.replace(items, tempID, created) },
	)
}

// AddMany inserts vs at the front as one mutation.
func (s *Store[T]) AddMany(ctx context.Context, vs []T) ([]T, error) {
	vs = append([]T(nil), vs...)
	ids := make([]string, len(vs))
	added := make(map[string]struct{}, len(vs))
	for i := range vs {
		if s.res.id(vs[i]) == "" {
			s.res.setID(&vs[i], uuid.NewString())
		}
		ids[i] = s.res.id(vs[i])
		added[ids[i]] = struct{}{}
	}
	return mutate(ctx, s,
		func(items []T) []T { return append(append([]T(nil), vs...), items...) },
		func(ctx context.Context) ([]T, error) { return s.res.CreateMany(ctx, vs) },
		func(items []T) []T { return s.without(items, added) },
		func(items []T, created []T) []T {
			for i := range created {
				if i < len(ids) {
					items = s.replace(items, ids[i], created[i])
				}
			}
			return items
		},
	)
}

// Update replaces the row with v's id.
func (s *Store[T]) Update(ctx context.Context, v T) (T, error) {
	id := s.res.id(v)
	var prev T
	var had bool
	return mutate(ctx, s,
		func(items []T) []T {
			for i := range items {
				if s.res.id(items[i]) == id {
					prev, had = items[i], true
					items[i] = v
					break
				}
			}
			return items
		},
		func(ctx context.Context) (T, error) { return s.res.Update(ctx, id, v) },
		func(items []T) []T {
			if !had {
				return items
			}
			return s.replace(items, id, prev)
		},
		func(items []T, updated T) []T { return s.replace(items, id, updated) },
	)
}

// Remove deletes the row with id.
func (s *Store[T]) Remove(ctx context.Context, id string) error {
	var removed T
	index := -1
	_, err := mutate(ctx, s,
		func(items []T) []T {
			for i := range items {
				if s.res.id(items[i]) == id {
					removed, index = items[i], i
					return append(items[:i:i], items[i+1:]...)
				}
			}
			return items
		},
		func(ctx context.Context) (struct{}, error) { return struct{}{}, s.res.Delete(ctx, id) },
		func(items []T) []T {
			if index < 0 || s.indexOf(items, id) >= 0 {
				return items
			}
			at := min(index, len(items))
			out := make([]T, 0, len(items)+1)
			out = append(out, items[:at]...)
			out = append(out, removed)
			return append(out, items[at:]...)
		},
		func(items []T, _ struct{}) []T { return items },
	)
	return err
}

// mutate is the single write path: apply locally, call the server, then
// undo just this change on failure or fold the server answer in on success.
func mutate[T, R any](
	ctx context.Context,
	s *Store[T],
	apply func([]T) []T,
	call func(context.Context) (R, error),
	rollback func([]T) []T,
	reconcile func([]T, R) []T,
) (R, error) {
	s.commit(apply)
	result, err := call(ctx)
	if err != nil {
		s.log.Warn("server rejected change, rolling back", zap.String("path", s.res.path), zap.Error(err))
		s.commit(rollback)
		return result, err
	}
	s.commit(func(items []T) []T { return reconcile(items, result) })
	return result, nil
}

// commit runs fn on a private copy under the lock and notifies listeners
// outside it.
func (s *Store[T]) commit(fn func([]T) []T) {
	s.mu.Lock()
	s.items = fn(append([]T(nil), s.items...))
	snapshot := append([]T(nil), s.items...)
	listeners := make([]func([]T), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (s *Store[T]) indexOf(items []T, id string) int {
	for i := range items {
		if s.res.id(items[i]) == id {
			return i
		}
	}
	return -1
}

func (s *Store[T]) replace(items []T, id string, v T) []T {
	if i := s.indexOf(items, id); i >= 0 {
		items[i] = v
	}
	return items
}

func (s *Store[T]) without(items []T, ids map[string]struct{}) []T {
	out := items[:0]
	for _, it := range items {
		if _, drop := ids[s.res.id(it)]; !drop {
			out = append(out, it)
		}
	}
	return out
}
