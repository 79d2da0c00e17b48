package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryStore keeps reminders in process memory. It backs the "memory"
// driver and doubles as the fake store in tests.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Reminder
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{nextID: 1, items: map[int64]Reminder{}}
}

func (s *memoryStore) Create(ctx context.Context, recipient, task string, dueAt time.Time) (Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reminder{
		ID:        s.nextID,
		Recipient: recipient,
		Task:      task,
		DueAt:     dueAt,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.items[r.ID] = r
	return r, nil
}

func (s *memoryStore) FindDuePending(ctx context.Context, now time.Time) ([]Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Reminder
	for _, r := range s.items {
		if !r.Delivered && !r.DueAt.After(now) {
			out = append(out, r)
		}
	}
	// Creation order: ids are assigned monotonically.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) MarkDelivered(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if r.Delivered {
		return nil
	}
	r.Delivered = true
	s.items[id] = r
	return nil
}

func (s *memoryStore) Close() error { return nil }
