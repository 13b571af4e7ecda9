package cooldown

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memStore struct {
	mu      sync.Mutex
	records map[string]time.Time
	loads   int
	failOn  map[string]error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]time.Time{}, failOn: map[string]error{}}
}

func (s *memStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["delete_expired"]; err != nil {
		return 0, err
	}
	n := 0
	for id, exp := range s.records {
		if exp.Before(before) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) LoadAll(context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if err := s.failOn["load_all"]; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(s.records))
	for id, exp := range s.records {
		out = append(out, Record{ID: id, Expires: exp})
	}
	return out, nil
}

func (s *memStore) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["upsert"]; err != nil {
		return err
	}
	s.records[rec.ID] = rec.Expires
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn["delete"]; err != nil {
		return err
	}
	delete(s.records, id)
	return nil
}

func (s *memStore) get(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.records[id]
	return t, ok
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
