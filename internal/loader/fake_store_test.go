package loader

import (
	"context"
	"errors"
	"sync"
)

var errConnectionReset = errors.New("connection reset by peer")

// fakeStore is an in-memory Store that mirrors employee_table semantics,
// including the unique constraint on unique_id.
type fakeStore struct {
	mu        sync.Mutex
	names     map[[2]string]bool
	ids       map[string]bool
	inserted  []*Employee
	lookups   []string
	readErr   error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		names: make(map[[2]string]bool),
		ids:   make(map[string]bool),
	}
}

func (s *fakeStore) seed(firstName, lastName, uniqueID string) {
	s.names[[2]string{firstName, lastName}] = true
	s.ids[uniqueID] = true
}

func (s *fakeStore) NameExists(_ context.Context, firstName, lastName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return false, s.readErr
	}

	return s.names[[2]string{firstName, lastName}], nil
}

func (s *fakeStore) IdentifierExists(_ context.Context, uniqueID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return false, s.readErr
	}

	s.lookups = append(s.lookups, uniqueID)

	return s.ids[uniqueID], nil
}

func (s *fakeStore) Insert(_ context.Context, employee *Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return s.insertErr
	}

	if s.ids[employee.UniqueID] {
		return errors.New("duplicate key value violates unique constraint")
	}

	s.names[[2]string{employee.FirstName, employee.LastName}] = true
	s.ids[employee.UniqueID] = true
	s.inserted = append(s.inserted, employee)

	return nil
}

func (s *fakeStore) insertedIDs() []string {
	ids := make([]string, 0, len(s.inserted))
	for _, e := range s.inserted {
		ids = append(ids, e.UniqueID)
	}

	return ids
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, employee *Employee) error {
	p.published = append(p.published, employee.UniqueID)

	return p.err
}

type countingLimiter struct {
	waits int
	err   error
}

func (l *countingLimiter) Wait(context.Context) error {
	l.waits++

	return l.err
}
