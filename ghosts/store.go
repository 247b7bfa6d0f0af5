/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package ghosts keeps the pool of ghost names and tracks who holds each one.
//
// A Store is loaded once and lives for the whole process. Every operation
// takes the store's lock, so a single Store can be shared between
// concurrent HTTP handlers. Claims are kept in memory only.
package ghosts

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

type Store struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
	rng     *rand.Rand
	strict  bool
}

type Option func(*Store)

// WithRand sets the source used by Sample and Reserve.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) {
		s.rng = rng
	}
}

// WithStrictClaims makes Claim and Assign refuse names already held by a
// different email. Without it the last writer wins.
func WithStrictClaims(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// New builds a store from records in source order. Names must be unique
// and non-empty, and no email may hold more than one taken record.
func New(records []Record, opts ...Option) (*Store, error) {
	s := &Store{
		records: make([]Record, len(records)),
		index:   make(map[string]int, len(records)),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	holders := make(map[string]bool)

	for i, r := range records {
		if r.Name == "" {
			return nil, fmt.Errorf("record %d: %w", i, ErrEmptyName)
		}
		if _, ok := s.index[r.Name]; ok {
			return nil, fmt.Errorf("record %d: %w: %q", i, ErrDuplicateName, r.Name)
		}
		if email := r.Holder.Email; r.Taken && email != "" {
			if holders[email] {
				return nil, fmt.Errorf("record %d: %w: %s", i, ErrDuplicateHolder, email)
			}
			holders[email] = true
		}
		s.index[r.Name] = i
		s.records[i] = r
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// All returns a copy of every record in source order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)

	return out
}

// Free returns the records nobody holds, in source order.
func (s *Store) Free() []Record {
	return s.filter(false)
}

// Taken returns the held records, in source order.
func (s *Store) Taken() []Record {
	return s.filter(true)
}

func (s *Store) filter(taken bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Taken == taken {
			out = append(out, r)
		}
	}

	return out
}

func (s *Store) Lookup(name string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[name]
	if !ok {
		return Record{}, false
	}

	return s.records[i], true
}

// Sample picks k distinct free records uniformly at random.
func (s *Store) Sample(k int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	free := s.freeIndexesLocked()
	if k < 0 || len(free) < k {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrInsufficientPool, k, len(free))
	}

	out := make([]Record, 0, k)
	for _, j := range s.rng.Perm(len(free))[:k] {
		out = append(out, s.records[free[j]])
	}

	return out, nil
}

// Release frees the name held by email, if there is one, and returns the
// record as it was before release.
func (s *Store) Release(email string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.releaseLocked(email)
}

// Claim hands name to h whether or not it was free, unless strict claims
// are enabled.
func (s *Store) Claim(name string, h Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.claimableLocked(name, h)
	if err != nil {
		return err
	}

	s.records[i].claim(h)

	return nil
}

// Assign releases whatever h.Email held before and claims name for h in a
// single step. Nothing changes if name cannot be claimed.
func (s *Store) Assign(name string, h Holder) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.claimableLocked(name, h)
	if err != nil {
		return Record{}, false, err
	}

	released, ok := s.releaseLocked(h.Email)
	s.records[i].claim(h)

	return released, ok, nil
}

// Reserve gives each holder a random free name, replacing any name their
// email already held. Nothing changes if it returns an error.
func (s *Store) Reserve(holders []Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(holders))
	for _, h := range holders {
		if h.Email == "" {
			continue
		}
		if seen[h.Email] {
			return fmt.Errorf("%w: %s", ErrDuplicateHolder, h.Email)
		}
		seen[h.Email] = true
	}

	// Names the holders give up count towards the free pool.
	available := 0
	for _, r := range s.records {
		if !r.Taken || seen[r.Holder.Email] {
			available++
		}
	}
	if available < len(holders) {
		return fmt.Errorf("%w: want %d, have %d", ErrInsufficientPool, len(holders), available)
	}

	for email := range seen {
		s.releaseLocked(email)
	}

	free := s.freeIndexesLocked()
	for n, j := range s.rng.Perm(len(free))[:len(holders)] {
		s.records[free[j]].claim(holders[n])
	}

	return nil
}

func (s *Store) freeIndexesLocked() []int {
	free := make([]int, 0, len(s.records))
	for i, r := range s.records {
		if !r.Taken {
			free = append(free, i)
		}
	}

	return free
}

func (s *Store) releaseLocked(email string) (Record, bool) {
	for i := range s.records {
		r := &s.records[i]
		if r.Taken && r.Holder.Email == email {
			before := *r
			r.release()

			return before, true
		}
	}

	return Record{}, false
}

func (s *Store) claimableLocked(name string, h Holder) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNameNotFound, name)
	}

	r := s.records[i]
	if s.strict && r.Taken && r.Holder.Email != h.Email {
		return 0, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}

	return i, nil
}
