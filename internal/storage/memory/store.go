// Package memory is an in-process domain.Store. It backs the service and
// handler tests and evaluates location filters with LocationFilter.Matches.
// Units of work run one at a time, so a commit never overwrites another
// writer's changes.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"lodging/internal/domain"
)

var ErrTxDone = errors.New("memory: transaction already finished")

type state struct {
	nextID   int64
	lodgings map[int64]domain.Lodging // children stripped, assembled on read
	rentals  map[int64]domain.Rental
	reviews  map[int64]domain.Review
	images   map[int64]domain.Image
}

func newState() *state {
	return &state{
		lodgings: map[int64]domain.Lodging{},
		rentals:  map[int64]domain.Rental{},
		reviews:  map[int64]domain.Review{},
		images:   map[int64]domain.Image{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.lodgings {
		c.lodgings[k] = v
	}
	for k, v := range s.rentals {
		c.rentals[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	for k, v := range s.images {
		c.images[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store keeps everything in maps guarded by one mutex. A unit of work
// operates on a private copy that replaces the shared state on Commit;
// writer is held from Begin until Commit or Rollback.
type Store struct {
	mu     sync.Mutex
	writer *semaphore.Weighted
	st     *state
	err    error
}

func New() *Store { return &Store{st: newState(), writer: semaphore.NewWeighted(1)} }

// FailWith makes every subsequent call return err; nil restores normal behavior.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Store) view() repos { return repos{mu: &s.mu, st: func() *state { return s.st }, err: func() error { return s.err }} }

func (s *Store) Lodgings() domain.LodgingRepository { return lodgingRepo{s.view()} }
func (s *Store) Rentals() domain.Repository[domain.Rental] {
	return rentalRepo{s.view()}
}
func (s *Store) Reviews() domain.Repository[domain.Review] {
	return reviewRepo{s.view()}
}
func (s *Store) Images() domain.ImageRepository { return imageRepo{s.view()} }

// Begin waits for the previous unit of work to finish or for ctx to end.
func (s *Store) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.writer.Release(1)
		return nil, s.err
	}
	u := &unitOfWork{parent: s, st: s.st.clone()}
	u.repos = repos{mu: &u.mu, st: func() *state { return u.st }, err: func() error { return nil }}
	return u, nil
}

type unitOfWork struct {
	repos
	mu     sync.Mutex
	parent *Store
	st     *state
	done   bool
}

func (u *unitOfWork) Lodgings() domain.LodgingRepository { return lodgingRepo{u.repos} }
func (u *unitOfWork) Rentals() domain.Repository[domain.Rental] {
	return rentalRepo{u.repos}
}
func (u *unitOfWork) Reviews() domain.Repository[domain.Review] {
	return reviewRepo{u.repos}
}
func (u *unitOfWork) Images() domain.ImageRepository { return imageRepo{u.repos} }

func (u *unitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrTxDone
	}
	u.done = true
	defer u.parent.writer.Release(1)
	u.parent.mu.Lock()
	defer u.parent.mu.Unlock()
	if u.parent.err != nil {
		return u.parent.err
	}
	u.parent.st = u.st
	return nil
}

// Rollback discards the private copy; calling it after Commit is a no-op.
func (u *unitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.done {
		u.done = true
		u.parent.writer.Release(1)
	}
	return nil
}

// repos resolves the state lazily so the same code serves the store and a unit of work.
type repos struct {
	mu  *sync.Mutex
	st  func() *state
	err func() error
}

func (r repos) with(fn func(st *state) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err(); err != nil {
		return err
	}
	return fn(r.st())
}

// assemble attaches rentals, reviews and images to a stored lodging row.
func (st *state) assemble(l domain.Lodging) domain.Lodging {
	l.Rentals = []domain.Rental{}
	l.Reviews = []domain.Review{}
	l.Images = []domain.Image{}
	for _, id := range sortedKeys(st.rentals) {
		if rt := st.rentals[id]; rt.LodgingID == l.ID {
			l.Rentals = append(l.Rentals, rt)
		}
	}
	for _, id := range sortedKeys(st.reviews) {
		if rv := st.reviews[id]; rv.LodgingID == l.ID {
			l.Reviews = append(l.Reviews, rv)
		}
	}
	for _, id := range sortedKeys(st.images) {
		if img := st.images[id]; img.LodgingID == l.ID {
			l.Images = append(l.Images, img)
		}
	}
	if l.Location != nil {
		loc := *l.Location
		if loc.Address != nil {
			a := *loc.Address
			loc.Address = &a
		}
		l.Location = &loc
	}
	return l
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
