// Package memory contains an in-process implementation of the repository
// interfaces with optional JSON snapshot persistence.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bagtrack/internal/model"
	"github.com/and161185/bagtrack/internal/repository"
)

type txKey struct{}

// state holds every collection. It is replaced wholesale on rollback.
type state struct {
	flights    map[uuid.UUID]model.Flight
	passengers map[uuid.UUID]model.Passenger
	bags       map[uuid.UUID]model.Bag
	staff      map[uuid.UUID]model.Staff
	admin      *model.Administrator
	messages   []model.Message // insertion order
	issues     []model.Issue
	sessions   map[uuid.UUID]model.Session
}

func newState() *state {
	return &state{
		flights:    map[uuid.UUID]model.Flight{},
		passengers: map[uuid.UUID]model.Passenger{},
		bags:       map[uuid.UUID]model.Bag{},
		staff:      map[uuid.UUID]model.Staff{},
		sessions:   map[uuid.UUID]model.Session{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.passengers {
		c.passengers[k] = v
	}
	for k, v := range s.bags {
		c.bags[k] = v.Clone()
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	if s.admin != nil {
		a := *s.admin
		c.admin = &a
	}
	c.messages = append([]model.Message(nil), s.messages...)
	c.issues = append([]model.Issue(nil), s.issues...)
	return c
}

// Store is a mutex-guarded in-memory database. A transaction holds the
// mutex for its whole duration, so transactions are serialized.
type Store struct {
	mu   sync.Mutex
	st   *state
	path string // snapshot file, empty disables persistence
}

// New returns an empty store without persistence.
func New() *Store { return &Store{st: newState()} }

// Open returns a store persisted to path, loading it if the file exists.
func Open(path string) (*Store, error) {
	s := &Store{st: newState(), path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Repositories wires the store into a repository.Store.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Tx:         s,
		Flights:    &FlightRepo{s: s},
		Passengers: &PassengerRepo{s: s},
		Bags:       &BagRepo{s: s},
		Staff:      &StaffRepo{s: s},
		Admin:      &AdminRepo{s: s},
		Messages:   &MessageRepo{s: s},
		Issues:     &IssueRepo{s: s},
		Sessions:   &SessionRepo{s: s},
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// WithinTransaction runs fn under the store lock. Writes made by fn are
// discarded if it returns an error or panics, and persisted otherwise.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snap
			panic(p)
		}
	}()
	if err = fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snap
		return err
	}
	if err = s.save(); err != nil {
		s.st = snap
		return err
	}
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// write applies a single mutation. Outside a transaction it commits on its own.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(s.st)
	}
	return s.WithinTransaction(ctx, func(context.Context) error { return fn(s.st) })
}

// snapshot is the on-disk layout. Collections are sorted for stable output.
type snapshot struct {
	Flights    []model.Flight       `json:"flights"`
	Passengers []model.Passenger    `json:"passengers"`
	Bags       []model.Bag          `json:"bags"`
	Staff      []model.Staff        `json:"staff"`
	Admin      *model.Administrator `json:"admin,omitempty"`
	Messages   []model.Message      `json:"messages"`
	Issues     []model.Issue        `json:"issues"`
	Sessions   []model.Session      `json:"sessions"`
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{
		Flights:    sortedValues(s.st.flights, func(v model.Flight) (int64, string) { return v.CreatedAt.UnixNano(), v.ID.String() }),
		Passengers: sortedValues(s.st.passengers, func(v model.Passenger) (int64, string) { return v.CreatedAt.UnixNano(), v.ID.String() }),
		Bags:       sortedValues(s.st.bags, func(v model.Bag) (int64, string) { return v.CreatedAt.UnixNano(), v.ID.String() }),
		Staff:      sortedValues(s.st.staff, func(v model.Staff) (int64, string) { return v.CreatedAt.UnixNano(), v.ID.String() }),
		Admin:      s.st.admin,
		Messages:   s.st.messages,
		Issues:     s.st.issues,
		Sessions:   sortedValues(s.st.sessions, func(v model.Session) (int64, string) { return v.CreatedAt.UnixNano(), v.ID.String() }),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	st := newState()
	for _, v := range snap.Flights {
		st.flights[v.ID] = v
	}
	for _, v := range snap.Passengers {
		st.passengers[v.ID] = v
	}
	for _, v := range snap.Bags {
		st.bags[v.ID] = v
	}
	for _, v := range snap.Staff {
		st.staff[v.ID] = v
	}
	for _, v := range snap.Sessions {
		st.sessions[v.ID] = v
	}
	st.admin = snap.Admin
	st.messages = snap.Messages
	st.issues = snap.Issues
	s.st = st
	return nil
}

// sortedValues returns map values ordered by key(v), creation time first.
func sortedValues[T any](m map[uuid.UUID]T, key func(T) (int64, string)) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, si := key(out[i])
		tj, sj := key(out[j])
		if ti != tj {
			return ti < tj
		}
		return si < sj
	})
	return out
}
