package viewstate

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"spt3g-viewer/internal/domain"
)

// Ticket orders recomputations within one session. Only the most recently
// issued ticket may commit.
type Ticket uint64

// Session is the server-side state of one browser session.
type Session struct {
	ID string

	mu      sync.Mutex
	state   State
	issued  Ticket
	derived *derivedRows
}

type derivedRows struct {
	criteria domain.Criteria
	rows     domain.RowSet
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies evs immediately, in order.
func (s *Session) Dispatch(evs ...Event) (State, []Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, effects := ReduceAll(s.state, evs...)
	s.state = next
	return next, effects
}

// Begin issues a ticket for a recomputation that will commit later.
// Issuing a ticket invalidates every earlier one.
func (s *Session) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit applies evs if t is still the newest ticket. A stale commit changes
// nothing and reports false.
func (s *Session) Commit(t Ticket, evs ...Event) (State, []Effect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.issued {
		return s.state, nil, false
	}
	next, effects := ReduceAll(s.state, evs...)
	s.state = next
	return next, effects, true
}

// Remember keeps rows as the displayed rows derived for c.
func (s *Session) Remember(c domain.Criteria, rows domain.RowSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derived = &derivedRows{criteria: c.Clone(), rows: rows}
}

// Rows returns the rows last remembered for c.
func (s *Session) Rows(c domain.Criteria) (domain.RowSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.derived == nil || !s.derived.criteria.Equal(c) {
		return domain.RowSet{}, false
	}
	return s.derived.rows, true
}

// Forget drops the remembered rows.
func (s *Session) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.derived = nil
}

// Store keeps sessions in memory and expires them after a period of
// inactivity.
type Store struct {
	cache   *cache.Cache
	colorBy domain.Column
}

// NewStore creates a Store whose sessions start colouring by colorBy.
func NewStore(ttl time.Duration, colorBy domain.Column) *Store {
	return &Store{
		cache:   cache.New(ttl, ttl),
		colorBy: colorBy,
	}
}

// Get returns the live session id and refreshes its expiry.
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	st.cache.SetDefault(id, sess)
	return sess, true
}

// Ensure returns the session id, creating a new one when id is unknown or
// expired. Callers must re-issue the session cookie when the returned
// session's ID differs from id.
func (st *Store) Ensure(id string) *Session {
	if sess, ok := st.Get(id); ok {
		return sess
	}
	sess := &Session{
		ID:    uuid.NewString(),
		state: NewState(st.colorBy),
	}
	st.cache.SetDefault(sess.ID, sess)
	return sess
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.cache.ItemCount()
}
