package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/indexdash/pkg/models"
)

// State is where a session is in the interaction cycle.
type State string

const (
	AwaitingIndexSelection  State = "awaiting_index_selection"
	AwaitingTickerSelection State = "awaiting_ticker_selection"
	AwaitingDates           State = "awaiting_dates"
	Rendered                State = "rendered"
)

// Session is the per-user context carried between interactions: the
// current widget values, the symbol list of the selected index and the
// last rendered view. Run calls on one session are serialised.
type Session struct {
	ID string

	mu        sync.Mutex
	index     models.Index
	hasIndex  bool
	symbols   []string
	ticker    string
	startText string
	endText   string
	dates     models.DateRange
	state     State
	last      *View
	lastSeen  time.Time
}

// NewSession creates an empty session with a random id.
func NewSession() *Session {
	return &Session{ID: uuid.NewString(), state: AwaitingIndexSelection}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Last returns the most recently rendered view, or nil.
func (s *Session) Last() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Sessions is an in-memory session store keyed by id. Sessions idle for
// longer than the configured duration are dropped.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

// NewSessions creates a store that forgets sessions after idle.
func NewSessions(idle time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// Get returns the session with id, creating a new one when id is unknown.
// created reports whether a new session was made; its ID differs from id.
func (s *Sessions) Get(id string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.lastSeen = now
		return sess, false
	}

	s.pruneLocked(now)
	sess = NewSession()
	sess.lastSeen = now
	s.sessions[sess.ID] = sess
	return sess, true
}

// Prune drops idle sessions and returns how many were removed.
func (s *Sessions) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now())
}

func (s *Sessions) pruneLocked(now time.Time) int {
	if s.idle <= 0 {
		return 0
	}
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
