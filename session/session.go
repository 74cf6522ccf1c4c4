package session

import (
	"sync"

	"golang.org/x/xerrors"

	"github.com/jwalker/zdi-advisory-explorer/advisory"
	"github.com/jwalker/zdi-advisory-explorer/explorer"
)

// Store holds per-session UI state: bookmarked advisories and named saved
// searches. State lives only as long as the process; there is no
// cross-session persistence. The zero value of a session is empty, so an
// unknown session id just behaves as a fresh one.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
}

type state struct {
	bookmarks     []advisory.Advisory
	savedSearches map[string]explorer.Query
}

func NewStore() *Store {
	return &Store{sessions: map[string]*state{}}
}

func (s *Store) session(id string) *state {
	st, ok := s.sessions[id]
	if !ok {
		st = &state{savedSearches: map[string]explorer.Query{}}
		s.sessions[id] = st
	}
	return st
}

// AddBookmark appends an advisory to the session's bookmark list.
func (s *Store) AddBookmark(sessionID string, a advisory.Advisory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(sessionID)
	st.bookmarks = append(st.bookmarks, a)
}

// Bookmarks lists the session's bookmarks in insertion order.
func (s *Store) Bookmarks(sessionID string) []advisory.Advisory {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(sessionID)
	bookmarks := make([]advisory.Advisory, len(st.bookmarks))
	copy(bookmarks, st.bookmarks)
	return bookmarks
}

// RemoveBookmark removes the bookmark at the given index.
func (s *Store) RemoveBookmark(sessionID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(sessionID)
	if index < 0 || index >= len(st.bookmarks) {
		return xerrors.Errorf("bookmark index %d out of range", index)
	}
	st.bookmarks = append(st.bookmarks[:index], st.bookmarks[index+1:]...)
	return nil
}

// SaveSearch stores the filter predicates under a name.
func (s *Store) SaveSearch(sessionID, name string, q explorer.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(sessionID)
	st.savedSearches[name] = q
}

// LoadSearch returns the named predicates, reporting whether they exist.
func (s *Store) LoadSearch(sessionID, name string) (explorer.Query, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(sessionID)
	q, ok := st.savedSearches[name]
	return q, ok
}

// SearchNames lists the session's saved search names.
func (s *Store) SearchNames(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(sessionID)
	names := make([]string, 0, len(st.savedSearches))
	for name := range st.savedSearches {
		names = append(names, name)
	}
	return names
}
