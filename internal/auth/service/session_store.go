package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
)

// SessionStore keeps login sessions in process memory.
//
// Sessions hold the PDK, which must never leave the process, so this store is
// deliberately not backed by an external cache. Mutations for the same user
// are serialized by a per-user mutex, which gives login/logout/password-change
// the ordering guarantee the rest of the system assumes.
type SessionStore interface {
	// Put stores a session under its token.
	Put(session *authDomain.Session)

	// Get returns the session for a token. Expired sessions are destroyed on
	// access and reported as absent.
	Get(token string) (*authDomain.Session, bool)

	// Delete destroys a single session, zeroing its PDK.
	Delete(token string)

	// DeleteAllForUser destroys every session of a user except the one with
	// exceptToken (pass "" to destroy all).
	DeleteAllForUser(userID uuid.UUID, exceptToken string)

	// ReplacePDK swaps the PDK held by a session, zeroing the old value.
	// Returns false if the session no longer exists.
	ReplacePDK(token string, pdk []byte) bool
}

// sessionStore implements SessionStore with a token map plus a per-user index.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*authDomain.Session
	byUser   map[uuid.UUID]map[string]struct{}

	userMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex

	now func() time.Time
}

// NewSessionStore creates an empty in-process session store.
func NewSessionStore() SessionStore {
	return &sessionStore{
		sessions: make(map[string]*authDomain.Session),
		byUser:   make(map[uuid.UUID]map[string]struct{}),
		locks:    make(map[uuid.UUID]*sync.Mutex),
		now:      time.Now,
	}
}

// userLock returns the mutex serializing session mutations for a user.
func (s *sessionStore) userLock(userID uuid.UUID) *sync.Mutex {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Put stores a session under its token.
func (s *sessionStore) Put(session *authDomain.Session) {
	lock := s.userLock(session.UserID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Token] = session
	tokens, ok := s.byUser[session.UserID]
	if !ok {
		tokens = make(map[string]struct{})
		s.byUser[session.UserID] = tokens
	}
	tokens[session.Token] = struct{}{}
}

// Get returns the session for a token, destroying it if expired.
func (s *sessionStore) Get(token string) (*authDomain.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if session.Expired(s.now()) {
		s.Delete(token)
		return nil, false
	}
	return session, true
}

// Delete destroys a single session, zeroing its PDK.
func (s *sessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(token)
}

// deleteLocked removes a session. Caller holds s.mu.
func (s *sessionStore) deleteLocked(token string) {
	session, ok := s.sessions[token]
	if !ok {
		return
	}

	cryptoDomain.Zero(session.PDK)
	delete(s.sessions, token)

	if tokens, ok := s.byUser[session.UserID]; ok {
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(s.byUser, session.UserID)
		}
	}
}

// DeleteAllForUser destroys every session of a user except exceptToken.
func (s *sessionStore) DeleteAllForUser(userID uuid.UUID, exceptToken string) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for token := range s.byUser[userID] {
		if token == exceptToken {
			continue
		}
		s.deleteLocked(token)
	}
}

// ReplacePDK swaps the PDK held by a session.
func (s *sessionStore) ReplacePDK(token string, pdk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return false
	}

	cryptoDomain.Zero(session.PDK)
	session.PDK = pdk
	return true
}
