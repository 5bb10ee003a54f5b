// Package memoryadapter is the in-memory reference Adapter. It backs the
// engine's test suite and single-process deployments; nothing survives a
// restart.
package memoryadapter

import (
	"context"
	"sync"
	"time"

	"github.com/authcore-dev/authcore"
)

// Store implements [authcore.Adapter] with map-backed tables under one
// mutex. Values are copied on the way in and out, so callers can never
// mutate stored state through a retained pointer.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*authcore.User
	emails   map[string]string // normalized email -> user ID
	creds    map[string]*authcore.Credential
	sessions map[string]*authcore.Session
	tokens   map[string]*authcore.Token // token hash -> token
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:    map[string]*authcore.User{},
		emails:   map[string]string{},
		creds:    map[string]*authcore.Credential{},
		sessions: map[string]*authcore.Session{},
		tokens:   map[string]*authcore.Token{},
	}
}

func (s *Store) CreateUser(_ context.Context, user *authcore.User, cred *authcore.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return authcore.ErrDuplicateEmail
	}

	s.users[user.ID] = cloneUser(user)
	s.emails[user.Email] = user.ID
	s.creds[cred.UserID] = cloneCredential(cred)
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) UpdateUser(_ context.Context, user *authcore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.users[user.ID]
	if !ok {
		return authcore.ErrNotFound
	}
	if prev.Email != user.Email {
		if _, taken := s.emails[user.Email]; taken {
			return authcore.ErrDuplicateEmail
		}
		delete(s.emails, prev.Email)
		s.emails[user.Email] = user.ID
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return authcore.ErrNotFound
	}

	delete(s.emails, user.Email)
	delete(s.users, id)
	delete(s.creds, id)
	for sid, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, sid)
		}
	}
	for hash, tok := range s.tokens {
		if tok.UserID == id {
			delete(s.tokens, hash)
		}
	}
	return nil
}

func (s *Store) CredentialByUser(_ context.Context, userID string) (*authcore.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[userID]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return cloneCredential(cred), nil
}

func (s *Store) UpdateCredential(_ context.Context, cred *authcore.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[cred.UserID]; !ok {
		return authcore.ErrNotFound
	}
	s.creds[cred.UserID] = cloneCredential(cred)
	return nil
}

func (s *Store) CreateSession(_ context.Context, sess *authcore.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *Store) SessionByID(_ context.Context, id string) (*authcore.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *Store) SessionsByUser(_ context.Context, userID string) ([]*authcore.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*authcore.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, cloneSession(sess))
		}
	}
	return out, nil
}

func (s *Store) UpdateSession(_ context.Context, sess *authcore.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		return authcore.ErrNotFound
	}
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return authcore.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteSessionsByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) CreateToken(_ context.Context, tok *authcore.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[tok.Hash] = cloneToken(tok)
	return nil
}

func (s *Store) ConsumeToken(_ context.Context, hash string, typ authcore.TokenType, now time.Time) (*authcore.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[hash]
	if !ok || tok.Type != typ || tok.UsedAt != nil || !now.Before(tok.ExpiresAt) {
		return nil, authcore.ErrNotFound
	}

	used := now
	tok.UsedAt = &used
	return cloneToken(tok), nil
}

func (s *Store) DeleteTokensByUser(_ context.Context, userID string, typ authcore.TokenType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, tok := range s.tokens {
		if tok.UserID == userID && tok.Type == typ {
			delete(s.tokens, hash)
		}
	}
	return nil
}

func cloneUser(u *authcore.User) *authcore.User {
	c := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

func cloneCredential(cr *authcore.Credential) *authcore.Credential {
	c := *cr
	if cr.LockedUntil != nil {
		t := *cr.LockedUntil
		c.LockedUntil = &t
	}
	return &c
}

func cloneSession(s *authcore.Session) *authcore.Session {
	c := *s
	return &c
}

func cloneToken(t *authcore.Token) *authcore.Token {
	c := *t
	if t.UsedAt != nil {
		u := *t.UsedAt
		c.UsedAt = &u
	}
	return &c
}
