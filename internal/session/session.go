// Package session holds the process-wide bearer credential and the
// denormalized admin flag, and persists them between runs.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoCredential = errors.New("no credential")

// State is the persisted shape of a session.
type State struct {
	Token string `json:"jwtToken"`
	Admin bool   `json:"admin"`
}

// Store persists session state.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// Claims are the parts of the credential the client reads. The signature is
// not verified: the server stays authoritative.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Session is passed explicitly to everything that needs the credential.
type Session struct {
	mu    sync.RWMutex
	state State
	store Store
}

// New builds an in-memory session. Nothing is persisted.
func New(token string, admin bool) *Session {
	return &Session{state: State{Token: strings.TrimSpace(token), Admin: admin}}
}

// Open loads a session from store. A store with nothing saved yields an
// unauthenticated session.
func Open(store Store) (*Session, error) {
	st, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	st.Token = strings.TrimSpace(st.Token)
	return &Session{state: st, store: store}, nil
}

// Token returns the bearer credential or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Admin reports the cached admin flag.
func (s *Session) Admin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Admin
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Login replaces the credential and admin flag and persists them.
func (s *Session) Login(token string, admin bool) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoCredential
	}
	return s.set(State{Token: token, Admin: admin})
}

// Logout clears the session.
func (s *Session) Logout() error {
	return s.set(State{})
}

func (s *Session) set(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		if err := s.store.Save(st); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	s.state = st
	return nil
}

// Claims peeks at the credential's subject and expiry.
func (s *Session) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoCredential
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse credential: %w", err)
	}
	var out Claims
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// Subject is the credential's subject claim, or "" when unreadable.
func (s *Session) Subject() string {
	c, err := s.Claims()
	if err != nil {
		return ""
	}
	return c.Subject
}

// Expired reports whether the credential carries an expiry before now.
// Opaque or expiry-less credentials are never considered expired.
func (s *Session) Expired(now time.Time) bool {
	c, err := s.Claims()
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}
