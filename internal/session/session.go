// Package session holds who is logged in against the market backend.
//
// A Session is created per client and handed to whatever needs the token.
// Interested parties subscribe to login/logout instead of re-reading it on a timer.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/jdholdren/bazaar/internal/market"
)

type Event int

const (
	EventLogin Event = iota + 1
	EventLogout
)

func (e Event) String() string {
	switch e {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var (
	ErrNoSession = errors.New("no active session")
	ErrExpired   = errors.New("token already expired")
)

type subscriber struct {
	id int
	fn func(Event)
}

// Session is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      market.User
	expiresAt time.Time

	now    func() time.Time
	nextID int
	subs   []subscriber
}

// Ensure the session can feed an oauth2 transport.
var _ oauth2.TokenSource = (*Session)(nil)

func New() *Session {
	return &Session{now: time.Now}
}

// Set starts the session. If the token is a JWT its exp claim bounds the session.
func (s *Session) Set(token string, user market.User) error {
	if token == "" {
		return fmt.Errorf("error setting session: %w", ErrNoSession)
	}
	exp := expiry(token)
	if !exp.IsZero() && !s.now().Before(exp) {
		return ErrExpired
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.expiresAt = exp
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	notify(subs, EventLogin)
	return nil
}

// Clear ends the session. Clearing an empty session notifies nobody.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.user = market.User{}
	s.expiresAt = time.Time{}
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	notify(subs, EventLogout)
}

// Subscribe registers fn for every login and logout until the returned func is called.
//
// fn runs on the goroutine that changed the session, after the change is visible.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func notify(subs []subscriber, e Event) {
	for _, sub := range subs {
		sub.fn(e)
	}
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeLocked()
}

func (s *Session) activeLocked() bool {
	if s.token == "" {
		return false
	}

	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

// User is the logged in user; the zero value when there is none.
func (s *Session) User() market.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.activeLocked() {
		return market.User{}
	}
	return s.user
}

// AccessToken is the raw bearer token, empty without an active session.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.activeLocked() {
		return ""
	}
	return s.token
}

// Token implements [oauth2.TokenSource].
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.activeLocked() {
		return nil, ErrNoSession
	}

	return &oauth2.Token{
		AccessToken: s.token,
		TokenType:   "Bearer",
		Expiry:      s.expiresAt,
	}, nil
}

// expiry reads the exp claim without verifying the signature; only the backend can verify it.
// Opaque tokens have no expiry.
func expiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}

	return claims.ExpiresAt.Time
}
