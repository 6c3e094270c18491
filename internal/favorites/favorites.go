// Package favorites keeps a viewer's favorite listings in step with the backend.
//
// Toggles apply locally first and are undone if the backend refuses them.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/jdholdren/bazaar/internal/session"
)

type Backend interface {
	Favorites(ctx context.Context) ([]string, error)
	ToggleFavorite(ctx context.Context, listingID string) error
}

type Set struct {
	backend Backend

	toggleMu sync.Mutex // Serialises toggles

	mu     sync.Mutex
	ids    map[string]struct{}
	loaded bool
	gen    uint64 // Bumped whenever the session changes hands

	unsubscribe func()
}

// New returns an empty set that follows the session's logins and logouts.
func New(backend Backend, sess *session.Session) *Set {
	s := &Set{
		backend: backend,
		ids:     map[string]struct{}{},
	}
	s.unsubscribe = sess.Subscribe(s.onSession)

	return s
}

func (s *Set) onSession(e session.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Whoever holds the session now, the old favorites aren't theirs.
	s.gen++
	s.loaded = false
	s.ids = map[string]struct{}{}
	slog.Debug("favorites reset", "event", e)
}

// Close stops following the session.
func (s *Set) Close() {
	s.unsubscribe()
}

// Load replaces the set with what the backend holds.
func (s *Set) Load(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	ids, err := s.backend.Favorites(ctx)
	if err != nil {
		return fmt.Errorf("error loading favorites: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// The session changed underneath us, the next read loads again.
		return nil
	}
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.loaded = true

	return nil
}

func (s *Set) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()

	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// IsFavorite reports the local state only; it never calls the backend.
func (s *Set) IsFavorite(listingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ids[listingID]
	return ok
}

// IDs are the favorite listing IDs, sorted, loading them first if they are stale.
func (s *Set) IDs(ctx context.Context) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(maps.Keys(s.ids)), nil
}

// Toggle flips the listing's favorite state and reports the new state.
//
// On failure the flip is undone and the state from before is reported alongside the error.
func (s *Set) Toggle(ctx context.Context, listingID string) (bool, error) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	_, was := s.ids[listingID]
	s.flipLocked(listingID, !was)
	gen := s.gen
	s.mu.Unlock()

	if err := s.backend.ToggleFavorite(ctx, listingID); err != nil {
		s.mu.Lock()
		if gen == s.gen {
			s.flipLocked(listingID, was)
		}
		s.mu.Unlock()

		return was, err
	}

	return !was, nil
}

func (s *Set) flipLocked(listingID string, on bool) {
	if on {
		s.ids[listingID] = struct{}{}
		return
	}
	delete(s.ids, listingID)
}
