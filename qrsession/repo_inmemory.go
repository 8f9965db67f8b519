package qrsession

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/pkg/errors"
)

// InMemoryRepo is a process local Repo.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session // token -> session
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryRepo) Insert(session Session) error {
	if session.Token == "" {
		return errors.Wrap(apperrors.ErrValidation, "token is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.Token]; ok {
		return errors.Wrap(apperrors.ErrConflict, "session token already exists")
	}
	r.sessions[session.Token] = copySession(session)
	return nil
}

func (r *InMemoryRepo) Get(token string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[token]
	if !ok {
		return Session{}, errors.Wrap(apperrors.ErrNotFound, "session not found")
	}
	return copySession(session), nil
}

func (r *InMemoryRepo) Update(token string, fn func(s *Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[token]
	if !ok {
		return errors.Wrap(apperrors.ErrNotFound, "session not found")
	}
	session = copySession(session)
	if err := fn(&session); err != nil {
		return err
	}
	r.sessions[token] = session
	return nil
}

func (r *InMemoryRepo) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func copySession(s Session) Session {
	if s.UsedAt != nil {
		usedAt := *s.UsedAt
		s.UsedAt = &usedAt
	}
	return s
}
