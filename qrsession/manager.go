package qrsession

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/pkg/errors"
)

const (
	DefaultValidity = 30 * time.Minute
	tokenBytes      = 32
)

type Manager struct {
	repo     Repo
	validity time.Duration
	nowFunc  func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithValidity(validity time.Duration) ManagerOption {
	return func(m *Manager) {
		m.validity = validity
	}
}

func New(repo Repo, options ...ManagerOption) *Manager {
	m := &Manager{repo: repo}
	for _, opt := range options {
		opt(m)
	}
	if m.validity <= 0 {
		m.validity = DefaultValidity
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Create starts a new ordering session for a table.
func (m *Manager) Create(restaurantID string, tableNumber int) (*Session, error) {
	verr := apperrors.NewValidationError()
	if strings.TrimSpace(restaurantID) == "" {
		verr.Add("restaurantId", "is required")
	}
	if tableNumber < 1 {
		verr.Add("tableNumber", "must be a positive number")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Create newToken")
	}

	now := m.nowFunc()
	session := Session{
		Token:        token,
		RestaurantID: restaurantID,
		TableNumber:  tableNumber,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.validity),
	}
	if err := m.repo.Insert(session); err != nil {
		return nil, errors.Wrap(err, "Manager.Create Insert")
	}
	return &session, nil
}

// Validate reports whether token names a live, unused session.
func (m *Manager) Validate(token string) Result {
	result, _ := m.lookup(token, "")
	return result
}

// ValidateFor is Validate plus a check that the session belongs to restaurantID.
func (m *Manager) ValidateFor(token, restaurantID string) Result {
	result, _ := m.lookup(token, restaurantID)
	return result
}

// Get returns the session behind a valid token.
func (m *Manager) Get(token, restaurantID string) (*Session, error) {
	result, session := m.lookup(token, restaurantID)
	if !result.Valid {
		return nil, &InvalidSessionError{Reason: result.Reason}
	}
	return session, nil
}

// MarkUsed closes the session. Marking a used session again changes nothing.
func (m *Manager) MarkUsed(token string) error {
	if token == "" {
		return &InvalidSessionError{Reason: ReasonNoToken}
	}
	err := m.repo.Update(token, func(s *Session) error {
		if !s.IsUsed {
			usedAt := m.nowFunc()
			s.IsUsed = true
			s.UsedAt = &usedAt
		}
		return nil
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return &InvalidSessionError{Reason: ReasonInvalidToken}
	}
	return err
}

// Consume validates the session for restaurantID and marks it used in one step, so two
// concurrent orders cannot both spend the same session.
func (m *Manager) Consume(token, restaurantID string) (*Session, error) {
	if token == "" {
		return nil, &InvalidSessionError{Reason: ReasonNoToken}
	}

	var consumed Session
	err := m.repo.Update(token, func(s *Session) error {
		now := m.nowFunc()
		if result := m.check(s, restaurantID, now); !result.Valid {
			return &InvalidSessionError{Reason: result.Reason}
		}
		s.IsUsed = true
		s.UsedAt = &now
		consumed = *s
		return nil
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, &InvalidSessionError{Reason: ReasonInvalidToken}
	}
	if err != nil {
		return nil, err
	}
	return &consumed, nil
}

// Supersede ends an unused session of restaurantID after the table was scanned again, so only
// the newest scan can order. Unknown tokens and sessions of other restaurants are left alone.
func (m *Manager) Supersede(token, restaurantID string) error {
	if token == "" {
		return nil
	}
	err := m.repo.Update(token, func(s *Session) error {
		now := m.nowFunc()
		if s.RestaurantID == restaurantID && !s.IsUsed && !s.Expired(now) {
			s.ExpiresAt = now
		}
		return nil
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}

// Release reopens a session spent by Consume whose order could not be stored.
func (m *Manager) Release(token string) error {
	err := m.repo.Update(token, func(s *Session) error {
		s.IsUsed = false
		s.UsedAt = nil
		return nil
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return &InvalidSessionError{Reason: ReasonInvalidToken}
	}
	return err
}

// Sweep removes expired sessions. It satisfies kvstore.Sweeper.
func (m *Manager) Sweep(_ context.Context) (int, error) {
	return m.repo.DeleteExpired(m.nowFunc())
}

func (m *Manager) lookup(token, restaurantID string) (Result, *Session) {
	if token == "" {
		return invalid(ReasonNoToken), nil
	}
	session, err := m.repo.Get(token)
	if err != nil {
		return invalid(ReasonInvalidToken), nil
	}
	result := m.check(&session, restaurantID, m.nowFunc())
	if !result.Valid {
		return result, nil
	}
	return result, &session
}

// check applies the state machine. restaurantID is only compared when set.
func (m *Manager) check(s *Session, restaurantID string, now time.Time) Result {
	switch {
	case restaurantID != "" && s.RestaurantID != restaurantID:
		return invalid(ReasonInvalidToken)
	case s.IsUsed:
		return invalid(ReasonTokenUsed)
	case s.Expired(now):
		return invalid(ReasonTokenExpired)
	}
	return valid()
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
