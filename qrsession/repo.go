package qrsession

import "time"

// Repo stores sessions keyed by their token.
type Repo interface {
	Insert(session Session) error
	Get(token string) (Session, error)
	// Update applies fn to the stored session atomically. If fn returns an error nothing is
	// written and the error is returned.
	Update(token string, fn func(s *Session) error) error
	Delete(token string) error
	DeleteExpired(now time.Time) (int, error)
}
