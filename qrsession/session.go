// Package qrsession binds the QR code on a restaurant table to a short ordering session.
// A session moves Created -> Active -> (Used | Expired); the server keeps the record and
// the guest only carries the token.
package qrsession

import (
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
)

type Session struct {
	Token        string     `json:"token"`
	RestaurantID string     `json:"restaurantId"`
	TableNumber  int        `json:"tableNumber"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	IsUsed       bool       `json:"isUsed"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Reason says why a presented token was not accepted.
type Reason string

const (
	ReasonNoToken      Reason = "no_token"
	ReasonInvalidToken Reason = "invalid_token"
	ReasonTokenUsed    Reason = "token_used"
	ReasonTokenExpired Reason = "token_expired"
)

type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

func valid() Result { return Result{Valid: true} }

func invalid(reason Reason) Result { return Result{Reason: reason} }

// InvalidSessionError is returned when an operation needs a usable session and the presented
// token is not one.
type InvalidSessionError struct {
	Reason Reason
}

func (e *InvalidSessionError) Error() string {
	return fmt.Sprintf("qr session rejected: %s", e.Reason)
}

func (e *InvalidSessionError) Unwrap() error {
	return apperrors.ErrUnauthenticated
}
