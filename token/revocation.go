package token

import (
	"context"
	"time"

	"github.com/jrsteele09/masapp-server/kvstore"
)

const revokedKeyPrefix = "revoked:"

// RevocationList records token IDs that must no longer be honoured even though unexpired.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Claim revokes jti and reports whether this call was the one that revoked it. It is
	// how single-use tokens are spent: of concurrent claims, only one gets true.
	Claim(ctx context.Context, jti string, exp time.Time) (bool, error)
}

// StoreRevocationList keeps each revoked jti in a kvstore.Store for the remaining lifetime of
// its token, so the list only ever holds revocations that still matter.
type StoreRevocationList struct {
	store   kvstore.Store
	nowFunc func() time.Time
}

var _ RevocationList = (*StoreRevocationList)(nil)

func NewStoreRevocationList(store kvstore.Store, nowFunc func() time.Time) *StoreRevocationList {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &StoreRevocationList{store: store, nowFunc: nowFunc}
}

// Revoke is a no-op for tokens that have already expired.
func (l *StoreRevocationList) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(l.nowFunc())
	if ttl <= 0 {
		return nil
	}
	return l.store.Set(ctx, revokedKeyPrefix+jti, exp.UTC().Format(time.RFC3339), ttl)
}

// Claim on an already expired token reports false.
func (l *StoreRevocationList) Claim(ctx context.Context, jti string, exp time.Time) (bool, error) {
	ttl := exp.Sub(l.nowFunc())
	if ttl <= 0 {
		return false, nil
	}
	return l.store.SetNX(ctx, revokedKeyPrefix+jti, exp.UTC().Format(time.RFC3339), ttl)
}

func (l *StoreRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok, err := l.store.Get(ctx, revokedKeyPrefix+jti)
	return ok, err
}
