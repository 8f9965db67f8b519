package token_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/kvstore"
	"github.com/jrsteele09/masapp-server/token"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newManager(t *testing.T) (*token.Manager, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := kvstore.NewMemoryStore(kvstore.WithNowFunc(c.Now))
	m := token.New(
		token.NewHMACSigner("test-secret"),
		token.NewStoreRevocationList(store, c.Now),
		token.WithNowFunc(c.Now),
		token.WithIssuer("masapp"),
		token.WithTokenExpiry(time.Hour, 24*time.Hour, 5*time.Minute),
	)
	return m, c
}

var waiter = token.Identity{
	UserID:       "u-1",
	Email:        "waiter@kebab-house.com",
	Role:         users.RoleWaiter,
	RestaurantID: "r-1",
}

func TestIssueAndVerify(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	pair, err := m.Issue(waiter)
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, 3600, pair.ExpiresIn)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := m.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, waiter, claims.Identity())
	require.Equal(t, token.TypeAccess, claims.Type)
	require.Equal(t, "masapp", claims.Issuer)
	require.NotEmpty(t, claims.ID)

	refresh, err := m.VerifyRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, token.TypeRefresh, refresh.Type)
	require.NotEqual(t, claims.ID, refresh.ID)
}

func TestVerifyUntilExpiry(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	pair, err := m.Issue(waiter)
	require.NoError(t, err)

	c.now = c.now.Add(59 * time.Minute)
	_, err = m.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)

	c.now = c.now.Add(time.Minute)
	_, err = m.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	// refresh token outlives the access token
	_, err = m.VerifyRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestVerifyRejectsTampering(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	pair, err := m.Issue(waiter)
	require.NoError(t, err)

	other := token.New(token.NewHMACSigner("other-secret"), token.NewStoreRevocationList(kvstore.NewMemoryStore(), nil))
	_, err = other.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)
	_, err = m.Verify(ctx, parts[0]+"."+parts[1]+".AAAA")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	for _, raw := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		_, err = m.Verify(ctx, raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken, raw)
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated, raw)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	m, c := newManager(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, token.Claims{
		UserID: "u-1",
		Role:   users.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(c.now.Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), raw)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestRevokeThenVerifyFails(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	pair, err := m.Issue(waiter)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, pair.AccessToken))
	_, err = m.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	// only the revoked jti is affected
	_, err = m.VerifyRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRevokeIgnoresGarbageAndExpired(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Revoke(ctx, ""))
	require.NoError(t, m.Revoke(ctx, "garbage"))

	pair, err := m.Issue(waiter)
	require.NoError(t, err)
	c.now = c.now.Add(2 * time.Hour)
	require.NoError(t, m.Revoke(ctx, pair.AccessToken))
}

func TestRevocationEntryExpiresWithToken(t *testing.T) {
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := kvstore.NewMemoryStore(kvstore.WithNowFunc(c.Now))
	list := token.NewStoreRevocationList(store, c.Now)
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-1", c.now.Add(time.Minute)))
	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	c.now = c.now.Add(2 * time.Minute)
	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRefreshRotates(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	pair, err := m.Issue(waiter)
	require.NoError(t, err)

	c.now = c.now.Add(2 * time.Hour)
	next, err := m.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := m.VerifyAccess(ctx, next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, waiter, claims.Identity())

	// the presented refresh token is single use
	_, err = m.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = m.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

// gatedRevocations holds every IsRevoked call until n callers are waiting, so concurrent
// verifications all see the token as live before any of them spends it.
type gatedRevocations struct {
	token.RevocationList
	arrived sync.WaitGroup
}

func newGatedRevocations(list token.RevocationList, n int) *gatedRevocations {
	g := &gatedRevocations{RevocationList: list}
	g.arrived.Add(n)
	return g
}

func (g *gatedRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.RevocationList.IsRevoked(ctx, jti)
}

func TestConcurrentRefreshSpendsTokenOnce(t *testing.T) {
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := kvstore.NewMemoryStore(kvstore.WithNowFunc(c.Now))
	issuer := token.New(token.NewHMACSigner("test-secret"), token.NewStoreRevocationList(store, c.Now), token.WithNowFunc(c.Now))
	pair, err := issuer.Issue(waiter)
	require.NoError(t, err)

	const callers = 2
	gated := newGatedRevocations(token.NewStoreRevocationList(store, c.Now), callers)
	m := token.New(token.NewHMACSigner("test-secret"), gated, token.WithNowFunc(c.Now))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Refresh(context.Background(), pair.RefreshToken); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, succeeded)
}

func TestConsumeChallengeOnce(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	challenge, err := m.IssueChallenge(waiter)
	require.NoError(t, err)

	claims, err := m.ConsumeChallenge(ctx, challenge)
	require.NoError(t, err)
	require.Equal(t, waiter, claims.Identity())

	_, err = m.ConsumeChallenge(ctx, challenge)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = m.VerifyChallenge(ctx, challenge)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	pair, err := m.Issue(waiter)
	require.NoError(t, err)
	challenge, err := m.IssueChallenge(waiter)
	require.NoError(t, err)

	_, err = m.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = m.Refresh(ctx, challenge)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = m.VerifyAccess(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = m.VerifyAccess(ctx, challenge)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	claims, err := m.VerifyChallenge(ctx, challenge)
	require.NoError(t, err)
	require.Equal(t, token.TypeMFA, claims.Type)
}

func TestChallengeExpiresQuickly(t *testing.T) {
	m, c := newManager(t)

	challenge, err := m.IssueChallenge(waiter)
	require.NoError(t, err)

	c.now = c.now.Add(5*time.Minute + time.Second)
	_, err = m.VerifyChallenge(context.Background(), challenge)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestSuperAdminTokenOmitsRestaurant(t *testing.T) {
	m, _ := newManager(t)

	pair, err := m.Issue(token.Identity{UserID: "u-0", Email: "admin@masapp.com", Role: users.RoleSuperAdmin})
	require.NoError(t, err)

	payload := strings.Split(pair.AccessToken, ".")[1]
	decoded, err := jwt.NewParser().DecodeSegment(payload)
	require.NoError(t, err)
	require.NotContains(t, string(decoded), "restaurantId")
	require.NotContains(t, string(decoded), `"type"`)
	require.Contains(t, string(decoded), `"userId":"u-0"`)
}
