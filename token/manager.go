package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const bearerTokenType = "Bearer"

// Pair is what a successful login or refresh hands back to the client.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"` // access token lifetime in seconds
	TokenType    string `json:"tokenType"`
}

type Manager struct {
	signer             Signer
	revocations        RevocationList
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	challengeExpiry    time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry, challengeExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
		m.challengeExpiry = challengeExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func New(signer Signer, revocations RevocationList, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:      signer,
		revocations: revocations,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = time.Hour
	}
	if m.refreshTokenExpiry <= 0 {
		m.refreshTokenExpiry = 7 * 24 * time.Hour
	}
	if m.challengeExpiry <= 0 {
		m.challengeExpiry = 5 * time.Minute
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// Issue creates a fresh access/refresh pair for the identity.
func (m *Manager) Issue(id Identity) (*Pair, error) {
	accessToken, err := m.sign(id, TypeAccess, m.accessTokenExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Issue access token")
	}
	refreshToken, err := m.sign(id, TypeRefresh, m.refreshTokenExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Issue refresh token")
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(m.accessTokenExpiry.Seconds()),
		TokenType:    bearerTokenType,
	}, nil
}

// IssueChallenge creates the short-lived token that carries a half-finished login
// (password accepted, second factor outstanding).
func (m *Manager) IssueChallenge(id Identity) (string, error) {
	challenge, err := m.sign(id, TypeMFA, m.challengeExpiry)
	if err != nil {
		return "", errors.Wrap(err, "Manager.IssueChallenge")
	}
	return challenge, nil
}

// Verify checks signature, algorithm, expiry and revocation. Any failure is reported as
// apperrors.ErrInvalidToken.
func (m *Manager) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "empty token")
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey)
	if err != nil || !token.Valid {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, describeParseError(err))
	}
	if claims.ID == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "missing jti")
	}

	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.Err(err).Str("jti", claims.ID).Msg("revocation lookup failed, rejecting token")
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "revocation lookup failed")
	}
	if revoked {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "token revoked")
	}
	return claims, nil
}

func (m *Manager) VerifyAccess(ctx context.Context, rawToken string) (*Claims, error) {
	return m.verifyType(ctx, rawToken, TypeAccess)
}

func (m *Manager) VerifyRefresh(ctx context.Context, rawToken string) (*Claims, error) {
	return m.verifyType(ctx, rawToken, TypeRefresh)
}

func (m *Manager) VerifyChallenge(ctx context.Context, rawToken string) (*Claims, error) {
	return m.verifyType(ctx, rawToken, TypeMFA)
}

// ConsumeChallenge verifies a 2FA challenge token and spends it. A challenge is accepted once,
// whatever the outcome of the second factor that follows.
func (m *Manager) ConsumeChallenge(ctx context.Context, rawToken string) (*Claims, error) {
	claims, err := m.VerifyChallenge(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if err := m.claim(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair carrying the same identity. The presented
// refresh token is spent so it cannot be replayed.
func (m *Manager) Refresh(ctx context.Context, rawRefreshToken string) (*Pair, error) {
	claims, err := m.VerifyRefresh(ctx, rawRefreshToken)
	if err != nil {
		return nil, err
	}
	return m.Rotate(ctx, claims, claims.Identity())
}

// Rotate spends an already verified token and issues a new pair for id, which may differ from
// the identity inside presented when the user record changed since issuance. Only one of
// several concurrent rotations of the same token succeeds.
func (m *Manager) Rotate(ctx context.Context, presented *Claims, id Identity) (*Pair, error) {
	if err := m.claim(ctx, presented); err != nil {
		return nil, err
	}
	return m.Issue(id)
}

// Revoke puts the token's jti on the revocation list until the token would have expired
// anyway. Tokens that cannot be decoded, or were not signed by us, are ignored.
func (m *Manager) Revoke(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return nil
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey); err != nil {
		log.Debug().Err(err).Msg("ignoring revoke of undecodable token")
		return nil
	}
	return m.revokeClaims(ctx, claims)
}

func (m *Manager) revokeClaims(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := m.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return errors.Wrap(err, "revocation list")
	}
	return nil
}

// claim atomically moves a verified token onto the revocation list. A store failure fails
// closed like a revocation lookup does.
func (m *Manager) claim(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return errors.Wrap(apperrors.ErrInvalidToken, "token cannot be spent")
	}
	claimed, err := m.revocations.Claim(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		log.Err(err).Str("jti", claims.ID).Msg("revocation claim failed, rejecting token")
		return errors.Wrap(apperrors.ErrInvalidToken, "revocation claim failed")
	}
	if !claimed {
		return errors.Wrap(apperrors.ErrInvalidToken, "token already used")
	}
	return nil
}

func (m *Manager) verifyType(ctx context.Context, rawToken string, want Type) (*Claims, error) {
	claims, err := m.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, errors.Wrapf(apperrors.ErrInvalidToken, "wrong token type %q", claims.Type)
	}
	return claims, nil
}

func (m *Manager) sign(id Identity, tokenType Type, expiry time.Duration) (string, error) {
	now := m.nowFunc()
	claims := Claims{
		UserID:       id.UserID,
		Email:        id.Email,
		Role:         id.Role,
		RestaurantID: id.RestaurantID,
		Type:         tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.New().String(), // Unique token ID for revocation
		},
	}
	return m.signer.Sign(claims)
}

func describeParseError(err error) string {
	switch {
	case err == nil:
		return "token not valid"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	}
	return err.Error()
}
