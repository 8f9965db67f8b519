package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/internal/utils"
	"github.com/jrsteele09/masapp-server/mfa"
	"github.com/jrsteele09/masapp-server/ratelimit"
	"github.com/jrsteele09/masapp-server/token"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultLoginMaxAttempts = 5
	defaultLoginWindow      = 15 * time.Minute
	loginLimitPrefix        = "login:"
	twoFactorLimitPrefix    = "2fa:"
)

// LoginResult is either a token pair or, for accounts with two-factor enabled, a challenge
// that must be completed with VerifyTwoFactor.
type LoginResult struct {
	Tokens         *token.Pair `json:"tokens,omitempty"`
	MFARequired    bool        `json:"mfaRequired"`
	ChallengeToken string      `json:"challengeToken,omitempty"`
	User           *users.User `json:"user,omitempty"`
}

// Service authenticates restaurant staff and platform administrators.
type Service struct {
	repos           Repos
	tokens          *token.Manager
	limiter         *ratelimit.Limiter
	totp            *mfa.Verifier
	maxAttempts     int
	window          time.Duration
	backupCodeCount int
	bcryptCost      int
	nowTime         func() time.Time

	dummyHashOnce sync.Once
	dummyHash     string
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLoginLimit bounds login and two-factor attempts per client within window.
func WithLoginLimit(maxAttempts int, window time.Duration) ServiceOption {
	return func(s *Service) {
		s.maxAttempts = maxAttempts
		s.window = window
	}
}

func WithBackupCodeCount(n int) ServiceOption {
	return func(s *Service) {
		s.backupCodeCount = n
	}
}

func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func NewService(repos Repos, tokens *token.Manager, limiter *ratelimit.Limiter, verifier *mfa.Verifier, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Restaurants == nil {
		return nil, errors.New("[NewService] Restaurants repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if limiter == nil {
		return nil, errors.New("[NewService] rate limiter is required")
	}
	if verifier == nil {
		return nil, errors.New("[NewService] totp verifier is required")
	}

	s := &Service{
		repos:           repos,
		tokens:          tokens,
		limiter:         limiter,
		totp:            verifier,
		maxAttempts:     defaultLoginMaxAttempts,
		window:          defaultLoginWindow,
		backupCodeCount: mfa.DefaultBackupCodeCount,
		bcryptCost:      bcrypt.DefaultCost,
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login checks the credentials and either issues tokens or starts the two-factor challenge.
// Every attempt counts towards the client's limit, whatever its outcome.
func (s *Service) Login(ctx context.Context, params LoginParameters, clientKey string) (*LoginResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkLimit(ctx, loginLimitPrefix+clientKey); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(utils.NormaliseEmail(params.Email))
	if err != nil {
		// Spend the same time as a real comparison so response timing does not reveal which
		// emails are registered.
		users.CheckPasswordHash(params.Password, s.getDummyHash())
		log.Info().Str("client", clientKey).Msg("login failed: unknown email")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.CheckPassword(params.Password) {
		log.Info().Str("client", clientKey).Str("user", user.ID).Msg("login failed: wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := s.checkActive(user); err != nil {
		log.Info().Err(err).Str("user", user.ID).Msg("login refused")
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		challenge, err := s.tokens.IssueChallenge(token.IdentityOf(user))
		if err != nil {
			return nil, errors.Wrap(err, "[Service.Login] IssueChallenge")
		}
		return &LoginResult{MFARequired: true, ChallengeToken: challenge}, nil
	}

	return s.completeLogin(user)
}

// VerifyTwoFactor finishes a login with a TOTP code or one of the user's backup codes. A
// backup code is spent on use.
func (s *Service) VerifyTwoFactor(ctx context.Context, params TwoFactorParameters, clientKey string) (*LoginResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkLimit(ctx, twoFactorLimitPrefix+clientKey); err != nil {
		return nil, err
	}

	// The challenge is spent before the code is looked at: a wrong code, or a second request
	// racing this one, needs a fresh password login.
	claims, err := s.tokens.ConsumeChallenge(ctx, params.ChallengeToken)
	if err != nil {
		return nil, err
	}
	current, err := s.repos.Users.GetByID(claims.UserID)
	if err != nil || s.checkActive(current) != nil {
		return nil, apperrors.ErrInvalidToken
	}

	user, usedBackupCode, err := s.consumeSecondFactor(current.ID, params.Code)
	if err != nil {
		log.Info().Str("client", clientKey).Str("user", current.ID).Msg("two-factor verification failed")
		return nil, err
	}
	if usedBackupCode {
		log.Warn().Str("user", user.ID).Int("remaining", len(user.BackupCodeHashes)).Msg("backup code used")
	}
	if err := s.limiter.Reset(ctx, twoFactorLimitPrefix+clientKey); err != nil {
		log.Err(err).Str("client", clientKey).Msg("failed to reset two-factor rate limit")
	}
	return s.completeLogin(user)
}

// Refresh rotates a refresh token. The new pair reflects the user's current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	claims, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repos.Users.GetByID(claims.UserID)
	if err != nil || s.checkActive(user) != nil {
		return nil, apperrors.ErrInvalidToken
	}
	pair, err := s.tokens.Rotate(ctx, claims, token.IdentityOf(user))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] Rotate")
	}
	return pair, nil
}

// Logout revokes both tokens of the session. Either may be empty.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, accessToken); err != nil {
		return errors.Wrap(err, "[Service.Logout] revoke access token")
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return errors.Wrap(err, "[Service.Logout] revoke refresh token")
	}
	return nil
}

// Authenticate verifies an access token and that its user may still act: not blocked and,
// for staff, with an active restaurant.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, _, err := s.authenticate(ctx, accessToken)
	return claims, err
}

// CurrentUser resolves an access token to its user.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*users.User, error) {
	_, user, err := s.authenticate(ctx, accessToken)
	return user, err
}

func (s *Service) authenticate(ctx context.Context, accessToken string) (*token.Claims, *users.User, error) {
	claims, err := s.tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.repos.Users.GetByID(claims.UserID)
	if err != nil || s.checkActive(user) != nil {
		return nil, nil, apperrors.ErrInvalidToken
	}
	return claims, user, nil
}

// ChangePassword replaces the user's password and revokes the access token the request
// was made with.
func (s *Service) ChangePassword(ctx context.Context, userID, accessToken string, params ChangePasswordParameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	user, err := s.repos.Users.GetByID(userID)
	if err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] GetByID")
	}
	if !user.CheckPassword(params.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := users.HashPasswordWithCost(params.NewPassword, s.bcryptCost)
	if err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] HashPassword")
	}
	// The current password was checked outside the repo lock; refuse if it changed since.
	_, err = s.repos.Users.Update(userID, func(u *users.User) error {
		if u.PasswordHash != user.PasswordHash {
			return errors.Wrap(apperrors.ErrConflict, "password changed concurrently")
		}
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.tokens.Revoke(ctx, accessToken); err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] Revoke")
	}
	log.Info().Str("user", user.ID).Msg("password changed")
	return nil
}

// completeLogin stamps the login and issues tokens for the user as stored at that moment. A
// block that landed after the password check still wins.
func (s *Service) completeLogin(user *users.User) (*LoginResult, error) {
	now := s.nowTime()
	updated, err := s.repos.Users.Update(user.ID, func(u *users.User) error {
		if u.Blocked {
			return apperrors.ErrInvalidCredentials
		}
		u.LastLogin = now
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			log.Info().Str("user", user.ID).Msg("login refused: blocked during login")
			return nil, err
		}
		return nil, errors.Wrap(err, "[Service.completeLogin] Update")
	}

	pair, err := s.tokens.Issue(token.IdentityOf(updated))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.completeLogin] Issue")
	}
	return &LoginResult{Tokens: pair, User: updated}, nil
}

// checkActive refuses blocked users and staff of a deactivated restaurant.
func (s *Service) checkActive(user *users.User) error {
	if user.Blocked {
		return errors.New("user blocked")
	}
	if user.IsSuperAdmin() {
		return nil
	}
	restaurant, err := s.repos.Restaurants.Get(user.RestaurantID)
	if err != nil {
		return errors.Wrap(err, "restaurant lookup")
	}
	if !restaurant.Active {
		return errors.New("restaurant inactive")
	}
	return nil
}

func (s *Service) checkLimit(ctx context.Context, key string) error {
	res := s.limiter.Check(ctx, key, s.maxAttempts, s.window)
	if !res.Allowed {
		log.Warn().Str("key", key).Int64("count", res.Count).Msg("rate limit exceeded")
		return &apperrors.RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}

func (s *Service) getDummyHash() string {
	s.dummyHashOnce.Do(func() {
		hash, err := users.HashPasswordWithCost("masapp-dummy-password", s.bcryptCost)
		if err != nil {
			log.Err(err).Msg("failed to create dummy password hash")
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func normaliseCode(code string) string {
	return strings.TrimSpace(code)
}
