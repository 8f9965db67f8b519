package auth

import (
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/mfa"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SetupTwoFactor creates a pending secret for the user. It takes effect once EnableTwoFactor
// confirms the user's authenticator produces matching codes.
func (s *Service) SetupTwoFactor(userID string) (*mfa.Enrollment, error) {
	var enrollment *mfa.Enrollment
	_, err := s.repos.Users.Update(userID, func(user *users.User) error {
		if user.TwoFactorEnabled {
			return TwoFactorAlreadyEnabledErr
		}
		var err error
		if enrollment, err = s.totp.GenerateSecret(user.Email); err != nil {
			return errors.Wrap(err, "[Service.SetupTwoFactor] GenerateSecret")
		}
		user.TwoFactorSecret = enrollment.Secret
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// EnableTwoFactor confirms the pending secret with a code and returns the backup codes. They
// are shown once; only their hashes are kept.
func (s *Service) EnableTwoFactor(userID, code string) ([]string, error) {
	codes, err := mfa.GenerateBackupCodes(s.backupCodeCount)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.EnableTwoFactor] GenerateBackupCodes")
	}

	_, err = s.repos.Users.Update(userID, func(user *users.User) error {
		if user.TwoFactorEnabled {
			return TwoFactorAlreadyEnabledErr
		}
		if user.TwoFactorSecret == "" {
			return TwoFactorSetupMissingErr
		}
		if !s.totp.Verify(user.TwoFactorSecret, normaliseCode(code)) {
			return apperrors.ErrInvalidTOTP
		}
		user.TwoFactorEnabled = true
		user.BackupCodeHashes = mfa.HashBackupCodes(codes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user", userID).Msg("two-factor authentication enabled")
	return codes, nil
}

// DisableTwoFactor turns two-factor off after checking a current code or backup code.
func (s *Service) DisableTwoFactor(userID, code string) error {
	_, err := s.repos.Users.Update(userID, func(user *users.User) error {
		if !user.TwoFactorEnabled {
			return TwoFactorNotEnabledErr
		}
		if _, err := s.checkSecondFactor(user, code); err != nil {
			return err
		}
		user.TwoFactorEnabled = false
		user.TwoFactorSecret = ""
		user.BackupCodeHashes = nil
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("user", userID).Msg("two-factor authentication disabled")
	return nil
}

// consumeSecondFactor checks code against the stored user and, for a backup code, removes it
// in the same repo update, so one backup code can only ever complete one login.
func (s *Service) consumeSecondFactor(userID, code string) (user *users.User, usedBackupCode bool, err error) {
	user, err = s.repos.Users.Update(userID, func(u *users.User) error {
		if !u.TwoFactorEnabled || u.Blocked {
			return apperrors.ErrInvalidToken
		}
		usedBackupCode, err = s.checkSecondFactor(u, code)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, usedBackupCode, nil
}

// checkSecondFactor accepts a TOTP code, else a backup code. A matched backup code is removed
// from user; persisting it is up to the caller's repo update.
func (s *Service) checkSecondFactor(user *users.User, code string) (usedBackupCode bool, err error) {
	code = normaliseCode(code)
	if s.totp.Verify(user.TwoFactorSecret, code) {
		return false, nil
	}

	ok, remaining := mfa.VerifyBackupCode(code, user.BackupCodeHashes)
	if !ok {
		return false, apperrors.ErrInvalidTOTP
	}
	user.BackupCodeHashes = remaining
	return true, nil
}
