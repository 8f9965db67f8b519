package auth

import (
	"fmt"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
)

var (
	TwoFactorAlreadyEnabledErr = fmt.Errorf("two-factor authentication already enabled: %w", apperrors.ErrConflict)
	TwoFactorNotEnabledErr     = fmt.Errorf("two-factor authentication not enabled: %w", apperrors.ErrConflict)
	TwoFactorSetupMissingErr   = fmt.Errorf("two-factor setup has not been started: %w", apperrors.ErrConflict)
	RestaurantRequiredErr      = fmt.Errorf("restaurant does not exist: %w", apperrors.ErrValidation)
)
