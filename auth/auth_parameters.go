package auth

import (
	"net/mail"
	"strings"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/users"
)

// LoginParameters are the credentials presented on the login form.
type LoginParameters struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p LoginParameters) Validate() error {
	v := apperrors.NewValidationError()
	validateEmail(v, p.Email)
	if p.Password == "" {
		v.Add("password", "is required")
	}
	return v.OrNil()
}

// TwoFactorParameters complete a login that returned a challenge.
type TwoFactorParameters struct {
	ChallengeToken string `json:"challengeToken"`
	Code           string `json:"code"` // TOTP code or backup code
}

func (p TwoFactorParameters) Validate() error {
	v := apperrors.NewValidationError()
	if strings.TrimSpace(p.ChallengeToken) == "" {
		v.Add("challengeToken", "is required")
	}
	if strings.TrimSpace(p.Code) == "" {
		v.Add("code", "is required")
	}
	return v.OrNil()
}

type ChangePasswordParameters struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (p ChangePasswordParameters) Validate() error {
	v := apperrors.NewValidationError()
	if p.CurrentPassword == "" {
		v.Add("currentPassword", "is required")
	}
	if err := users.ValidatePasswordStrength(p.NewPassword); err != nil {
		var verr *apperrors.ValidationError
		if apperrors.As(err, &verr) {
			v.Add("newPassword", verr.Fields["password"])
		}
	} else if p.NewPassword == p.CurrentPassword {
		v.Add("newPassword", "must differ from the current password")
	}
	return v.OrNil()
}

// NewUserParameters describe an account created by an administrator or at bootstrap.
type NewUserParameters struct {
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Password     string     `json:"password"`
	Role         users.Role `json:"role"`
	RestaurantID string     `json:"restaurantId,omitempty"`
}

func (p NewUserParameters) Validate() error {
	v := apperrors.NewValidationError()
	validateEmail(v, p.Email)
	if err := users.ValidatePasswordStrength(p.Password); err != nil {
		var verr *apperrors.ValidationError
		if apperrors.As(err, &verr) {
			v.Add("password", verr.Fields["password"])
		}
	}
	switch {
	case !p.Role.Valid():
		v.Add("role", "unknown role")
	case p.Role.IsStaff() && p.RestaurantID == "":
		v.Add("restaurantId", "is required for restaurant staff")
	case p.Role == users.RoleSuperAdmin && p.RestaurantID != "":
		v.Add("restaurantId", "must be empty for a super admin")
	}
	return v.OrNil()
}

func validateEmail(v *apperrors.ValidationError, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		v.Add("email", "is required")
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		v.Add("email", "is not a valid email address")
	}
}
