package users

import (
	"time"
	"unicode"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// Role represents what a user may do on the platform. Every role apart from
// RoleSuperAdmin is scoped to a single restaurant.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"      // Back office: users, subscriptions, system settings
	RoleRestaurantAdmin Role = "restaurant_admin" // Owner/manager of one restaurant
	RoleKitchen         Role = "kitchen"
	RoleWaiter          Role = "waiter"
	RoleCashier         Role = "cashier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleRestaurantAdmin, RoleKitchen, RoleWaiter, RoleCashier:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to the restaurant staff panel.
func (r Role) IsStaff() bool {
	switch r {
	case RoleRestaurantAdmin, RoleKitchen, RoleWaiter, RoleCashier:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"` // Never serialize
	Role         Role      `json:"role,omitempty"`
	RestaurantID string    `json:"restaurantId,omitempty"`
	DateJoined   time.Time `json:"dateJoined,omitempty"`
	LastLogin    time.Time `json:"lastLogin,omitempty"`
	Blocked      bool      `json:"blocked,omitempty"`

	TwoFactorEnabled bool     `json:"twoFactorEnabled"`
	TwoFactorSecret  string   `json:"-"` // base32 TOTP secret, pending until TwoFactorEnabled
	BackupCodeHashes []string `json:"-"`
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	v := apperrors.NewValidationError()
	if len(password) < 8 {
		return v.Add("password", "must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	switch {
	case !hasUpper:
		v.Add("password", "must contain at least one uppercase letter")
	case !hasLower:
		v.Add("password", "must contain at least one lowercase letter")
	case !hasNumber:
		v.Add("password", "must contain at least one number")
	}
	return v.OrNil()
}

// HashPassword derives a bcrypt hash; the random salt is embedded in the returned encoding.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, bcrypt.DefaultCost)
}

func HashPasswordWithCost(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash never errors: a malformed hash simply does not match.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// CanAccessRestaurant is true for super admins and for staff of that restaurant.
func (u *User) CanAccessRestaurant(restaurantID string) bool {
	return u.IsSuperAdmin() || (restaurantID != "" && u.RestaurantID == restaurantID)
}
