package users_test

import (
	"testing"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	for _, password := range []string{"Password123", "çok-Gizli-9", " spaces  In 1 "} {
		hash, err := users.HashPasswordWithCost(password, bcrypt.MinCost)
		require.NoError(t, err)
		require.NotEqual(t, password, hash)
		require.True(t, users.CheckPasswordHash(password, hash))
		require.False(t, users.CheckPasswordHash(password+"x", hash))
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := users.HashPasswordWithCost("Password123", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := users.HashPasswordWithCost("Password123", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestCheckPasswordHashMalformed(t *testing.T) {
	require.False(t, users.CheckPasswordHash("Password123", ""))
	require.False(t, users.CheckPasswordHash("Password123", "not-a-hash"))
	require.False(t, users.CheckPasswordHash("Password123", "salt:deadbeef"))
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		wantErr  string
	}{
		{"Password123", ""},
		{"short1A", "at least 8 characters"},
		{"password123", "uppercase"},
		{"PASSWORD123", "lowercase"},
		{"PasswordABC", "number"},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrValidation)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCanAccessRestaurant(t *testing.T) {
	admin := &users.User{Role: users.RoleSuperAdmin}
	waiter := &users.User{Role: users.RoleWaiter, RestaurantID: "r1"}

	require.True(t, admin.CanAccessRestaurant("r2"))
	require.True(t, waiter.CanAccessRestaurant("r1"))
	require.False(t, waiter.CanAccessRestaurant("r2"))
	require.False(t, (&users.User{Role: users.RoleWaiter}).CanAccessRestaurant(""))
}
