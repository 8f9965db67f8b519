package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/masapp-server/users"
)

// Type discriminates what a token may be used for. Access tokens carry no type.
type Type string

const (
	TypeAccess  Type = ""
	TypeRefresh Type = "refresh"
	TypeMFA     Type = "mfa" // short-lived proof that the password step of a 2FA login passed
)

// Identity is who a token is issued to.
type Identity struct {
	UserID       string
	Email        string
	Role         users.Role
	RestaurantID string
}

func IdentityOf(u *users.User) Identity {
	return Identity{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		RestaurantID: u.RestaurantID,
	}
}

// Claims is the token payload: {userId, email, role, restaurantId?, iat, exp, jti, type?}.
type Claims struct {
	UserID       string     `json:"userId"`
	Email        string     `json:"email"`
	Role         users.Role `json:"role"`
	RestaurantID string     `json:"restaurantId,omitempty"`
	Type         Type       `json:"type,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		Role:         c.Role,
		RestaurantID: c.RestaurantID,
	}
}
