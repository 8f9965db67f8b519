package auth

import (
	"github.com/jrsteele09/masapp-server/restaurants"
	"github.com/jrsteele09/masapp-server/users"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users       users.UserRepo   // Repository for user data
	Restaurants restaurants.Repo // Repository for restaurant data
}
