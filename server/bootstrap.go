package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/masapp-server/auth"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/restaurants"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSuperAdminName = "Platform Admin"
	DemoRestaurantDomain  = "demo"
	demoRestaurantTables  = 10
)

// InitialiseSystem makes sure a super admin exists and, in DEV, a demo restaurant to scan
// against. It returns the generated admin password on first creation, empty otherwise.
func (s *Server) InitialiseSystem(ctx context.Context) (generatedPassword string, err error) {
	log.Debug().Msg("bootstrap: checking system configuration")

	generatedPassword, err = s.bootstrapSuperAdmin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to bootstrap super admin: %w", err)
	}

	if s.env == "DEV" {
		if err := s.bootstrapDemoRestaurant(); err != nil {
			return "", fmt.Errorf("failed to bootstrap demo restaurant: %w", err)
		}
	}
	return generatedPassword, nil
}

func (s *Server) bootstrapSuperAdmin(_ context.Context) (generatedPassword string, err error) {
	existing, err := s.repos.Users.List(users.ListFilter{Role: users.RoleSuperAdmin}, 0, 1)
	if err != nil {
		return "", fmt.Errorf("failed to list super admins: %w", err)
	}
	if existing.Total > 0 {
		log.Debug().Msg("bootstrap: super admin already exists")
		return "", nil
	}

	email := s.config.GetSeedAdminEmail()
	password := s.config.GetSeedAdminPassword()
	if password == "" {
		if password, err = generatePassword(); err != nil {
			return "", err
		}
		generatedPassword = password
	}

	if _, err := s.auth.CreateUser(auth.NewUserParameters{
		Email:    email,
		Name:     DefaultSuperAdminName,
		Password: password,
		Role:     users.RoleSuperAdmin,
	}); err != nil {
		return "", fmt.Errorf("failed to create super admin: %w", err)
	}

	if generatedPassword != "" {
		log.Warn().
			Str("email", email).
			Str("password", generatedPassword).
			Msg("super admin created with a generated password, save it now: it will not be displayed again")
	} else {
		log.Info().Str("email", email).Msg("super admin created")
	}
	return generatedPassword, nil
}

func (s *Server) bootstrapDemoRestaurant() error {
	_, err := s.repos.Restaurants.GetBySubdomain(DemoRestaurantDomain)
	if err == nil {
		return nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	demo := &restaurants.Restaurant{
		ID:         uuid.New().String(),
		Subdomain:  DemoRestaurantDomain,
		Name:       "Demo Restaurant",
		TableCount: demoRestaurantTables,
		Active:     true,
		CreatedAt:  s.nowFunc(),
	}
	if err := s.repos.Restaurants.Upsert(demo); err != nil {
		return err
	}
	log.Info().Str("subdomain", demo.Subdomain+"."+s.config.GetBaseDomain()).Int("tables", demo.TableCount).Msg("demo restaurant created")
	return nil
}

// generatePassword draws random passwords until one passes the strength rules.
func generatePassword() (string, error) {
	passwordBytes := make([]byte, 16)
	for {
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password := base64.RawURLEncoding.EncodeToString(passwordBytes)
		if users.ValidatePasswordStrength(password) == nil {
			return password, nil
		}
	}
}
