package auth

import (
	"strings"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/internal/utils"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxPageSize = 100

// CreateUser registers an account. Staff must belong to an existing restaurant.
func (s *Service) CreateUser(params NewUserParameters) (*users.User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Role.IsStaff() {
		if _, err := s.repos.Restaurants.Get(params.RestaurantID); err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return nil, RestaurantRequiredErr
			}
			return nil, errors.Wrap(err, "[Service.CreateUser] restaurant lookup")
		}
	}

	hash, err := users.HashPasswordWithCost(params.Password, s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.CreateUser] HashPassword")
	}

	user := &users.User{
		Email:        utils.NormaliseEmail(params.Email),
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: hash,
		Role:         params.Role,
		RestaurantID: params.RestaurantID,
		DateJoined:   s.nowTime(),
	}
	if err := s.repos.Users.Upsert(user); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, errors.Wrap(err, "[Service.CreateUser] Upsert")
	}
	log.Info().Str("user", user.ID).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

// ListUsers pages through users. A limit outside 1..100 is clamped.
func (s *Service) ListUsers(filter users.ListFilter, offset, limit int) (users.ListResponse, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return users.ListResponse{}, apperrors.NewValidationError().Add("role", "unknown role")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repos.Users.List(filter, offset, limit)
}

// SetUserBlocked blocks or unblocks an account. Blocked users fail login, refresh and
// current-user lookups from then on.
func (s *Service) SetUserBlocked(userID string, blocked bool, actingUserID string) error {
	if userID == actingUserID && blocked {
		return apperrors.NewValidationError().Add("id", "you cannot block yourself")
	}
	user, err := s.repos.Users.GetByID(userID)
	if err != nil {
		return err
	}
	if err := s.repos.Users.SetBlocked(user.Email, blocked); err != nil {
		return errors.Wrap(err, "[Service.SetUserBlocked] SetBlocked")
	}
	log.Info().Str("user", userID).Bool("blocked", blocked).Str("by", actingUserID).Msg("user block state changed")
	return nil
}
