package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/masapp-server/auth"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/pkg/errors"
)

// Roles a restaurant admin may hand out within their own restaurant.
var restaurantAdminGrantable = map[users.Role]bool{
	users.RoleKitchen: true,
	users.RoleWaiter:  true,
	users.RoleCashier: true,
}

func (s *Server) AdminListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset, err := queryInt(q.Get("offset"), "offset")
		if err != nil {
			writeError(w, err)
			return
		}
		limit, err := queryInt(q.Get("limit"), "limit")
		if err != nil {
			writeError(w, err)
			return
		}
		filter := users.ListFilter{
			Role:         users.Role(q.Get("role")),
			RestaurantID: q.Get("restaurantId"),
			Query:        q.Get("q"),
		}
		res, err := s.auth.ListUsers(filter, offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) AdminCreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		var params auth.NewUserParameters
		if err := decodeJSON(r, &params); err != nil {
			writeError(w, err)
			return
		}
		if claims.Role == users.RoleRestaurantAdmin {
			if !restaurantAdminGrantable[params.Role] || params.RestaurantID != claims.RestaurantID {
				writeError(w, errors.Wrap(apperrors.ErrForbidden, "restaurant admins may only add kitchen, waiter or cashier staff to their own restaurant"))
				return
			}
		}
		user, err := s.auth.CreateUser(params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

// AdminBlockUserHandler blocks (POST) or unblocks (DELETE) the user named in the path.
func (s *Server) AdminBlockUserHandler(blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		if err := s.auth.SetUserBlocked(r.PathValue("id"), blocked, claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError().Add(field, "must be a non-negative integer")
	}
	return n, nil
}
