package server

import (
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/orders"
	"github.com/jrsteele09/masapp-server/restaurants"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	qrSessionCookie = "qr_session"
	qrSessionHeader = "X-QR-Session"
)

type createQRSessionRequest struct {
	TableNumber int `json:"tableNumber"`
}

type qrSessionResponse struct {
	Token       string    `json:"token"`
	TableNumber int       `json:"tableNumber"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Restaurant  string    `json:"restaurant"`
}

// CreateQRSessionHandler is hit when a guest scans a table's QR code. A new scan replaces
// whatever session the browser held before.
func (s *Server) CreateQRSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurant, err := s.restaurantFromHost(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req createQRSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !restaurant.HasTable(req.TableNumber) {
			writeError(w, apperrors.NewValidationError().Add("tableNumber", "no such table"))
			return
		}

		previous := qrSessionToken(r)
		session, err := s.qrSessions.Create(restaurant.ID, req.TableNumber)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.qrSessions.Supersede(previous, restaurant.ID); err != nil {
			log.Err(err).Str("restaurant", restaurant.ID).Msg("failed to supersede previous qr session")
		}
		s.setQRSessionCookie(w, session.Token, session.ExpiresAt)
		writeJSON(w, http.StatusCreated, qrSessionResponse{
			Token:       session.Token,
			TableNumber: session.TableNumber,
			ExpiresAt:   session.ExpiresAt,
			Restaurant:  restaurant.Name,
		})
	}
}

func (s *Server) ValidateQRSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurant, err := s.restaurantFromHost(r)
		if err != nil {
			writeError(w, err)
			return
		}
		result := s.qrSessions.ValidateFor(qrSessionToken(r), restaurant.ID)
		writeJSON(w, http.StatusOK, result)
	}
}

type placeOrderRequest struct {
	Items []orders.Item `json:"items"`
}

func (s *Server) PlaceOrderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurant, err := s.restaurantFromHost(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req placeOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}

		order, err := s.orders.Place(restaurant.ID, qrSessionToken(r), req.Items)
		if err != nil {
			writeError(w, err)
			return
		}
		s.clearQRSessionCookie(w)
		writeJSON(w, http.StatusCreated, order)
	}
}

// restaurantFromHost resolves the storefront's restaurant from the request subdomain.
// Unknown and inactive restaurants are both reported as not found.
func (s *Server) restaurantFromHost(r *http.Request) (*restaurants.Restaurant, error) {
	subdomain := restaurants.SubdomainFromHost(r.Host, s.config.GetBaseDomain())
	if subdomain == "" || !restaurants.ValidSubdomain(subdomain) {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "no restaurant at host %q", r.Host)
	}
	restaurant, err := s.repos.Restaurants.GetBySubdomain(subdomain)
	if err != nil {
		return nil, err
	}
	if !restaurant.Active {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "restaurant %s is inactive", subdomain)
	}
	return restaurant, nil
}

// qrSessionToken reads the guest's token from the header, then the cookie. Tokens are never
// taken from the URL.
func qrSessionToken(r *http.Request) string {
	if token := r.Header.Get(qrSessionHeader); token != "" {
		return token
	}
	if cookie, err := r.Cookie(qrSessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (s *Server) setQRSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     qrSessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(expiresAt.Sub(s.nowFunc()).Seconds()),
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearQRSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     qrSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteLaxMode,
	})
}
