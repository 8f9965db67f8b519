package server

import (
	"net/http"

	"github.com/jrsteele09/masapp-server/orders"
)

func (s *Server) ListOrdersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		list, err := s.orders.List(claims.RestaurantID, orders.Status(r.URL.Query().Get("status")))
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []*orders.Order{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"orders": list})
	}
}

type updateOrderStatusRequest struct {
	Status orders.Status `json:"status"`
}

func (s *Server) UpdateOrderStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		var req updateOrderStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		order, err := s.orders.UpdateStatus(r.PathValue("id"), claims.RestaurantID, claims.Role, req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}
