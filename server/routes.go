package server

import (
	"net/http"

	"github.com/jrsteele09/masapp-server/users"
)

var staffRoles = []users.Role{users.RoleRestaurantAdmin, users.RoleKitchen, users.RoleWaiter, users.RoleCashier}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// AUTH
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuth2FAVerify, ChainMiddleware(s.VerifyTwoFactorHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteAuthMe, ChainMiddleware(s.CurrentUserHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+RouteAuthPassword, ChainMiddleware(s.ChangePasswordHandler(), s.APIMiddleware(s.RequireAuth())...))

	// TWO-FACTOR ENROLMENT
	s.RegisterRouteFunc("POST "+RouteAuth2FASetup, ChainMiddleware(s.SetupTwoFactorHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+RouteAuth2FAEnable, ChainMiddleware(s.EnableTwoFactorHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+RouteAuth2FADisable, ChainMiddleware(s.DisableTwoFactorHandler(), s.APIMiddleware(s.RequireAuth())...))

	// STOREFRONT
	s.RegisterRouteFunc("POST "+RouteQRSession, ChainMiddleware(s.CreateQRSessionHandler(), s.APIMiddleware(s.RateLimitMiddleware("qr"))...))
	s.RegisterRouteFunc("GET "+RouteQRSession, ChainMiddleware(s.ValidateQRSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteOrders, ChainMiddleware(s.PlaceOrderHandler(), s.APIMiddleware(s.RateLimitMiddleware("orders"))...))

	// STAFF PANEL
	s.RegisterRouteFunc("GET "+RouteStaffOrders, ChainMiddleware(s.ListOrdersHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRoles(staffRoles...))...))
	s.RegisterRouteFunc("PATCH "+RouteStaffOrder, ChainMiddleware(s.UpdateOrderStatusHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRoles(staffRoles...))...))

	// ADMIN
	s.RegisterRouteFunc("GET "+RouteAdminUsers, ChainMiddleware(s.AdminListUsersHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRoles(users.RoleSuperAdmin))...))
	s.RegisterRouteFunc("POST "+RouteAdminUsers, ChainMiddleware(s.AdminCreateUserHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireRoles(users.RoleSuperAdmin, users.RoleRestaurantAdmin))...))
	s.RegisterRouteFunc("POST "+RouteAdminUserBlock, ChainMiddleware(s.AdminBlockUserHandler(true), s.APIMiddleware(s.RequireAuth(), s.RequireRoles(users.RoleSuperAdmin))...))
	s.RegisterRouteFunc("DELETE "+RouteAdminUserBlock, ChainMiddleware(s.AdminBlockUserHandler(false), s.APIMiddleware(s.RequireAuth(), s.RequireRoles(users.RoleSuperAdmin))...))

	// CORS preflight for every API path
	s.RegisterRouteFunc("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
