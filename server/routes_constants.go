package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/healthz"

	// Auth Routes - Login & Logout
	RouteAuthLogin   = "/api/auth/login"
	RouteAuthRefresh = "/api/auth/refresh"
	RouteAuthLogout  = "/api/auth/logout"
	RouteAuthMe      = "/api/auth/me"

	// Auth Routes - Password Management
	RouteAuthPassword = "/api/auth/password"

	// Auth Routes - Two-Factor
	RouteAuth2FAVerify  = "/api/auth/2fa/verify"
	RouteAuth2FASetup   = "/api/auth/2fa/setup"
	RouteAuth2FAEnable  = "/api/auth/2fa/enable"
	RouteAuth2FADisable = "/api/auth/2fa/disable"

	// Storefront Routes (restaurant taken from the subdomain)
	RouteQRSession = "/api/qr/session"
	RouteOrders    = "/api/orders"

	// Staff Panel Routes
	RouteStaffOrders = "/api/staff/orders"
	RouteStaffOrder  = "/api/staff/orders/{id}"

	// Admin Routes
	RouteAdminUsers     = "/api/admin/users"
	RouteAdminUserBlock = "/api/admin/users/{id}/block"
)
