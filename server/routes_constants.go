package server

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAdminLogin  = "/admin/login"
	RouteAdminLogout = "/admin/logout"

	// Session lifecycle routes, posted by the admin pages
	RouteSessionStatus     = "/admin/session"
	RouteSessionVisibility = "/admin/session/visibility"
	RouteSessionUnload     = "/admin/session/unload"
	RouteSessionProfile    = "/admin/session/profile"

	// Admin pages
	RouteAdminDashboard           = "/admin/dashboard"
	RouteAdminPendingVerification = "/admin/pending-verification"
	RouteAdminApproved            = "/admin/approved"
	RouteAdminRejected            = "/admin/rejected"
	RouteAdminFishSellers         = "/admin/fish-sellers"
	RouteAdminReports             = "/admin/reports"
	RouteAdminSettings            = "/admin/settings"
	RouteAdminSellerRequests      = "/admin/seller-requests"
	RouteAdminManageAdmins        = "/admin/manage-admins"

	// Backend API proxy; the prefix is stripped before forwarding
	RouteAdminAPI = "/admin/api/"

	// Operational routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
