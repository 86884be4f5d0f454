package server

import (
	"net/http"

	"github.com/fishmapai/fishmap-gateway/session"
)

// adminPage is one entry of the admin navigation. An empty role admits any
// authenticated admin.
type adminPage struct {
	Path  string
	Title string
	Role  session.Role
}

var adminPages = []adminPage{
	{Path: RouteAdminDashboard, Title: "Dashboard"},
	{Path: RouteAdminPendingVerification, Title: "Menunggu Verifikasi"},
	{Path: RouteAdminApproved, Title: "Disetujui"},
	{Path: RouteAdminRejected, Title: "Ditolak"},
	{Path: RouteAdminFishSellers, Title: "Penjual Ikan"},
	{Path: RouteAdminReports, Title: "Laporan"},
	{Path: RouteAdminSettings, Title: "Pengaturan"},
	{Path: RouteAdminSellerRequests, Title: "Permintaan Penjual", Role: session.RoleSellerVerifier},
	{Path: RouteAdminManageAdmins, Title: "Kelola Admin", Role: session.RoleSuperAdmin},
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteFunc("GET "+RouteAdminLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteAdminLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteAdminLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Tab lifecycle events
	s.RegisterRouteFunc("GET "+RouteSessionStatus, ChainMiddleware(s.SessionStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSessionVisibility, ChainMiddleware(s.VisibilityHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteSessionUnload, ChainMiddleware(s.UnloadHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteSessionProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware()...))

	// Admin pages (gated on the browser's session store)
	for _, page := range adminPages {
		s.RegisterRouteFunc("GET "+page.Path, ChainMiddleware(s.AdminPageHandler(page), s.HTMLMiddleWare(s.guard.Require(page.Role))...))
	}

	// Backend API, bearer token attached from the session store
	s.RegisterRouteFunc(RouteAdminAPI, ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
}

// IndexHandler sends visitors to the dashboard; the gate takes it from there.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, RouteAdminDashboard, http.StatusSeeOther)
	}
}
