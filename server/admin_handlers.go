package server

import (
	"net/http"

	"github.com/fishmapai/fishmap-gateway/gate"
	"github.com/fishmapai/fishmap-gateway/session"
)

type navItem struct {
	Path   string
	Title  string
	Active bool
}

// AdminPageData contains data for rendering an admin page shell
type AdminPageData struct {
	AppName string
	Title   string
	Admin   *session.Identity
	Nav     []navItem

	LogoutPath     string
	LoginPath      string
	VisibilityPath string
	UnloadPath     string
	APIPrefix      string
}

// AdminPageHandler renders the shell of one admin page. It runs behind the
// gate, so the identity is always present.
func (s *Server) AdminPageHandler(page adminPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := gate.IdentityFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, gate.LoginRedirect(RouteAdminLogin, r.URL), http.StatusSeeOther)
			return
		}

		renderTemplate(w, s.pageTmpl, http.StatusOK, AdminPageData{
			AppName:        s.config.GetAppName(),
			Title:          page.Title,
			Admin:          admin,
			Nav:            navFor(admin, page.Path),
			LogoutPath:     RouteAdminLogout,
			LoginPath:      gate.LoginRedirect(RouteAdminLogin, r.URL),
			VisibilityPath: RouteSessionVisibility,
			UnloadPath:     RouteSessionUnload,
			APIPrefix:      RouteAdminAPI,
		})
	}
}

// navFor lists the pages the admin's role can open.
func navFor(admin *session.Identity, current string) []navItem {
	var items []navItem
	for _, p := range adminPages {
		if p.Role != "" && !admin.HasRole(p.Role) {
			continue
		}
		items = append(items, navItem{Path: p.Path, Title: p.Title, Active: p.Path == current})
	}
	return items
}
