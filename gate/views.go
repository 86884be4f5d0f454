package gate

import (
	"html/template"
	"net/http"

	"github.com/fishmapai/fishmap-gateway/session"
	"github.com/rs/zerolog/log"
)

var loadingTemplate = template.Must(template.New("loading").Parse(`<!DOCTYPE html>
<html lang="id">
<head><meta charset="utf-8"><title>Fishmap Admin</title></head>
<body>
<main class="gate gate-loading">
  <div class="spinner"></div>
  <span>Memverifikasi akses admin...</span>
</main>
</body>
</html>
`))

var accessDeniedTemplate = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html lang="id">
<head><meta charset="utf-8"><title>Akses Ditolak</title></head>
<body>
<main class="gate gate-denied">
  <h2>Akses Ditolak</h2>
  <p>Anda tidak memiliki izin untuk mengakses halaman ini.
  Role yang dibutuhkan: <strong>{{.RequiredRole}}</strong></p>
  <button type="button" onclick="window.history.back()">Kembali</button>
</main>
</body>
</html>
`))

// renderLoading shows the checking state and asks the browser to retry.
func renderLoading(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Refresh", "1")
	w.WriteHeader(http.StatusOK)
	if err := loadingTemplate.Execute(w, nil); err != nil {
		log.Err(err).Msg("failed to render loading view")
	}
}

func renderAccessDenied(w http.ResponseWriter, role session.Role) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusForbidden)
	data := struct{ RequiredRole string }{RequiredRole: string(role)}
	if err := accessDeniedTemplate.Execute(w, data); err != nil {
		log.Err(err).Msg("failed to render access denied view")
	}
}
