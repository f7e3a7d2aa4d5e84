package web

import (
	"io/fs"
	"net/http"
	"strings"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	if h.loginPath != "/" {
		mux.HandleFunc("GET /{$}", h.Root)
	}
	mux.HandleFunc("GET "+exactPath(h.loginPath), h.LoginPage)
	mux.HandleFunc("POST "+exactPath(h.loginPath), h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	mux.HandleFunc("GET "+protectedPath, h.Protected)
	mux.HandleFunc("GET "+fragmentPath, h.ProtectedView)
}

// exactPath turns a path into a ServeMux pattern matching only that path.
func exactPath(path string) string {
	if strings.HasSuffix(path, "/") {
		return path + "{$}"
	}
	return path
}
