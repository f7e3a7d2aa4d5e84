// Package httphandler implements the JSON API driving adapter.
package httphandler

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/timeline/internal/application"
	"github.com/ericfisherdev/timeline/internal/domain/model"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// ScopeResolver identifies the browser context of a request, minting one on
// w when the request carries none.
type ScopeResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) string
}

// Handler is the HTTP driving adapter that serves the JSON API.
type Handler struct {
	guard     *application.SessionGuard
	store     driven.CredentialStore
	scopes    ScopeResolver
	gatherer  prometheus.Gatherer
	loginPath string
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	guard *application.SessionGuard,
	store driven.CredentialStore,
	scopes ScopeResolver,
	gatherer prometheus.Gatherer,
	loginPath string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		guard:     guard,
		store:     store,
		scopes:    scopes,
		gatherer:  gatherer,
		loginPath: loginPath,
		logger:    logger,
	}
}

// RegisterAPIRoutes registers the JSON API and metrics routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/session", h.Session)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// jsonNavigator records the redirect instead of issuing one; the JSON client
// decides how to navigate.
type jsonNavigator struct {
	requested atomic.Bool
}

func (n *jsonNavigator) RedirectToLogin() {
	n.requested.Store(true)
}

// Session runs one guard mount for the caller's browser context and reports
// the decision: 200 when granted, 401 when denied.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	creds := application.NewCredentials(h.store, h.scopes.Resolve(w, r), h.logger)
	nav := &jsonNavigator{}

	mount := h.guard.Mount(r.Context(), creds, nav)
	defer mount.Unmount()

	decision, reason := mount.Wait(r.Context())
	w.Header().Set("Cache-Control", "no-store")

	switch decision {
	case model.DecisionGranted:
		writeJSON(w, http.StatusOK, SessionResponse{Decision: string(decision)})
	case model.DecisionDenied:
		resp := SessionResponse{Decision: string(decision), Reason: string(reason)}
		if nav.requested.Load() {
			resp.Redirect = h.loginPath
		}
		writeJSON(w, http.StatusUnauthorized, resp)
	default:
		// Client went away while pending; nothing to report.
	}
}
