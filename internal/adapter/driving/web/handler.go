// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/timeline/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/timeline/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/timeline/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/timeline/internal/application"
	"github.com/ericfisherdev/timeline/internal/domain/model"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

const (
	appTitle      = "Timeline"
	protectedPath = "/protected"
	fragmentPath  = "/protected/view"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	guard     *application.SessionGuard
	feedSvc   *application.FeedService
	store     driven.CredentialStore
	issuer    driven.TokenIssuer
	contexts  *BrowserContexts
	loginPath string
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	guard *application.SessionGuard,
	feedSvc *application.FeedService,
	store driven.CredentialStore,
	issuer driven.TokenIssuer,
	contexts *BrowserContexts,
	loginPath string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		guard:     guard,
		feedSvc:   feedSvc,
		store:     store,
		issuer:    issuer,
		contexts:  contexts,
		loginPath: loginPath,
		logger:    logger,
	}
}

// credentials binds the credential store to the caller's browser context.
func (h *Handler) credentials(w http.ResponseWriter, r *http.Request) *application.Credentials {
	return application.NewCredentials(h.store, h.contexts.Resolve(w, r), h.logger)
}

// Root sends the browser to the protected view.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, protectedPath, http.StatusSeeOther)
}

// LoginPage renders the login entry point.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.contexts.Resolve(w, r)
	h.renderLogin(w, r, http.StatusOK, vm.LoginViewModel{})
}

// Login exchanges username and password for a credential and stores it in
// the caller's browser context.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.renderLogin(w, r, http.StatusBadRequest, vm.LoginViewModel{
			Username: username,
			Error:    "Enter a username and password.",
		})
		return
	}

	token, err := h.issuer.IssueToken(r.Context(), username, password)
	if errors.Is(err, driven.ErrInvalidLogin) {
		h.renderLogin(w, r, http.StatusUnauthorized, vm.LoginViewModel{
			Username: username,
			Error:    "Incorrect username or password.",
		})
		return
	}
	if err != nil {
		h.logger.Error("failed to issue token", "username", username, "error", err)
		h.renderLogin(w, r, http.StatusBadGateway, vm.LoginViewModel{
			Username: username,
			Error:    "Login is unavailable right now. Try again shortly.",
		})
		return
	}

	creds := h.credentials(w, r)
	if err := creds.Set(r.Context(), token); err != nil {
		h.logger.Error("failed to store credential", "scope", creds.Scope(), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("logged in", "scope", creds.Scope(), "username", username)
	http.Redirect(w, r, protectedPath, http.StatusSeeOther)
}

// Logout clears the caller's credential.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	creds := h.credentials(w, r)
	if err := creds.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear credential", "scope", creds.Scope(), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("logged out", "scope", creds.Scope())
	http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
}

// Protected renders the page shell with the Pending placeholder. Nothing
// protected is rendered here; the fragment is fetched separately.
func (h *Handler) Protected(w http.ResponseWriter, r *http.Request) {
	h.contexts.Resolve(w, r)
	shell := pages.Shell(vm.ShellViewModel{
		CSRFToken:    csrfToken(w, r),
		FragmentPath: fragmentPath,
	})

	w.Header().Set("Cache-Control", "no-store")
	h.render(w, r, http.StatusOK, templates.Layout(appTitle, shell))
}

// ProtectedView mounts the session guard for one load of the protected view
// and blocks until it decides. Granted renders the timeline; Denied redirects
// to the login entry point. If the client goes away first the mount is
// unmounted and nothing is written.
func (h *Handler) ProtectedView(w http.ResponseWriter, r *http.Request) {
	creds := h.credentials(w, r)
	nav := &redirectNavigator{}

	mount := h.guard.Mount(r.Context(), creds, nav)
	defer mount.Unmount()

	decision, _ := mount.Wait(r.Context())
	if !decision.IsTerminal() {
		return
	}
	if nav.wasRequested() || decision != model.DecisionGranted {
		redirect(w, r, h.loginPath)
		return
	}

	credential, ok := creds.Get(r.Context())
	if !ok {
		// Logged out in another tab between the decision and this read.
		redirect(w, r, h.loginPath)
		return
	}

	tl := h.feedSvc.Load(r.Context(), credential)

	w.Header().Set("Cache-Control", "no-store")
	fragment := pages.Timeline(toTimelineViewModel(tl))
	if r.Header.Get(fragmentHeader) == "" {
		fragment = templates.Layout(appTitle, fragment)
	}
	h.render(w, r, http.StatusOK, fragment)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, m vm.LoginViewModel) {
	m.CSRFToken = csrfToken(w, r)
	h.render(w, r, status, templates.Layout(appTitle+" - Log in", pages.Login(m)))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}
