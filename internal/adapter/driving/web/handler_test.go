package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/timeline/internal/adapter/driven/api"
	"github.com/ericfisherdev/timeline/internal/adapter/driven/memory"
	"github.com/ericfisherdev/timeline/internal/adapter/driving/web"
	"github.com/ericfisherdev/timeline/internal/application"
)

// --- Fake remote API ---

type fakeAPI struct {
	srv         *httptest.Server
	token       string
	revoked     atomic.Bool
	postsBroken atomic.Bool
	verifyCalls atomic.Int32

	// While holdVerify is set, /verify-token/ signals verifyEntered and
	// blocks until verifyRelease is closed.
	holdVerify    atomic.Bool
	verifyEntered chan struct{}
	verifyRelease chan struct{}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	f := &fakeAPI{
		token:         token,
		verifyEntered: make(chan struct{}, 1),
		verifyRelease: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		if r.PostFormValue("username") != "alice" || r.PostFormValue("password") != "secret" {
			http.Error(w, `{"detail":"Incorrect username or password"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.token, "token_type": "bearer"})
	})
	mux.HandleFunc("GET /verify-token/", func(w http.ResponseWriter, r *http.Request) {
		f.verifyCalls.Add(1)
		if f.holdVerify.Load() {
			f.verifyEntered <- struct{}{}
			select {
			case <-f.verifyRelease:
			case <-r.Context().Done():
				return
			}
		}
		if f.revoked.Load() || r.Header.Get("Authorization") != "Bearer "+f.token {
			http.Error(w, `{"detail":"Token is invalid or expired"}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"message":"Token is valid"}`))
	})
	mux.HandleFunc("GET /posts/", func(w http.ResponseWriter, r *http.Request) {
		if f.postsBroken.Load() {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"username":"bob","user_id":2,"image_url":"https://img.example/1.png","description":"**hello** world","likes":3}]`))
	})
	mux.HandleFunc("GET /stories/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":9,"username":"carol","image_url":"https://img.example/s.png"}]`))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// --- Fixture ---

type fixture struct {
	api      *fakeAPI
	store    *memory.CredentialRepo
	contexts *web.BrowserContexts
	mux      *http.ServeMux
	srv      *httptest.Server
	client   *http.Client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := newFakeAPI(t)
	logger := discardLogger()

	apiClient, err := api.NewClientWithHTTPClient(fake.srv.Client(), fake.srv.URL, logger)
	require.NoError(t, err)

	store := memory.NewCredentialRepo()
	guard := application.NewSessionGuard(apiClient, 2*time.Second, nil, logger)
	feedSvc := application.NewFeedService(apiClient, logger)
	contexts, err := web.NewBrowserContexts([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	h := web.NewHandler(guard, feedSvc, store, apiClient, contexts, "/login", logger)
	mux := http.NewServeMux()
	web.RegisterRoutes(mux, h)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{api: fake, store: store, contexts: contexts, mux: mux, srv: srv, client: newBrowser(t)}
}

// newBrowser returns a client with its own cookie jar that does not follow
// redirects, standing in for one browser profile.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *fixture) get(t *testing.T, client *http.Client, path string, fragment bool) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(t, err)
	if fragment {
		req.Header.Set("X-Timeline-Fragment", "1")
	}
	return do(t, client, req)
}

func (f *fixture) post(t *testing.T, client *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, client, req)
}

func do(t *testing.T, client *http.Client, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// csrf loads the login page so the jar holds a CSRF cookie, and returns it.
func (f *fixture) csrf(t *testing.T, client *http.Client) string {
	t.Helper()
	resp, _ := f.get(t, client, "/login", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "csrf_token" {
			return c.Value
		}
	}
	t.Fatal("no csrf cookie set")
	return ""
}

func (f *fixture) login(t *testing.T, client *http.Client, username, password string) (*http.Response, string) {
	t.Helper()
	token := f.csrf(t, client)
	return f.post(t, client, "/login", url.Values{
		"csrf_token": {token},
		"username":   {username},
		"password":   {password},
	})
}

// --- Tests ---

func TestRoot_RedirectsToProtected(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, f.client, "/", false)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/protected", resp.Header.Get("Location"))
}

func TestProtected_ShellRendersPlaceholderWithoutVerifying(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, f.client, "/protected", false)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Loading...")
	assert.Contains(t, body, `data-src="/protected/view"`)
	assert.Contains(t, body, "/static/guard.js")
	assert.Equal(t, int32(0), f.api.verifyCalls.Load())
}

func TestProtectedView_NoCredentialRedirectsWithoutNetworkCall(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, f.client, "/protected/view", true)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("X-Redirect"))
	assert.Empty(t, body)
	assert.Equal(t, int32(0), f.api.verifyCalls.Load())
}

func TestProtectedView_FullPageRequestGetsSeeOther(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, f.client, "/protected/view", false)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestLogin_ThenTimelineRenders(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.login(t, f.client, "alice", "secret")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/protected", resp.Header.Get("Location"))
	assert.Equal(t, 1, f.store.Len())

	resp, body := f.get(t, f.client, "/protected/view", true)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), f.api.verifyCalls.Load())
	assert.Contains(t, body, "Signed in as <strong>alice</strong>")
	assert.Contains(t, body, "<strong>hello</strong>")
	assert.Contains(t, body, "3 likes")
	assert.Contains(t, body, "carol")
	assert.NotContains(t, body, "<html", "fragment requests get no layout")
}

func TestProtectedView_FullPageGrantedIncludesLayout(t *testing.T) {
	f := newFixture(t)
	f.login(t, f.client, "alice", "secret")

	resp, body := f.get(t, f.client, "/protected/view", false)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, "bob")
}

func TestProtectedView_EveryLoadVerifiesAgain(t *testing.T) {
	f := newFixture(t)
	f.login(t, f.client, "alice", "secret")

	f.get(t, f.client, "/protected/view", true)
	f.get(t, f.client, "/protected/view", true)

	assert.Equal(t, int32(2), f.api.verifyCalls.Load())
}

func TestProtectedView_RevokedCredentialClearedAndRedirected(t *testing.T) {
	f := newFixture(t)
	f.login(t, f.client, "alice", "secret")
	f.api.revoked.Store(true)

	resp, _ := f.get(t, f.client, "/protected/view", true)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("X-Redirect"))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, int32(1), f.api.verifyCalls.Load())

	// The next load finds no credential and never reaches the remote service.
	resp, _ = f.get(t, f.client, "/protected/view", true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(1), f.api.verifyCalls.Load())
}

func TestProtectedView_LateRejectionAfterDisconnectIsDiscarded(t *testing.T) {
	f := newFixture(t)

	// Mint a browser context and seed its credential directly.
	minted := httptest.NewRecorder()
	scope := f.contexts.Resolve(minted, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, f.store.Set(context.Background(), scope, "tok123"))

	f.api.holdVerify.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequestWithContext(ctx, http.MethodGet, "/protected/view", nil)
	req.Header.Set("X-Timeline-Fragment", "1")
	for _, c := range minted.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()

	served := make(chan struct{})
	go func() {
		defer close(served)
		f.mux.ServeHTTP(rec, req)
	}()

	select {
	case <-f.api.verifyEntered:
	case <-time.After(time.Second):
		t.Fatal("verification never started")
	}

	// The client goes away while the decision is still pending.
	cancel()
	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after the client disconnected")
	}

	// Release the held verification; the fake rejects "tok123".
	close(f.api.verifyRelease)

	assert.Never(t, func() bool {
		got, err := f.store.Get(context.Background(), scope)
		return err != nil || got != "tok123"
	}, 300*time.Millisecond, 10*time.Millisecond, "late rejection must not clear the credential")

	got, err := f.store.Get(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, "tok123", got)
	assert.Empty(t, rec.Header().Get("X-Redirect"))
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Empty(t, rec.Body.String())
	assert.False(t, rec.Flushed)
	assert.Equal(t, int32(1), f.api.verifyCalls.Load())
}

func TestProtectedView_PostsFailureShowsPanel(t *testing.T) {
	f := newFixture(t)
	f.login(t, f.client, "alice", "secret")
	f.api.postsBroken.Store(true)

	resp, body := f.get(t, f.client, "/protected/view", true)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Could not load posts")
	assert.Contains(t, body, "carol", "stories still render")
}

func TestProtectedView_BrowserContextsAreIsolated(t *testing.T) {
	f := newFixture(t)
	f.login(t, f.client, "alice", "secret")

	other := newBrowser(t)
	resp, _ := f.get(t, other, "/protected/view", true)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(0), f.api.verifyCalls.Load())
	assert.Equal(t, 1, f.store.Len())
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)

	resp, body := f.login(t, f.client, "alice", "wrong")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Incorrect username or password.")
	assert.Contains(t, body, `value="alice"`)
	assert.Equal(t, 0, f.store.Len())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.login(t, f.client, "", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, f.store.Len())
}

func TestLogin_RejectsMissingCSRF(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, f.client, "/login", url.Values{
		"username": {"alice"},
		"password": {"secret"},
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, f.store.Len())
}

func TestLogout_ClearsCredential(t *testing.T) {
	f := newFixture(t)
	f.login(t, f.client, "alice", "secret")
	token := f.csrf(t, f.client)

	resp, _ := f.post(t, f.client, "/logout", url.Values{"csrf_token": {token}})

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 0, f.store.Len())
}

func TestStatic_GuardScriptServed(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, f.client, "/static/guard.js", false)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "X-Redirect")
}
