package web

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	contextCookieName = "timeline_ctx"
	contextCookieAge  = 365 * 24 * 60 * 60
)

// BrowserContexts identifies the browser context a request belongs to. The id
// is a UUID carried in an HMAC-signed cookie; credentials are scoped to it.
type BrowserContexts struct {
	codec *securecookie.SecureCookie
}

// NewBrowserContexts creates a BrowserContexts signing with hashKey. A nil
// hashKey generates a random key, so contexts do not outlive the process.
func NewBrowserContexts(hashKey []byte) (*BrowserContexts, error) {
	if hashKey == nil {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, errors.New("generate cookie key: no randomness available")
		}
	}

	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(contextCookieAge)

	return &BrowserContexts{codec: codec}, nil
}

// Resolve returns the browser context id of r. A missing, tampered or
// malformed cookie mints a fresh id and sets it on w, which behaves like a
// new browser profile: nothing is stored under it yet.
func (b *BrowserContexts) Resolve(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(contextCookieName); err == nil {
		var id string
		if err := b.codec.Decode(contextCookieName, cookie.Value, &id); err == nil {
			if _, err := uuid.Parse(id); err == nil {
				return id
			}
		}
	}

	id := uuid.NewString()
	encoded, err := b.codec.Encode(contextCookieName, id)
	if err != nil {
		// The id still scopes this request; the next one mints another.
		return id
	}

	http.SetCookie(w, &http.Cookie{
		Name:     contextCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   contextCookieAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false, // set true when served over HTTPS
	})
	return id
}
