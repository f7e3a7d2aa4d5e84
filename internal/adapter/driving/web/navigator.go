package web

import (
	"net/http"
	"sync/atomic"
)

// fragmentHeader marks requests issued by guard.js for a guarded fragment.
const fragmentHeader = "X-Timeline-Fragment"

// redirectNavigator records the guard's request to leave the protected view.
// The guard calls it from its own goroutine; the handler goroutine performs
// the redirect after the mount settles.
type redirectNavigator struct {
	requested atomic.Bool
}

func (n *redirectNavigator) RedirectToLogin() {
	n.requested.Store(true)
}

func (n *redirectNavigator) wasRequested() bool {
	return n.requested.Load()
}

// redirect sends the browser to target. Fragment requests cannot be
// redirected in place, so they get 204 with X-Redirect for guard.js to follow.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get(fragmentHeader) != "" {
		w.Header().Set("X-Redirect", target)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
