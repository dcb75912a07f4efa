package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"rids-dashboard/services"
)

type ctxKey int

const sessionKey ctxKey = 0

// Session returns the session attached by WithSession or RequireAuth.
func Session(r *http.Request) *services.Session {
	s, _ := r.Context().Value(sessionKey).(*services.Session)
	return s
}

// Auth guards routes against anonymous or under-privileged users.
type Auth struct {
	Sessions *services.SessionManager
	API      *services.Client
	Log      *logrus.Logger
}

func (a *Auth) load(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	s, err := a.Sessions.Load(w, r)
	if err != nil {
		a.Log.WithError(err).Error("load session")
		http.Error(w, "Sesión no disponible", http.StatusServiceUnavailable)
		return nil, false
	}
	return s, true
}

// WithSession attaches the session without requiring a sign-in.
func (a *Auth) WithSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.load(w, r)
		if !ok {
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	}
}

// RequireAuth wraps an http.HandlerFunc and redirects to /login if there is
// no token. A browser that still holds API refresh cookies is signed back in
// silently first.
func (a *Auth) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.load(w, r)
		if !ok {
			return
		}
		if s.Restorable() {
			if err := a.API.Restore(r.Context(), s); err != nil {
				a.Log.WithError(err).Debug("session restore failed")
			}
		}
		if !s.Authenticated() {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	}
}

// RequireRole sends signed-in users without one of roles to /denied. It must
// run inside RequireAuth.
func (a *Auth) RequireRole(roles ...services.Nivel) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s := Session(r)
			if s == nil || s.User == nil || !s.User.HasAnyRole(roles...) {
				http.Redirect(w, r, "/denied", http.StatusFound)
				return
			}
			next(w, r)
		}
	}
}
