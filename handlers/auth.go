package handlers

import (
	"net/http"

	"rids-dashboard/middleware"
	"rids-dashboard/templates"
)

// HandleLoginPage serves the login form. Signed-in users go straight home.
func (a *App) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	next := safeNext(r.URL.Query().Get("next"))
	if s.Authenticated() {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	render(w, http.StatusOK, templates.LoginPage(theme(r), csrfField(r), next, ""))
}

// HandleLogin processes the login form.
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	if err := r.ParseForm(); err != nil {
		render(w, http.StatusBadRequest, templates.LoginPage(theme(r), csrfField(r), "/", "Formulario inválido"))
		return
	}
	next := safeNext(r.FormValue("next"))
	remember := r.FormValue("remember") != ""
	err := a.API.Login(r.Context(), s, r.FormValue("email"), r.FormValue("password"), remember)
	if err != nil {
		a.Log.WithError(err).WithField("email", r.FormValue("email")).Info("login rejected")
		render(w, http.StatusUnauthorized, templates.LoginPage(theme(r), csrfField(r), next, a.userMessage(err, "login")))
		return
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// HandleLogout clears both storage areas and redirects to the login page.
func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	a.Catalogs.Forget(s.ID)
	if err := a.API.Logout(r.Context(), s); err != nil {
		a.Log.WithError(err).Warn("logout left stored data behind")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (a *App) HandleDenied(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusForbidden, templates.DeniedPage(theme(r)))
}
