package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"rids-dashboard/middleware"
	"rids-dashboard/services"
)

// Routes registers every page. CSRF protection is applied by the caller
// around the returned router.
func (a *App) Routes(auth *middleware.Auth) *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.Logging(a.Log)))

	admins := auth.RequireRole(services.NivelAdmin, services.NivelSubAdmin)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)

	r.HandleFunc("/login", auth.WithSession(a.HandleLoginPage)).Methods(http.MethodGet)
	r.HandleFunc("/login", auth.WithSession(a.HandleLogin)).Methods(http.MethodPost)
	r.HandleFunc("/logout", auth.WithSession(a.HandleLogout)).Methods(http.MethodPost)
	r.HandleFunc("/denied", a.HandleDenied).Methods(http.MethodGet)
	r.HandleFunc("/theme", a.HandleTheme).Methods(http.MethodPost)

	r.HandleFunc("/", auth.RequireAuth(a.HandleDashboard)).Methods(http.MethodGet)

	r.HandleFunc("/users", auth.RequireAuth(admins(a.HandleUsers))).Methods(http.MethodGet)
	r.HandleFunc("/users", auth.RequireAuth(admins(a.HandleCreateUser))).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}/delete", auth.RequireAuth(admins(a.HandleDeleteUser))).Methods(http.MethodPost)
	r.HandleFunc("/usuarios", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/users", http.StatusFound)
	}).Methods(http.MethodGet)

	r.HandleFunc("/leads", auth.RequireAuth(a.HandleLeads)).Methods(http.MethodGet)
	r.HandleFunc("/leads", auth.RequireAuth(a.HandleCreateLead)).Methods(http.MethodPost)
	r.HandleFunc("/leads/rows", auth.RequireAuth(a.HandleLeadRows)).Methods(http.MethodGet)
	r.HandleFunc("/leads/{id:[0-9]+}/edit", auth.RequireAuth(a.HandleEditLead)).Methods(http.MethodPost)
	r.HandleFunc("/leads/{id:[0-9]+}/estado", auth.RequireAuth(a.HandleLeadEstado)).Methods(http.MethodPost)
	r.HandleFunc("/leads/{id:[0-9]+}/asignar", auth.RequireAuth(a.HandleAssignLead)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	return r
}
