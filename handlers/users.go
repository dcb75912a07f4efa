package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"rids-dashboard/middleware"
	"rids-dashboard/services"
	"rids-dashboard/templates"
)

// HandleUsers renders the users list with its search box and create form.
func (a *App) HandleUsers(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	p := a.page(r, "users")
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var tableHTML string
	users, err := a.API.ListUsers(r.Context(), s)
	if err != nil {
		tableHTML = fmt.Sprintf(`<div class="err">Error cargando usuarios: %s</div>`, templates.Esc(a.userMessage(err, "list users")))
	} else {
		users = services.FilterUsers(users, q)
		tableHTML = usersTable(users, s.User, p.CSRF)
	}

	niveles := s.User.CreatableNiveles()
	var opts strings.Builder
	for i, n := range niveles {
		sel := ""
		if i == len(niveles)-1 {
			sel = " selected"
		}
		fmt.Fprintf(&opts, `<option value="%s"%s>%s</option>`, n, sel, n)
	}

	content := fmt.Sprintf(`<h2 class="t">Usuarios</h2><p class="desc">Administración de cuentas del panel</p>
<div class="card"><form method="GET" action="/users" class="row"><div style="flex:1"><input class="input" name="q" value="%s" placeholder="Buscar por id, nombre, email o nivel"></div><button class="btn" type="submit">Buscar</button></form></div>
<details class="card"><summary class="ct">＋ Nuevo usuario</summary>
<form method="POST" action="/users" class="form-grid" style="margin-top:12px">%s
<div class="fg"><label class="fl">Nombre</label><input class="input" name="nombreUsuario" required minlength="2"></div>
<div class="fg"><label class="fl">Email</label><input class="input" type="email" name="email" required></div>
<div class="fg"><label class="fl">Contraseña</label><input class="input" type="password" name="password" required minlength="6"></div>
<div class="fg"><label class="fl">Nivel</label><select class="input" name="nivel">%s</select></div>
<div><button class="btn btn-p" type="submit">Crear</button></div></form></details>
<div class="card"><div class="ct">Usuarios encontrados: %s</div>%s</div>`,
		templates.Esc(q), p.CSRF, opts.String(), templates.Num(len(users)), tableHTML)

	render(w, http.StatusOK, templates.Layout(p, content))
}

func usersTable(users []services.User, me *services.User, csrfField string) string {
	if len(users) == 0 {
		return `<div class="empty">Sin resultados</div>`
	}
	var rows strings.Builder
	for _, u := range users {
		action := ""
		if me == nil || me.ID != u.ID {
			action = fmt.Sprintf(`<details><summary class="btn btn-sm btn-d">Eliminar</summary>
<form method="POST" action="/users/%d/delete" style="margin-top:8px">%s<div style="font-size:12px;margin-bottom:6px">¿Eliminar a %s?</div>
<button class="btn btn-sm btn-d" type="submit">Confirmar</button></form></details>`, u.ID, csrfField, templates.Esc(u.Email))
		}
		fmt.Fprintf(&rows, `<tr><td>%d</td><td style="font-weight:600">%s</td><td style="color:var(--dim)">%s</td><td>%s</td><td>%s</td><td style="color:var(--muted);font-size:12px">%s</td><td>%s</td></tr>`,
			u.ID, templates.Esc(u.NombreUsuario), templates.Esc(u.Email), templates.Badge(string(u.Nivel)),
			templates.StatusBadge(u.Active()), templates.Esc(services.LocalDateTime(u.CreatedAt)), action)
	}
	return `<table><thead><tr><th>ID</th><th>Nombre</th><th>Email</th><th>Nivel</th><th>Estado</th><th>Creado</th><th></th></tr></thead><tbody>` +
		rows.String() + `</tbody></table>`
}

// HandleCreateUser validates the form against the creator's level before
// calling the API.
func (a *App) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulario inválido", http.StatusBadRequest)
		return
	}
	nu, err := services.NewUser{
		NombreUsuario: r.FormValue("nombreUsuario"),
		Email:         r.FormValue("email"),
		Password:      r.FormValue("password"),
		Nivel:         services.Nivel(r.FormValue("nivel")),
	}.Validate(*s.User)
	if err == nil {
		var created *services.User
		created, err = a.API.CreateUser(r.Context(), s, nu)
		if err == nil {
			s.AddFlash(fmt.Sprintf("Usuario %s creado", created.Email))
		}
	}
	if err != nil {
		s.AddFlash(a.userMessage(err, "create user"))
	}
	http.Redirect(w, r, "/users", http.StatusFound)
}

// HandleDeleteUser runs after the confirmation form is submitted.
func (a *App) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "id inválido", http.StatusBadRequest)
		return
	}
	if err := a.API.DeleteUser(r.Context(), s, id); err != nil {
		s.AddFlash(a.userMessage(err, "delete user"))
	} else {
		s.AddFlash("Usuario eliminado")
	}
	http.Redirect(w, r, "/users", http.StatusFound)
}
