package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"rids-dashboard/middleware"
	"rids-dashboard/services"
	"rids-dashboard/templates"
)

// liveSearch swaps the rows container with /leads/rows while the filter is
// edited, aborting the previous fetch.
const liveSearch = `<script>(function(){var f=document.getElementById('lead-filter'),box=document.getElementById('lead-rows'),ctl;
function load(){if(ctl)ctl.abort();ctl=new AbortController();var qs=new URLSearchParams(new FormData(f));qs.set('page','1');
fetch('/leads/rows?'+qs,{signal:ctl.signal,credentials:'same-origin'}).then(function(r){return r.status===200?r.text():undefined})
.then(function(h){if(h!==undefined){box.innerHTML=h;history.replaceState(null,'','/leads?'+qs)}}).catch(function(){})}
f.addEventListener('input',load);f.addEventListener('change',load);f.addEventListener('submit',function(e){e.preventDefault();load()})})();</script>`

type leadsData struct {
	cat     *services.Catalogs
	list    *services.LeadList
	catErr  error
	listErr error
}

// loadLeads fetches the catalogs and one page of leads side by side. Each
// failure is kept apart so the page can still render what did load. fresh
// reloads the catalogs; otherwise the session's cached copy is used.
func (a *App) loadLeads(ctx context.Context, s *services.Session, params services.ListParams, fresh bool) leadsData {
	var d leadsData
	var g errgroup.Group
	g.Go(func() error {
		if fresh {
			d.cat, d.catErr = a.Catalogs.Reload(ctx, s.ID, s)
		} else {
			d.cat, d.catErr = a.Catalogs.Get(ctx, s.ID, s)
		}
		return nil
	})
	g.Go(func() error {
		d.list, d.listErr = a.API.ListLeads(ctx, s, params)
		return nil
	})
	_ = g.Wait()
	if d.cat == nil {
		d.cat = &services.Catalogs{}
	}
	return d
}

func (a *App) leadsBody(r *http.Request, d leadsData, params services.ListParams) string {
	out := ""
	if d.catErr != nil {
		out += fmt.Sprintf(`<div class="err">Error cargando catálogos: %s</div>`, templates.Esc(a.userMessage(d.catErr, "catalogs")))
	}
	if d.listErr != nil {
		return out + fmt.Sprintf(`<div class="err">Error cargando leads: %s</div>`, templates.Esc(a.userMessage(d.listErr, "list leads")))
	}
	return out + leadRows(d.list, d.cat, params, csrfField(r))
}

// HandleLeads renders the leads page: filters, create form and the first
// page of rows.
func (a *App) HandleLeads(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	p := a.page(r, "leads")
	params := services.ParseListParams(r.URL.Query())
	d := a.loadLeads(r.Context(), s, params, true)

	content := `<h2 class="t">Leads</h2><p class="desc">Prospectos comerciales</p>` +
		filterForm(params) +
		createLeadForm(services.NewLeadDefaults(a.now()), d.cat, params, p.CSRF) +
		`<div class="card" id="lead-rows">` + a.leadsBody(r, d, params) + `</div>` + liveSearch
	render(w, http.StatusOK, templates.Layout(p, content))
}

// HandleLeadRows serves the rows fragment for live search. Only the latest
// request per session is answered; superseded ones get 204.
func (a *App) HandleLeadRows(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	params := services.ParseListParams(r.URL.Query())

	var body string
	err := a.Latest.Do(r.Context(), s.ID+":leads", a.Debounce, func(ctx context.Context) error {
		d := a.loadLeads(ctx, s, params, false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		body = a.leadsBody(r, d, params)
		return nil
	})
	switch {
	case errors.Is(err, services.ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		a.Log.WithError(err).Error("lead rows")
		http.Error(w, "Error cargando leads", http.StatusBadGateway)
		return
	}
	render(w, http.StatusOK, body)
}

func filterForm(p services.ListParams) string {
	var sizes, orders strings.Builder
	for _, n := range services.PageSizes {
		fmt.Fprintf(&sizes, `<option value="%d"%s>%d por página</option>`, n, templates.Selected(strconv.Itoa(n), strconv.Itoa(p.PageSize)), n)
	}
	for _, f := range services.OrderFields {
		fmt.Fprintf(&orders, `<option value="%s"%s>%s</option>`, f, templates.Selected(f, p.OrderBy), services.OrderLabels[f])
	}
	return fmt.Sprintf(`<div class="card"><form id="lead-filter" method="GET" action="/leads" class="row">
<div style="flex:1;min-width:200px"><label class="fl">Buscar</label><input class="input" name="q" value="%s" placeholder="Código, nombre, email…" autocomplete="off"></div>
<div><label class="fl">Tamaño</label><select class="input" name="pageSize">%s</select></div>
<div><label class="fl">Ordenar por</label><select class="input" name="orderBy">%s</select></div>
<div><label class="fl">Dirección</label><select class="input" name="orderDir"><option value="desc"%s>Descendente</option><option value="asc"%s>Ascendente</option></select></div>
<button class="btn" type="submit">Aplicar</button></form></div>`,
		templates.Esc(p.Q), sizes.String(), orders.String(), templates.Selected("desc", p.OrderDir), templates.Selected("asc", p.OrderDir))
}

func names(cs []services.Catalog) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Nombre)
	}
	return out
}

// choices keeps current selectable even when the catalog does not list it,
// so an untouched select never reads as a change.
func choices(cs []services.Catalog, current string) []string {
	out := names(cs)
	if current == "" {
		return out
	}
	for _, n := range out {
		if n == current {
			return out
		}
	}
	return append(out, current)
}

func selectField(label, name string, cs []services.Catalog, current string) string {
	return fmt.Sprintf(`<div class="fg"><label class="fl">%s</label><select class="input" name="%s">%s</select></div>`,
		label, name, templates.Options(choices(cs, current), current, "—"))
}

func inputField(label, name, typ, value string, required bool) string {
	req := ""
	if required {
		req = " required"
	}
	return fmt.Sprintf(`<div class="fg"><label class="fl">%s</label><input class="input" type="%s" name="%s" value="%s"%s></div>`,
		label, typ, name, templates.Esc(value), req)
}

func createLeadForm(n services.NewLead, cat *services.Catalogs, p services.ListParams, csrfField string) string {
	return fmt.Sprintf(`<details class="card"><summary class="ct">＋ Nuevo lead</summary>
<form method="POST" action="/leads" class="form-grid" style="margin-top:12px">%s%s%s%s%s%s%s%s%s%s%s%s%s%s
<div><button class="btn btn-p" type="submit">Crear lead</button></div></form></details>`,
		csrfField, templates.HiddenParams(p),
		inputField("Código cliente", "codigoCliente", "text", n.CodigoCliente, true),
		inputField("Nombre cliente", "nombreCliente", "text", n.NombreCliente, true),
		inputField("Email", "email", "email", n.Email, false),
		inputField("Teléfono", "telefono", "tel", n.Telefono, false),
		selectField("Marca", "marcaNombre", cat.Marcas, n.MarcaNombre),
		selectField("Categoría", "categoriaNombre", cat.Categorias, n.CategoriaNombre),
		selectField("Tipo de cliente", "tipoClienteNombre", cat.Tipos, n.TipoClienteNombre),
		selectField("Comuna", "comunaNombre", cat.Comunas, n.ComunaNombre),
		selectField("Estado", "estadoNombre", cat.Estados, n.EstadoNombre),
		selectField("Segmentación", "segmentacionNombre", cat.Segmentos, n.SegmentacionNombre),
		inputField("Monto cotizado", "montoCotizado", "number", n.MontoCotizado, false),
		inputField("Fecha ingreso", "fechaIngreso", "datetime-local", n.FechaIngreso, false))
}

// leadOriginals are the hidden copies of the edit form's initial values.
var leadOriginals = []string{
	"codigoCliente", "nombreCliente", "email", "telefono",
	"marcaNombre", "categoriaNombre", "tipoClienteNombre", "comunaNombre", "estadoNombre", "segmentacionNombre",
	"montoCotizado", "fechaIngreso",
}

func formValues(f services.LeadForm) map[string]string {
	return map[string]string{
		"codigoCliente":      f.CodigoCliente,
		"nombreCliente":      f.NombreCliente,
		"email":              f.Email,
		"telefono":           f.Telefono,
		"marcaNombre":        f.MarcaNombre,
		"categoriaNombre":    f.CategoriaNombre,
		"tipoClienteNombre":  f.TipoClienteNombre,
		"comunaNombre":       f.ComunaNombre,
		"estadoNombre":       f.EstadoNombre,
		"segmentacionNombre": f.SegmentacionNombre,
		"montoCotizado":      f.MontoCotizado,
		"fechaIngreso":       f.FechaIngreso,
	}
}

func editLeadForm(l services.Lead, cat *services.Catalogs, p services.ListParams, csrfField string) string {
	f := services.FormFromLead(l)
	vals := formValues(f)
	var hidden strings.Builder
	for _, k := range leadOriginals {
		fmt.Fprintf(&hidden, `<input type="hidden" name="orig_%s" value="%s">`, k, templates.Esc(vals[k]))
	}
	return fmt.Sprintf(`<details><summary class="btn btn-sm">Editar</summary>
<form method="POST" action="/leads/%d/edit" class="form-grid" style="margin-top:8px;min-width:420px">%s%s%s%s%s%s%s%s%s%s%s%s%s%s%s
<div><button class="btn btn-sm btn-p" type="submit">Guardar</button></div></form></details>`,
		l.ID, csrfField, templates.HiddenParams(p), hidden.String(),
		inputField("Código cliente", "codigoCliente", "text", f.CodigoCliente, true),
		inputField("Nombre cliente", "nombreCliente", "text", f.NombreCliente, true),
		inputField("Email", "email", "email", f.Email, false),
		inputField("Teléfono", "telefono", "tel", f.Telefono, false),
		selectField("Marca", "marcaNombre", cat.Marcas, f.MarcaNombre),
		selectField("Categoría", "categoriaNombre", cat.Categorias, f.CategoriaNombre),
		selectField("Tipo de cliente", "tipoClienteNombre", cat.Tipos, f.TipoClienteNombre),
		selectField("Comuna", "comunaNombre", cat.Comunas, f.ComunaNombre),
		selectField("Estado", "estadoNombre", cat.Estados, f.EstadoNombre),
		selectField("Segmentación", "segmentacionNombre", cat.Segmentos, f.SegmentacionNombre),
		inputField("Monto cotizado", "montoCotizado", "number", f.MontoCotizado, false),
		inputField("Fecha ingreso", "fechaIngreso", "datetime-local", f.FechaIngreso, false))
}

func leadActions(l services.Lead, cat *services.Catalogs, p services.ListParams, csrfField string) string {
	return fmt.Sprintf(`<div style="display:grid;gap:6px">%s
<form method="POST" action="/leads/%d/estado" class="row">%s%s<select class="input" name="estadoNombre" style="width:auto">%s</select><button class="btn btn-sm" type="submit">Estado</button></form>
<form method="POST" action="/leads/%d/asignar" class="row">%s%s<input class="input" type="number" min="1" name="usuarioId" placeholder="ID usuario" style="width:110px" required><button class="btn btn-sm" type="submit">Asignar</button></form></div>`,
		editLeadForm(l, cat, p, csrfField),
		l.ID, csrfField, templates.HiddenParams(p), templates.Options(choices(cat.Estados, l.Estado.Name()), l.Estado.Name(), ""),
		l.ID, csrfField, templates.HiddenParams(p))
}

func leadRows(list *services.LeadList, cat *services.Catalogs, p services.ListParams, csrfField string) string {
	if len(list.Leads) == 0 {
		return `<div class="empty">Sin leads para los filtros actuales</div>` + templates.Pager("/leads", p, list.Total)
	}
	var rows strings.Builder
	for _, l := range list.Leads {
		monto := "-"
		if l.MontoCotizado != "" {
			monto = "$" + templates.Esc(l.MontoCotizado)
		}
		fmt.Fprintf(&rows, `<tr><td style="font-weight:600">%s</td><td>%s<div style="font-size:11px;color:var(--muted)">%s · %s</div></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td style="font-size:12px;color:var(--muted)">%s</td><td>%s</td></tr>`,
			templates.Esc(l.CodigoCliente), templates.Esc(l.NombreCliente), templates.EscPtr(l.Email), templates.EscPtr(l.Telefono),
			templates.Esc(l.Marca.Name()), templates.Esc(l.Comuna.Name()), templates.EstadoChip(l.Estado.Name()),
			templates.Esc(l.Segmentacion.Name()), monto, templates.Esc(services.LocalDateTime(deref(l.FechaIngreso))),
			leadActions(l, cat, p, csrfField))
	}
	return `<table><thead><tr><th>Código</th><th>Cliente</th><th>Marca</th><th>Comuna</th><th>Estado</th><th>Segmento</th><th>Monto</th><th>Ingreso</th><th></th></tr></thead><tbody>` +
		rows.String() + `</tbody></table>` + templates.Pager("/leads", p, list.Total)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// HandleCreateLead posts a new lead built from the create form.
func (a *App) HandleCreateLead(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulario inválido", http.StatusBadRequest)
		return
	}
	n, err := services.NewLead{
		CodigoCliente:      strings.TrimSpace(r.FormValue("codigoCliente")),
		NombreCliente:      strings.TrimSpace(r.FormValue("nombreCliente")),
		Email:              strings.TrimSpace(r.FormValue("email")),
		Telefono:           strings.TrimSpace(r.FormValue("telefono")),
		MarcaNombre:        r.FormValue("marcaNombre"),
		CategoriaNombre:    r.FormValue("categoriaNombre"),
		TipoClienteNombre:  r.FormValue("tipoClienteNombre"),
		ComunaNombre:       r.FormValue("comunaNombre"),
		EstadoNombre:       r.FormValue("estadoNombre"),
		SegmentacionNombre: r.FormValue("segmentacionNombre"),
		MontoCotizado:      strings.TrimSpace(r.FormValue("montoCotizado")),
		FechaIngreso:       r.FormValue("fechaIngreso"),
	}.Validate()
	if err == nil {
		var created *services.Lead
		created, err = a.API.CreateLead(r.Context(), s, n)
		if err == nil {
			s.AddFlash(fmt.Sprintf("Lead %s creado", created.CodigoCliente))
		}
	}
	if err != nil {
		s.AddFlash(a.userMessage(err, "create lead"))
	}
	http.Redirect(w, r, returnTo("/leads", r), http.StatusFound)
}

func catalogNamed(name string) *services.Catalog {
	if name == "" {
		return nil
	}
	return &services.Catalog{Nombre: name}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// originalLead rebuilds the lead as it was rendered into the edit form.
func originalLead(id int, r *http.Request) services.Lead {
	o := func(k string) string { return r.FormValue("orig_" + k) }
	return services.Lead{
		ID:            id,
		CodigoCliente: o("codigoCliente"),
		NombreCliente: o("nombreCliente"),
		Email:         optional(o("email")),
		Telefono:      optional(o("telefono")),
		Marca:         catalogNamed(o("marcaNombre")),
		Categoria:     catalogNamed(o("categoriaNombre")),
		TipoCliente:   catalogNamed(o("tipoClienteNombre")),
		Comuna:        catalogNamed(o("comunaNombre")),
		Estado:        catalogNamed(o("estadoNombre")),
		Segmentacion:  catalogNamed(o("segmentacionNombre")),
		MontoCotizado: services.Amount(o("montoCotizado")),
	}
}

func leadID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		http.Error(w, "id inválido", http.StatusBadRequest)
		return 0, false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulario inválido", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// HandleEditLead sends only the fields that differ from the hidden originals.
// Nothing is sent when the form is unchanged.
func (a *App) HandleEditLead(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	id, ok := leadID(w, r)
	if !ok {
		return
	}
	form := services.LeadForm{
		CodigoCliente:      r.FormValue("codigoCliente"),
		NombreCliente:      r.FormValue("nombreCliente"),
		Email:              strings.TrimSpace(r.FormValue("email")),
		Telefono:           strings.TrimSpace(r.FormValue("telefono")),
		MarcaNombre:        r.FormValue("marcaNombre"),
		CategoriaNombre:    r.FormValue("categoriaNombre"),
		TipoClienteNombre:  r.FormValue("tipoClienteNombre"),
		ComunaNombre:       r.FormValue("comunaNombre"),
		EstadoNombre:       r.FormValue("estadoNombre"),
		SegmentacionNombre: r.FormValue("segmentacionNombre"),
		MontoCotizado:      strings.TrimSpace(r.FormValue("montoCotizado")),
		FechaIngreso:       r.FormValue("fechaIngreso"),
	}
	form.MontoCotizadoTouched = form.MontoCotizado != strings.TrimSpace(r.FormValue("orig_montoCotizado"))
	form.FechaIngresoTouched = form.FechaIngreso != r.FormValue("orig_fechaIngreso")

	diff := services.DiffLead(originalLead(id, r), form)
	switch {
	case len(diff) == 0:
		s.AddFlash("Sin cambios")
	default:
		if err := a.API.UpdateLead(r.Context(), s, id, diff); err != nil {
			s.AddFlash(a.userMessage(err, "update lead"))
		} else {
			s.AddFlash("Lead actualizado")
		}
	}
	http.Redirect(w, r, returnTo("/leads", r), http.StatusFound)
}

func (a *App) HandleLeadEstado(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	id, ok := leadID(w, r)
	if !ok {
		return
	}
	estado := strings.TrimSpace(r.FormValue("estadoNombre"))
	switch {
	case estado == "":
		s.AddFlash("Selecciona un estado")
	default:
		if err := a.API.SetLeadEstado(r.Context(), s, id, estado); err != nil {
			s.AddFlash(a.userMessage(err, "set estado"))
		} else {
			s.AddFlash("Estado actualizado a " + estado)
		}
	}
	http.Redirect(w, r, returnTo("/leads", r), http.StatusFound)
}

func (a *App) HandleAssignLead(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	id, ok := leadID(w, r)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(strings.TrimSpace(r.FormValue("usuarioId")))
	switch {
	case err != nil || userID <= 0:
		s.AddFlash("ID de usuario inválido")
	default:
		if err := a.API.AssignLead(r.Context(), s, id, userID); err != nil {
			s.AddFlash(a.userMessage(err, "assign lead"))
		} else {
			s.AddFlash(fmt.Sprintf("Lead asignado al usuario %d", userID))
		}
	}
	http.Redirect(w, r, returnTo("/leads", r), http.StatusFound)
}
