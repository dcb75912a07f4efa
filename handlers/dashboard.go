package handlers

import (
	"fmt"
	"net/http"

	"rids-dashboard/middleware"
	"rids-dashboard/services"
	"rids-dashboard/templates"
)

// HandleDashboard renders the greeting, lead KPIs and catalog summary.
func (a *App) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	s := middleware.Session(r)
	p := a.page(r, "dashboard")
	now := a.now()
	name := services.DisplayName(s.User, s.Token())

	content := templates.Hero(services.Greeting(now.Hour()), name, "a las "+now.Format("15:04"))
	ov, err := a.API.LoadOverview(r.Context(), s, now)
	if err != nil {
		content += fmt.Sprintf(`<div class="card err">Error cargando el resumen: %s</div>`, templates.Esc(a.userMessage(err, "overview")))
	} else {
		content += templates.KPI(ov) +
			`<div class="grid">` + templates.EstadoBar(ov.Estados, ov.EstadoTotal) + templates.ConfigSummary(ov.Summary) + `</div>`
	}
	render(w, http.StatusOK, templates.Layout(p, content))
}
