package templates

import (
	"fmt"
	"strings"

	"rids-dashboard/services"
)

// Hero is the greeting banner at the top of the dashboard.
func Hero(greeting, name, updated string) string {
	return fmt.Sprintf(`<div class="card" style="display:flex;gap:16px;align-items:center">
<div style="width:56px;height:56px;border-radius:50%%;background:var(--primary);color:#fff;display:flex;align-items:center;justify-content:center;font-weight:800;font-size:20px">%s</div>
<div><h2 class="t">%s %s</h2><p class="desc" style="margin:0">Actualizado %s</p></div></div>`,
		Esc(services.Initials(name)), Esc(greeting), Esc(name), Esc(updated))
}

// ProgressBar draws a single filled bar for a percentage.
func ProgressBar(pct int, color string) string {
	return fmt.Sprintf(`<div class="bar"><span style="width:%d%%;background:%s"></span></div>`, pct, color)
}

// KPI shows lead totals and the share of closed leads.
func KPI(ov *services.Overview) string {
	return fmt.Sprintf(`<div class="card"><div class="ct">Progreso comercial</div>
<div class="stats" style="margin-bottom:14px">
<div class="stat"><div class="l">Leads</div><div class="v" style="color:var(--primary)">%s</div></div>
<div class="stat"><div class="l">Hoy</div><div class="v" style="color:var(--success)">%s</div></div>
<div class="stat"><div class="l">Etapas</div><div class="v">%s</div></div>
<div class="stat"><div class="l">Cerrados</div><div class="v" style="color:var(--accent)">%d%%</div></div></div>
%s</div>`,
		Num(ov.LeadsTotal), Num(ov.Today), Num(ov.Stages), ov.ProgressPct, ProgressBar(ov.ProgressPct, "var(--accent)"))
}

// EstadoBar is a stacked bar of leads per state with its legend.
func EstadoBar(segs []services.Segment, total int) string {
	if len(segs) == 0 {
		return `<div class="card"><div class="ct">Leads por estado</div><div class="empty">Sin leads registrados</div></div>`
	}
	var bar, legend strings.Builder
	for _, s := range segs {
		fmt.Fprintf(&bar, `<span title="%s" style="width:%d%%;background:%s"></span>`, Esc(s.Label), s.Pct, s.Color)
		fmt.Fprintf(&legend, `<div style="display:flex;gap:8px;align-items:center;font-size:13px"><span style="width:10px;height:10px;border-radius:3px;background:%s"></span>%s <b>%s</b> <span style="color:var(--muted)">%d%%</span></div>`,
			s.Color, Esc(s.Label), Num(s.Value), s.Pct)
	}
	return fmt.Sprintf(`<div class="card"><div class="ct">Leads por estado · %s</div><div class="bar">%s</div>
<div style="display:grid;grid-template-columns:repeat(auto-fit,minmax(180px,1fr));gap:8px;margin-top:12px">%s</div></div>`,
		Num(total), bar.String(), legend.String())
}

var summaryLabels = []struct{ key, label string }{
	{"marcas", "Marcas"},
	{"comunas", "Comunas"},
	{"categorias", "Categorías"},
	{"estados", "Estados"},
	{"tipo_cliente", "Tipos de cliente"},
	{"segmentacion", "Segmentación"},
}

// ConfigSummary lists how many entries each catalog holds.
func ConfigSummary(summary map[string]int) string {
	var cards strings.Builder
	for _, s := range summaryLabels {
		fmt.Fprintf(&cards, `<div class="stat"><div class="l">%s</div><div class="v">%s</div></div>`, s.label, Num(summary[s.key]))
	}
	return fmt.Sprintf(`<div class="card"><div class="ct">Configuración</div><div class="stats">%s</div></div>`, cards.String())
}
