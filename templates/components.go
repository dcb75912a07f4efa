package templates

import (
	"fmt"
	"strings"

	"rids-dashboard/services"
)

func pill(c, label string) string {
	return fmt.Sprintf(`<span style="display:inline-block;padding:2px 10px;border-radius:999px;font-size:11px;font-weight:600;background:%s20;color:%s;border:1px solid %s55">%s</span>`, c, c, c, Esc(label))
}

// Badge renders a colored badge for a user level.
func Badge(nivel string) string {
	colors := map[string]string{
		"ADMIN": "#f59e0b", "SUB_ADMIN": "#0ea5e9", "USER": "#888",
	}
	c := colors[nivel]
	if c == "" {
		c = "#888"
	}
	return pill(c, nivel)
}

// StatusBadge renders the active flag of a user.
func StatusBadge(active bool) string {
	if active {
		return pill("#22c55e", "Activo")
	}
	return pill("#ef4444", "Inactivo")
}

// EstadoColor picks a chip color from the state name.
func EstadoColor(nombre string) string {
	n := strings.ToLower(nombre)
	switch {
	case strings.Contains(n, "confirm"):
		return "#10b981"
	case strings.Contains(n, "pend"):
		return "#eab308"
	case strings.Contains(n, "nego"):
		return "#22d3ee"
	case strings.Contains(n, "decla"), strings.Contains(n, "declin"):
		return "#f43f5e"
	case strings.Contains(n, "contact"):
		return "#6366f1"
	case strings.Contains(n, "cotiz"):
		return "#d946ef"
	}
	return "#888"
}

// EstadoChip renders the state of a lead.
func EstadoChip(nombre string) string {
	if nombre == "" {
		return pill("#888", "-")
	}
	return pill(EstadoColor(nombre), nombre)
}

// Flashes renders one-shot messages above the page content.
func Flashes(msgs []string) string {
	out := ""
	for _, m := range msgs {
		out += fmt.Sprintf(`<div class="flash">%s</div>`, Esc(m))
	}
	return out
}

// Pager renders previous/next links for a paginated list.
func Pager(path string, p services.ListParams, total int) string {
	pages := services.TotalPages(total, p.PageSize)
	link := func(n int, label string) string {
		return fmt.Sprintf(`<a class="btn btn-sm" href="%s?%s">%s</a>`, path, Esc(p.WithPage(n).Values().Encode()), label)
	}
	nav := `<div class="pager">`
	if p.Page > 1 {
		nav += link(p.Page-1, "← Anterior")
	}
	nav += fmt.Sprintf(`<span>Página %d de %d · %s resultados</span>`, p.Page, pages, Num(total))
	if p.Page < pages {
		nav += link(p.Page+1, "Siguiente →")
	}
	return nav + `</div>`
}

// HiddenParams carries list params through a POST form so the redirect lands
// on the same page.
func HiddenParams(p services.ListParams) string {
	return fmt.Sprintf(`<input type="hidden" name="return" value="%s">`, Esc(p.Values().Encode()))
}
