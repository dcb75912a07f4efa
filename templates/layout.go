package templates

import (
	"fmt"

	"rids-dashboard/services"
)

// Page carries what every authenticated page needs besides its content.
type Page struct {
	Key     string
	User    *services.User
	Theme   string
	CSRF    string
	Flashes []string
}

const styles = `<style>*{box-sizing:border-box;margin:0;padding:0}
:root,[data-theme=light]{--bg:#f4f6fb;--surface:#fff;--border:#dde3ee;--text:#0b1220;--dim:#374151;--muted:#6b7280;--primary:#0ea5e9;--accent:#eab308;--success:#16a34a;--danger:#dc2626;color-scheme:light}
[data-theme=dark]{--bg:#07090f;--surface:#111522;--border:#232a3b;--text:#f1f5f9;--dim:#cbd5e1;--muted:#7c8799;--primary:#22d3ee;--accent:#ffd60a;--success:#34d399;--danger:#fb7185;color-scheme:dark}
@media(prefers-color-scheme:dark){:root:not([data-theme=light]){--bg:#07090f;--surface:#111522;--border:#232a3b;--text:#f1f5f9;--dim:#cbd5e1;--muted:#7c8799;--primary:#22d3ee;--accent:#ffd60a;--success:#34d399;--danger:#fb7185;color-scheme:dark}}
body{font-family:-apple-system,"Segoe UI",sans-serif;background:var(--bg);color:var(--text)}
.layout{display:flex;min-height:100vh}.sidebar{width:230px;background:var(--surface);border-right:1px solid var(--border);position:fixed;inset:0 auto 0 0;display:flex;flex-direction:column}
.sh{padding:20px;border-bottom:1px solid var(--border)}.sh h2{font-size:17px;letter-spacing:.04em}.sh h2 em{font-style:normal;color:var(--accent)}
.nav{flex:1;padding:8px 0}.nav a{display:flex;gap:10px;padding:10px 20px;color:var(--dim);text-decoration:none;font-size:14px}.nav a.on{color:var(--primary);border-right:2px solid var(--primary)}
.sf{padding:16px 20px;border-top:1px solid var(--border);font-size:12px;display:grid;gap:6px}.sf form{display:inline}
.content{flex:1;margin-left:230px;padding:32px;max-width:1200px}h2.t{font-size:24px;font-weight:800;margin-bottom:4px}.desc{font-size:13px;color:var(--muted);margin-bottom:20px}
.card{background:var(--surface);border:1px solid var(--border);border-radius:16px;padding:20px;margin-bottom:16px}.ct{font-size:12px;color:var(--dim);text-transform:uppercase;letter-spacing:.06em;font-weight:700;margin-bottom:12px}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(260px,1fr));gap:16px}.stats{display:grid;grid-template-columns:repeat(auto-fit,minmax(140px,1fr));gap:12px}
.stat{border:1px solid var(--border);border-radius:14px;padding:14px}.stat .l{font-size:11px;color:var(--muted);text-transform:uppercase}.stat .v{font-size:30px;font-weight:800}
table{width:100%;border-collapse:collapse;font-size:13px}th{text-align:left;padding:10px;color:var(--muted);font-size:11px;text-transform:uppercase;border-bottom:1px solid var(--border)}td{padding:10px;border-bottom:1px solid var(--border);vertical-align:top}
.btn{display:inline-flex;align-items:center;gap:6px;padding:8px 14px;border-radius:10px;font-size:13px;font-weight:600;cursor:pointer;border:1px solid var(--border);background:var(--surface);color:var(--text);text-decoration:none}
.btn-p{background:var(--primary);border-color:var(--primary);color:#fff}.btn-d{color:var(--danger);border-color:var(--danger)}.btn-sm{padding:4px 10px;font-size:12px}
.input{width:100%;padding:9px 12px;background:var(--bg);border:1px solid var(--border);border-radius:10px;color:var(--text);font-size:14px}.fg{margin-bottom:12px}.fl{display:block;font-size:12px;color:var(--dim);margin-bottom:4px}
.row{display:flex;gap:10px;align-items:end;flex-wrap:wrap}.form-grid{display:grid;grid-template-columns:1fr 1fr;gap:10px}
.empty{text-align:center;padding:40px 20px;color:var(--muted)}.flash{padding:10px 14px;border-radius:10px;border:1px solid var(--accent);margin-bottom:12px;font-size:13px}.err{color:var(--danger);font-size:13px;margin:8px 0}
.pager{display:flex;gap:8px;justify-content:center;align-items:center;margin-top:16px;font-size:12px;color:var(--muted)}
.bar{display:flex;height:14px;border-radius:999px;overflow:hidden;background:var(--border)}.bar span{display:block;height:100%}
details>summary{cursor:pointer;list-style:none}details[open]{background:var(--bg);border-radius:12px;padding:10px}
@media(max-width:768px){.sidebar{width:56px}.sh h2,.nav a span,.sf{display:none}.content{margin-left:56px;padding:16px}.form-grid{grid-template-columns:1fr}}</style>`

func themeAttr(theme string) string {
	if theme == "light" || theme == "dark" {
		return fmt.Sprintf(` data-theme="%s"`, theme)
	}
	return ""
}

// NavItem renders a sidebar navigation link, marking it active if it matches the current page.
func NavItem(href, icon, label, key, page string) string {
	cls := ""
	if page == key {
		cls = "on"
	}
	return fmt.Sprintf(`<a href="%s" class="%s">%s <span>%s</span></a>`, href, cls, icon, label)
}

// Layout wraps page content in the dashboard shell with sidebar navigation.
func Layout(p Page, content string) string {
	name, nivel := "", ""
	nav := NavItem("/", "📊", "Dashboard", "dashboard", p.Key) + NavItem("/leads", "🎯", "Leads", "leads", p.Key)
	if p.User != nil {
		name = services.DisplayName(p.User, "")
		nivel = string(p.User.Nivel)
		if p.User.HasAnyRole(services.NivelAdmin, services.NivelSubAdmin) {
			nav += NavItem("/users", "👥", "Usuarios", "users", p.Key)
		}
	}

	return fmt.Sprintf(`<!DOCTYPE html><html lang="es"%s><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1.0">
<title>RIDS · Panel de Control</title>%s</head>
<body><div class="layout">
<div class="sidebar"><div class="sh"><h2><em>RIDS</em> Panel</h2></div>
<div class="nav">%s</div>
<div class="sf"><div style="color:var(--dim);font-weight:600">%s</div><div>%s</div>
<form method="POST" action="/theme">%s<button class="btn btn-sm" type="submit">🌓 Tema</button></form>
<form method="POST" action="/logout">%s<button class="btn btn-sm btn-d" type="submit">Cerrar sesión</button></form></div></div>
<div class="content">%s%s</div></div></body></html>`,
		themeAttr(p.Theme), styles, nav, Esc(name), Badge(nivel), p.CSRF, p.CSRF, Flashes(p.Flashes), content)
}

// LoginPage returns the full HTML for the login screen.
func LoginPage(theme, csrfField, next, errMsg string) string {
	errHTML := ""
	if errMsg != "" {
		errHTML = fmt.Sprintf(`<div class="err">%s</div>`, Esc(errMsg))
	}
	return fmt.Sprintf(`<!DOCTYPE html><html lang="es"%s><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1.0"><title>RIDS · Iniciar sesión</title>%s</head>
<body><div style="display:flex;align-items:center;justify-content:center;min-height:100vh"><div class="card" style="width:380px">
<h2 class="t" style="text-align:center"><em style="font-style:normal;color:var(--accent)">RIDS</em> Panel</h2><p class="desc" style="text-align:center">Inicia sesión para continuar</p>%s
<form method="POST" action="/login">%s<input type="hidden" name="next" value="%s">
<div class="fg"><label class="fl">Email</label><input class="input" type="email" name="email" required autofocus></div>
<div class="fg"><label class="fl">Contraseña</label><input class="input" type="password" name="password" required></div>
<div class="fg"><label style="font-size:13px"><input type="checkbox" name="remember" value="1"> Recordarme</label></div>
<button class="btn btn-p" style="width:100%%;justify-content:center" type="submit">Ingresar</button></form></div></div></body></html>`,
		themeAttr(theme), styles, errHTML, csrfField, Esc(next))
}

// DeniedPage is shown when the signed-in user lacks the required level.
func DeniedPage(theme string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html lang="es"%s><head><meta charset="UTF-8"><title>RIDS · Acceso denegado</title>%s</head>
<body><div class="empty" style="color:var(--danger)">Acceso denegado. No tienes permisos para ver esta sección.<br><br><a class="btn" href="/">Volver al panel</a></div></body></html>`,
		themeAttr(theme), styles)
}
