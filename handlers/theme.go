package handlers

import "net/http"

const themeCookie = "theme"

// theme is the stored preference, "" when none was chosen yet.
func theme(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil {
		return c.Value
	}
	return ""
}

// HandleTheme flips between light and dark and returns to the page it was
// posted from.
func (a *App) HandleTheme(w http.ResponseWriter, r *http.Request) {
	next := "light"
	if theme(r) != "dark" {
		next = "dark"
	}
	http.SetCookie(w, &http.Cookie{Name: themeCookie, Value: next, Path: "/", MaxAge: 365 * 24 * 3600, SameSite: http.SameSiteLaxMode})
	back := "/"
	if ref := r.Referer(); ref != "" {
		if u, err := r.URL.Parse(ref); err == nil && u.Host == r.Host {
			back = safeNext(u.RequestURI())
		}
	}
	http.Redirect(w, r, back, http.StatusFound)
}
