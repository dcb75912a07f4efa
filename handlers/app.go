package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"

	"rids-dashboard/middleware"
	"rids-dashboard/services"
	"rids-dashboard/templates"
)

// App holds what the page handlers share.
type App struct {
	API      *services.Client
	Catalogs *services.CatalogCache
	Latest   *services.Latest
	Debounce time.Duration
	Log      *logrus.Logger
	Now      func() time.Time
}

func csrfField(r *http.Request) string {
	return string(csrf.TemplateField(r))
}

// page collects the layout data. It pops flashes, so it must run before
// anything is written to w.
func (a *App) page(r *http.Request, key string) templates.Page {
	s := middleware.Session(r)
	return templates.Page{
		Key:     key,
		User:    s.User,
		Theme:   theme(r),
		CSRF:    csrfField(r),
		Flashes: s.Flashes(),
	}
}

func render(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// userMessage turns err into something fit for a flash.
func (a *App) userMessage(err error, action string) string {
	var apiErr *services.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, services.ErrInvalidForm):
		return strings.TrimPrefix(err.Error(), services.ErrInvalidForm.Error()+": ")
	}
	a.Log.WithError(err).WithField("action", action).Error("upstream call failed")
	return "No se pudo completar la operación. Intenta nuevamente."
}

// safeNext only allows local paths as a post-login destination.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if strings.HasPrefix(next, "/login") {
		return "/"
	}
	return next
}

// returnTo rebuilds a list URL from the "return" field of a form.
func returnTo(path string, r *http.Request) string {
	v, err := url.ParseQuery(r.FormValue("return"))
	if err != nil {
		return path
	}
	return path + "?" + services.ParseListParams(v).Values().Encode()
}
