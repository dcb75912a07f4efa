package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLoggingRecordsStatus(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/leads", nil))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("nothing logged")
	}
	if entry.Level != logrus.WarnLevel || entry.Data["status"] != http.StatusBadGateway || entry.Data["path"] != "/leads" {
		t.Fatalf("unexpected entry %v %v", entry.Level, entry.Data)
	}
}

func TestRequireRoleWithoutSession(t *testing.T) {
	a := &Auth{}
	called := false
	h := a.RequireRole("ADMIN")(func(http.ResponseWriter, *http.Request) { called = true })
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	if called || rec.Code != http.StatusFound || rec.Header().Get("Location") != "/denied" {
		t.Fatalf("status %d location %q called=%v", rec.Code, rec.Header().Get("Location"), called)
	}
}
