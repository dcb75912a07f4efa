package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeCreds struct {
	token     string
	cookies   []*http.Cookie
	refreshed int
}

func (f *fakeCreds) Token() string              { return f.token }
func (f *fakeCreds) APICookies() []*http.Cookie { return f.cookies }
func (f *fakeCreds) Refreshed(_ context.Context, token string, cookies []*http.Cookie) error {
	f.refreshed++
	f.token, f.cookies = token, cookies
	return nil
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	var refreshes, calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshes, 1)
			if c, err := r.Cookie("rt"); err != nil || c.Value != "r1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "rt", Value: "r2"})
			w.Write([]byte(`{"token":"fresh"}`))
		case "/users/me":
			atomic.AddInt32(&calls, 1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"user":{"id":7,"email":"a@b.cl","nivel":"admin"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	creds := &fakeCreds{token: "stale", cookies: []*http.Cookie{{Name: "rt", Value: "r1"}}}
	var res userResponse
	if err := c.Do(context.Background(), creds, Request{Path: "/users/me", RetryOn401: true}, &res); err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if n, m := atomic.LoadInt32(&refreshes), atomic.LoadInt32(&calls); n != 1 || m != 2 {
		t.Fatalf("refreshes=%d calls=%d, want 1 and 2", n, m)
	}
	if creds.refreshed != 1 || creds.token != "fresh" {
		t.Fatalf("credentials not updated: %+v", creds)
	}
	if len(creds.cookies) != 1 || creds.cookies[0].Value != "r2" {
		t.Fatalf("refresh cookie not rotated: %v", creds.cookies)
	}
	if res.User == nil || res.User.ID != 7 {
		t.Fatalf("unexpected user %+v", res.User)
	}
}

func TestDoSecond401IsFinal(t *testing.T) {
	var refreshes, calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			atomic.AddInt32(&refreshes, 1)
			w.Write([]byte(`{"token":"fresh"}`))
			return
		}
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Token inválido"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Do(context.Background(), &fakeCreds{token: "x"}, Request{Path: "/leads", RetryOn401: true}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Token inválido" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if n, m := atomic.LoadInt32(&refreshes), atomic.LoadInt32(&calls); n != 1 || m != 2 {
		t.Fatalf("refreshes=%d calls=%d, want 1 and 2", n, m)
	}
}

func TestDoWithoutRetryDoesNotRefresh(t *testing.T) {
	var refreshes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			atomic.AddInt32(&refreshes, 1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Do(context.Background(), &fakeCreds{token: "x"}, Request{Path: "/users/me"}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Error 401" {
		t.Fatalf("unexpected error %v", err)
	}
	if n := atomic.LoadInt32(&refreshes); n != 0 {
		t.Fatalf("refresh called %d times", n)
	}
}

func TestDoSendsJSONAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Cache-Control") != "no-store" {
			t.Errorf("missing no-store")
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out map[string]bool
	c := NewClient(srv.URL+"/", time.Second)
	if err := c.Do(context.Background(), Bearer("t"), Request{Path: "/leads/1", Method: http.MethodPatch, Body: map[string]string{"a": "b"}}, &out); err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if !out["ok"] {
		t.Fatalf("body not decoded: %v", out)
	}
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		body, want string
	}{
		{`{"error":"uno","message":"dos"}`, "uno"},
		{`{"message":"dos"}`, "dos"},
		{`{"raw":"tres"}`, "tres"},
		{`Bad Gateway`, "Bad Gateway"},
		{``, "Error 502"},
	}
	for _, tc := range cases {
		if got := ErrorMessage([]byte(tc.body), "Error 502"); got != tc.want {
			t.Fatalf("ErrorMessage(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}

func TestMergeCookiesDropsExpired(t *testing.T) {
	got := mergeCookies(
		[]*http.Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}},
		[]*http.Cookie{{Name: "a", Value: "3"}, {Name: "b", MaxAge: -1}},
	)
	if len(got) != 1 || got[0].Name != "a" || got[0].Value != "3" {
		t.Fatalf("unexpected merge %v", got)
	}
}
