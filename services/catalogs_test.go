package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// rotatingAPI issues a new token and refresh cookie on each successful
// refresh and accepts every refresh cookie only once. Requests carrying a
// token it did not issue are held until stale of them arrived, then all of
// them get 401 together.
type rotatingAPI struct {
	stale     int
	refreshes int32

	mu      sync.Mutex
	cookie  string
	token   string
	waiting int
	release chan struct{}
}

func newRotatingAPI(t *testing.T, stale int) (*rotatingAPI, string) {
	t.Helper()
	api := &rotatingAPI{stale: stale, cookie: "r1", release: make(chan struct{})}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv.URL
}

func (api *rotatingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/auth/refresh" {
		n := atomic.AddInt32(&api.refreshes, 1)
		api.mu.Lock()
		defer api.mu.Unlock()
		if c, err := r.Cookie("rt"); err != nil || c.Value != api.cookie {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Refresh inválido"}`))
			return
		}
		api.cookie = fmt.Sprintf("r%d", n+1)
		api.token = fmt.Sprintf("t%d", n)
		http.SetCookie(w, &http.Cookie{Name: "rt", Value: api.cookie})
		fmt.Fprintf(w, `{"token":%q}`, api.token)
		return
	}

	api.mu.Lock()
	valid := api.token != "" && r.Header.Get("Authorization") == "Bearer "+api.token
	if !valid {
		api.waiting++
		if api.waiting == api.stale {
			close(api.release)
		}
	}
	api.mu.Unlock()
	if !valid {
		select {
		case <-api.release:
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Token expirado"}`))
		return
	}
	w.Write([]byte(`{}`))
}

func staleSession(t *testing.T) *Session {
	t.Helper()
	m, _, _ := newTestManager(t)
	s, _ := loadSession(t, m, nil)
	if err := s.Start(context.Background(), testUser, "stale", []*http.Cookie{{Name: "rt", Value: "r1"}}, false); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	return s
}

func checkRefreshedOnce(t *testing.T, api *rotatingAPI, s *Session) {
	t.Helper()
	if n := atomic.LoadInt32(&api.refreshes); n != 1 {
		t.Fatalf("refresh calls = %d, want 1", n)
	}
	if s.Token() != "t1" {
		t.Fatalf("token = %q, want t1", s.Token())
	}
	if ck := s.APICookies(); len(ck) != 1 || ck[0].Value != "r2" {
		t.Fatalf("refresh cookie not rotated: %v", ck)
	}
}

func TestLoadCatalogsSharesOneRefresh(t *testing.T) {
	api, url := newRotatingAPI(t, 6)
	s := staleSession(t)
	if _, err := NewClient(url, 5*time.Second).LoadCatalogs(context.Background(), s); err != nil {
		t.Fatalf("LoadCatalogs() failed: %v", err)
	}
	checkRefreshedOnce(t, api, s)
}

func TestLoadOverviewSharesOneRefresh(t *testing.T) {
	api, url := newRotatingAPI(t, 7)
	s := staleSession(t)
	if _, err := NewClient(url, 5*time.Second).LoadOverview(context.Background(), s, time.Now()); err != nil {
		t.Fatalf("LoadOverview() failed: %v", err)
	}
	checkRefreshedOnce(t, api, s)
}

func TestLateUnauthorizedReusesRefresh(t *testing.T) {
	api, url := newRotatingAPI(t, 1)
	s := staleSession(t)
	c := NewClient(url, 5*time.Second)
	ctx := context.Background()
	if err := c.Do(ctx, s, Request{Path: "/marcas", RetryOn401: true}, nil); err != nil {
		t.Fatalf("first Do() failed: %v", err)
	}
	// a call sent with the old token whose 401 arrives after the refresh
	if err := c.refreshOnce(ctx, s, "stale", []*http.Cookie{{Name: "rt", Value: "r1"}}); err != nil {
		t.Fatalf("refreshOnce() failed: %v", err)
	}
	checkRefreshedOnce(t, api, s)
}

func TestCatalogCache(t *testing.T) {
	var marcas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/marcas" {
			atomic.AddInt32(&marcas, 1)
			w.Write([]byte(`{"marcas":[{"id":1,"nombre":"Toyota"}]}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	cc := NewCatalogCache(NewClient(srv.URL, time.Second), time.Minute)
	cc.Now = func() time.Time { return now }
	ctx := context.Background()

	get := func(want int32) {
		t.Helper()
		cat, err := cc.Get(ctx, "sid", Bearer("t"))
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if len(cat.Marcas) != 1 || cat.Marcas[0].Nombre != "Toyota" {
			t.Fatalf("unexpected catalogs %+v", cat)
		}
		if n := atomic.LoadInt32(&marcas); n != want {
			t.Fatalf("/marcas fetched %d times, want %d", n, want)
		}
	}
	get(1)
	get(1)
	now = now.Add(2 * time.Minute)
	get(2)
	if _, err := cc.Reload(ctx, "sid", Bearer("t")); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	get(3)
	cc.Forget("sid")
	get(4)
}
