package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Catalogs are the lookup lists shown in the lead forms.
type Catalogs struct {
	Marcas     []Catalog
	Categorias []Catalog
	Tipos      []Catalog
	Estados    []Catalog
	Segmentos  []Catalog
	Comunas    []Catalog
}

type catalogSource struct {
	path  string
	field string
	dest  *[]Catalog
}

// LoadCatalogs fetches every catalog concurrently. The first failure cancels
// the rest.
func (c *Client) LoadCatalogs(ctx context.Context, creds Credentials) (*Catalogs, error) {
	var cat Catalogs
	sources := []catalogSource{
		{"/marcas", "marcas", &cat.Marcas},
		{"/categorias", "categorias", &cat.Categorias},
		{"/tipo-cliente", "tiposCliente", &cat.Tipos},
		{"/estados", "estados", &cat.Estados},
		{"/segmentacion", "segmentaciones", &cat.Segmentos},
		{"/comunas?limit=2000", "comunas", &cat.Comunas},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			var res map[string][]Catalog
			if err := c.Do(ctx, creds, Request{Path: src.path, RetryOn401: true}, &res); err != nil {
				return fmt.Errorf("%s: %w", src.path, err)
			}
			*src.dest = res[src.field]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Summary counts each catalog for the dashboard.
func (cat *Catalogs) Summary() map[string]int {
	return map[string]int{
		"marcas":       len(cat.Marcas),
		"comunas":      len(cat.Comunas),
		"categorias":   len(cat.Categorias),
		"estados":      len(cat.Estados),
		"tipo_cliente": len(cat.Tipos),
		"segmentacion": len(cat.Segmentos),
	}
}

// CatalogCache keeps the catalogs of each session for a while, so the live
// search fragment only has to fetch the lead list.
type CatalogCache struct {
	API *Client
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]catalogEntry
	loads   singleflight.Group
}

type catalogEntry struct {
	cat     *Catalogs
	expires time.Time
}

func NewCatalogCache(api *Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{API: api, TTL: ttl, entries: map[string]catalogEntry{}}
}

func (cc *CatalogCache) now() time.Time {
	if cc.Now != nil {
		return cc.Now()
	}
	return time.Now()
}

// Get returns the catalogs cached under key, loading them when missing or
// expired.
func (cc *CatalogCache) Get(ctx context.Context, key string, creds Credentials) (*Catalogs, error) {
	cc.mu.Lock()
	e, ok := cc.entries[key]
	cc.mu.Unlock()
	if ok && cc.now().Before(e.expires) {
		return e.cat, nil
	}
	return cc.Reload(ctx, key, creds)
}

// Reload fetches the catalogs and replaces whatever is cached under key.
// Concurrent reloads of one key share a single fetch.
func (cc *CatalogCache) Reload(ctx context.Context, key string, creds Credentials) (*Catalogs, error) {
	v, err, _ := cc.loads.Do(key, func() (interface{}, error) {
		cat, err := cc.API.LoadCatalogs(ctx, creds)
		if err != nil {
			return nil, err
		}
		now := cc.now()
		cc.mu.Lock()
		defer cc.mu.Unlock()
		for k, e := range cc.entries {
			if !now.Before(e.expires) {
				delete(cc.entries, k)
			}
		}
		cc.entries[key] = catalogEntry{cat: cat, expires: now.Add(cc.TTL)}
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalogs), nil
}

// Forget drops the entry for key.
func (cc *CatalogCache) Forget(key string) {
	cc.mu.Lock()
	delete(cc.entries, key)
	cc.mu.Unlock()
}
