package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	if v, err := s.Get(ctx, "sid", "user"); err != nil || v != "" {
		t.Fatalf("missing key = %q, %v", v, err)
	}
	if err := s.Set(ctx, "sid", "user", `{"id":1}`); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := s.Set(ctx, "sid", "accessToken", "tok"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if v, _ := s.Get(ctx, "sid", "user"); v != `{"id":1}` {
		t.Fatalf("Get() = %q", v)
	}
	if v, _ := s.Get(ctx, "other", "user"); v != "" {
		t.Fatalf("sessions leak: %q", v)
	}
	if err := s.Delete(ctx, "sid", "user", "accessToken"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if v, _ := s.Get(ctx, "sid", "accessToken"); v != "" {
		t.Fatalf("deleted key still readable: %q", v)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t)
	exerciseStore(t, s)
}

func TestRedisStoreExpires(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, "sid", "user", "x"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if ttl := mr.TTL(redisKey("sid")); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if v, _ := s.Get(ctx, "sid", "user"); v != "" {
		t.Fatalf("expired value still readable: %q", v)
	}
}
