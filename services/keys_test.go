package services

import (
	"bytes"
	"testing"
)

func TestDeriveKeys(t *testing.T) {
	a, err := DeriveKeys("s3cret")
	if err != nil {
		t.Fatalf("DeriveKeys() failed: %v", err)
	}
	if len(a.CookieHash) != 64 || len(a.CookieBlock) != 32 || len(a.CSRF) != 32 {
		t.Fatalf("unexpected key sizes %d/%d/%d", len(a.CookieHash), len(a.CookieBlock), len(a.CSRF))
	}
	if bytes.Equal(a.CookieBlock, a.CSRF) {
		t.Fatalf("keys are not independent")
	}
	b, _ := DeriveKeys("s3cret")
	if !bytes.Equal(a.CookieHash, b.CookieHash) {
		t.Fatalf("derivation is not deterministic")
	}
	c, _ := DeriveKeys("other")
	if bytes.Equal(a.CookieHash, c.CookieHash) {
		t.Fatalf("different secrets gave the same key")
	}
}
