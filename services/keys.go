package services

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Keys are the secrets derived from SESSION_SECRET.
type Keys struct {
	CookieHash  []byte
	CookieBlock []byte
	CSRF        []byte
}

func derive(secret []byte, info string, n int) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, nil, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeriveKeys expands one secret into independent keys for cookie signing,
// cookie encryption (AES-256) and CSRF tokens using HKDF-SHA256.
func DeriveKeys(secret string) (*Keys, error) {
	var k Keys
	var err error
	if k.CookieHash, err = derive([]byte(secret), "rids-cookie-hash", 64); err != nil {
		return nil, err
	}
	if k.CookieBlock, err = derive([]byte(secret), "rids-cookie-block", 32); err != nil {
		return nil, err
	}
	if k.CSRF, err = derive([]byte(secret), "rids-csrf", 32); err != nil {
		return nil, err
	}
	return &k, nil
}
