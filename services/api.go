package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Credentials supplies the bearer token and API cookies for a call and
// receives the replacements issued by /auth/refresh.
type Credentials interface {
	Token() string
	APICookies() []*http.Cookie
	Refreshed(ctx context.Context, token string, cookies []*http.Cookie) error
}

// Bearer is a fixed token with no cookie jar; refreshed tokens are kept in
// memory only.
type Bearer string

func (b Bearer) Token() string              { return string(b) }
func (b Bearer) APICookies() []*http.Cookie { return nil }
func (b Bearer) Refreshed(context.Context, string, []*http.Cookie) error {
	return nil
}

// Request describes one call against the API.
type Request struct {
	Path       string
	Method     string
	Body       interface{}
	RetryOn401 bool
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the remote REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// refreshes collapses concurrent /auth/refresh calls made with the same
	// stale token and refresh cookies into one.
	refreshes singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type response struct {
	status  int
	body    []byte
	cookies []*http.Cookie
}

func (c *Client) send(ctx context.Context, method, path, token string, cookies []*http.Cookie, body interface{}) (*response, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	return &response{status: resp.StatusCode, body: b, cookies: resp.Cookies()}, nil
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) decode(out interface{}) error {
	if out == nil || len(bytes.TrimSpace(r.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		msg := strings.TrimSpace(string(r.body))
		if msg == "" {
			msg = "Respuesta inválida"
		}
		return &APIError{Status: r.status, Message: msg}
	}
	return nil
}

// apiError builds the message shown to the user: a JSON "error", then
// "message", then "raw", then the raw text, then fallback.
func (r *response) apiError(fallback string) *APIError {
	if fallback == "" {
		fallback = fmt.Sprintf("Error %d", r.status)
	}
	return &APIError{Status: r.status, Message: ErrorMessage(r.body, fallback)}
}

// ErrorMessage extracts a user-facing message from an error response body.
func ErrorMessage(body []byte, fallback string) string {
	text := strings.TrimSpace(string(body))
	var j map[string]interface{}
	if err := json.Unmarshal(body, &j); err == nil {
		for _, k := range []string{"error", "message", "raw"} {
			if s, ok := j[k].(string); ok && s != "" {
				return s
			}
		}
	}
	if text != "" {
		return text
	}
	return fallback
}

// Do issues req with creds and decodes a 2xx JSON answer into out. A 401 on
// a request with RetryOn401 triggers one /auth/refresh, shared with the
// concurrent calls of the same credentials, and a single retry with retries
// disabled.
func (c *Client) Do(ctx context.Context, creds Credentials, req Request, out interface{}) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var token string
	var cookies []*http.Cookie
	if creds != nil {
		token, cookies = creds.Token(), creds.APICookies()
	}

	resp, err := c.send(ctx, method, req.Path, token, cookies, req.Body)
	if err != nil {
		return err
	}
	if resp.ok() {
		return resp.decode(out)
	}

	if resp.status == http.StatusUnauthorized && req.RetryOn401 && creds != nil {
		err := c.refreshOnce(ctx, creds, token, cookies)
		switch {
		case err == nil:
			retry := req
			retry.RetryOn401 = false
			return c.Do(ctx, creds, retry, out)
		case errors.Is(err, errStoreRefreshed):
			return err
		}
	}
	return resp.apiError("")
}

var errStoreRefreshed = errors.New("store refreshed token")

type refreshed struct {
	token   string
	cookies []*http.Cookie
}

// refreshOnce renews creds after a 401 on a call sent with token and
// cookies. Calls that got their 401 with the same token and cookies share a
// single /auth/refresh, since the API rotates the refresh cookie and only
// the first use of it succeeds. A call whose creds already moved past the
// token it sent just retries.
func (c *Client) refreshOnce(ctx context.Context, creds Credentials, token string, cookies []*http.Cookie) error {
	if cur := creds.Token(); cur != "" && cur != token {
		return nil
	}
	// A sibling failing must not abandon a refresh the API already rotated.
	detached := context.WithoutCancel(ctx)
	v, err, _ := c.refreshes.Do(token+"|"+encodeCookies(cookies), func() (interface{}, error) {
		if cur := creds.Token(); cur != "" && cur != token {
			return refreshed{token: cur, cookies: creds.APICookies()}, nil
		}
		newToken, newCookies, err := c.Refresh(detached, cookies)
		if err != nil {
			return nil, err
		}
		if err := creds.Refreshed(detached, newToken, newCookies); err != nil {
			return nil, fmt.Errorf("%w: %v", errStoreRefreshed, err)
		}
		return refreshed{token: newToken, cookies: newCookies}, nil
	})
	if err != nil {
		return err
	}
	r := v.(refreshed)
	if r.token != "" && creds.Token() != r.token {
		if err := creds.Refreshed(ctx, r.token, r.cookies); err != nil {
			return fmt.Errorf("%w: %v", errStoreRefreshed, err)
		}
	}
	return nil
}

type refreshResponse struct {
	Token string `json:"token"`
}

// Refresh asks the API for a new access token using its refresh cookies.
// token is empty when the API answered 2xx without one.
func (c *Client) Refresh(ctx context.Context, cookies []*http.Cookie) (string, []*http.Cookie, error) {
	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", "", cookies, nil)
	if err != nil {
		return "", nil, err
	}
	if !resp.ok() {
		return "", nil, resp.apiError("")
	}
	var rr refreshResponse
	if err := resp.decode(&rr); err != nil {
		return "", nil, err
	}
	return rr.Token, mergeCookies(cookies, resp.cookies), nil
}

// mergeCookies overlays fresh Set-Cookie values on the current jar. Expired
// cookies are dropped.
func mergeCookies(current, fresh []*http.Cookie) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	var order []string
	for _, ck := range append(append([]*http.Cookie{}, current...), fresh...) {
		if _, seen := byName[ck.Name]; !seen {
			order = append(order, ck.Name)
		}
		byName[ck.Name] = ck
	}
	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		ck := byName[name]
		if ck.MaxAge < 0 || ck.Value == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}
