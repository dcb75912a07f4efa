package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	cookieName  = "rids_session"
	RememberFor = 30 * 24 * time.Hour

	keySID      = "sid"
	keyRemember = "remember"
	keyUpstream = "upstream"

	userKey = "user"
)

// tokenKeys are written together; reads take the first one found.
var tokenKeys = []string{"accessToken", "auth_token"}

var ErrNoSession = errors.New("no session")

// SessionManager mirrors the signed-in user and token into one of two
// storage areas: persistent for "remember me", ephemeral otherwise. Reads
// check both.
type SessionManager struct {
	cookies    sessions.Store
	persistent Store
	ephemeral  Store
	secure     bool
}

func NewSessionManager(cookies sessions.Store, persistent, ephemeral Store, secure bool) *SessionManager {
	return &SessionManager{cookies: cookies, persistent: persistent, ephemeral: ephemeral, secure: secure}
}

// Session is the per-request view of the signed-in user. It implements
// Credentials so it can be handed straight to the API client.
type Session struct {
	ID       string
	Remember bool
	User     *User

	mu       sync.Mutex
	token    string
	upstream []*http.Cookie

	m   *SessionManager
	raw *sessions.Session
	w   http.ResponseWriter
	r   *http.Request
}

// Load reads the session cookie and both storage areas. A missing or
// undecodable cookie yields an anonymous session.
func (m *SessionManager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	raw, err := m.cookies.Get(r, cookieName)
	if err != nil {
		// securecookie rejects tampered or stale cookies; start over
		raw, err = m.cookies.New(r, cookieName)
		if raw == nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
	}
	s := &Session{m: m, raw: raw, w: w, r: r}
	s.ID, _ = raw.Values[keySID].(string)
	s.Remember, _ = raw.Values[keyRemember].(bool)
	if enc, ok := raw.Values[keyUpstream].(string); ok && enc != "" {
		s.upstream = decodeCookies(enc)
	}
	if s.ID == "" {
		return s, nil
	}

	ctx := r.Context()
	for _, k := range tokenKeys {
		v, err := m.readBoth(ctx, s.ID, k)
		if err != nil {
			return nil, err
		}
		if v != "" {
			s.token = v
			break
		}
	}
	rawUser, err := m.readBoth(ctx, s.ID, userKey)
	if err != nil {
		return nil, err
	}
	if rawUser != "" {
		var u User
		if err := json.Unmarshal([]byte(rawUser), &u); err == nil {
			nu := u.Normalize()
			s.User = &nu
		}
	}
	return s, nil
}

func (m *SessionManager) readBoth(ctx context.Context, sid, key string) (string, error) {
	v, err := m.persistent.Get(ctx, sid, key)
	if err != nil {
		return "", fmt.Errorf("persistent store: %w", err)
	}
	if v != "" {
		return v, nil
	}
	v, err = m.ephemeral.Get(ctx, sid, key)
	if err != nil {
		return "", fmt.Errorf("ephemeral store: %w", err)
	}
	return v, nil
}

func (m *SessionManager) area(remember bool) (Store, Store) {
	if remember {
		return m.persistent, m.ephemeral
	}
	return m.ephemeral, m.persistent
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) APICookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upstream
}

func (s *Session) setUpstream(cookies []*http.Cookie) {
	s.mu.Lock()
	s.upstream = cookies
	s.mu.Unlock()
}

// Authenticated reports whether a token is stored for this session.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Restorable reports whether the browser still holds API refresh cookies
// even though no token is stored.
func (s *Session) Restorable() bool {
	return !s.Authenticated() && len(s.APICookies()) > 0
}

// Start signs the browser in: a fresh session id, the user and token in the
// area chosen by remember, and the API cookies in the session cookie.
func (s *Session) Start(ctx context.Context, u User, token string, upstream []*http.Cookie, remember bool) error {
	if s.ID != "" {
		if err := s.clearAreas(ctx); err != nil {
			return err
		}
	}
	s.ID = uuid.NewString()
	s.setUpstream(upstream)
	return s.Store(ctx, u, token, remember)
}

// Store writes the normalized user and token into one area and removes them
// from the other, then saves the cookie.
func (s *Session) Store(ctx context.Context, u User, token string, remember bool) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	nu := u.Normalize()
	b, err := json.Marshal(nu)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	into, other := s.m.area(remember)
	for _, k := range tokenKeys {
		if err := into.Set(ctx, s.ID, k, token); err != nil {
			return err
		}
	}
	if err := into.Set(ctx, s.ID, userKey, string(b)); err != nil {
		return err
	}
	if err := other.Delete(ctx, s.ID, append([]string{userKey}, tokenKeys...)...); err != nil {
		return err
	}
	s.mu.Lock()
	s.User, s.token, s.Remember = &nu, token, remember
	s.mu.Unlock()
	return s.save()
}

// Refreshed stores a token issued by /auth/refresh in the authoritative area.
func (s *Session) Refreshed(ctx context.Context, token string, cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cookies != nil {
		s.upstream = cookies
	}
	if token != "" {
		into, _ := s.m.area(s.Remember)
		for _, k := range tokenKeys {
			if err := into.Set(ctx, s.ID, k, token); err != nil {
				return err
			}
		}
		s.token = token
	}
	return s.save()
}

// Clear empties both areas and expires the cookie.
func (s *Session) Clear(ctx context.Context) error {
	err := s.clearAreas(ctx)
	s.mu.Lock()
	s.User, s.token, s.upstream = nil, "", nil
	s.mu.Unlock()
	s.raw.Values = map[interface{}]interface{}{}
	s.raw.Options = s.options(-1)
	if serr := s.raw.Save(s.r, s.w); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (s *Session) clearAreas(ctx context.Context) error {
	if s.ID == "" {
		return nil
	}
	keys := append([]string{userKey}, tokenKeys...)
	perr := s.m.persistent.Delete(ctx, s.ID, keys...)
	eerr := s.m.ephemeral.Delete(ctx, s.ID, keys...)
	return errors.Join(perr, eerr)
}

// AddFlash queues a one-shot message for the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.raw.AddFlash(msg)
	_ = s.save()
}

// Flashes pops the queued messages.
func (s *Session) Flashes() []string {
	fl := s.raw.Flashes()
	if len(fl) == 0 {
		return nil
	}
	out := make([]string, 0, len(fl))
	for _, f := range fl {
		if m, ok := f.(string); ok {
			out = append(out, m)
		}
	}
	_ = s.save()
	return out
}

func (s *Session) options(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Session) save() error {
	s.raw.Values[keySID] = s.ID
	s.raw.Values[keyRemember] = s.Remember
	s.raw.Values[keyUpstream] = encodeCookies(s.upstream)
	maxAge := 0
	if s.Remember {
		maxAge = int(RememberFor / time.Second)
	}
	s.raw.Options = s.options(maxAge)
	if err := s.raw.Save(s.r, s.w); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

func encodeCookies(cookies []*http.Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	m := make(map[string]string, len(cookies))
	for _, ck := range cookies {
		m[ck.Name] = ck.Value
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func decodeCookies(enc string) []*http.Cookie {
	var m map[string]string
	if err := json.Unmarshal([]byte(enc), &m); err != nil {
		return nil
	}
	out := make([]*http.Cookie, 0, len(m))
	for name, v := range m {
		out = append(out, &http.Cookie{Name: name, Value: v})
	}
	return out
}
