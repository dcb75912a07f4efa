package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login authenticates against the API and signs the session in.
func (c *Client) Login(ctx context.Context, s *Session, email, password string, remember bool) error {
	resp, err := c.send(ctx, http.MethodPost, "/auth/login", "", s.APICookies(),
		loginRequest{Email: email, Password: password, Remember: remember})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.apiError("Login fallido")
	}
	var lr loginResponse
	if err := resp.decode(&lr); err != nil {
		return err
	}
	if lr.Token == "" || lr.User == nil {
		return &APIError{Status: resp.status, Message: "Login fallido"}
	}
	return s.Start(ctx, *lr.User, lr.Token, mergeCookies(s.APICookies(), resp.cookies), remember)
}

// Logout tells the API, ignoring any failure, then clears both storage areas.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	_, _ = c.send(ctx, http.MethodPost, "/auth/logout", s.Token(), s.APICookies(), nil)
	return s.Clear(ctx)
}

// Restore re-creates a signed-in session from the API refresh cookies alone:
// refresh, then /users/me with the new token. The result goes to the
// ephemeral area.
func (c *Client) Restore(ctx context.Context, s *Session) error {
	if !s.Restorable() {
		return ErrNoSession
	}
	token, cookies, err := c.Refresh(ctx, s.APICookies())
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if token == "" {
		return errors.New("restore: refresh returned no token")
	}
	me, err := c.Me(ctx, Bearer(token))
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	s.setUpstream(cookies)
	return s.Store(ctx, *me, token, false)
}
