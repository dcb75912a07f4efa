package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// Nivel is a user's access level.
type Nivel string

const (
	NivelAdmin    Nivel = "ADMIN"
	NivelSubAdmin Nivel = "SUB_ADMIN"
	NivelUser     Nivel = "USER"
)

// ParseNivel upper-cases v and falls back to USER for anything unknown.
func ParseNivel(v string) Nivel {
	switch n := Nivel(strings.ToUpper(strings.TrimSpace(v))); n {
	case NivelAdmin, NivelSubAdmin, NivelUser:
		return n
	}
	return NivelUser
}

func IsNivel(v string) bool {
	switch Nivel(v) {
	case NivelAdmin, NivelSubAdmin, NivelUser:
		return true
	}
	return false
}

type User struct {
	ID            int    `json:"id"`
	Email         string `json:"email"`
	NombreUsuario string `json:"nombreUsuario"`
	Nivel         Nivel  `json:"nivel"`
	IsAdmin       *bool  `json:"isAdmin,omitempty"`
	Status        *bool  `json:"status,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	Exp           int64  `json:"exp,omitempty"`
}

// Normalize returns a copy with a valid Nivel and an explicit IsAdmin.
func (u User) Normalize() User {
	u.Nivel = ParseNivel(string(u.Nivel))
	if u.IsAdmin == nil {
		admin := u.Nivel == NivelAdmin
		u.IsAdmin = &admin
	}
	return u
}

func (u User) HasAnyRole(roles ...Nivel) bool {
	for _, r := range roles {
		if u.Nivel == r {
			return true
		}
	}
	return false
}

func (u User) Active() bool {
	return u.Status == nil || *u.Status
}

// CreatableNiveles lists the levels u may assign to a new user. The last
// entry is the form default.
func (u User) CreatableNiveles() []Nivel {
	if u.Nivel == NivelAdmin {
		return []Nivel{NivelAdmin, NivelSubAdmin, NivelUser}
	}
	return []Nivel{NivelUser}
}

// FilterUsers keeps users whose id, name, email or level contains q.
func FilterUsers(users []User, q string) []User {
	term := strings.ToLower(strings.TrimSpace(q))
	if term == "" {
		return users
	}
	var out []User
	for _, u := range users {
		if strings.Contains(strconv.Itoa(u.ID), term) ||
			strings.Contains(strings.ToLower(u.NombreUsuario), term) ||
			strings.Contains(strings.ToLower(u.Email), term) ||
			strings.Contains(strings.ToLower(string(u.Nivel)), term) {
			out = append(out, u)
		}
	}
	return out
}

type NewUser struct {
	NombreUsuario string `json:"nombreUsuario"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Nivel         Nivel  `json:"nivel"`
}

var (
	ErrInvalidForm = errors.New("invalid form")
	errIncomplete  = errors.New("Respuesta del servidor incompleta.")
	emailPattern   = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// Validate trims and lower-cases the input and checks it against what the
// creator is allowed to do.
func (n NewUser) Validate(creator User) (NewUser, error) {
	n.NombreUsuario = strings.TrimSpace(n.NombreUsuario)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	switch {
	case len([]rune(n.NombreUsuario)) < 2:
		return n, fmt.Errorf("%w: el nombre debe tener al menos 2 caracteres", ErrInvalidForm)
	case !emailPattern.MatchString(n.Email):
		return n, fmt.Errorf("%w: email inválido", ErrInvalidForm)
	case len([]rune(strings.TrimSpace(n.Password))) < 6:
		return n, fmt.Errorf("%w: la contraseña debe tener al menos 6 caracteres", ErrInvalidForm)
	}
	allowed := false
	for _, lv := range creator.CreatableNiveles() {
		if n.Nivel == lv {
			allowed = true
		}
	}
	if !allowed {
		return n, fmt.Errorf("%w: no puedes crear usuarios con nivel %s", ErrInvalidForm, n.Nivel)
	}
	return n, nil
}

type usersResponse struct {
	Users []User `json:"users"`
}

type userResponse struct {
	User *User `json:"user"`
}

func (c *Client) ListUsers(ctx context.Context, creds Credentials) ([]User, error) {
	var res usersResponse
	if err := c.Do(ctx, creds, Request{Path: "/users", RetryOn401: true}, &res); err != nil {
		return nil, err
	}
	return res.Users, nil
}

func (c *Client) CreateUser(ctx context.Context, creds Credentials, n NewUser) (*User, error) {
	var res userResponse
	err := c.Do(ctx, creds, Request{Path: "/users", Method: http.MethodPost, Body: n, RetryOn401: true}, &res)
	if err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, errIncomplete
	}
	return res.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, creds Credentials, id int) error {
	return c.Do(ctx, creds, Request{Path: fmt.Sprintf("/users/%d", id), Method: http.MethodDelete, RetryOn401: true}, nil)
}

func (c *Client) Me(ctx context.Context, creds Credentials) (*User, error) {
	var res userResponse
	if err := c.Do(ctx, creds, Request{Path: "/users/me"}, &res); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, errIncomplete
	}
	return res.User, nil
}
