package services

import (
	"errors"
	"testing"
)

func TestParseNivel(t *testing.T) {
	cases := map[string]Nivel{"admin": NivelAdmin, " sub_admin ": NivelSubAdmin, "USER": NivelUser, "root": NivelUser, "": NivelUser}
	for in, want := range cases {
		if got := ParseNivel(in); got != want {
			t.Fatalf("ParseNivel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewUserValidate(t *testing.T) {
	admin := User{Nivel: NivelAdmin}
	sub := User{Nivel: NivelSubAdmin}
	good := NewUser{NombreUsuario: " Ana ", Email: " Ana@RIDS.cl ", Password: "secreto", Nivel: NivelSubAdmin}

	v, err := good.Validate(admin)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if v.NombreUsuario != "Ana" || v.Email != "ana@rids.cl" {
		t.Fatalf("input not normalized: %+v", v)
	}
	if _, err := good.Validate(sub); !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("SUB_ADMIN created a SUB_ADMIN: %v", err)
	}

	bad := []NewUser{
		{NombreUsuario: "A", Email: "a@b.cl", Password: "secreto", Nivel: NivelUser},
		{NombreUsuario: "Ana", Email: "ana@rids", Password: "secreto", Nivel: NivelUser},
		{NombreUsuario: "Ana", Email: "a@b.cl", Password: "12345", Nivel: NivelUser},
	}
	for _, n := range bad {
		if _, err := n.Validate(admin); !errors.Is(err, ErrInvalidForm) {
			t.Fatalf("Validate(%+v) accepted invalid input", n)
		}
	}
}

func TestCreatableNiveles(t *testing.T) {
	if got := (User{Nivel: NivelAdmin}).CreatableNiveles(); len(got) != 3 || got[len(got)-1] != NivelUser {
		t.Fatalf("admin levels = %v", got)
	}
	if got := (User{Nivel: NivelSubAdmin}).CreatableNiveles(); len(got) != 1 || got[0] != NivelUser {
		t.Fatalf("sub-admin levels = %v", got)
	}
}

func TestFilterUsers(t *testing.T) {
	users := []User{
		{ID: 12, Email: "ana@rids.cl", NombreUsuario: "Ana", Nivel: NivelAdmin},
		{ID: 30, Email: "luis@rids.cl", NombreUsuario: "Luis", Nivel: NivelUser},
	}
	cases := map[string]int{"": 2, "ANA": 1, "user": 1, "3": 1, "rids": 2, "zzz": 0}
	for q, want := range cases {
		if got := FilterUsers(users, q); len(got) != want {
			t.Fatalf("FilterUsers(%q) = %d users, want %d", q, len(got), want)
		}
	}
}
