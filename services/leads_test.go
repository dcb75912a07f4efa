package services

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleLead() Lead {
	email := "ana@cliente.cl"
	fecha := "2024-03-01T12:30:00.000Z"
	return Lead{
		ID:            3,
		CodigoCliente: "CLI-1234",
		NombreCliente: "Ana",
		Email:         &email,
		Marca:         &Catalog{ID: 1, Nombre: "Toyota"},
		Estado:        &Catalog{ID: 2, Nombre: "Pendiente"},
		MontoCotizado: "1500000",
		FechaIngreso:  &fecha,
	}
}

func TestDiffLeadUnchangedIsEmpty(t *testing.T) {
	l := sampleLead()
	if d := DiffLead(l, FormFromLead(l)); len(d) != 0 {
		t.Fatalf("want empty diff, got %v", d)
	}
	f := FormFromLead(l)
	f.NombreCliente = "  Ana "
	if d := DiffLead(l, f); len(d) != 0 {
		t.Fatalf("whitespace-only edit produced %v", d)
	}
}

func TestDiffLeadNullsEmptiedOptionals(t *testing.T) {
	l := sampleLead()
	f := FormFromLead(l)
	f.Email = ""
	f.MarcaNombre = ""
	f.EstadoNombre = "Negociación"
	d := DiffLead(l, f)
	if len(d) != 3 {
		t.Fatalf("unexpected diff %v", d)
	}
	if v, ok := d["email"]; !ok || v != nil {
		t.Fatalf("email should be null, got %v", v)
	}
	if v, ok := d["marcaNombre"]; !ok || v != nil {
		t.Fatalf("marcaNombre should be null, got %v", v)
	}
	if d["estadoNombre"] != "Negociación" {
		t.Fatalf("estadoNombre = %v", d["estadoNombre"])
	}
	b, _ := json.Marshal(d)
	if !strings.Contains(string(b), `"email":null`) {
		t.Fatalf("null not encoded: %s", b)
	}
}

func TestDiffLeadTouchedFields(t *testing.T) {
	l := sampleLead()
	f := FormFromLead(l)
	f.MontoCotizado, f.MontoCotizadoTouched = "", true
	f.FechaIngreso, f.FechaIngresoTouched = "", true
	d := DiffLead(l, f)
	if v, ok := d["montoCotizado"]; !ok || v != nil {
		t.Fatalf("montoCotizado should be null, got %v", d)
	}
	if v, ok := d["fechaIngreso"]; !ok || v != nil {
		t.Fatalf("fechaIngreso should be null, got %v", d)
	}
}

func TestISOFromLocalRoundTrip(t *testing.T) {
	local := LocalDateTime("2024-03-01T12:30:00.000Z")
	if local == "" {
		t.Fatalf("LocalDateTime returned empty")
	}
	if got := ISOFromLocal(local); got != "2024-03-01T12:30:00.000Z" {
		t.Fatalf("ISOFromLocal(%q) = %q", local, got)
	}
	if got := ISOFromLocal("mañana"); got != "mañana" {
		t.Fatalf("unparseable value changed: %q", got)
	}
}

func TestAmountAcceptsStringNumberAndNull(t *testing.T) {
	var l struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"1200.50","b":990,"c":null}`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if l.A != "1200.50" || l.B != "990" || l.C != "" {
		t.Fatalf("unexpected amounts %+v", l)
	}
}

func TestNewLeadDefaultsAndValidate(t *testing.T) {
	n := NewLeadDefaults(time.Date(2024, 5, 2, 9, 15, 0, 0, time.Local))
	if !strings.HasPrefix(n.CodigoCliente, "CLI-") || len(n.CodigoCliente) != 8 {
		t.Fatalf("codigo = %q", n.CodigoCliente)
	}
	if n.EstadoNombre != "Pendiente" || n.SegmentacionNombre != "Sin Clasificar" {
		t.Fatalf("defaults = %+v", n)
	}
	if _, err := n.Validate(); !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("missing name accepted: %v", err)
	}
	n.NombreCliente = "Ana"
	v, err := n.Validate()
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if !strings.HasSuffix(v.FechaIngreso, "Z") {
		t.Fatalf("fecha not converted: %q", v.FechaIngreso)
	}
	b, _ := json.Marshal(v)
	if strings.Contains(string(b), "email") {
		t.Fatalf("empty optional sent: %s", b)
	}
}
