package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Catalog is an id+name pair referenced by leads.
type Catalog struct {
	ID          int     `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion,omitempty"`
}

func (c *Catalog) Name() string {
	if c == nil {
		return ""
	}
	return c.Nombre
}

// Amount accepts a quoted amount as sent by the API, a bare number, or null.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

type Lead struct {
	ID            int      `json:"id"`
	CodigoCliente string   `json:"codigoCliente"`
	NombreCliente string   `json:"nombreCliente"`
	Email         *string  `json:"email"`
	Telefono      *string  `json:"telefono"`
	Marca         *Catalog `json:"marca"`
	Categoria     *Catalog `json:"categoria"`
	TipoCliente   *Catalog `json:"tipoCliente"`
	Comuna        *Catalog `json:"comuna"`
	Estado        *Catalog `json:"estado"`
	Segmentacion  *Catalog `json:"segmentacion"`
	MontoCotizado Amount   `json:"montoCotizado"`
	FechaIngreso  *string  `json:"fechaIngreso"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// LeadForm is an edit form as submitted. Every field holds the raw input.
type LeadForm struct {
	CodigoCliente      string
	NombreCliente      string
	Email              string
	Telefono           string
	MarcaNombre        string
	CategoriaNombre    string
	TipoClienteNombre  string
	ComunaNombre       string
	EstadoNombre       string
	SegmentacionNombre string

	MontoCotizado        string
	MontoCotizadoTouched bool
	FechaIngreso         string
	FechaIngresoTouched  bool
}

// FormFromLead is the edit form prefilled with l.
func FormFromLead(l Lead) LeadForm {
	return LeadForm{
		CodigoCliente:      l.CodigoCliente,
		NombreCliente:      l.NombreCliente,
		Email:              deref(l.Email),
		Telefono:           deref(l.Telefono),
		MarcaNombre:        l.Marca.Name(),
		CategoriaNombre:    l.Categoria.Name(),
		TipoClienteNombre:  l.TipoCliente.Name(),
		ComunaNombre:       l.Comuna.Name(),
		EstadoNombre:       l.Estado.Name(),
		SegmentacionNombre: l.Segmentacion.Name(),
		MontoCotizado:      string(l.MontoCotizado),
		FechaIngreso:       LocalDateTime(deref(l.FechaIngreso)),
	}
}

// LeadUpdate is a PATCH body. A nil value is sent as an explicit null.
type LeadUpdate map[string]interface{}

func changed(a, b string) bool {
	return strings.TrimSpace(a) != strings.TrimSpace(b)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// DiffLead builds the minimal update turning initial into form. Unchanged
// fields are left out; emptied optional fields become null.
func DiffLead(initial Lead, form LeadForm) LeadUpdate {
	out := LeadUpdate{}

	if changed(initial.CodigoCliente, form.CodigoCliente) {
		out["codigoCliente"] = form.CodigoCliente
	}
	if changed(initial.NombreCliente, form.NombreCliente) {
		out["nombreCliente"] = form.NombreCliente
	}
	if changed(deref(initial.Email), form.Email) {
		out["email"] = nullable(form.Email)
	}
	if changed(deref(initial.Telefono), form.Telefono) {
		out["telefono"] = nullable(form.Telefono)
	}

	byName := []struct {
		key, was, now string
	}{
		{"marcaNombre", initial.Marca.Name(), form.MarcaNombre},
		{"categoriaNombre", initial.Categoria.Name(), form.CategoriaNombre},
		{"tipoClienteNombre", initial.TipoCliente.Name(), form.TipoClienteNombre},
		{"comunaNombre", initial.Comuna.Name(), form.ComunaNombre},
		{"estadoNombre", initial.Estado.Name(), form.EstadoNombre},
		{"segmentacionNombre", initial.Segmentacion.Name(), form.SegmentacionNombre},
	}
	for _, f := range byName {
		if changed(f.was, f.now) {
			out[f.key] = nullable(f.now)
		}
	}

	if form.MontoCotizadoTouched {
		out["montoCotizado"] = nullable(form.MontoCotizado)
	}
	if form.FechaIngresoTouched {
		if form.FechaIngreso == "" {
			out["fechaIngreso"] = nil
		} else {
			out["fechaIngreso"] = ISOFromLocal(form.FechaIngreso)
		}
	}
	return out
}

const localLayout = "2006-01-02T15:04"

// LocalDateTime renders an ISO timestamp as a datetime-local input value.
func LocalDateTime(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return ""
	}
	return t.Local().Format(localLayout)
}

// ISOFromLocal converts a datetime-local value to UTC ISO-8601. Values that
// do not parse are returned unchanged.
func ISOFromLocal(v string) string {
	t, err := time.ParseInLocation(localLayout, v, time.Local)
	if err != nil {
		return v
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// NewLead is the body of POST /leads. Catalogs are referenced by name.
type NewLead struct {
	CodigoCliente      string `json:"codigoCliente"`
	NombreCliente      string `json:"nombreCliente"`
	Email              string `json:"email,omitempty"`
	Telefono           string `json:"telefono,omitempty"`
	MarcaNombre        string `json:"marcaNombre,omitempty"`
	CategoriaNombre    string `json:"categoriaNombre,omitempty"`
	TipoClienteNombre  string `json:"tipoClienteNombre,omitempty"`
	ComunaNombre       string `json:"comunaNombre,omitempty"`
	EstadoNombre       string `json:"estadoNombre,omitempty"`
	SegmentacionNombre string `json:"segmentacionNombre,omitempty"`
	MontoCotizado      string `json:"montoCotizado,omitempty"`
	FechaIngreso       string `json:"fechaIngreso,omitempty"`
}

// NewLeadDefaults prefills the create form.
func NewLeadDefaults(now time.Time) NewLead {
	return NewLead{
		CodigoCliente:      fmt.Sprintf("CLI-%d", 1000+rand.Intn(9000)),
		EstadoNombre:       "Pendiente",
		SegmentacionNombre: "Sin Clasificar",
		FechaIngreso:       now.Local().Format(localLayout),
	}
}

// Validate requires a client code and name and converts the intake date to
// ISO-8601.
func (n NewLead) Validate() (NewLead, error) {
	if strings.TrimSpace(n.CodigoCliente) == "" || strings.TrimSpace(n.NombreCliente) == "" {
		return n, fmt.Errorf("%w: código y nombre de cliente son obligatorios", ErrInvalidForm)
	}
	if n.FechaIngreso != "" {
		n.FechaIngreso = ISOFromLocal(n.FechaIngreso)
	}
	return n, nil
}

// LeadList is one page of leads.
type LeadList struct {
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Total    int    `json:"total"`
	Leads    []Lead `json:"leads"`
}

type leadResponse struct {
	Lead *Lead `json:"lead"`
}

func (c *Client) ListLeads(ctx context.Context, creds Credentials, p ListParams) (*LeadList, error) {
	var res LeadList
	if err := c.Do(ctx, creds, Request{Path: "/leads?" + p.Values().Encode(), RetryOn401: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CreateLead(ctx context.Context, creds Credentials, n NewLead) (*Lead, error) {
	var res leadResponse
	if err := c.Do(ctx, creds, Request{Path: "/leads", Method: http.MethodPost, Body: n, RetryOn401: true}, &res); err != nil {
		return nil, err
	}
	if res.Lead == nil {
		return nil, errIncomplete
	}
	return res.Lead, nil
}

// UpdateLead sends a diff. An empty diff makes no request.
func (c *Client) UpdateLead(ctx context.Context, creds Credentials, id int, u LeadUpdate) error {
	if len(u) == 0 {
		return nil
	}
	return c.Do(ctx, creds, Request{Path: fmt.Sprintf("/leads/%d", id), Method: http.MethodPatch, Body: u, RetryOn401: true}, nil)
}

func (c *Client) SetLeadEstado(ctx context.Context, creds Credentials, id int, estado string) error {
	body := map[string]string{"estadoNombre": estado}
	return c.Do(ctx, creds, Request{Path: fmt.Sprintf("/leads/%d/estado", id), Method: http.MethodPatch, Body: body, RetryOn401: true}, nil)
}

func (c *Client) AssignLead(ctx context.Context, creds Credentials, id, userID int) error {
	body := map[string]int{"usuarioId": userID}
	return c.Do(ctx, creds, Request{Path: fmt.Sprintf("/leads/%d/asignar", id), Method: http.MethodPatch, Body: body, RetryOn401: true}, nil)
}
