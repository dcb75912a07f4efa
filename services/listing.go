package services

import (
	"net/url"
	"strconv"
	"strings"
)

var (
	PageSizes    = []int{10, 20, 50, 100}
	OrderFields  = []string{"updatedAt", "createdAt", "fechaIngreso"}
	OrderLabels  = map[string]string{"updatedAt": "Actualizado", "createdAt": "Creado", "fechaIngreso": "Ingreso"}
	defaultPage  = 20
	defaultOrder = "updatedAt"
)

// ListParams are the query parameters of a paginated, sorted list.
type ListParams struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Q        string
}

// ParseListParams reads params from a query string, replacing anything out
// of range with its default.
func ParseListParams(v url.Values) ListParams {
	p := ListParams{
		Page:     1,
		PageSize: defaultPage,
		OrderBy:  defaultOrder,
		OrderDir: "desc",
		Q:        strings.TrimSpace(v.Get("q")),
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(v.Get("pageSize")); err == nil {
		for _, s := range PageSizes {
			if n == s {
				p.PageSize = n
			}
		}
	}
	for _, f := range OrderFields {
		if v.Get("orderBy") == f {
			p.OrderBy = f
		}
	}
	if d := v.Get("orderDir"); d == "asc" || d == "desc" {
		p.OrderDir = d
	}
	return p
}

// Values encodes p for the API and for page links. q is omitted when empty.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("pageSize", strconv.Itoa(p.PageSize))
	v.Set("orderBy", p.OrderBy)
	v.Set("orderDir", p.OrderDir)
	if p.Q != "" {
		v.Set("q", p.Q)
	}
	return v
}

func (p ListParams) WithPage(n int) ListParams {
	p.Page = n
	return p
}

// TotalPages is never less than 1.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
