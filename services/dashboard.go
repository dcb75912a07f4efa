package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Greeting depends on the hour of day.
func Greeting(hour int) string {
	switch {
	case hour < 12:
		return "¡Buenos días!"
	case hour < 19:
		return "¡Buenas tardes!"
	default:
		return "¡Buenas noches!"
	}
}

type jwtClaims struct {
	Email         string `json:"email"`
	NombreUsuario string `json:"nombreUsuario"`
	Nivel         string `json:"nivel"`
	Exp           int64  `json:"exp"`
}

// decodeJWT reads the payload of a JWT without verifying it. The token is
// only used for display here; the API verifies it.
func decodeJWT(token string) *jwtClaims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil
	}
	var c jwtClaims
	if err := json.Unmarshal(b, &c); err != nil {
		return nil
	}
	return &c
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// DisplayName prefers the stored user name, then the token's, then the
// local part of either email.
func DisplayName(u *User, token string) string {
	claims := decodeJWT(token)
	switch {
	case u != nil && u.NombreUsuario != "":
		return u.NombreUsuario
	case claims != nil && claims.NombreUsuario != "":
		return claims.NombreUsuario
	case u != nil && u.Email != "":
		return localPart(u.Email)
	case claims != nil && claims.Email != "":
		return localPart(claims.Email)
	}
	return "Usuario"
}

func Initials(name string) string {
	words := strings.Fields(name)
	var out []rune
	for i := 0; i < len(words) && i < 2; i++ {
		out = append(out, []rune(words[i])[0])
	}
	if len(out) == 0 {
		if r := []rune(name); len(r) > 0 {
			return strings.ToUpper(string(r[0]))
		}
		return "U"
	}
	return strings.ToUpper(string(out))
}

// ProgressPct is done/total as a whole percentage clamped to [0, 100].
func ProgressPct(done, total int) int {
	if total < 1 {
		total = 1
	}
	pct := int(math.Round(float64(done) / float64(total) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

var SegmentPalette = []string{"#f97316", "#22c55e", "#3b82f6", "#a78bfa", "#14b8a6", "#f43f5e"}

type Segment struct {
	Label string
	Value int
	Pct   int
	Color string
}

type Count struct {
	Label string
	Value int
}

// Segments turns ordered counts into bar segments. An empty total is
// treated as 1 so every percentage is defined.
func Segments(counts []Count) ([]Segment, int) {
	total := 0
	for _, c := range counts {
		total += c.Value
	}
	if total == 0 {
		total = 1
	}
	out := make([]Segment, 0, len(counts))
	for i, c := range counts {
		out = append(out, Segment{
			Label: c.Label,
			Value: c.Value,
			Pct:   int(math.Round(float64(c.Value) / float64(total) * 100)),
			Color: SegmentPalette[i%len(SegmentPalette)],
		})
	}
	return out, total
}

const sinEstado = "Sin estado"

// CountByEstado groups leads by state, in catalog order, with unknown states
// appended in order of appearance. Empty buckets are dropped.
func CountByEstado(leads []Lead, estados []Catalog) []Count {
	idx := map[string]int{}
	var counts []Count
	add := func(label string) {
		if _, ok := idx[label]; !ok {
			idx[label] = len(counts)
			counts = append(counts, Count{Label: label})
		}
	}
	for _, e := range estados {
		add(e.Nombre)
	}
	for _, l := range leads {
		label := l.Estado.Name()
		if label == "" {
			label = sinEstado
		}
		add(label)
		counts[idx[label]].Value++
	}
	out := counts[:0]
	for _, c := range counts {
		if c.Value > 0 {
			out = append(out, c)
		}
	}
	return out
}

// IsClosed reports whether an estado name counts as a won lead.
func IsClosed(estado string) bool {
	return strings.Contains(strings.ToLower(estado), "confirm")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Overview is what the dashboard widgets show.
type Overview struct {
	LeadsTotal  int
	Today       int
	Stages      int
	ProgressPct int
	Estados     []Segment
	EstadoTotal int
	Summary     map[string]int
}

// overviewSample is how many recent leads feed the widgets.
const overviewSample = 100

// LoadOverview fetches catalogs and the most recent leads concurrently.
func (c *Client) LoadOverview(ctx context.Context, creds Credentials, now time.Time) (*Overview, error) {
	var (
		cat   *Catalogs
		leads *LeadList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat, err = c.LoadCatalogs(gctx, creds)
		return err
	})
	g.Go(func() error {
		var err error
		leads, err = c.ListLeads(gctx, creds, ListParams{Page: 1, PageSize: overviewSample, OrderBy: "updatedAt", OrderDir: "desc"})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ov := &Overview{LeadsTotal: leads.Total, Stages: len(cat.Estados), Summary: cat.Summary()}
	closed := 0
	for _, l := range leads.Leads {
		if IsClosed(l.Estado.Name()) {
			closed++
		}
		ts := deref(l.FechaIngreso)
		if ts == "" {
			ts = l.CreatedAt
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil && sameDay(t.In(now.Location()), now) {
			ov.Today++
		}
	}
	ov.ProgressPct = ProgressPct(closed, len(leads.Leads))
	ov.Estados, ov.EstadoTotal = Segments(CountByEstado(leads.Leads, cat.Estados))
	return ov, nil
}
