package services

import (
	"net/url"
	"testing"
)

func TestParseListParamsDefaults(t *testing.T) {
	p := ParseListParams(url.Values{"page": {"-2"}, "pageSize": {"7"}, "orderBy": {"nombre"}, "orderDir": {"up"}})
	want := ListParams{Page: 1, PageSize: 20, OrderBy: "updatedAt", OrderDir: "desc"}
	if p != want {
		t.Fatalf("got %+v, want %+v", p, want)
	}
}

func TestParseListParamsValid(t *testing.T) {
	p := ParseListParams(url.Values{"page": {"3"}, "pageSize": {"50"}, "orderBy": {"fechaIngreso"}, "orderDir": {"asc"}, "q": {" ana "}})
	want := ListParams{Page: 3, PageSize: 50, OrderBy: "fechaIngreso", OrderDir: "asc", Q: "ana"}
	if p != want {
		t.Fatalf("got %+v, want %+v", p, want)
	}
	if got := p.Values().Encode(); got != "orderBy=fechaIngreso&orderDir=asc&page=3&pageSize=50&q=ana" {
		t.Fatalf("Values() = %s", got)
	}
}

func TestValuesOmitsEmptyQuery(t *testing.T) {
	p := ParseListParams(url.Values{})
	if _, ok := p.Values()["q"]; ok {
		t.Fatalf("empty q sent")
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ total, size, want int }{
		{0, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 1},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}
}
