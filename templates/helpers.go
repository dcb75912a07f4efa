package templates

import (
	"fmt"
	"html"
	"strconv"
)

// Esc safely escapes a value for HTML output.
func Esc(s interface{}) string {
	if s == nil {
		return ""
	}
	return html.EscapeString(fmt.Sprintf("%v", s))
}

// EscPtr escapes an optional string, rendering nil as "-".
func EscPtr(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return Esc(*s)
}

// Num formats an integer with thousands separators.
func Num(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if n < 0 {
		neg, s = true, s[1:]
	}
	out := ""
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += "."
		}
		out += string(c)
	}
	if neg {
		return "-" + out
	}
	return out
}

// Selected marks an <option> as selected when value matches current.
func Selected(value, current string) string {
	if value == current {
		return " selected"
	}
	return ""
}

// Options renders <option> tags for names, with an optional empty choice.
func Options(names []string, current, empty string) string {
	out := ""
	if empty != "" {
		out += fmt.Sprintf(`<option value=""%s>%s</option>`, Selected("", current), Esc(empty))
	}
	for _, n := range names {
		out += fmt.Sprintf(`<option value="%s"%s>%s</option>`, Esc(n), Selected(n, current), Esc(n))
	}
	return out
}
