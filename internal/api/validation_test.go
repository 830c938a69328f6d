package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateEmailRegex(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a@b.com", true},
		{"a+b@b.com.br", true},
		{"", false},
		{"   ", false},
		{"a@", false},
		{"@b.com", false},
		{"a@b", false},
		{"a b@c.com", false},
	}
	for _, c := range cases {
		err := ValidateEmailRegex(c.in)
		if (err == nil) != c.want {
			t.Fatalf("email=%q wantOk=%v gotErr=%v", c.in, c.want, err)
		}
	}
}

func TestNormalizeHorario(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"09:00", "09:00", true},
		{" 14:30:00 ", "14:30", true},
		{"9:05", "09:05", true},
		{"24:00", "", false},
		{"manhã", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, err := NormalizeHorario(c.in)
		if (err == nil) != c.ok || got != c.want {
			t.Fatalf("NormalizeHorario(%q) = %q, %v", c.in, got, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2026-02-28"); err != nil {
		t.Fatalf("valid date: %v", err)
	}
	for _, bad := range []string{"2026-02-30", "28/02/2026", "2026-2-1", ""} {
		if _, err := ParseDate(bad); err != ErrInvalidDate {
			t.Fatalf("ParseDate(%q) expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestFieldErrors(t *testing.T) {
	errs := fieldErrors{}
	g, e, d := "x", "nope", "2026-13-01"
	errs.required("nome", "  ", "obrigatório")
	errs.enum("genero", &g, generos...)
	errs.email("email", &e)
	errs.date("data", &d)
	errs.enum("status", nil, consultaStatus...)
	errs.add("nome", "segunda mensagem")
	if len(errs) != 4 {
		t.Fatalf("expected 4 field errors, got %v", errs)
	}
	if errs["nome"] != "obrigatório" {
		t.Fatalf("first message must win, got %q", errs["nome"])
	}
	rec := httptest.NewRecorder()
	if !errs.write(rec) || rec.Code != http.StatusBadRequest {
		t.Fatalf("write: code=%d", rec.Code)
	}
	if (fieldErrors{}).write(httptest.NewRecorder()) {
		t.Fatal("empty errors must not write")
	}
}

func TestParseLimitOffset(t *testing.T) {
	cases := []struct {
		query         string
		limit, offset int
	}{
		{"", 0, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=-1&offset=-5", 0, 0},
		{"limit=9999", maxLimit, 0},
		{"limit=abc", 0, 0},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/pacientes?"+c.query, nil)
		l, o := ParseLimitOffset(r)
		if l != c.limit || o != c.offset {
			t.Fatalf("%q: got %d,%d want %d,%d", c.query, l, o, c.limit, c.offset)
		}
	}
}
