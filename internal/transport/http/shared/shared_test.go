package shared

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-08-10")
	if err != nil {
		t.Fatalf("plain date: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.August || got.Day() != 10 {
		t.Fatalf("unexpected date: %v", got)
	}

	got, err = ParseDate("2026-08-10T09:30:00Z")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if got.Hour() != 9 {
		t.Fatalf("unexpected time: %v", got)
	}

	got, err = ParseDate("")
	if err != nil || !got.IsZero() {
		t.Fatalf("empty input should parse to zero time, got %v %v", got, err)
	}

	if _, err := ParseDate("10/08/2026"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=500&offset=40", nil)
	p := ParsePagination(r, 50, 200)
	if p.Limit != 200 || p.Offset != 40 {
		t.Fatalf("expected clamp to max, got %+v", p)
	}

	r = httptest.NewRequest("GET", "/?limit=abc&offset=-3", nil)
	p = ParsePagination(r, 50, 200)
	if p.Limit != 50 || p.Offset != 0 {
		t.Fatalf("invalid params should fall back to defaults, got %+v", p)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:5522"
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Fatalf("remote addr: got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	if got := ClientIP(r); got != "198.51.100.4" {
		t.Fatalf("forwarded for: got %q", got)
	}
}
