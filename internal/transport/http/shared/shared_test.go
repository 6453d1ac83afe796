package shared

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected end of day %v, got %v", want, got)
	}

	got, err = ParseDate(" 2024-03-01T10:00:00+02:00 ")
	if err != nil {
		t.Fatalf("parse rfc3339: %v", err)
	}
	if got.Location() != time.UTC || got.Hour() != 8 {
		t.Fatalf("expected UTC 08:00, got %v", got)
	}

	if got, err := ParseDate(""); err != nil || !got.IsZero() {
		t.Fatalf("empty input should be zero, got %v %v", got, err)
	}
	if _, err := ParseDate("01.03.2024"); err == nil {
		t.Fatal("expected german date format to be rejected")
	}
}

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	v.Required("name", " ", "is required")
	v.Email("email", "nobody")
	v.Email("cc", "")
	v.Enum("language", "FR", []string{"de", "en"}, "must be de or en")
	v.Enum("language", "DE", []string{"de", "en"}, "must be de or en")
	v.PositiveID("companyId", 0)
	if _, ok := v.Date("asOf", "soon"); ok {
		t.Fatal("expected invalid date")
	}

	issues := v.Issues()
	fields := make([]string, len(issues))
	for i, issue := range issues {
		fields[i] = issue.Field
	}
	want := []string{"asOf", "companyId", "email", "language", "name"}
	if len(fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, fields)
		}
	}

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") || rec.Code != 400 {
		t.Fatalf("expected rejection with 400, got %d", rec.Code)
	}
	if NewValidator().Reject(httptest.NewRecorder(), "req-2") {
		t.Fatal("empty validator should not reject")
	}
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/requests?limit=900&offset=5", nil)
	page := ParsePagination(r, 100, 500)
	if page.Limit != 500 || page.Offset != 5 {
		t.Fatalf("unexpected page %+v", page)
	}
	r = httptest.NewRequest("GET", "/requests?limit=-1&offset=x", nil)
	page = ParsePagination(r, 100, 500)
	if page.Limit != 100 || page.Offset != 0 {
		t.Fatalf("expected defaults, got %+v", page)
	}
}
