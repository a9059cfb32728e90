package store

import (
	"testing"
	"time"
)

func strp(s string) *string { return &s }

func TestMergeDistinguishesUnsetFromCleared(t *testing.T) {
	f := Filters{SearchTerm: "kowal", DateFrom: "2025-10-01"}

	merged := f.Merge(FilterPatch{DateTo: strp("2025-10-31")})
	if merged.SearchTerm != "kowal" || merged.DateFrom != "2025-10-01" {
		t.Fatalf("unprovided fields must stay untouched: %+v", merged)
	}
	if merged.DateTo != "2025-10-31" {
		t.Fatalf("provided field not merged: %+v", merged)
	}

	cleared := merged.Merge(FilterPatch{SearchTerm: strp("")})
	if cleared.SearchTerm != "" {
		t.Fatalf("explicit empty string must clear the field: %+v", cleared)
	}
	if cleared.DateFrom != "2025-10-01" {
		t.Fatalf("clearing one field must not touch others: %+v", cleared)
	}
}

func TestMatchTextCaseInsensitiveSubstring(t *testing.T) {
	f := Filters{SearchTerm: "KOWAL"}
	if !f.matchText("Jan Kowalski", "", "") {
		t.Fatal("expected substring match on name")
	}
	if f.matchText("Anna Nowak", "987-654-321", "anna@example.com") {
		t.Fatal("expected no match")
	}
	if !(Filters{}).matchText("anything") {
		t.Fatal("empty term must match everything")
	}
}

func TestMatchDateInclusiveBounds(t *testing.T) {
	f := Filters{DateFrom: "2025-10-15", DateTo: "2025-10-15"}

	midnight := time.Date(2025, 10, 15, 0, 0, 0, 0, time.Local)
	endOfDay := time.Date(2025, 10, 15, 23, 59, 59, 0, time.Local)
	dayBefore := midnight.Add(-time.Second)
	dayAfter := endOfDay.Add(time.Second)

	if !f.matchDate(midnight) {
		t.Fatal("timestamp exactly at local midnight must be included")
	}
	if !f.matchDate(endOfDay) {
		t.Fatal("timestamp at 23:59:59 must be included")
	}
	if f.matchDate(dayBefore) || f.matchDate(dayAfter) {
		t.Fatal("timestamps outside the local day must be excluded")
	}
}

func TestParseLocalDateEnd(t *testing.T) {
	end := ParseLocalDateEnd("2025-10-15")
	if end == nil {
		t.Fatal("expected parse")
	}
	want := time.Date(2025, 10, 15, 23, 59, 59, int(999*time.Millisecond), time.Local)
	if !end.Equal(want) {
		t.Fatalf("expected %v, got %v", want, end)
	}
	if ParseLocalDate("") != nil || ParseLocalDate("nonsense") != nil {
		t.Fatal("empty and malformed input must yield nil")
	}
}

func TestClausesTranslation(t *testing.T) {
	f := Filters{SearchTerm: "audi", DateFrom: "2025-10-01", DateTo: "2025-10-31", Status: "W toku"}
	q := f.Clauses([]string{"make", "model"})

	if q.Search != "audi" || len(q.SearchColumns) != 2 {
		t.Fatalf("search clause not translated: %+v", q)
	}
	if q.CreatedFrom == nil || q.CreatedTo == nil {
		t.Fatal("date bounds not translated")
	}
	if q.CreatedFrom.Hour() != 0 || q.CreatedTo.Hour() != 23 {
		t.Fatalf("bounds must span the local day: %v .. %v", q.CreatedFrom, q.CreatedTo)
	}
	if q.Equals["status"] != "W toku" {
		t.Fatalf("status clause not translated: %+v", q.Equals)
	}

	empty := Filters{}.Clauses([]string{"name"})
	if empty.Search != "" || empty.CreatedFrom != nil || empty.CreatedTo != nil || empty.Equals != nil {
		t.Fatalf("empty filters must produce no clauses: %+v", empty)
	}
}
