package store

import (
	"strings"
	"time"

	"github.com/glosspoint/glosspoint/internal/gateway"
)

// Filters is the transient filter state of one entity store. Date bounds
// are local calendar dates in YYYY-MM-DD form; empty fields do not filter.
type Filters struct {
	SearchTerm string `json:"search_term"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	Status     string `json:"status"`
}

// FilterPatch distinguishes "field not provided" (nil) from "field
// explicitly cleared" (pointer to empty string).
type FilterPatch struct {
	SearchTerm *string `json:"search_term"`
	DateFrom   *string `json:"date_from"`
	DateTo     *string `json:"date_to"`
	Status     *string `json:"status"`
}

// Merge applies the provided fields over f, leaving nil fields untouched.
func (f Filters) Merge(p FilterPatch) Filters {
	if p.SearchTerm != nil {
		f.SearchTerm = *p.SearchTerm
	}
	if p.DateFrom != nil {
		f.DateFrom = *p.DateFrom
	}
	if p.DateTo != nil {
		f.DateTo = *p.DateTo
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
	return f
}

// Active reports whether any filter field is set.
func (f Filters) Active() bool {
	return f.SearchTerm != "" || f.DateFrom != "" || f.DateTo != "" || f.Status != ""
}

// Clauses translates the filter state into gateway query clauses.
func (f Filters) Clauses(searchColumns []string) gateway.Clauses {
	q := gateway.Clauses{}
	if f.SearchTerm != "" {
		q.Search = f.SearchTerm
		q.SearchColumns = searchColumns
	}
	if from := ParseLocalDate(f.DateFrom); from != nil {
		q.CreatedFrom = from
	}
	if to := ParseLocalDateEnd(f.DateTo); to != nil {
		q.CreatedTo = to
	}
	if f.Status != "" {
		q.Equals = map[string]interface{}{"status": f.Status}
	}
	return q
}

// matchText reports whether the search term is a case-insensitive substring
// of at least one of the given fields. An empty term matches everything.
func (f Filters) matchText(fields ...string) bool {
	if f.SearchTerm == "" {
		return true
	}
	term := strings.ToLower(f.SearchTerm)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// matchDate checks the inclusive local-day bounds against a timestamp.
func (f Filters) matchDate(ts time.Time) bool {
	if from := ParseLocalDate(f.DateFrom); from != nil && ts.Before(*from) {
		return false
	}
	if to := ParseLocalDateEnd(f.DateTo); to != nil && ts.After(*to) {
		return false
	}
	return true
}

// ParseLocalDate parses a YYYY-MM-DD string as local midnight. Returns nil
// for empty or malformed input.
func ParseLocalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

// ParseLocalDateEnd parses a YYYY-MM-DD string as local end of day,
// 23:59:59.999, so boundary timestamps are not excluded.
func ParseLocalDateEnd(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil
	}
	end := t.Add(24*time.Hour - time.Millisecond)
	return &end
}
