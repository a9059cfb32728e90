package store

import (
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/glosspoint/glosspoint/internal/domain"
)

// SortDirection is the tri-state column sort toggle.
type SortDirection int

const (
	SortNone SortDirection = iota
	SortAsc
	SortDesc
)

// SortState tracks the single active sort column of a table.
type SortState struct {
	Column    string
	Direction SortDirection
}

// Toggle advances the tri-state cycle for a column: unsorted → ascending →
// descending → unsorted. Clicking a different column starts it ascending
// and clears the previous one.
func (s *SortState) Toggle(column string) {
	if s.Column != column {
		s.Column = column
		s.Direction = SortAsc
		return
	}
	switch s.Direction {
	case SortAsc:
		s.Direction = SortDesc
	case SortDesc:
		s.Column = ""
		s.Direction = SortNone
	default:
		s.Direction = SortAsc
	}
}

// apply orients a comparator result to the sort direction.
func (s SortState) apply(cmp int) bool {
	if s.Direction == SortDesc {
		return cmp > 0
	}
	return cmp < 0
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.Polish, collate.IgnoreCase)
)

// CompareText is the default column comparator: locale-aware,
// case-insensitive, with empty values sorting before any defined value.
func CompareText(a, b string) int {
	if a == "" || b == "" {
		switch {
		case a == "" && b == "":
			return 0
		case a == "":
			return -1
		default:
			return 1
		}
	}
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

func CompareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func CompareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func CompareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// CompareStatus orders by the fixed domain sequence of order statuses,
// never lexically.
func CompareStatus(a, b domain.OrderStatus) int {
	return CompareInt(int64(a.Rank()), int64(b.Rank()))
}
