package store

import (
	"testing"

	"github.com/glosspoint/glosspoint/internal/domain"
)

func TestCompareStatusUsesDomainOrder(t *testing.T) {
	// alphabetically Anulowane would come first; the domain order puts it last
	if CompareStatus(domain.StatusNew, domain.StatusCancelled) >= 0 {
		t.Fatal("Nowe must sort before Anulowane")
	}
	if CompareStatus(domain.StatusAwaiting, domain.StatusInProgress) <= 0 {
		t.Fatal("Czeka na odbiór must sort after W toku")
	}
	if CompareStatus(domain.StatusCompleted, domain.StatusCompleted) != 0 {
		t.Fatal("equal statuses must compare equal")
	}
}

func TestCompareTextEmptySortsFirst(t *testing.T) {
	if CompareText("", "Anna") >= 0 {
		t.Fatal("empty value must sort before any defined value")
	}
	if CompareText("Anna", "") <= 0 {
		t.Fatal("defined value must sort after empty")
	}
	if CompareText("", "") != 0 {
		t.Fatal("two empties compare equal")
	}
}

func TestCompareTextCaseInsensitiveLocaleAware(t *testing.T) {
	if CompareText("anna", "ANNA") != 0 {
		t.Fatal("comparison must ignore case")
	}
	// Polish ł collates after l, unlike plain byte order of UTF-8
	if CompareText("Łukasz", "Lucja") <= 0 {
		t.Fatal("expected ł to collate after l")
	}
}

func TestSortStateTriStateToggle(t *testing.T) {
	var s SortState

	s.Toggle("name")
	if s.Column != "name" || s.Direction != SortAsc {
		t.Fatalf("first toggle must sort ascending, got %+v", s)
	}
	s.Toggle("name")
	if s.Direction != SortDesc {
		t.Fatalf("second toggle must sort descending, got %+v", s)
	}
	s.Toggle("name")
	if s.Column != "" || s.Direction != SortNone {
		t.Fatalf("third toggle must clear the sort, got %+v", s)
	}

	s.Toggle("name")
	s.Toggle("price")
	if s.Column != "price" || s.Direction != SortAsc {
		t.Fatalf("switching columns must start ascending on the new one, got %+v", s)
	}
}
