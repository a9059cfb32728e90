package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/pkg/debounce"
)

// countingGateway counts Select calls so tests can assert how many
// refetches actually happened.
type countingGateway struct {
	gateway.Gateway
	selects int64
}

func (g *countingGateway) Select(ctx context.Context, table string, q gateway.Clauses, dest interface{}) error {
	atomic.AddInt64(&g.selects, 1)
	return g.Gateway.Select(ctx, table, q, dest)
}

func (g *countingGateway) selectCount() int64 {
	return atomic.LoadInt64(&g.selects)
}

// manualClock collects debounce timers and fires them on demand.
type manualClock struct {
	timers []*manualTimer
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) afterFunc(_ time.Duration, fn func()) debounce.Timer {
	t := &manualTimer{fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) fire() {
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

func newClientFixture(t *testing.T) (*ClientStore, *countingGateway) {
	t.Helper()
	gw := &countingGateway{Gateway: gateway.NewMemoryGateway()}
	s := NewClientStore(gw, EventBus.New(), NewActivity())
	return s, gw
}

func seedClient(t *testing.T, s *ClientStore, name, phone, email string) domain.Client {
	t.Helper()
	c, err := s.Add(context.Background(), ClientInput{Name: name, Phone: phone, Email: email})
	if err != nil {
		t.Fatalf("seed client %q: %v", name, err)
	}
	return *c
}

func TestAddInsertsAtFront(t *testing.T) {
	s, _ := newClientFixture(t)
	seedClient(t, s, "Jan Kowalski", "123-456-789", "jan@example.com")
	added := seedClient(t, s, "Anna Nowak", "987-654-321", "anna@example.com")

	mirror := s.Snapshot()
	if len(mirror) != 2 {
		t.Fatalf("expected 2 mirrored rows, got %d", len(mirror))
	}
	if mirror[0].ID != added.ID {
		t.Fatal("newest row must sit at the front of the mirror")
	}
	if added.ID == 0 || added.CreatedAt.IsZero() {
		t.Fatal("authoritative row must carry assigned id and timestamps")
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	s, _ := newClientFixture(t)
	first := seedClient(t, s, "Jan Kowalski", "", "")
	seedClient(t, s, "Anna Nowak", "", "")

	updated, err := s.Update(context.Background(), first.ID, ClientPatch{Notes: strp("VIP klient")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Notes != "VIP klient" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	mirror := s.Snapshot()
	if mirror[1].ID != first.ID || mirror[1].Notes != "VIP klient" {
		t.Fatalf("row must be replaced in place, got %+v", mirror)
	}
	if mirror[1].Name != "Jan Kowalski" {
		t.Fatal("unpatched fields must survive")
	}
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	s, _ := newClientFixture(t)
	doomed := seedClient(t, s, "Jan Kowalski", "", "")
	kept := seedClient(t, s, "Anna Nowak", "", "")

	if err := s.Delete(context.Background(), doomed.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	mirror := s.Snapshot()
	if len(mirror) != 1 || mirror[0].ID != kept.ID {
		t.Fatalf("expected only the other row to survive, got %+v", mirror)
	}
}

func TestFailedDeleteLeavesMirrorUntouched(t *testing.T) {
	s, _ := newClientFixture(t)
	seedClient(t, s, "Jan Kowalski", "", "")

	if err := s.Delete(context.Background(), 424242); err == nil {
		t.Fatal("expected delete of missing row to fail")
	}
	if len(s.Snapshot()) != 1 {
		t.Fatal("failed write must leave the mirror untouched")
	}
}

func TestFetchAllAppliesSearchFilter(t *testing.T) {
	s, _ := newClientFixture(t)
	jan := seedClient(t, s, "Jan Kowalski", "123-456-789", "jan@example.com")
	seedClient(t, s, "Anna Nowak", "987-654-321", "anna@example.com")

	s.mu.Lock()
	s.filters.SearchTerm = "kowal"
	s.mu.Unlock()
	rows, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != jan.ID {
		t.Fatalf("expected only Jan Kowalski, got %+v", rows)
	}

	s.mu.Lock()
	s.filters.SearchTerm = "zzz"
	s.mu.Unlock()
	rows, err = s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty collection, got %+v", rows)
	}
}

func TestFetchDroppedWhileInFlight(t *testing.T) {
	s, _ := newClientFixture(t)
	seedClient(t, s, "Jan Kowalski", "", "")

	s.fetching.Store(true) // simulate an outstanding round trip
	rows, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("dropped fetch must not error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatal("dropped fetch must return an empty result")
	}
	s.fetching.Store(false)

	if _, err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("fetch after release failed: %v", err)
	}
	if len(s.Snapshot()) != 1 {
		t.Fatal("follow-up fetch must repopulate the mirror")
	}
}

func TestDebouncedSetFiltersCoalesces(t *testing.T) {
	s, gw := newClientFixture(t)
	seedClient(t, s, "Jan Kowalski", "", "")
	clock := &manualClock{}
	s.RefetchDebouncer().SetAfterFunc(clock.afterFunc)

	before := gw.selectCount()
	s.SetFilters(FilterPatch{SearchTerm: strp("k")})
	s.SetFilters(FilterPatch{SearchTerm: strp("ko")})
	s.SetFilters(FilterPatch{SearchTerm: strp("kowal")})
	clock.fire()

	if got := gw.selectCount() - before; got != 1 {
		t.Fatalf("expected exactly one coalesced refetch, got %d", got)
	}
	if s.Filters().SearchTerm != "kowal" {
		t.Fatal("refetch must use the filter state as of the last call")
	}
	rows := s.Snapshot()
	if len(rows) != 1 || rows[0].Name != "Jan Kowalski" {
		t.Fatalf("unexpected mirror after debounced refetch: %+v", rows)
	}
}

func TestResetFiltersIdempotent(t *testing.T) {
	s, _ := newClientFixture(t)
	seedClient(t, s, "Jan Kowalski", "", "")
	seedClient(t, s, "Anna Nowak", "", "")
	clock := &manualClock{}
	s.RefetchDebouncer().SetAfterFunc(clock.afterFunc)

	s.SetFilters(FilterPatch{SearchTerm: strp("kowal")})
	clock.fire()

	s.ResetFilters()
	clock.fire()
	once := s.Filtered()

	s.ResetFilters()
	clock.fire()
	twice := s.Filtered()

	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("reset must restore the full collection: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatal("double reset must yield the same result as a single one")
		}
	}
}

func TestFilteredWithEmptyFiltersReturnsAllInOrder(t *testing.T) {
	s, _ := newClientFixture(t)
	seedClient(t, s, "Jan Kowalski", "", "")
	seedClient(t, s, "Anna Nowak", "", "")

	mirror := s.Snapshot()
	filtered := s.Filtered()
	if len(filtered) != len(mirror) {
		t.Fatalf("expected full collection, got %d of %d", len(filtered), len(mirror))
	}
	for i := range mirror {
		if filtered[i].ID != mirror[i].ID {
			t.Fatal("empty filters must preserve mirror order")
		}
	}
}
