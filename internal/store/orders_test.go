package store

import (
	"context"
	"testing"

	"github.com/asaskevich/EventBus"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

type orderFixture struct {
	gw       gateway.Gateway
	clients  *ClientStore
	services *ServiceStore
	orders   *OrderStore

	client  domain.Client
	washing domain.Service
	waxing  domain.Service
	detail  domain.Service
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	gw := gateway.NewMemoryGateway()
	bus := EventBus.New()
	act := NewActivity()
	f := &orderFixture{
		gw:       gw,
		clients:  NewClientStore(gw, bus, act),
		services: NewServiceStore(gw, bus, act),
		orders:   NewOrderStore(gw, bus, act),
	}

	ctx := context.Background()
	c, err := f.clients.Add(ctx, ClientInput{Name: "Jan Kowalski", Phone: "123-456-789"})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	f.client = *c
	seed := func(name string, price float64) domain.Service {
		svc, err := f.services.Add(ctx, ServiceInput{Name: name, Price: price})
		if err != nil {
			t.Fatalf("seed service %q: %v", name, err)
		}
		return *svc
	}
	f.washing = seed("Mycie zewnętrzne", 100)
	f.waxing = seed("Woskowanie", 200)
	f.detail = seed("Detailing wnętrza", 250)
	return f
}

func TestOrderSnapshotsSurvivePriceEdits(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	o, err := f.orders.Add(ctx, OrderInput{
		ClientID:   f.client.ID,
		ServiceIDs: []int64{f.washing.ID, f.detail.ID},
	})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if got := o.Total(); got != 350 {
		t.Fatalf("expected total 350, got %v", got)
	}

	// the catalog price goes up; the existing order must not move
	if _, err := f.services.Update(ctx, f.washing.ID, ServicePatch{Price: floatp(180)}); err != nil {
		t.Fatalf("update service: %v", err)
	}
	var rows []domain.Order
	q := gateway.Clauses{Equals: map[string]interface{}{"id": o.ID}, Limit: 1}
	if err := f.gw.Select(ctx, domain.Order{}.TableName(), q, &rows); err != nil || len(rows) != 1 {
		t.Fatalf("reload order: %v (%d rows)", err, len(rows))
	}
	if got := rows[0].Total(); got != 350 {
		t.Fatalf("stored snapshot must be immune to price edits, got %v", got)
	}
	if rows[0].Services[0].Price != 100 {
		t.Fatalf("snapshot price changed: %+v", rows[0].Services)
	}
}

func TestOrderAddDefaultsAndClientSnapshot(t *testing.T) {
	f := newOrderFixture(t)

	o, err := f.orders.Add(context.Background(), OrderInput{
		ClientID:   f.client.ID,
		ServiceIDs: []int64{f.waxing.ID},
	})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if o.Status != domain.StatusNew {
		t.Fatalf("omitted status must default to Nowe, got %q", o.Status)
	}
	if o.ClientName != "Jan Kowalski" || o.Client.Phone != "123-456-789" {
		t.Fatalf("client snapshot missing: %+v", o)
	}

	mirror := f.orders.Snapshot()
	if len(mirror) != 1 || mirror[0].ID != o.ID {
		t.Fatalf("new order must land at the front of the mirror: %+v", mirror)
	}
}

func TestOrderRejectsUnknownStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	bogus := domain.OrderStatus("Wysłane")
	if _, err := f.orders.Add(ctx, OrderInput{
		ClientID:   f.client.ID,
		ServiceIDs: []int64{f.washing.ID},
		Status:     bogus,
	}); err != ErrUnknownStatus {
		t.Fatalf("expected ErrUnknownStatus on add, got %v", err)
	}

	o, err := f.orders.Add(ctx, OrderInput{ClientID: f.client.ID, ServiceIDs: []int64{f.washing.ID}})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if _, err := f.orders.Update(ctx, o.ID, OrderPatch{Status: &bogus}); err != ErrUnknownStatus {
		t.Fatalf("expected ErrUnknownStatus on update, got %v", err)
	}
}

func TestOrderAddUnknownServiceFails(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.Add(context.Background(), OrderInput{
		ClientID:   f.client.ID,
		ServiceIDs: []int64{999999},
	})
	if err == nil {
		t.Fatal("expected error for unknown service reference")
	}
	if len(f.orders.Snapshot()) != 0 {
		t.Fatal("failed add must not touch the mirror")
	}
}

func TestOrderStatusFilterExactMatch(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	first, err := f.orders.Add(ctx, OrderInput{ClientID: f.client.ID, ServiceIDs: []int64{f.washing.ID}})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if _, err := f.orders.Add(ctx, OrderInput{ClientID: f.client.ID, ServiceIDs: []int64{f.waxing.ID}}); err != nil {
		t.Fatalf("add order: %v", err)
	}
	inProgress := domain.StatusInProgress
	if _, err := f.orders.Update(ctx, first.ID, OrderPatch{Status: &inProgress}); err != nil {
		t.Fatalf("update status: %v", err)
	}

	f.orders.mu.Lock()
	f.orders.filters.Status = string(domain.StatusInProgress)
	f.orders.mu.Unlock()

	out := f.orders.Filtered()
	if len(out) != 1 || out[0].ID != first.ID {
		t.Fatalf("expected only the W toku order, got %+v", out)
	}
}

func TestOrderStatusChangeHookFires(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	var fired []domain.Order
	f.orders.SetStatusChangeHook(func(o domain.Order) { fired = append(fired, o) })

	o, err := f.orders.Add(ctx, OrderInput{ClientID: f.client.ID, ServiceIDs: []int64{f.detail.ID}})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if len(fired) != 0 {
		t.Fatal("hook must not fire on create")
	}

	if _, err := f.orders.Update(ctx, o.ID, OrderPatch{Notes: strp("klucze w skrzynce")}); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if len(fired) != 0 {
		t.Fatal("hook must not fire on a notes-only patch")
	}

	awaiting := domain.StatusAwaiting
	if _, err := f.orders.Update(ctx, o.ID, OrderPatch{Status: &awaiting}); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if len(fired) != 1 || fired[0].Status != domain.StatusAwaiting {
		t.Fatalf("hook must fire once with the updated row, got %+v", fired)
	}
}

func TestOrderSortedByStatusRank(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	add := func(status domain.OrderStatus) {
		o, err := f.orders.Add(ctx, OrderInput{ClientID: f.client.ID, ServiceIDs: []int64{f.washing.ID}})
		if err != nil {
			t.Fatalf("add order: %v", err)
		}
		if status != domain.StatusNew {
			if _, err := f.orders.Update(ctx, o.ID, OrderPatch{Status: &status}); err != nil {
				t.Fatalf("set status: %v", err)
			}
		}
	}
	add(domain.StatusCancelled)
	add(domain.StatusNew)
	add(domain.StatusAwaiting)

	out := f.orders.Sorted(SortState{Column: "status", Direction: SortAsc})
	want := []domain.OrderStatus{domain.StatusNew, domain.StatusAwaiting, domain.StatusCancelled}
	for i, st := range want {
		if out[i].Status != st {
			t.Fatalf("position %d: expected %q, got %q", i, st, out[i].Status)
		}
	}
}

func floatp(v float64) *float64 { return &v }
