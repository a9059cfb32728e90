package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

func TestMemoryInsertSelectNewestFirst(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	ctx := context.Background()

	first := domain.Client{Name: "Jan Kowalski", CreatedAt: time.Now().Add(-time.Hour)}
	second := domain.Client{Name: "Anna Nowak"}
	if err := gw.Insert(ctx, "clients", &first); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := gw.Insert(ctx, "clients", &second); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if first.ID == 0 || second.ID == 0 {
		t.Fatal("expected server-assigned identifiers")
	}

	var clients []domain.Client
	if err := gw.Select(ctx, "clients", gateway.Clauses{}, &clients); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(clients))
	}
	if clients[0].Name != "Anna Nowak" {
		t.Fatalf("expected newest row first, got %q", clients[0].Name)
	}
}

func TestMemorySearchClause(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	ctx := context.Background()

	rows := []domain.Client{
		{Name: "Jan Kowalski", Email: "jan@example.com"},
		{Name: "Anna Nowak", Phone: "987-654-321"},
	}
	for i := range rows {
		if err := gw.Insert(ctx, "clients", &rows[i]); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	q := gateway.Clauses{Search: "KOWAL", SearchColumns: []string{"name", "phone", "email"}}
	var got []domain.Client
	if err := gw.Select(ctx, "clients", q, &got); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Jan Kowalski" {
		t.Fatalf("expected only Jan Kowalski, got %+v", got)
	}

	q.Search = "zzz"
	if err := gw.Select(ctx, "clients", q, &got); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(got))
	}
}

func TestMemoryDateRangeInclusive(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	ctx := context.Background()

	midnight := time.Date(2025, 10, 15, 0, 0, 0, 0, time.Local)
	endOfDay := time.Date(2025, 10, 15, 23, 59, 59, 0, time.Local)

	early := domain.Client{Name: "early", CreatedAt: midnight}
	late := domain.Client{Name: "late", CreatedAt: endOfDay}
	outside := domain.Client{Name: "outside", CreatedAt: endOfDay.Add(time.Hour)}
	for _, c := range []*domain.Client{&early, &late, &outside} {
		if err := gw.Insert(ctx, "clients", c); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	to := time.Date(2025, 10, 15, 23, 59, 59, int(999*time.Millisecond), time.Local)
	q := gateway.Clauses{CreatedFrom: &midnight, CreatedTo: &to}
	var got []domain.Client
	if err := gw.Select(ctx, "clients", q, &got); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected boundary rows included, got %d", len(got))
	}
}

func TestMemoryUpdatePatch(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	ctx := context.Background()

	svc := domain.Service{Name: "Woskowanie", Price: 200}
	if err := gw.Insert(ctx, "services", &svc); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var updated domain.Service
	patch := map[string]interface{}{"price": 250.0}
	if err := gw.Update(ctx, "services", svc.ID, patch, &updated); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Price != 250 {
		t.Fatalf("expected patched price 250, got %v", updated.Price)
	}
	if updated.Name != "Woskowanie" {
		t.Fatalf("unpatched field changed: %q", updated.Name)
	}

	if err := gw.Update(ctx, "services", 424242, patch, nil); err != gateway.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDeleteCascadesCars(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	ctx := context.Background()

	client := domain.Client{Name: "Jan Kowalski"}
	if err := gw.Insert(ctx, "clients", &client); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	car := domain.Car{ClientID: client.ID, Make: "Audi"}
	if err := gw.Insert(ctx, "cars", &car); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := gw.Delete(ctx, "clients", client.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	var cars []domain.Car
	if err := gw.Select(ctx, "cars", gateway.Clauses{}, &cars); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(cars) != 0 {
		t.Fatalf("expected cascade to remove cars, got %d", len(cars))
	}
}

func TestMemoryPreloadCars(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	ctx := context.Background()

	client := domain.Client{Name: "Jan Kowalski"}
	if err := gw.Insert(ctx, "clients", &client); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	car := domain.Car{ClientID: client.ID, Make: "Audi", Model: "A4"}
	if err := gw.Insert(ctx, "cars", &car); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var clients []domain.Client
	q := gateway.Clauses{Preload: []string{"Cars"}}
	if err := gw.Select(ctx, "clients", q, &clients); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(clients) != 1 || len(clients[0].Cars) != 1 {
		t.Fatalf("expected embedded car collection, got %+v", clients)
	}
	if clients[0].Cars[0].Make != "Audi" {
		t.Fatalf("unexpected car %+v", clients[0].Cars[0])
	}
}
