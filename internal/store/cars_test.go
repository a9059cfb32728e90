package store

import (
	"context"
	"testing"

	"github.com/asaskevich/EventBus"

	"github.com/glosspoint/glosspoint/internal/gateway"
)

func newCarFixture(t *testing.T) (*ClientStore, *CarStore) {
	t.Helper()
	gw := gateway.NewMemoryGateway()
	bus := EventBus.New()
	act := NewActivity()
	clients := NewClientStore(gw, bus, act)
	cars := NewCarStore(gw, bus, act)
	cars.SetReconcile(func(ctx context.Context) {
		if _, err := clients.FetchAll(ctx); err != nil {
			t.Errorf("reconcile refetch failed: %v", err)
		}
	})
	return clients, cars
}

func TestCarAddReconcilesParentClient(t *testing.T) {
	clients, cars := newCarFixture(t)
	ctx := context.Background()

	c, err := clients.Add(ctx, ClientInput{Name: "Jan Kowalski"})
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	car, err := cars.Add(ctx, c.ID, CarInput{Make: "Audi", Model: "A4", LicensePlate: "KR 12345"})
	if err != nil {
		t.Fatalf("add car: %v", err)
	}

	mirror := clients.Snapshot()
	if len(mirror) != 1 {
		t.Fatalf("expected one client, got %d", len(mirror))
	}
	if len(mirror[0].Cars) != 1 || mirror[0].Cars[0].ID != car.ID {
		t.Fatalf("client mirror must embed the new car, got %+v", mirror[0].Cars)
	}
}

func TestCarDeleteReconcilesParentClient(t *testing.T) {
	clients, cars := newCarFixture(t)
	ctx := context.Background()

	c, err := clients.Add(ctx, ClientInput{Name: "Jan Kowalski"})
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	car, err := cars.Add(ctx, c.ID, CarInput{Make: "Audi", Model: "A4"})
	if err != nil {
		t.Fatalf("add car: %v", err)
	}
	if err := cars.Delete(ctx, car.ID); err != nil {
		t.Fatalf("delete car: %v", err)
	}

	mirror := clients.Snapshot()
	if len(mirror[0].Cars) != 0 {
		t.Fatalf("deleted car must vanish from the client mirror, got %+v", mirror[0].Cars)
	}
}

func TestCarUpdatePatchSemantics(t *testing.T) {
	_, cars := newCarFixture(t)
	ctx := context.Background()

	car, err := cars.Add(ctx, 1, CarInput{Make: "Audi", Model: "A4", Color: "czarny", Year: 2018})
	if err != nil {
		t.Fatalf("add car: %v", err)
	}
	updated, err := cars.Update(ctx, car.ID, CarPatch{Color: strp("srebrny")})
	if err != nil {
		t.Fatalf("update car: %v", err)
	}
	if updated.Color != "srebrny" {
		t.Fatalf("patched field not applied: %+v", updated)
	}
	if updated.Make != "Audi" || updated.Year != 2018 {
		t.Fatalf("unpatched fields must survive: %+v", updated)
	}
}

func TestCarFilteredMatchesPlateAndColor(t *testing.T) {
	_, cars := newCarFixture(t)
	ctx := context.Background()

	if _, err := cars.Add(ctx, 1, CarInput{Make: "Audi", Model: "A4", LicensePlate: "KR 12345", Color: "czarny"}); err != nil {
		t.Fatalf("add car: %v", err)
	}
	if _, err := cars.Add(ctx, 1, CarInput{Make: "Skoda", Model: "Octavia", LicensePlate: "WA 98765", Color: "biały"}); err != nil {
		t.Fatalf("add car: %v", err)
	}

	cars.mu.Lock()
	cars.filters.SearchTerm = "kr 12"
	cars.mu.Unlock()
	out := cars.Filtered()
	if len(out) != 1 || out[0].Make != "Audi" {
		t.Fatalf("expected plate match only, got %+v", out)
	}

	cars.mu.Lock()
	cars.filters.SearchTerm = "biały"
	cars.mu.Unlock()
	out = cars.Filtered()
	if len(out) != 1 || out[0].Make != "Skoda" {
		t.Fatalf("expected color match only, got %+v", out)
	}
}
