package localstore

import (
	"context"
	"path"
	"testing"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

func TestRowsSurviveReopen(t *testing.T) {
	file := path.Join(t.TempDir(), "glosspoint.db")
	ctx := context.Background()

	s, err := Open(file)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	client := domain.Client{Name: "Jan Kowalski", Phone: "123-456-789"}
	if err := s.Insert(ctx, client.TableName(), &client); err != nil {
		t.Fatalf("insert client: %v", err)
	}
	car := domain.Car{ClientID: client.ID, Make: "Audi", Model: "A4"}
	if err := s.Insert(ctx, car.TableName(), &car); err != nil {
		t.Fatalf("insert car: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(file)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	var clients []domain.Client
	q := gateway.Clauses{Preload: []string{"Cars"}}
	if err := s2.Select(ctx, client.TableName(), q, &clients); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(clients) != 1 || clients[0].ID != client.ID || clients[0].Name != "Jan Kowalski" {
		t.Fatalf("row did not survive reopen: %+v", clients)
	}
	if len(clients[0].Cars) != 1 || clients[0].Cars[0].ID != car.ID {
		t.Fatalf("related car did not survive reopen: %+v", clients[0].Cars)
	}
}

func TestPersistFollowsUpdatesAndDeletes(t *testing.T) {
	file := path.Join(t.TempDir(), "glosspoint.db")
	ctx := context.Background()

	s, err := Open(file)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc := domain.Service{Name: "Woskowanie", Price: 200}
	if err := s.Insert(ctx, svc.TableName(), &svc); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var updated domain.Service
	if err := s.Update(ctx, svc.TableName(), svc.ID, map[string]interface{}{"price": 250.0}, &updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	doomed := domain.Service{Name: "Pranie tapicerki", Price: 300}
	if err := s.Insert(ctx, doomed.TableName(), &doomed); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Delete(ctx, doomed.TableName(), doomed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(file)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	var services []domain.Service
	if err := s2.Select(ctx, svc.TableName(), gateway.Clauses{}, &services); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(services) != 1 || services[0].Price != 250 {
		t.Fatalf("persisted state must reflect update and delete: %+v", services)
	}
}
