package app

import (
	"context"
	"testing"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

func seedSetting(t *testing.T, gw gateway.Gateway, category, name, value string) {
	t.Helper()
	row := domain.SysConfig{Type: category, Name: name, Value: value}
	if err := gw.Insert(context.Background(), row.TableName(), &row); err != nil {
		t.Fatalf("seed setting: %v", err)
	}
}

func TestSettingsTypedLookups(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	seedSetting(t, gw, "system", "StudioName", "GlossPoint Detailing")
	seedSetting(t, gw, "backup", "KeepDays", "14")
	seedSetting(t, gw, "notify", "Enabled", "true")

	m := NewSettingsManager(gw)
	m.Load(context.Background())

	if got := m.GetString("system", "StudioName"); got != "GlossPoint Detailing" {
		t.Fatalf("GetString: %q", got)
	}
	if got := m.GetInt64("backup", "KeepDays"); got != 14 {
		t.Fatalf("GetInt64: %d", got)
	}
	if !m.GetBool("notify", "Enabled") {
		t.Fatal("GetBool: expected true")
	}
	if got := m.GetString("system", "Missing"); got != "" {
		t.Fatalf("missing key must be empty, got %q", got)
	}
}

func TestSettingsSaveWritesThrough(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	m := NewSettingsManager(gw)
	m.Load(context.Background())

	if err := m.Save(context.Background(), "system", "Currency", "PLN"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := m.GetString("system", "Currency"); got != "PLN" {
		t.Fatalf("cache not updated: %q", got)
	}

	// a fresh manager must see the persisted value
	m2 := NewSettingsManager(gw)
	m2.Load(context.Background())
	if got := m2.GetString("system", "Currency"); got != "PLN" {
		t.Fatalf("value not persisted: %q", got)
	}

	// saving again updates in place rather than duplicating the row
	if err := m.Save(context.Background(), "system", "Currency", "EUR"); err != nil {
		t.Fatalf("save: %v", err)
	}
	var rows []domain.SysConfig
	q := gateway.Clauses{Equals: map[string]interface{}{"type": "system", "name": "Currency"}}
	if err := gw.Select(context.Background(), domain.SysConfig{}.TableName(), q, &rows); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0].Value != "EUR" {
		t.Fatalf("expected one updated row, got %+v", rows)
	}
}

func TestSettingsDecodeCategory(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	seedSetting(t, gw, "backup", "KeepDays", "30")
	seedSetting(t, gw, "backup", "Enable", "true")

	m := NewSettingsManager(gw)
	m.Load(context.Background())

	var out struct {
		KeepDays int
		Enable   bool
	}
	if err := m.Decode("backup", &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.KeepDays != 30 || !out.Enable {
		t.Fatalf("decoded struct wrong: %+v", out)
	}
}
