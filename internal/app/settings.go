package app

import (
	"context"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

// SettingsManager caches the sys_config table and answers typed lookups.
type SettingsManager struct {
	gw gateway.Gateway

	mu    sync.RWMutex
	cache map[string]map[string]string
}

func NewSettingsManager(gw gateway.Gateway) *SettingsManager {
	return &SettingsManager{gw: gw, cache: make(map[string]map[string]string)}
}

// Load refreshes the cache from the backing table.
func (m *SettingsManager) Load(ctx context.Context) {
	var rows []domain.SysConfig
	if err := m.gw.Select(ctx, domain.SysConfig{}.TableName(), gateway.Clauses{}, &rows); err != nil {
		zap.L().Error("settings load failed", zap.Error(err))
		return
	}
	cache := make(map[string]map[string]string)
	for _, row := range rows {
		if cache[row.Type] == nil {
			cache[row.Type] = make(map[string]string)
		}
		cache[row.Type][row.Name] = row.Value
	}
	m.mu.Lock()
	m.cache = cache
	m.mu.Unlock()
}

func (m *SettingsManager) GetString(category, name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache[category][name]
}

func (m *SettingsManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.GetString(category, name))
}

func (m *SettingsManager) GetBool(category, name string) bool {
	return cast.ToBool(m.GetString(category, name))
}

// Decode maps one category's key/value pairs onto a struct.
func (m *SettingsManager) Decode(category string, out interface{}) error {
	m.mu.RLock()
	values := make(map[string]interface{}, len(m.cache[category]))
	for k, v := range m.cache[category] {
		values[k] = v
	}
	m.mu.RUnlock()
	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(values)
}

// Save writes a single value through to the table and the cache.
func (m *SettingsManager) Save(ctx context.Context, category, name, value string) error {
	var rows []domain.SysConfig
	q := gateway.Clauses{Equals: map[string]interface{}{"type": category, "name": name}, Limit: 1}
	if err := m.gw.Select(ctx, domain.SysConfig{}.TableName(), q, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := m.gw.Update(ctx, rows[0].TableName(), rows[0].ID, map[string]interface{}{"value": value}, nil); err != nil {
			return err
		}
	} else {
		row := domain.SysConfig{Type: category, Name: name, Value: value}
		if err := m.gw.Insert(ctx, row.TableName(), &row); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if m.cache[category] == nil {
		m.cache[category] = make(map[string]string)
	}
	m.cache[category][name] = value
	m.mu.Unlock()
	return nil
}
