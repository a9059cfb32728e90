package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
)

const (
	superEmail      = "admin@glosspoint.pl"
	superUsername   = "admin"
	defaultPassword = "glosspoint"
)

// checkSuper makes sure the super admin account exists and still holds the
// admin role. A blanked password gets reset to the default.
func (a *Application) checkSuper() {
	ctx := context.Background()
	var rows []domain.Profile
	q := gateway.Clauses{Equals: map[string]interface{}{"username": superUsername}, Limit: 1}
	if err := a.gw.Select(ctx, domain.Profile{}.TableName(), q, &rows); err != nil {
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	if len(rows) == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Error("failed to hash default password", zap.Error(err))
			return
		}
		row := domain.Profile{
			Username:  superUsername,
			Email:     superEmail,
			Role:      domain.RoleAdmin,
			Password:  string(hash),
			LastLogin: time.Now(),
		}
		if err := a.gw.Insert(ctx, row.TableName(), &row); err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
			return
		}
		zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		return
	}

	p := rows[0]
	updates := map[string]interface{}{}
	if p.Password == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if err == nil {
			updates["password"] = string(hash)
		}
	}
	if p.Role != domain.RoleAdmin {
		updates["role"] = domain.RoleAdmin
	}
	if len(updates) == 0 {
		return
	}
	if err := a.gw.Update(ctx, p.TableName(), p.ID, updates, nil); err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}
	zap.L().Warn("repaired default super admin account", zap.String("username", superUsername))
}

type settingSchema struct {
	Key         string
	Default     string
	Description string
}

var defaultSettings = []settingSchema{
	{Key: "system.StudioName", Default: "GlossPoint Detailing", Description: "Studio name shown in exports and mails"},
	{Key: "system.Currency", Default: "PLN", Description: "Currency for prices and reports"},
	{Key: "notify.PickupSubject", Default: "Twoje auto jest gotowe do odbioru", Description: "Mail subject for pickup notifications"},
	{Key: "backup.KeepDays", Default: "30", Description: "Days of local backup files to retain"},
	{Key: "oprlog.KeepDays", Default: "365", Description: "Days of audit log rows to retain"},
}

// checkSettings inserts any missing sys_config defaults.
func (a *Application) checkSettings() {
	ctx := context.Background()
	for sortid, schema := range defaultSettings {
		category, name := splitKey(schema.Key)
		if category == "" {
			continue
		}
		var rows []domain.SysConfig
		q := gateway.Clauses{Equals: map[string]interface{}{"type": category, "name": name}, Limit: 1}
		if err := a.gw.Select(ctx, domain.SysConfig{}.TableName(), q, &rows); err != nil {
			zap.L().Error("failed to query settings", zap.Error(err))
			return
		}
		if len(rows) > 0 {
			continue
		}
		row := domain.SysConfig{
			Sort:   sortid,
			Type:   category,
			Name:   name,
			Value:  schema.Default,
			Remark: schema.Description,
		}
		if err := a.gw.Insert(ctx, row.TableName(), &row); err != nil {
			zap.L().Error("failed to create setting", zap.String("key", schema.Key), zap.Error(err))
			continue
		}
		zap.L().Info("initialized config", zap.String("key", schema.Key), zap.String("default", schema.Default))
	}
}

// checkCatalog seeds the starter service catalog into an empty database.
func (a *Application) checkCatalog() {
	ctx := context.Background()
	var rows []domain.Service
	if err := a.gw.Select(ctx, domain.Service{}.TableName(), gateway.Clauses{Limit: 1}, &rows); err != nil {
		zap.L().Error("failed to query service catalog", zap.Error(err))
		return
	}
	if len(rows) > 0 {
		return
	}

	catalog := []domain.Service{
		{Name: "Mycie zewnętrzne", Price: 100},
		{Name: "Woskowanie", Price: 200},
		{Name: "Detailing wnętrza", Price: 250},
	}
	for i := range catalog {
		if err := a.gw.Insert(ctx, catalog[i].TableName(), &catalog[i]); err != nil {
			zap.L().Error("failed to seed service", zap.String("name", catalog[i].Name), zap.Error(err))
			continue
		}
		zap.L().Info("seeded service", zap.String("name", catalog[i].Name))
	}
}

func splitKey(key string) (category, name string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:]
		}
	}
	return "", ""
}
