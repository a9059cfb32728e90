package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"

	"github.com/glosspoint/glosspoint/config"
	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/internal/store"
)

// GatewayProvider provides data access
type GatewayProvider interface {
	Gateway() gateway.Gateway
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	Settings() *SettingsManager
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// StoreProvider exposes the entity stores handlers work against
type StoreProvider interface {
	Clients() *store.ClientStore
	Cars() *store.CarStore
	Services() *store.ServiceStore
	Orders() *store.OrderStore
	Auth() *store.AuthStore
	Bus() EventBus.Bus
	Activity() *store.Activity
}

// AppContext combines all provider interfaces for full application context.
// Handlers should depend on specific providers or this combined interface.
type AppContext interface {
	GatewayProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	StoreProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	DropAll()
	// AddOprLog records an audit row for an admin action
	AddOprLog(name, ip, action, desc string)
}
