package app

import (
	"context"
	"os"
	"path"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/glosspoint/glosspoint/config"
	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/internal/localstore"
	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/pkg/metrics"
	"github.com/glosspoint/glosspoint/pkg/notify"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	local     *localstore.LocalStore
	gw        gateway.Gateway
	bus       EventBus.Bus
	activity  *store.Activity
	sched     *cron.Cron
	settings  *SettingsManager
	notifier  *notify.Notifier

	clients  *store.ClientStore
	cars     *store.CarStore
	services *store.ServiceStore
	orders   *store.OrderStore
	auth     *store.AuthStore
}

// Ensure Application implements all interfaces
var (
	_ GatewayProvider   = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SettingsProvider  = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ StoreProvider     = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig { return a.appConfig }
func (a *Application) Gateway() gateway.Gateway  { return a.gw }
func (a *Application) Bus() EventBus.Bus         { return a.bus }
func (a *Application) Activity() *store.Activity { return a.activity }
func (a *Application) Scheduler() *cron.Cron     { return a.sched }
func (a *Application) Settings() *SettingsManager { return a.settings }
func (a *Application) Notifier() *notify.Notifier { return a.notifier }

func (a *Application) Clients() *store.ClientStore   { return a.clients }
func (a *Application) Cars() *store.CarStore         { return a.cars }
func (a *Application) Services() *store.ServiceStore { return a.services }
func (a *Application) Orders() *store.OrderStore     { return a.orders }
func (a *Application) Auth() *store.AuthStore        { return a.auth }

// OverrideGateway replaces the backing gateway (used in tests).
func (a *Application) OverrideGateway(gw gateway.Gateway) {
	a.gw = gw
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	cfg.InitDirs()
	a.initLogger(cfg)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	switch cfg.Database.Type {
	case "local":
		local, err := localstore.Open(path.Join(cfg.GetDataDir(), "glosspoint.db"))
		if err != nil {
			panic(err)
		}
		a.local = local
		a.gw = local
	default:
		a.gormDB = getDatabase(cfg.Database)
		if err := a.MigrateDB(cfg.Database.Debug); err != nil {
			zap.S().Errorf("database migration failed: %v", err)
		}
		a.gw = gateway.NewGormGateway(a.gormDB)
	}
	zap.S().Infof("database ready, type: %s", cfg.Database.Type)

	a.checkSuper()
	a.checkSettings()
	a.checkCatalog()

	a.bus = EventBus.New()
	a.activity = store.NewActivity()
	a.settings = NewSettingsManager(a.gw)
	a.settings.Load(context.Background())

	if n, err := notify.NewNotifier(cfg.Notify); err != nil {
		zap.S().Warnf("notifier init failed: %s", err)
	} else {
		a.notifier = n
	}

	a.initStores()
	a.initJob()
}

// initStores wires the entity stores to the shared gateway and event bus,
// including the car→client reconciliation and the pickup notification.
func (a *Application) initStores() {
	a.clients = store.NewClientStore(a.gw, a.bus, a.activity)
	a.cars = store.NewCarStore(a.gw, a.bus, a.activity)
	a.services = store.NewServiceStore(a.gw, a.bus, a.activity)
	a.orders = store.NewOrderStore(a.gw, a.bus, a.activity)
	a.auth = store.NewAuthStore(a.gw, a.bus, a.activity)

	a.cars.SetReconcile(func(ctx context.Context) {
		if _, err := a.clients.FetchAll(ctx); err != nil {
			zap.L().Warn("client reconciliation failed", zap.Error(err))
		}
	})

	a.orders.SetStatusChangeHook(func(o domain.Order) {
		metrics.Counter("orders_status_change")
		if o.Status != domain.StatusAwaiting || a.notifier == nil {
			return
		}
		a.notifier.Send(notify.Message{
			To:      o.Client.Email,
			Subject: "Twoje auto jest gotowe do odbioru",
			Body:    "Zlecenie dla " + o.ClientName + " zostało zakończone. Zapraszamy po odbiór.",
		})
	})
}

func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

func (a *Application) MigrateDB(track bool) error {
	if a.gormDB == nil {
		return nil
	}
	if track {
		return a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...)
	}
	return a.gormDB.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	if a.gormDB != nil {
		_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	}
}

// AddOprLog records an audit row for an admin action.
func (a *Application) AddOprLog(name, ip, action, desc string) {
	row := domain.SysOprLog{
		OprName:   name,
		OprIp:     ip,
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}
	if err := a.gw.Insert(context.Background(), row.TableName(), &row); err != nil {
		zap.L().Warn("audit log write failed", zap.Error(err))
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.notifier != nil {
		a.notifier.Release()
	}
	if a.local != nil {
		_ = a.local.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
