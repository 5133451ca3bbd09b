package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/mgcaisse/caisse/config"
	"github.com/mgcaisse/caisse/internal/auth"
	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/internal/gateway"
	"github.com/mgcaisse/caisse/internal/pos"
	"github.com/mgcaisse/caisse/internal/store"
	"github.com/mgcaisse/caisse/internal/syncd"
	"github.com/mgcaisse/caisse/pkg/metrics"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus

	store   *store.GormStore
	cache   *gateway.Cache
	gateway *gateway.Gateway
	authn   *auth.Authenticator
	state   *pos.AppState
	sales   *pos.SaleService
	syncSvc *syncd.SyncService
	monitor *syncd.ConnectivityMonitor
}

// Ensure Application implements all interfaces
var (
	_ DBProvider     = (*Application)(nil)
	_ ConfigProvider = (*Application)(nil)
	_ StoreProvider  = (*Application)(nil)
	_ BusProvider    = (*Application)(nil)
	_ AppContext     = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	a.store = store.NewGormStore(db)
}

func (a *Application) Store() store.Store {
	return a.store
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) Gateway() *gateway.Gateway {
	return a.gateway
}

func (a *Application) Auth() *auth.Authenticator {
	return a.authn
}

func (a *Application) State() *pos.AppState {
	return a.state
}

func (a *Application) Sales() *pos.SaleService {
	return a.sales
}

func (a *Application) SyncService() *syncd.SyncService {
	return a.syncSvc
}

func (a *Application) Monitor() *syncd.ConnectivityMonitor {
	return a.monitor
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
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
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	// Initialize metrics with workdir convention
	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	// Open the local durable store
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	a.gormDB, err = getDatabase(cfg.Database, cfg.System.Workdir)
	if err != nil {
		return err
	}
	zap.S().Infof("Local store ready, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}
	a.store = store.NewGormStore(a.gormDB)

	a.checkLocalUsers()
	a.checkProducts()

	// Resource cache gateway with the current generation pair
	a.cache, err = gateway.OpenCache(filepath.Join(cfg.System.Workdir, "cache.db"))
	if err != nil {
		return err
	}
	a.gateway = gateway.NewGateway(cfg.Gateway, a.cache)
	if err := a.gateway.Activate(); err != nil {
		zap.S().Errorf("cache generation activation failed: %v", err)
	}

	// Connectivity events and queue drain
	a.bus = EventBus.New()
	a.monitor = syncd.NewConnectivityMonitor(
		cfg.Sync.Endpoint,
		time.Duration(cfg.Sync.ProbeInterval)*time.Second,
		a.bus,
	)
	a.syncSvc = syncd.NewSyncService(a.store, syncd.NewRemoteDeliverer(cfg.Sync.Endpoint), a.bus)

	// Session and sale handling
	a.authn = auth.NewAuthenticator(
		a.store,
		auth.NewTokenStore(cfg.System.Workdir),
		cfg.Auth.JwtSecret,
		cfg.Auth.IdentityURL,
	)
	a.state = pos.NewAppState()
	a.sales = pos.NewSaleService(a.store, a.monitor.IsOnline)

	a.initJob()
	return nil
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// StartBackgroundServices starts connectivity probing, drain subscription
// and shell precache.
func (a *Application) StartBackgroundServices(ctx context.Context) {
	if err := a.syncSvc.Start(ctx); err != nil {
		zap.S().Errorf("sync service subscription failed: %v", err)
	}
	a.monitor.Start(ctx)
	go a.gateway.Precache(ctx)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.syncSvc != nil {
		a.syncSvc.Stop()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
