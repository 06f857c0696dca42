package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-admin/internal/auth"
	"github.com/iliyamo/storefront-admin/internal/config"
	"github.com/iliyamo/storefront-admin/internal/database"
	"github.com/iliyamo/storefront-admin/internal/handler"
	"github.com/iliyamo/storefront-admin/internal/identity"
	"github.com/iliyamo/storefront-admin/internal/lifecycle"
	"github.com/iliyamo/storefront-admin/internal/logger"
	"github.com/iliyamo/storefront-admin/internal/middleware"
	"github.com/iliyamo/storefront-admin/internal/queue"
	"github.com/iliyamo/storefront-admin/internal/repository"
	"github.com/iliyamo/storefront-admin/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(logger.ForEnvironment(cfg.Env, cfg.LogLevel, cfg.LogFormat))
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, db)

	var provider identity.Provider
	switch cfg.IdentityProvider {
	case config.ProviderFirebase:
		client, err := identity.InitFirebaseAuth(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal("firebase auth", zap.Error(err))
		}
		provider = identity.NewFirebase(client)
	default:
		local := identity.NewLocal(repository.NewIdentityRepo(db), repository.NewSessionRepo(db), identity.LocalConfig{
			SessionSecret: cfg.SessionSecret,
			SessionTTL:    cfg.SessionTTL,
			BcryptCost:    cfg.BcryptCost,
		})
		provider = local
		router.RegisterAuth(e, handler.NewAuthHandler(local, cfg.Env == "production"))
	}

	admins, err := cfg.AdminAllowList()
	if err != nil {
		log.Fatal("admin allow-list", zap.Error(err))
	}
	guard := auth.NewGuard(cfg.AdminAPIToken, provider, auth.NewAllowList(admins...))

	var notifier lifecycle.Notifier
	if cfg.EventsEnabled {
		notifier = queue.NewPublisher(cfg.RabbitURL)
	}
	orch := lifecycle.New(lifecycle.Deps{
		Customers:    repository.NewCustomerRepo(db),
		Entitlements: repository.NewEntitlementRepo(db),
		Profiles:     repository.NewProfileRepo(db),
		Orders:       repository.NewOrderRepo(db),
		Products:     repository.NewProductRepo(db),
		Identities:   provider,
		Notifier:     notifier,
		Logger:       log.Named("lifecycle"),
	})

	// The limiter is optional; without Redis requests are not throttled.
	rlCfg := config.LoadRateLimitConfig()
	var limiter echo.MiddlewareFunc
	if rlCfg.Enabled {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			limiter = middleware.NewTokenBucket(rlCfg, rdb)
		}
	}
	router.RegisterAdmin(e, handler.NewLifecycleHandler(orch, cfg.RequestTimeout), guard, limiter)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("identity_provider", cfg.IdentityProvider))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
