package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-servicereq/internal/core/auth"
	"go-servicereq/internal/core/cache"
	"go-servicereq/internal/core/config"
	"go-servicereq/internal/core/database"
	"go-servicereq/internal/core/logger"
	"go-servicereq/internal/core/server"
	"go-servicereq/internal/domain"
	"go-servicereq/internal/events"
	"go-servicereq/internal/feature/servicereq"
	"go-servicereq/internal/repo"
	"go-servicereq/internal/transport/http/handler"
	"go-servicereq/internal/transport/http/router"
	"go-servicereq/internal/upstream"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.New(logger.FromConfig(cfg.Log))
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("servicereq api exited", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewGorm(database.OptsFromConfig(cfg.DB), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = database.Ping(pctx, db)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}

	timeout := time.Duration(cfg.Upstream.TimeoutSec) * time.Second
	gateway, closeCache, err := authGateway(ctx, cfg, timeout, log)
	if err != nil {
		return err
	}
	defer closeCache()

	publisher, closeEvents := eventPublisher(cfg.Events, log)
	defer closeEvents()

	svc := servicereq.New(servicereq.Deps{
		Auth:     gateway,
		Products: upstream.NewProductClient(cfg.Upstream.Product.BaseURL, timeout, log),
		Users:    upstream.NewUserClient(cfg.Upstream.User.BaseURL, timeout, log),
		Store:    repo.NewStore(db),
		Events:   publisher,
		Log:      log,
	}, servicereq.Options{FirstProductOnly: cfg.Orchestrator.FirstProductOnly})

	h := cfg.App.HTTP
	engine := router.NewAPIEngine(h, log, handler.NewServiceReqHandler(svc, log))
	srv := server.BuildServer(
		server.Addr(h.Host, h.Port), engine,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)
	log.Info("servicereq api starting",
		zap.String("env", cfg.App.Env),
		zap.String("auth_mode", cfg.Auth.Mode),
		zap.Bool("first_product_only", cfg.Orchestrator.FirstProductOnly),
		zap.Bool("events", cfg.Events.Enabled),
	)
	return server.Run(ctx, srv, log, 10*time.Second)
}

// authGateway picks remote or local JWT validation and puts the redis cache
// in front of it when auth.cacheTTLSec is set.
func authGateway(ctx context.Context, cfg *config.Config, timeout time.Duration, log *zap.Logger) (domain.AuthGateway, func(), error) {
	var gw domain.AuthGateway
	switch cfg.Auth.Mode {
	case "jwt":
		gw = upstream.NewJWTGateway(&auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer})
	default:
		gw = upstream.NewAuthClient(cfg.Upstream.Auth.BaseURL, timeout, log)
	}
	if cfg.Auth.CacheTTLSec <= 0 {
		return gw, func() {}, nil
	}

	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.App.Name+":")
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pctx); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	log.Info("token validation cache enabled", zap.Int("ttl_sec", cfg.Auth.CacheTTLSec))
	closeFn := func() {
		if err := c.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	}
	return upstream.NewCachedAuth(gw, c, time.Duration(cfg.Auth.CacheTTLSec)*time.Second), closeFn, nil
}

func eventPublisher(cfg config.Events, log *zap.Logger) (events.Publisher, func()) {
	if !cfg.Enabled {
		return events.Noop{}, func() {}
	}
	p := events.NewAMQP(cfg.URL, cfg.Queue, time.Duration(cfg.DialTimeoutSec)*time.Second, log)
	publishTimeout := time.Duration(cfg.PublishTimeoutSec) * time.Second
	async := events.NewAsync(p, cfg.BufferSize, publishTimeout, log)
	return events.Logged{Next: async, Log: log}, func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout+time.Second)
		defer cancel()
		if err := async.Close(ctx); err != nil {
			log.Warn("drain event queue", zap.Error(err))
		}
		if err := p.Close(); err != nil {
			log.Warn("close amqp", zap.Error(err))
		}
	}
}
