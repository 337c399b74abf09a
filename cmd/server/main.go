package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/maxviazov/revision-history-service/internal/config"
	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/handler"
	"github.com/maxviazov/revision-history-service/internal/logger"
	"github.com/maxviazov/revision-history-service/internal/metrics"
	"github.com/maxviazov/revision-history-service/internal/privilege"
	"github.com/maxviazov/revision-history-service/internal/render"
	"github.com/maxviazov/revision-history-service/internal/repository"
	"github.com/maxviazov/revision-history-service/internal/repository/dynamo"
	"github.com/maxviazov/revision-history-service/internal/repository/memory"
	"github.com/maxviazov/revision-history-service/internal/repository/postgres"
	"github.com/maxviazov/revision-history-service/internal/service"
)

func main() {
	path := "config.yaml"
	if p := os.Getenv("APP_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config loading failed: %v", err)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("logger initialization failed: %v", err)
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("service stopped")
	}
}

func run(cfg *config.Config, appLogger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, &appLogger)
	if err != nil {
		return err
	}
	defer store.Close()
	appLogger.Info().Str("driver", cfg.Store.Driver).Msg("store ready")

	privs := privilege.NewGroupChecker(cfg.Privileges.Groups)
	enum := enumerate.New(store.Revisions(), privs, enumerate.Limits{
		Default:       cfg.Limits.Default,
		UserMax:       cfg.Limits.UserMax,
		HighMax:       cfg.Limits.HighMax,
		MaxResultSize: cfg.Limits.MaxResultSize,
	})

	tokens := render.NewTokenRegistry()
	if cfg.Tokens.Secret != "" {
		tokens.Register(render.NewRollbackIssuer(cfg.Tokens.Secret, privs))
	} else {
		appLogger.Warn().Msg("tokens.secret is empty, rollback tokens are disabled")
	}
	renderer := render.New(privs, tokens)

	m := metrics.New(true)
	revSvc := service.NewRevisionService(enum, renderer, m, appLogger)
	pageSvc := service.NewPageService(store.Pages(), store.Writer(), store.Tx(), appLogger)

	if cfg.App.GinMode != "" {
		gin.SetMode(cfg.App.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestID(), m.Middleware(), handler.RequestLogger(appLogger))
	handler.Register(r, handler.Deps{
		Pinger:    store,
		Revisions: revSvc,
		Pages:     pageSvc,
		Metrics:   m.Handler(),
	})

	srv := &http.Server{
		Addr:         cfg.App.Addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.App.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.App.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", srv.Addr).Msg("service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLogger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.App.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// openStore builds the backend named by store.driver, migrating it first when asked.
func openStore(ctx context.Context, cfg *config.Config, l *zerolog.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres, l)
		if err != nil {
			return nil, err
		}
		if cfg.Store.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return postgres.NewStore(pool), nil
	case config.DriverDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, err
		}
		if cfg.Store.Migrate {
			if err := dynamo.CreateTable(ctx, client, cfg.DynamoDB.Table); err != nil {
				return nil, err
			}
		}
		return dynamo.New(client, cfg.DynamoDB.Table), nil
	default:
		return memory.New(), nil
	}
}
