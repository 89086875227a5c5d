// @title                       Activity Tracker API
// @version                     1.0
// @description                 Authentication, token lifecycle and role-based access control for the activity tracker.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/activitytracker/tracker-api/internal/api"
	"github.com/activitytracker/tracker-api/internal/api/handler"
	"github.com/activitytracker/tracker-api/internal/core/policy"
	"github.com/activitytracker/tracker-api/internal/core/ports"
	"github.com/activitytracker/tracker-api/internal/core/service"
	"github.com/activitytracker/tracker-api/internal/infrastructure/config"
	mongostore "github.com/activitytracker/tracker-api/internal/infrastructure/db/mongo"
	pgstore "github.com/activitytracker/tracker-api/internal/infrastructure/db/postgres"
	redisstore "github.com/activitytracker/tracker-api/internal/infrastructure/db/redis"
	"github.com/activitytracker/tracker-api/internal/infrastructure/queue"
	"github.com/activitytracker/tracker-api/internal/infrastructure/sweeper"
	"github.com/activitytracker/tracker-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tracker-api: %v\n", err)
		os.Exit(1)
	}
}

// backends holds whichever store connections the configuration asks for.
type backends struct {
	mongoClient *mongodriver.Client
	mongoDB     *mongodriver.Database
	pg          *sql.DB
	redis       *goredis.Client
}

func (b *backends) close(ctx context.Context) {
	if b.mongoClient != nil {
		_ = b.mongoClient.Disconnect(ctx)
	}
	if b.pg != nil {
		_ = b.pg.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "tracker-api",
	})

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close(context.Background())

	principals, eventRepo := principalStore(cfg, b)
	refreshStore := refreshTokenStore(cfg, b)

	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, eventRepo, logger.Component("audit"))
	dispatcher.Start(ctx)

	tokens, err := service.NewTokenService(principals, refreshStore, service.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	}, logger.Component("tokens"))
	if err != nil {
		return err
	}

	authService := service.NewAuthService(principals, tokens, dispatcher, cfg.DefaultRole, logger.Component("auth"))
	authorizer := service.NewAuthorizer(principals, logger.Component("authz"))
	gate := service.NewGate(tokens, authorizer, dispatcher)

	sweep, err := sweeper.New(refreshStore, cfg.SweepSchedule, logger.Component("sweeper"))
	if err != nil {
		return err
	}
	sweep.Start()

	e := api.NewRouter(api.Dependencies{
		AuthService: authService,
		Gate:        gate,
		Policy:      policy.Default(),
		Checks:      readinessChecks(b),
		Log:         logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.StoreDriver).
			Str("refresh_store", cfg.RefreshStore).
			Msg("starting tracker-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	sweep.Stop(shutdownCtx)
	dispatcher.Close()

	log.Info().Msg("stopped")
	return nil
}

func connect(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}
	uses := func(driver string) bool {
		return cfg.StoreDriver == driver || cfg.RefreshStore == driver
	}

	if uses(config.DriverMongo) {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "tracker-api",
		})
		if err != nil {
			return nil, err
		}
		b.mongoClient, b.mongoDB = client, db
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			b.close(ctx)
			return nil, err
		}
	}

	if uses(config.DriverPostgres) {
		db, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			b.close(ctx)
			return nil, err
		}
		b.pg = db
		if err := pgstore.EnsureSchema(ctx, db); err != nil {
			b.close(ctx)
			return nil, err
		}
	}

	if uses(config.DriverRedis) {
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			b.close(ctx)
			return nil, err
		}
		b.redis = client
	}

	return b, nil
}

// principalStore returns the principal store and the audit sink living next to it.
func principalStore(cfg *config.Config, b *backends) (ports.PrincipalStore, ports.AuthEventRepository) {
	if cfg.StoreDriver == config.DriverPostgres {
		return pgstore.NewPrincipalStore(b.pg), pgstore.NewAuthEventRepository(b.pg)
	}
	return mongostore.NewPrincipalStore(b.mongoDB), mongostore.NewAuthEventRepository(b.mongoDB)
}

func refreshTokenStore(cfg *config.Config, b *backends) ports.RefreshTokenStore {
	switch cfg.RefreshStore {
	case config.DriverPostgres:
		return pgstore.NewRefreshTokenStore(b.pg)
	case config.DriverRedis:
		return redisstore.NewRefreshTokenStore(b.redis, "")
	default:
		return mongostore.NewRefreshTokenStore(b.mongoDB)
	}
}

func readinessChecks(b *backends) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{}
	if b.mongoClient != nil {
		checks["mongo"] = handler.PingFunc(func(ctx context.Context) error {
			return b.mongoClient.Ping(ctx, nil)
		})
	}
	if b.pg != nil {
		checks["postgres"] = handler.PingFunc(b.pg.PingContext)
	}
	if b.redis != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return b.redis.Ping(ctx).Err()
		})
	}
	return checks
}
