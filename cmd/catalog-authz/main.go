package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	authorization "github.com/betandbeat/catalog-authorization"
	"github.com/betandbeat/catalog-authorization/config"
	"github.com/betandbeat/catalog-authorization/httpapi"
	"github.com/betandbeat/catalog-authorization/logging"
	"github.com/betandbeat/catalog-authorization/pgstore"
	"github.com/betandbeat/catalog-authorization/rules"
	"github.com/betandbeat/catalog-authorization/session"
)

type backend struct {
	principals authorization.PrincipalStore
	roles      authorization.RoleRegistry
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("principal store ready")

	matrix, err := rules.NewMatrix()
	if err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	observer := authorization.NewLogObserver(logger)
	audiences := authorization.NewAudienceService(authorization.AudienceServiceConfig{
		Store:    store.principals,
		Roles:    store.roles,
		Observer: observer,
	})
	if err := audiences.Bootstrap(ctx, authorization.BootstrapAdmin{
		Username: cfg.BootstrapAdminUsername,
		Password: cfg.BootstrapAdminPassword,
	}); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Params{
		Logger:         logger,
		Matrix:         matrix,
		Audiences:      audiences,
		Roles:          authorization.NewRoleService(store.roles, observer),
		Principals:     store.principals,
		Sessions:       session.NewStore(redisClient, cfg.SessionTTL),
		SessionCookie:  cfg.SessionCookie,
		Production:     cfg.IsProduction(),
		LoginRateLimit: cfg.LoginRateLimit,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.AppAddr).Msg("listening")
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgstore.Connect(ctx, cfg.PGDSN)
		if err != nil {
			return backend{}, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return backend{}, err
		}
		s := pgstore.New(pool)
		return backend{principals: s, roles: s, close: pool.Close}, nil
	case config.BackendRemote:
		token := cfg.RemoteStoreToken
		s := authorization.NewRemoteStore(cfg.RemoteStoreEndpoint, func() (string, error) { return token, nil })
		return backend{principals: s, roles: s, close: func() {}}, nil
	default:
		s := authorization.NewInMemoryStorage()
		return backend{principals: s, roles: s, close: func() {}}, nil
	}
}
