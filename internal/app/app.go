package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cleanops-client/internal/apiclient"
	"github.com/noah-isme/cleanops-client/internal/repository"
	"github.com/noah-isme/cleanops-client/internal/service"
	"github.com/noah-isme/cleanops-client/internal/transport"
	"github.com/noah-isme/cleanops-client/pkg/config"
	"github.com/noah-isme/cleanops-client/pkg/database"
	"github.com/noah-isme/cleanops-client/pkg/kvstore"
	"github.com/noah-isme/cleanops-client/pkg/storage"
)

const redisKeyPrefix = "cleanops:session:"

// App bundles the wired client components.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *service.MetricsService
	Session    *service.SessionService
	API        *apiclient.Client
	Tasks      *service.TaskStore
	Reviews    *service.ReviewStore
	Exports    *service.ExportService
	Reconciler *service.Reconciler

	closers []func() error
}

// Option overrides a default dependency.
type Option func(*options)

type options struct {
	base http.RoundTripper
	repo service.TokenRepository
}

// WithBaseTransport sets the innermost round tripper of the request chain.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithTokenRepository replaces the configured token store.
func WithTokenRepository(repo service.TokenRepository) Option {
	return func(o *options) { o.repo = repo }
}

// New wires the session, transport chain, API client and stores. The session
// is not restored; call Session.Boot for that.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger, Metrics: service.NewMetricsService()}

	repo := o.repo
	if repo == nil {
		var err error
		repo, err = a.tokenRepository(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	validate := validator.New()
	a.Session = service.NewSessionService(repo, validate, logger, a.Metrics)

	rt := transport.Chain(o.base,
		transport.RequestID(),
		transport.Logging(logger),
		transport.Metrics(a.Metrics),
		transport.BearerToken(a.Session),
		transport.LogoutOnUnauthorized(a.Session),
	)
	a.API = apiclient.New(cfg.API, rt, logger)
	a.Session.UseAPI(a.API)

	a.Tasks = service.NewTaskStore(a.API, logger, service.WithStoreMetrics(a.Metrics))
	a.Reviews = service.NewReviewStore(a.API, validate, logger, service.WithStoreMetrics(a.Metrics))

	exportStorage, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("export storage: %w", err)
	}
	a.Exports = service.NewExportService(exportStorage, logger, nil, nil)

	a.Reconciler, err = service.NewReconciler(cfg.Reconcile.Schedule, logger, a.Metrics)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) tokenRepository(ctx context.Context) (service.TokenRepository, error) {
	key := a.Config.TokenStore.Key
	switch a.Config.TokenStore.Backend {
	case config.TokenStoreFile, "":
		st, err := storage.NewLocalStorage(a.Config.TokenStore.Dir)
		if err != nil {
			return nil, fmt.Errorf("token storage: %w", err)
		}
		return repository.NewFileTokenRepository(st, key), nil
	case config.TokenStoreRedis:
		client, err := kvstore.NewRedis(a.Config.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return repository.NewRedisTokenRepository(client, redisKeyPrefix+key, 0), nil
	case config.TokenStorePostgres:
		db, err := database.NewPostgres(a.Config.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := repository.NewPostgresTokenRepository(db, key)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("token schema: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown token store %q", a.Config.TokenStore.Backend)
	}
}

// Close stops the reconciler and releases store connections.
func (a *App) Close() error {
	if a.Reconciler != nil {
		a.Reconciler.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
