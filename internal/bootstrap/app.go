package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	googleauth "docviewer-backend/internal/auth"
	"docviewer-backend/internal/documents"
	"docviewer-backend/internal/impersonation"
	"docviewer-backend/internal/rendering"
	"docviewer-backend/internal/services/health"
	"docviewer-backend/internal/shared/auth"
	"docviewer-backend/internal/shared/config"
	"docviewer-backend/internal/shared/metrics"
	"docviewer-backend/internal/shared/server"
	"docviewer-backend/internal/shared/server/middleware"
	"docviewer-backend/internal/shared/storage/db"
	"docviewer-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config               config.Config
	Router               *gin.Engine
	DB                   *sql.DB
	Registry             *prometheus.Registry
	Metrics              *metrics.Collector
	Signer               *auth.Signer
	Rendering            rendering.Service
	UsersRepo            users.Repo
	DocumentsRepo        documents.Repo
	UsersService         *users.Service
	DocumentsService     *documents.Service
	ImpersonationService *impersonation.Service
	DocumentsHandler     *documents.Handler
	ImpersonationHandler *impersonation.Handler
	GoogleAuth           *googleauth.GoogleService
	Health               *health.Service
}

// Option overrides a dependency before services are built.
type Option func(*App)

// WithRendering replaces the rendering client, typically with a fake in tests.
func WithRendering(rs rendering.Service) Option {
	return func(a *App) { a.Rendering = rs }
}

// WithDB uses an already opened database instead of connecting from config.
func WithDB(sqlDB *sql.DB) Option {
	return func(a *App) { a.DB = sqlDB }
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:   cfg,
		Registry: registry,
		Metrics:  metrics.NewCollector(registry),
		Signer:   signer,
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.DB == nil {
		app.DB, err = buildDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	if app.DB != nil && cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	if app.Rendering == nil {
		app.Rendering = rendering.NewLazyClient(rendering.Config{
			APIKey:      cfg.RenderingAPIKey,
			BaseURL:     cfg.RenderingBaseURL,
			SessionsURL: cfg.RenderingSessionURL,
			ViewerURL:   cfg.RenderingViewerURL,
			Timeout:     cfg.RenderingTimeout,
		}, rendering.WithMetrics(app.Metrics))
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Verifier:      app.Signer,
		Users:         app.UsersRepo,
		Documents:     app.DocumentsHandler,
		Impersonation: app.ImpersonationHandler,
		GoogleAuth:    app.GoogleAuth,
		Health:        app.Health,
		Metrics:       app.Metrics,
		Gatherer:      app.Registry,
		RateLimiter:   middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() || cfg.Env == "test" {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildServices(app *App) {
	var (
		userRepo users.Repo
		docRepo  documents.Repo
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		memUsers := users.NewMemoryRepo()
		userRepo = memUsers
		docRepo = documents.NewMemoryRepo(memUsers)
	}

	docSvc := documents.NewService(docRepo, app.Rendering)
	docSvc.Metrics = app.Metrics
	userSvc := users.NewService(userRepo)
	impSvc := impersonation.NewService(userRepo)

	checker, _ := app.Rendering.(health.RenderingChecker)
	healthSvc := health.NewService(nil, checker)
	if app.DB != nil {
		healthSvc.DB = app.DB
	}

	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.UsersService = userSvc
	app.DocumentsService = docSvc
	app.ImpersonationService = impSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ImpersonationHandler = impersonation.NewHandler(impSvc)
	app.Health = healthSvc
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:       app.Config.GoogleClientID,
		ClientSecret:   app.Config.GoogleClientSecret,
		RedirectURL:    app.Config.GoogleRedirectURL,
		UIRedirectURL:  app.Config.UIRedirectURL,
		AllowedDomains: app.Config.AllowedEmailDomains,
	}, userSvc, app.Signer)
}
