// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/algostatus/statuspage/api/openapi"
	"github.com/algostatus/statuspage/internal/catalog"
	catalogpostgres "github.com/algostatus/statuspage/internal/catalog/postgres"
	"github.com/algostatus/statuspage/internal/config"
	"github.com/algostatus/statuspage/internal/identity"
	"github.com/algostatus/statuspage/internal/identity/jwt"
	identitypostgres "github.com/algostatus/statuspage/internal/identity/postgres"
	"github.com/algostatus/statuspage/internal/incidents"
	incidentspostgres "github.com/algostatus/statuspage/internal/incidents/postgres"
	"github.com/algostatus/statuspage/internal/live"
	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
	"github.com/algostatus/statuspage/internal/pkg/httputil"
	"github.com/algostatus/statuspage/internal/pkg/metrics"
	pgutil "github.com/algostatus/statuspage/internal/pkg/postgres"
	"github.com/algostatus/statuspage/internal/version"
	"github.com/algostatus/statuspage/migrations"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	dbMetricsInterval = 15 * time.Second
	bootstrapTimeout  = 30 * time.Second
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	hub           *live.Hub
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance: it connects to the database,
// applies migrations when enabled, bootstraps the first admin and builds the router.
func New(cfg *config.Config) (*App, error) {
	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := pgutil.Connect(connectCtx, pgutil.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := pgutil.Migrate(migrations.FS, cfg.Database.URL); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		hub:           live.NewHub(live.Config{BufferSize: cfg.Live.BufferSize}, logger),
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, err := app.setupRouter()
	if err != nil {
		app.hub.Close()
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run serves the API and the metrics endpoint until both servers stop.
// A failure of either server is returned.
func (a *App) Run() error {
	var g errgroup.Group

	for _, srv := range []struct {
		name   string
		server *http.Server
	}{
		{name: "api", server: a.server},
		{name: "metrics", server: a.metricsServer},
	} {
		g.Go(func() error {
			a.logger.Info("starting server", "server", srv.name, "addr", srv.server.Addr)
			if err := srv.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", srv.name, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Shutdown releases live viewers, drains both servers and closes the pool.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Live handlers return once the hub closes, letting Shutdown drain them.
	a.hub.Close()

	var g errgroup.Group
	g.Go(func() error {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	})
	err := g.Wait()

	a.db.Close()

	return err
}

func (a *App) collectDBMetrics(ctx context.Context) {
	ticker := time.NewTicker(dbMetricsInterval)
	defer ticker.Stop()

	for {
		metrics.RecordDBPoolMetrics(a.db)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Hub returns the live update hub.
func (a *App) Hub() *live.Hub {
	return a.hub
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	catalogService := catalog.NewService(catalogpostgres.NewRepository(a.db), a.hub)
	incidentsService := incidents.NewService(incidentspostgres.NewRepository(a.db), catalogService, a.hub)

	jwtAuth := jwt.NewAuthenticator(jwt.Config{
		SecretKey: a.config.JWT.SecretKey,
		Issuer:    a.config.JWT.Issuer,
	})
	identityService := identity.NewService(
		identitypostgres.NewRepository(a.db),
		identity.NewBcryptHasher(a.config.Auth.BcryptCost),
		jwtAuth,
		a.config.JWT.TokenDuration,
	)

	if err := a.bootstrapAdmin(identityService); err != nil {
		return nil, err
	}

	catalogHandler := catalog.NewHandler(catalogService)
	incidentsHandler := incidents.NewHandler(incidentsService)
	identityHandler := identity.NewHandler(identityService)

	// Live transports hold their connections open, so they stay outside the request timeout.
	r.Route("/api/live", func(r chi.Router) {
		r.Handle("/", live.NewWebSocketHandler(a.hub, live.WebSocketConfig{
			AllowedOrigins: a.config.CORS.AllowedOrigins,
			PingInterval:   a.config.Live.PingInterval,
			WriteTimeout:   a.config.Live.WriteTimeout,
			InboundRate:    a.config.Live.InboundRate,
			InboundBurst:   a.config.Live.InboundBurst,
		}))
		r.Handle("/stream", live.NewStreamHandler(a.hub, a.config.Live.PingInterval))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

		r.Get("/healthz", a.healthzHandler)
		r.Get("/readyz", a.readyzHandler)
		r.Get("/version", a.versionHandler)

		r.Get("/api/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/x-yaml")
			_, _ = w.Write(openapi.Spec)
		})
		r.Get("/docs", docsHandler)

		requireAuth := httputil.AuthMiddleware(identityService)

		r.Route("/api/services", func(r chi.Router) {
			catalogHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, httputil.RequireAdmin)
				catalogHandler.RegisterAdminRoutes(r)
			})
		})

		r.Route("/api/incidents", func(r chi.Router) {
			incidentsHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				incidentsHandler.RegisterStaffRoutes(r)
			})
		})

		r.Route("/api/users", func(r chi.Router) {
			r.With(httputil.RateLimitByIP(a.config.Auth.LoginRateLimit, a.config.Auth.LoginRateWindow)).
				Post("/login", identityHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, httputil.RequireAdmin)
				identityHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r, nil
}

type adminEnsurer interface {
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

// bootstrapAdmin runs on its own deadline, independent of the time spent connecting.
func (a *App) bootstrapAdmin(identityService adminEnsurer) error {
	email := a.config.Bootstrap.AdminEmail
	if email == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	created, err := identityService.EnsureAdmin(ctx, email, a.config.Bootstrap.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		a.logger.Info("created bootstrap admin", "email", email)
	}
	return nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>AlgoStatus API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

// newLogger builds the process logger. Config validation has already
// restricted level and format to known values.
func newLogger(cfg config.LogConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}
