// Package server wires the application together and runs the HTTP server.
//
// COMPOSITION ROOT:
// New builds every long-lived dependency in one place:
//
//	sqlite.DB ──▶ accounts ──▶ service.AuthService ─┐
//	KV (sqlite | redis | memory) ───────────────────┼──▶ middleware.Session (per request)
//	auth.TokenService ──────────────────────────────┘
//	restcountries.Client ──▶ directory.Cache ──▶ handlers, scheduler
//
// NewRouter only needs the finished pieces, so tests build a router around
// fakes without touching the network or the filesystem.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/country-explorer/internal/auth"
	"github.com/sakif/country-explorer/internal/config"
	"github.com/sakif/country-explorer/internal/directory"
	"github.com/sakif/country-explorer/internal/handler"
	"github.com/sakif/country-explorer/internal/metrics"
	"github.com/sakif/country-explorer/internal/middleware"
	"github.com/sakif/country-explorer/internal/repository"
	"github.com/sakif/country-explorer/internal/repository/memory"
	redisRepo "github.com/sakif/country-explorer/internal/repository/redis"
	sqliteRepo "github.com/sakif/country-explorer/internal/repository/sqlite"
	"github.com/sakif/country-explorer/internal/restcountries"
	"github.com/sakif/country-explorer/internal/scheduler"
	"github.com/sakif/country-explorer/internal/service"
)

// shutdownTimeout is how long in-flight requests get after a signal.
const shutdownTimeout = 30 * time.Second

// Deps are the finished dependencies the router serves from.
type Deps struct {
	Directory handler.Directory
	Session   middleware.SessionDeps
	Gatherer  prometheus.Gatherer
	// Health is polled by /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// Server owns the router and every resource that must be closed on
// shutdown.
type Server struct {
	router http.Handler
	cfg    *config.Config
	logger *slog.Logger

	db        *sqliteRepo.DB
	redis     *redisRepo.Store
	remote    *restcountries.Client
	cache     *directory.Cache
	scheduler *scheduler.Scheduler
}

// New opens storage, builds the services and the router. It does not start
// any background work; Start does.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{cfg: cfg, logger: logger, db: db}

	kv, err := s.openKV(ctx)
	if err != nil {
		s.close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(db.Accounts(), auth.NewPasswordService(), tokens, logger, cfg.AuthDelay)
	if err := authService.SeedDemoAccount(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("seeding demo account: %w", err)
	}

	s.remote = restcountries.NewClient(restcountries.Config{
		BaseURL:       cfg.RestCountriesBaseURL,
		RatePerMinute: cfg.RestCountriesRatePerMinute,
	}, logger)
	s.cache = directory.NewCache(s.remote, logger, directory.WithMetrics(m))
	s.scheduler = scheduler.New(s.cache, cfg.DirectoryRetryInterval, logger)

	router, err := NewRouter(Deps{
		Directory: s.cache,
		Session: middleware.SessionDeps{
			KV:           kv,
			Decoder:      tokens,
			Auth:         authService,
			Metrics:      m,
			AuthTimeout:  cfg.AuthTimeout,
			SecureCookie: cfg.CookieSecure,
			Logger:       logger,
		},
		Gatherer: registry,
		Health:   s.health,
		Logger:   logger,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	s.router = router

	return s, nil
}

// openKV picks the favorites/token store named by KV_BACKEND.
func (s *Server) openKV(ctx context.Context) (repository.KVStore, error) {
	switch s.cfg.KVBackend {
	case config.BackendRedis:
		store, err := redisRepo.Connect(ctx, s.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.redis = store
		return store, nil
	case config.BackendMemory:
		s.logger.Warn("KV_BACKEND=memory: favorites are lost on restart")
		return memory.NewKV(), nil
	default:
		return s.db, nil
	}
}

func (s *Server) health(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// NewRouter builds the chi router.
//
// ROUTES:
//
//	GET    /healthz                     liveness + storage check
//	GET    /metrics                     Prometheus
//	GET    /                            directory page (?q=&region=&language=)
//	GET    /countries/{code}            country page
//	POST   /countries/{code}/favorite   toggle favorite, back to the page
//	GET    /login  POST /login          login form, ?next= round trip
//	POST   /register  POST /logout
//	GET    /favorites                   favorites page (redirects to /login)
//	POST   /auth/login|register|logout  JSON
//	GET    /api/countries[/{code}]      JSON directory
//	GET    /api/filters  GET /api/me
//	GET|POST /api/favorites  DELETE /api/favorites/{code}   401 when signed out
//
// MIDDLEWARE ORDER:
// RequestID → RealIP → Logger → Recoverer run on every request; Session only
// on routes that read or write the auth cookie.
func NewRouter(deps Deps) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(deps))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	pages, err := handler.NewPageHandler(deps.Directory, deps.Logger)
	if err != nil {
		return nil, err
	}
	countries := handler.NewCountryHandler(deps.Directory, deps.Logger)
	authHandler := handler.NewAuthHandler(deps.Logger)
	favs := handler.NewFavoritesHandler(deps.Directory, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(deps.Session))

		// === Pages ===
		r.Get("/", pages.HandleHome)
		r.Get("/countries/{code}", pages.HandleCountry)
		r.Post("/countries/{code}/favorite", pages.HandleToggleFavorite)
		r.Get(handler.LoginPath, pages.HandleLoginPage)
		r.Post(handler.LoginPath, pages.HandleLoginSubmit)
		r.Post("/register", pages.HandleRegisterSubmit)
		r.Post("/logout", pages.HandleLogoutSubmit)
		r.With(middleware.RequireLogin(handler.LoginPath)).Get("/favorites", pages.HandleFavorites)

		// === JSON auth ===
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/logout", authHandler.HandleLogout)
		})

		// === JSON API ===
		r.Route("/api", func(r chi.Router) {
			r.Get("/countries", countries.HandleList)
			r.Get("/countries/{code}", countries.HandleGet)
			r.Get("/filters", countries.HandleFilters)
			r.Get("/me", authHandler.HandleMe)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/favorites", favs.HandleList)
				r.Post("/favorites", favs.HandleAdd)
				r.Delete("/favorites/{code}", favs.HandleRemove)
			})
		})
	})

	return r, nil
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := "ok"
		if deps.Health != nil {
			if err := deps.Health(r.Context()); err != nil {
				deps.Logger.Warn("health check failed", slog.String("error", err.Error()))
				status = http.StatusServiceUnavailable
				body = "unavailable"
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// Start runs the directory scheduler and the HTTP server until SIGINT or
// SIGTERM, then drains requests for up to 30s and closes every resource.
func (s *Server) Start() error {
	defer s.close()

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	if err := s.scheduler.Start(bgCtx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)),
			slog.String("database", s.cfg.DBPath),
			slog.String("kvBackend", s.cfg.KVBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		cancelBg()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// close releases everything New opened. Safe on a partly built Server.
func (s *Server) close() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.remote != nil {
		s.remote.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis failed", slog.String("error", err.Error()))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing database failed", slog.String("error", err.Error()))
		}
	}
}
