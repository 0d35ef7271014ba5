package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"shopwindow/internal/cart"
	"shopwindow/internal/catalog"
	"shopwindow/internal/config"
	custommiddleware "shopwindow/internal/middleware"
	"shopwindow/internal/prefs"
	"shopwindow/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        *sql.DB
	rdb       *redis.Client
	viewState *transport.ViewStateHandler
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, rdb *redis.Client) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.SessionMiddleware())
	router.Use(custommiddleware.RateLimitMiddleware(rdb, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		KeyPrefix:         "ratelimit",
	}, logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Remote catalog with the cached category list
	gateway := catalog.NewGateway(catalog.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	}, logger)
	source := catalog.NewCachedCatalog(gateway, rdb, cfg.Remote.CategoryTTL, logger)

	// Cart over Postgres
	cartService := cart.NewService(cart.NewRepository(db), logger)

	// Preference stores in Redis
	themeStore := prefs.NewThemeStore(rdb)
	sidebarStore := prefs.NewSidebarStore(rdb)

	// Handlers
	catalogHandler := transport.NewCatalogHandler(source, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)
	viewStateHandler := transport.NewViewStateHandler(source, logger)
	prefsHandler := transport.NewPrefsHandler(themeStore, sidebarStore, logger)

	catalogHandler.RegisterRoutes(router)
	cartHandler.RegisterRoutes(router)
	viewStateHandler.RegisterRoutes(router)
	prefsHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		viewState: viewStateHandler,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Drop pending debounce timers before the stores go away.
	s.viewState.Close()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
