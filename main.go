package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"location_form/config"
	"location_form/controller"
	"location_form/gateway"
	"location_form/handlers"
	"location_form/logger"
	"location_form/metrics"
	"location_form/middleware"
	"location_form/validation"
	"location_form/web"
)

func newGateway(cfg config.Config, log *zap.SugaredLogger) gateway.Gateway {
	if cfg.GeoAPIBaseURL == "" {
		log.Warn("GEO_API_BASE_URL is empty, every lookup will fail")
		return gateway.Unavailable()
	}
	client, err := gateway.NewClient(cfg.GeoAPIBaseURL, gateway.WithTimeout(cfg.GeoAPITimeout))
	if err != nil {
		log.Warnf("Invalid geographic API configuration, every lookup will fail: %v", err)
		return gateway.Unavailable()
	}
	return client
}

// newRouter wires the API, metrics and form page. CORS wraps the whole
// router: mux runs route middleware only for matched routes and preflight
// requests match none.
func newRouter(cfg config.Config, h *handlers.FormHandler) http.Handler {
	r := mux.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Requested-With",
			"Origin",
		},
		ExposedHeaders: []string{
			"Content-Length",
			"Content-Type",
		},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.CompressHandler)

	api := r.PathPrefix("/api/v1").Subrouter()
	handlers.RegisterRoutes(api, h)

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.PathPrefix("/").Handler(web.Handler()).Methods("GET")

	handler := corsHandler.Handler(r)
	if cfg.CORSDebug {
		handler = middleware.CORSDebugMiddleware(handler)
	}
	return handler
}

func main() {
	envPath, envErr := config.LoadEnv()

	cfg, err := config.Parse()
	if err != nil {
		logger.Initialize("INFO", logger.FormatConsole)
		zap.S().Fatalf("Invalid configuration: %v", err)
	}

	logger.Initialize(cfg.LogLevel, logger.LogFormat(cfg.LogFormat))
	log := zap.S()
	defer zap.L().Sync()

	switch {
	case envErr != nil:
		log.Warnf("Warning: error loading .env file: %v", envErr)
	case envPath != "":
		log.Infof("Loaded environment variables from %s", envPath)
	}

	startTime := time.Now()
	log.Infof("Starting server initialization at %s", startTime.Format(time.RFC3339))

	gw := newGateway(cfg, log)
	validator := validation.NewRequiredFields()
	store := handlers.NewFormStore(
		config.NewFormCache(cfg.FormTTL, cfg.FormCleanupInterval),
		func(id string) *controller.Controller {
			return controller.New(gw,
				controller.WithValidator(validator),
				controller.WithLogger(logger.For(logger.ComponentController).With("form", id)),
			)
		},
	)

	r := newRouter(cfg, handlers.NewFormHandler(store))
	log.Info("Routes registered successfully")

	srv := &http.Server{
		Handler:           r,
		Addr:              ":" + cfg.Port,
		WriteTimeout:      60 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Infof("Starting server on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	log.Infof("Form page: http://localhost:%s/", cfg.Port)
	log.Infof("Health check endpoint: http://localhost:%s/api/v1/health", cfg.Port)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("Shutdown signal received")
	case err := <-serverErrors:
		log.Errorf("Server error received: %v", err)
	}

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Error during server shutdown: %v", err)
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
