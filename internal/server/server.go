// Package server wires storage, the payment processor, the live hub and
// the handlers into a chi router, and runs the HTTP server.
//
//	config → storage (sqlite | mysql) → DonationService → DonationHandler
//	                       payment.Processor ↗         ↘ live.Hub
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/donation-backend/internal/config"
	"github.com/sakif/donation-backend/internal/handler"
	"github.com/sakif/donation-backend/internal/live"
	"github.com/sakif/donation-backend/internal/middleware"
	"github.com/sakif/donation-backend/internal/payment"
	"github.com/sakif/donation-backend/internal/repository"
	mysqlRepo "github.com/sakif/donation-backend/internal/repository/mysql"
	sqliteRepo "github.com/sakif/donation-backend/internal/repository/sqlite"
	"github.com/sakif/donation-backend/internal/service"
)

// store is a repository the server owns and closes on shutdown.
type store interface {
	repository.DonationRepository
	io.Closer
}

// Server owns the database connection and the live hub; both are closed
// when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     store
	hub    *live.Hub
}

// New opens storage and builds the router. processor is the card
// processor client; tests pass a fake.
func New(cfg *config.Config, logger *slog.Logger, processor payment.Processor) (*Server, error) {
	db, err := openStore(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	hub := live.NewHub(logger)
	go hub.Run()

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		hub:    hub,
	}

	if err := s.setupRoutes(processor); err != nil {
		hub.Close()
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func openStore(cfg config.DatabaseConfig, logger *slog.Logger) (store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.Path != ":memory:" {
			dir := filepath.Dir(cfg.Path)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil

	case config.DriverMySQL:
		db, err := mysqlRepo.New(mysqlRepo.Config{
			Host:     cfg.MySQL.Host,
			Port:     cfg.MySQL.Port,
			User:     cfg.MySQL.User,
			Password: cfg.MySQL.Password,
			DBName:   cfg.MySQL.DBName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// setupRoutes registers:
//
//	GET     /healthz
//	GET     /donations               list (CORS)
//	GET     /donations/stats         per-package counts (CORS)
//	GET     /donations/total         sum in major units (CORS)
//	OPTIONS on the three above       preflight
//	POST    /donations               checkout
//	GET     /donations/live          websocket feed
//	GET     /donations/{id}          confirmation
//	GET     /donations/{id}/confirm  confirmation
//	GET     /donations/{id}/qrcode   PNG of the confirmation URL
func (s *Server) setupRoutes(processor payment.Processor) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	donationService := service.NewDonationService(s.db, processor, s.hub, s.config.Payment.Currency, s.logger)
	donationHandler, err := handler.NewDonationHandler(donationService, s.config.Server.BaseURL, s.logger)
	if err != nil {
		return fmt.Errorf("creating donation handler: %w", err)
	}

	s.router.Get("/healthz", handler.HandleHealth)

	s.router.Route("/donations", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CORS)
			r.Get("/", donationHandler.HandleList)
			r.Options("/", preflightOnly)
			r.Get("/stats", donationHandler.HandleStats)
			r.Options("/stats", preflightOnly)
			r.Get("/total", donationHandler.HandleTotal)
			r.Options("/total", preflightOnly)
		})

		r.Post("/", donationHandler.HandleCreate)
		r.Get("/live", s.hub.ServeWS)
		r.Get("/{id}", donationHandler.HandleConfirm)
		r.Get("/{id}/confirm", donationHandler.HandleConfirm)
		r.Get("/{id}/qrcode", donationHandler.HandleQRCode)
	})

	return nil
}

// preflightOnly registers OPTIONS on a route; middleware.CORS answers the
// request before it is reached.
func preflightOnly(w http.ResponseWriter, r *http.Request) {}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the hub and the database without serving.
func (s *Server) Close() error {
	s.hub.Close()
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the hub and the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Two sequential processor calls, each with its own timeout.
		WriteTimeout: 2*s.config.Payment.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Driver),
			slog.String("currency", s.config.Payment.Currency),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
