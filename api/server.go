package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/zkrelay/relay"
)

// Config holds the relay server's runtime configuration, loaded from
// environment variables with conservative defaults so the server starts
// cleanly in development without any configuration at all.
type Config struct {
	Host                  string
	Port                  string
	LogLevel              string
	MaxQueuePerToken      int
	MaxTotalMessages      int
	SweepIntervalSeconds  int
	RequestTimeoutSeconds int
}

// LoadConfig reads HOST, PORT, LOG_LEVEL, RELAY_MAX_QUEUE,
// RELAY_MAX_TOTAL_MESSAGES, RELAY_SWEEP_INTERVAL_SECONDS and
// RELAY_REQUEST_TIMEOUT_SECONDS from the environment. Missing or malformed
// values fall back to defaults; LoadConfig never panics and never fails,
// since a production relay should come up even when its environment is
// incomplete.
func LoadConfig() Config {
	cfg := Config{
		Host:                  envOrDefault("HOST", "0.0.0.0"),
		Port:                  envOrDefault("PORT", "8080"),
		LogLevel:              envOrDefault("LOG_LEVEL", "info"),
		MaxQueuePerToken:      envIntOrDefault("RELAY_MAX_QUEUE", relay.DefaultMaxQueueLen),
		MaxTotalMessages:      envIntOrDefault("RELAY_MAX_TOTAL_MESSAGES", relay.DefaultMaxTotalMessages),
		SweepIntervalSeconds:  envIntOrDefault("RELAY_SWEEP_INTERVAL_SECONDS", 60),
		RequestTimeoutSeconds: envIntOrDefault("RELAY_REQUEST_TIMEOUT_SECONDS", 10),
	}
	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Server bundles the HTTP listener, relay store and janitor into a single
// object whose lifecycle the caller owns - no process-wide singletons.
type Server struct {
	cfg        Config
	store      *relay.Store
	janitor    *relay.Janitor
	httpSrv    *http.Server
	cancel     context.CancelFunc
	janitorCtx context.Context
}

// NewServer builds a Server from cfg. It does not start listening; call
// Run.
func NewServer(cfg Config, rateLimiter RateLimiter) *Server {
	store := relay.NewStoreWithTotalCap(cfg.MaxQueuePerToken, cfg.MaxTotalMessages)
	janitor := relay.NewJanitor(store, time.Duration(cfg.SweepIntervalSeconds)*time.Second)
	handler := NewHandler(store, rateLimiter)
	router := NewRouter(handler)

	janitorCtx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:     cfg,
		store:   store,
		janitor: janitor,
		httpSrv: &http.Server{
			Addr:              cfg.Host + ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
			ReadTimeout:       time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
			WriteTimeout:      time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		cancel:     cancel,
		janitorCtx: janitorCtx,
	}
}

// Run starts the janitor and the HTTP listener, and blocks until ctx is
// cancelled. On cancellation it gracefully shuts the HTTP server down,
// bounded by shutdownTimeout, then stops the janitor. It returns any error
// from ListenAndServe other than http.ErrServerClosed, or from Shutdown.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	go s.janitor.Run(s.janitorCtx)

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr": s.httpSrv.Addr,
		}).Info("relay server listening")
		serveErr <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		s.cancel()
		s.janitor.Wait()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logrus.Info("relay server: shutdown requested")
		err := s.httpSrv.Shutdown(shutdownCtx)

		s.cancel()
		s.janitor.Wait()

		if err != nil {
			return fmt.Errorf("relay server: shutdown error: %w", err)
		}
		return nil
	}
}
