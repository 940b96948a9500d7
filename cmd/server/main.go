package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	marketwebui "github.com/MegaGrindStone/market-web-ui"
	"github.com/MegaGrindStone/market-web-ui/internal/coordinator"
	"github.com/MegaGrindStone/market-web-ui/internal/handlers"
	"github.com/MegaGrindStone/market-web-ui/internal/metrics"
)

const errLoggerKey = "err"

func main() {
	if err := loadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}

	cfg, err := loadConfig(configPath(os.Getenv), os.Getenv)
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	logger := newLogger(cfg)

	if key := cfg.Quotes.missingCredential(); key != "" {
		logger.Warn("Quote provider credential is missing, searches will fail until it is set",
			slog.String("variable", key))
	}
	if key := cfg.Advisor.missingCredential(); key != "" {
		logger.Warn("AI advisor credential is missing, chat will fail until it is set",
			slog.String("variable", key))
	}

	quotes := cfg.Quotes.quotes(cfg.HTTPSProxy, logger)
	advisor, err := cfg.Advisor.advisor(cfg.SystemPrompt, cfg.HTTPSProxy, logger)
	if err != nil {
		// The chat surface reports a configuration error on use instead.
		logger.Error("Failed to create AI advisor", slog.String(errLoggerKey, err.Error()))
		advisor = nil
	}

	m, err := handlers.NewMain(quotes, advisor, handlers.Options{
		Coordinator: coordinator.Options{
			Timeout:       cfg.Timeout,
			Exchange:      cfg.exchange(),
			Locale:        cfg.Locale,
			ClientVersion: cfg.ClientVersion,
			Logger:        logger,
		},
		Logger: logger,
	})
	if err != nil {
		panic(err)
	}

	// Serve static files
	staticFS, err := fs.Sub(marketwebui.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	// Create custom mux
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/search", m.HandleSearch)
	mux.HandleFunc("/search/dismiss", m.HandleDismiss)
	mux.HandleFunc("/chat", m.HandleChat)
	mux.HandleFunc("/sse", m.HandleSSE)
	mux.Handle("/metrics", metrics.Handler())

	// Create custom server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String(errLoggerKey, err.Error()))
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("Server starting",
			slog.String("port", cfg.Port),
			slog.String("quotes", quotes.Name()),
			slog.String("advisor", advisorName(advisor)),
			slog.Duration("timeout", cfg.Timeout))
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt/terminate signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking select waiting for either interrupt or server error
	select {
	case err := <-serverErrors:
		logger.Error("Server error", slog.String(errLoggerKey, err.Error()))

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String(errLoggerKey, err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String(errLoggerKey, err.Error()))
			}
		}
	}
}

func newLogger(cfg config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.slogLevel()}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

func advisorName(a coordinator.Advisor) string {
	if a == nil {
		return "none"
	}
	return a.Name()
}
