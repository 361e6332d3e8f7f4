package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hairvision-ai/hairvision/internal/analysis"
	"github.com/hairvision-ai/hairvision/internal/config"
	"github.com/hairvision-ai/hairvision/internal/display"
	"github.com/hairvision-ai/hairvision/internal/gemini"
	"github.com/hairvision-ai/hairvision/internal/handlers"
	"github.com/hairvision-ai/hairvision/internal/ollama"
	"github.com/hairvision-ai/hairvision/internal/openai"
	"github.com/hairvision-ai/hairvision/internal/providers"
	"github.com/hairvision-ai/hairvision/internal/store"
	"github.com/hairvision-ai/hairvision/internal/visualize"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis and display server",
		Long: `Starts the HTTP server on the configured address.

Endpoints:
  POST  /analyze            stream a four-photo analysis as server-sent events
  POST  /visualize          render a preview of one recommendation
  GET   /session/{code}     read a display session
  PATCH /session/{code}     move the display to another section
  GET   /view/{code}        the customer display (use "demo" for canned content)

Sessions are only kept when store.driver is set to sqlite or memory.`,
		Example: `  # Start server on default port 8888
  hairvision serve

  # Keep sessions in SQLite and listen on another port
  hairvision serve --addr :3000 --store sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a.cfg)
		},
	}

	cmd.Flags().String("addr", ":8888", "Address to listen on")
	cmd.Flags().String("store", "", "Session store driver (sqlite, memory); empty disables sessions")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("store.driver", cmd.Flags().Lookup("store"))

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	images := gemini.New(cfg.Gemini.APIKey, gemini.WithBaseURL(orDefault(cfg.Gemini.BaseURL, gemini.DefaultBaseURL)))

	var streamer providers.TextStreamer = images
	analysisCfg := analysis.Config{
		Provider:    "Gemini",
		Model:       cfg.Gemini.AnalysisModel,
		Temperature: cfg.Gemini.Temperature,
		JSONMode:    cfg.Gemini.JSONMode,
	}
	credentials := func() error {
		if !images.Configured() {
			return fmt.Errorf("GEMINI_API_KEY: %w", providers.ErrMissingAPIKey)
		}
		return nil
	}
	switch cfg.Analysis.Provider {
	case config.ProviderOllama:
		streamer = ollama.New(cfg.Ollama.URL)
		analysisCfg.Provider = "Ollama"
		analysisCfg.Model = cfg.Ollama.Model
		analysisCfg.JSONMode = false
		credentials = nil
	case config.ProviderOpenAI:
		chat := openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		streamer = chat
		analysisCfg.Provider = "OpenAI"
		analysisCfg.Model = cfg.OpenAI.Model
		credentials = func() error {
			if !chat.Configured() {
				return fmt.Errorf("OPENAI_API_KEY: %w", providers.ErrMissingAPIKey)
			}
			return nil
		}
	}
	if !images.Configured() {
		slog.Warn("GEMINI_API_KEY is not set; image previews will fail")
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() {
			cancel()
			if err := st.Close(); err != nil {
				slog.Warn("Failed to close session store", "err", err)
			}
		}()
	}

	handler := handlers.New(handlers.Options{
		Streamer: streamer,
		Images:   images,
		Analysis: analysisCfg,
		Visualize: visualize.Config{
			Model:       cfg.Gemini.ImageModel,
			AspectRatio: visualize.DefaultAspectRatio,
			ImageSize:   visualize.DefaultImageSize,
		},
		Store:         st,
		Credentials:   credentials,
		ViewerOptions: []display.ViewerOption{display.WithGate(cfg.Display.GateVisible, cfg.Display.GateFade)},
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HairVision server available",
			"addr", cfg.Server.Addr,
			"provider", cfg.Analysis.Provider,
			"model", analysisCfg.Model,
			"store", orDefault(cfg.Store.Driver, "none"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for context cancellation (Ctrl+C) or server error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

// openStore builds the configured session store and starts its background
// work. It returns nil when sessions are disabled.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	hub := store.NewHub()

	var st store.Store
	switch cfg.Store.Driver {
	case config.DriverNone:
		slog.Info("Session store disabled; remote display is unavailable")
		return nil, nil
	case config.DriverMemory:
		st = store.NewMemory(hub)
	case config.DriverSQLite:
		db, err := store.NewSQLite(cfg.Store.Path, hub)
		if err != nil {
			return nil, err
		}
		st = db
		go func() {
			if err := store.NewWatcher(db, cfg.Store.PollInterval).Run(ctx); err != nil {
				slog.Error("Session watcher stopped", "err", err)
			}
		}()
		go sweepExpired(ctx, db, cfg.Store.CleanupInterval)
	}

	if cfg.MQTT.Broker != "" {
		mirror := store.NewMQTTMirror(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
		if err := mirror.Connect(ctx); err != nil {
			// the display still works over SSE
			slog.Warn("MQTT mirror disabled", "broker", cfg.MQTT.Broker, "err", err)
			mirror.Close()
		} else {
			mirror.Attach(hub)
			go func() {
				<-ctx.Done()
				published, failed := mirror.Stats()
				slog.Info("MQTT mirror closed", "published", published, "errors", failed)
				mirror.Close()
			}()
		}
	}
	return st, nil
}

func sweepExpired(ctx context.Context, db *store.SQLite, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.DeleteExpired(ctx)
			if err != nil {
				slog.Warn("Failed to delete expired sessions", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("Deleted expired sessions", "count", n)
			}
		}
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
