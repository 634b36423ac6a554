// Package api provides the HTTP server and the main assembly logic for the
// WELLLAB consultation bot.
//
// It exposes the Telegram and Twilio webhook endpoints, a statistics
// endpoint, and a health check, and wires the rule tables, store, completion
// gateway, the selected messaging channel, and the conversation engine
// together.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/greenwayvn/welllabbot/internal/flow"
	"github.com/greenwayvn/welllabbot/internal/genai"
	"github.com/greenwayvn/welllabbot/internal/messaging"
	"github.com/greenwayvn/welllabbot/internal/rules"
	"github.com/greenwayvn/welllabbot/internal/store"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = ":8080"

// DefaultDataDir is the default directory holding the JSON rule tables.
const DefaultDataDir = "data"

// Messaging channel names accepted by WithChannel.
const (
	ChannelTelegram = "telegram"
	ChannelTwilio   = "twilio"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr    string
	DataDir string
	Channel string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithDataDir sets the directory holding the JSON rule tables.
func WithDataDir(dir string) Option {
	return func(o *Opts) { o.DataDir = dir }
}

// WithChannel selects the messaging channel, "telegram" or "twilio".
func WithChannel(channel string) Option {
	return func(o *Opts) { o.Channel = channel }
}

// Run assembles all components and serves HTTP until the context is canceled.
func Run(ctx context.Context, apiOpts []Option, storeOpts []store.Option, genaiOpts []genai.Option, telegramOpts []messaging.TelegramOption, twilioOpts []messaging.TwilioOption) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.Channel == "" {
		cfg.Channel = ChannelTelegram
	}

	tables := rules.Load(cfg.DataDir)
	slog.Info("api.Run: rule tables loaded", "dataDir", cfg.DataDir,
		"intents", len(tables.Intents), "faq", len(tables.FAQ),
		"objections", len(tables.Objections), "combos", len(tables.Combos),
		"products", len(tables.Products))

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize completion client: %w", err)
	}

	var (
		svc      messaging.Service
		telegram *messaging.TelegramService
		twilio   *messaging.TwilioService
	)
	switch cfg.Channel {
	case ChannelTelegram:
		telegram, err = messaging.NewTelegramService(telegramOpts...)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram service: %w", err)
		}
		svc = telegram
	case ChannelTwilio:
		twilio, err = messaging.NewTwilioService(twilioOpts...)
		if err != nil {
			return fmt.Errorf("failed to initialize twilio service: %w", err)
		}
		svc = twilio
	default:
		return fmt.Errorf("unknown messaging channel %q", cfg.Channel)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s service: %w", cfg.Channel, err)
	}
	defer svc.Stop()
	slog.Info("api.Run: messaging channel ready", "channel", cfg.Channel)

	engine := flow.NewEngine(flow.NewInMemorySessionStore(), tables, genaiClient, st)

	handler := messaging.NewResponseHandler(svc, engine)
	go handler.Start(ctx)

	server := NewServer(telegram, twilio, st, WithAddr(cfg.Addr))
	return server.Serve(ctx)
}

// buildStore picks the storage backend from the configured DSN: PostgreSQL
// for connection strings, SQLite for file paths, in-memory when unset.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("api.buildStore: no DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(cfg.DSN) {
	case "postgres":
		slog.Info("api.buildStore: using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	default:
		slog.Info("api.buildStore: using SQLite store")
		return store.NewSQLiteStore(storeOpts...)
	}
}

// Serve runs the HTTP server and shuts it down gracefully when the context is
// canceled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Serve: listening", "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		slog.Info("Server.Serve: shut down cleanly")
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
