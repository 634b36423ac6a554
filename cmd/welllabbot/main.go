package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/greenwayvn/welllabbot/internal/api"
	"github.com/greenwayvn/welllabbot/internal/genai"
	"github.com/greenwayvn/welllabbot/internal/messaging"
	"github.com/greenwayvn/welllabbot/internal/store"
	"github.com/greenwayvn/welllabbot/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for bot state data
	DefaultStateDir = "/var/lib/welllabbot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "welllabbot.db"
)

func main() {
	// Load environment configuration
	config := loadEnvironmentConfig()

	// Initialize structured logger
	initializeLogger(config.Debug)

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build module options
	apiOpts := buildAPIOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	telegramOpts := buildTelegramOptions(flags)
	twilioOpts := buildTwilioOptions(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the service
	slog.Info("Bootstrapping welllabbot with configured modules")
	slog.Debug("Module options counts", "api", len(apiOpts), "store", len(storeOpts), "genai", len(genaiOpts), "telegram", len(telegramOpts), "twilio", len(twilioOpts))
	slog.Debug("Final configuration", "channel", *flags.channel, "data_dir", *flags.dataDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.Run(ctx, apiOpts, storeOpts, genaiOpts, telegramOpts, twilioOpts); err != nil {
		slog.Error("welllabbot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("welllabbot exited successfully")
}

// Config holds environment configuration
type Config struct {
	Channel          string
	TelegramToken    string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	DatabaseURL      string
	StateDir         string
	DataDir          string
	OpenAIKey        string
	APIAddr          string
	Debug            bool
}

// Flags holds command line flag values
type Flags struct {
	channel       *string
	telegramToken *string
	dataDir       *string
	dbDSN         *string
	openaiKey     *string
	apiAddr       *string
}

// initializeLogger sets up structured logging
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		Channel:          util.GetEnvOrDefault("CHANNEL", api.ChannelTelegram),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("WELLLAB_STATE_DIR"),
		DataDir:          util.GetEnvOrDefault("WELLLAB_DATA_DIR", api.DefaultDataDir),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		APIAddr:          os.Getenv("API_ADDR"),
		Debug:            util.ParseBoolEnv("LOG_DEBUG", false),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"CHANNEL", config.Channel,
		"TELEGRAM_TOKEN_SET", config.TelegramToken != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WELLLAB_STATE_DIR", config.StateDir,
		"WELLLAB_DATA_DIR", config.DataDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		channel:       flag.String("channel", config.Channel, "messaging channel, telegram or twilio (overrides $CHANNEL)"),
		telegramToken: flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_TOKEN)"),
		dataDir:       flag.String("data-dir", config.DataDir, "directory holding the JSON rule tables (overrides $WELLLAB_DATA_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the profile store (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"channel", *flags.channel,
		"telegramTokenSet", *flags.telegramToken != "",
		"dataDir", *flags.dataDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.dataDir != "" {
		apiOpts = append(apiOpts, api.WithDataDir(*flags.dataDir))
	}
	if *flags.channel != "" {
		apiOpts = append(apiOpts, api.WithChannel(*flags.channel))
	}
	return apiOpts
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildTelegramOptions constructs Telegram messaging configuration options
func buildTelegramOptions(flags Flags) []messaging.TelegramOption {
	var telegramOpts []messaging.TelegramOption
	if *flags.telegramToken != "" {
		telegramOpts = append(telegramOpts, messaging.WithToken(*flags.telegramToken))
	}
	return telegramOpts
}

// buildTwilioOptions constructs Twilio messaging configuration options
func buildTwilioOptions(config Config) []messaging.TwilioOption {
	var twilioOpts []messaging.TwilioOption
	if config.TwilioAccountSID != "" {
		twilioOpts = append(twilioOpts, messaging.WithAccountSID(config.TwilioAccountSID))
	}
	if config.TwilioAuthToken != "" {
		twilioOpts = append(twilioOpts, messaging.WithAuthToken(config.TwilioAuthToken))
	}
	if config.TwilioFromNumber != "" {
		twilioOpts = append(twilioOpts, messaging.WithFromNumber(config.TwilioFromNumber))
	}
	return twilioOpts
}
