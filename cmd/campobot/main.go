package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/campo-inteligente/campobot/internal/api"
	"github.com/campo-inteligente/campobot/internal/export"
	"github.com/campo-inteligente/campobot/internal/flow"
	"github.com/campo-inteligente/campobot/internal/genai"
	"github.com/campo-inteligente/campobot/internal/lockfile"
	"github.com/campo-inteligente/campobot/internal/messaging"
	"github.com/campo-inteligente/campobot/internal/scheduler"
	"github.com/campo-inteligente/campobot/internal/store"
	"github.com/campo-inteligente/campobot/internal/twiliowhatsapp"
	"github.com/campo-inteligente/campobot/internal/util"
	"github.com/campo-inteligente/campobot/internal/weather"
	"github.com/campo-inteligente/campobot/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CampoBot state data
	DefaultStateDir = "/var/lib/campobot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "campobot.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow SQLite database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	if err := run(flags); err != nil {
		slog.Error("CampoBot failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("CampoBot exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	WhatsAppDSN  string
	StateDir     string
	OpenAIKey    string
	WeatherKey   string
	APIAddr      string
	BulletinCron string
	Backend      string
	TimeoutSecs  int
}

// Flags holds command line flag values
type Flags struct {
	qrOutput     *string
	numeric      *bool
	stateDir     *string
	dbDSN        *string
	whatsappDSN  *string
	openaiKey    *string
	weatherKey   *string
	apiAddr      *string
	bulletinCron *string
	backend      *string
	timeoutSecs  *int
}

// initializeLogger sets up structured logging. CAMPOBOT_DEBUG=true lowers
// the level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CAMPOBOT_DEBUG", false) {
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
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		WhatsAppDSN:  os.Getenv("WHATSAPP_DB_DSN"),
		StateDir:     util.GetEnv("CAMPOBOT_STATE_DIR", DefaultStateDir),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		WeatherKey:   os.Getenv("OPENWEATHER_API_KEY"),
		APIAddr:      util.GetEnv("API_ADDR", api.DefaultAddr),
		BulletinCron: util.GetEnv("DAILY_BULLETIN_CRON", scheduler.DefaultBulletinSpec),
		Backend:      util.GetEnv("MESSAGING_BACKEND", "whatsmeow"),
		TimeoutSecs:  util.ParseIntEnv("SESSION_TIMEOUT_SECONDS", int(flow.DefaultSessionTimeout/time.Second)),
	}

	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"CAMPOBOT_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENWEATHER_API_KEY_SET", config.WeatherKey != "",
		"API_ADDR", config.APIAddr,
		"DAILY_BULLETIN_CRON", config.BulletinCron,
		"MESSAGING_BACKEND", config.Backend,
		"SESSION_TIMEOUT_SECONDS", config.TimeoutSecs)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:     flag.String("qr-output", "", "path to write login QR code"),
		numeric:      flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for CampoBot data (overrides $CAMPOBOT_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for session storage (overrides $DATABASE_URL)"),
		whatsappDSN:  flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the WhatsApp client (overrides $WHATSAPP_DB_DSN)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		weatherKey:   flag.String("openweather-api-key", config.WeatherKey, "OpenWeather API key (overrides $OPENWEATHER_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		bulletinCron: flag.String("bulletin-cron", config.BulletinCron, "cron expression for the daily weather bulletin (overrides $DAILY_BULLETIN_CRON)"),
		backend:      flag.String("messaging-backend", config.Backend, "messaging backend: whatsmeow or twilio (overrides $MESSAGING_BACKEND)"),
		timeoutSecs:  flag.Int("session-timeout", config.TimeoutSecs, "session inactivity timeout in seconds (overrides $SESSION_TIMEOUT_SECONDS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"whatsappDSN_set", *flags.whatsappDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"weatherKeySet", *flags.weatherKey != "",
		"apiAddr", *flags.apiAddr,
		"bulletinCron", *flags.bulletinCron,
		"backend", *flags.backend,
		"timeoutSecs", *flags.timeoutSecs)

	return flags
}

// buildStore opens the session store matching the DSN type.
func buildStore(dsn string) (store.Store, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// buildMessagingService constructs the configured transport.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	if *flags.backend == "twilio" {
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil
	}

	waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.whatsappDSN)}
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	client, err := whatsapp.NewClient(waOpts...)
	if err != nil {
		return nil, err
	}
	return messaging.NewWhatsAppService(client), nil
}

// run wires the modules together and blocks until shutdown.
func run(flags Flags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := buildStore(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	weatherClient, err := weather.NewClient(weather.WithAPIKey(*flags.weatherKey))
	if err != nil {
		return err
	}

	genaiClient, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		return err
	}

	exporter, err := export.NewExporter(export.WithDir(filepath.Join(*flags.stateDir, "reports")))
	if err != nil {
		return err
	}

	msgService, err := buildMessagingService(flags)
	if err != nil {
		return err
	}
	if err := msgService.Start(ctx); err != nil {
		return err
	}
	defer msgService.Stop()

	engine := flow.NewEngine(st, msgService, weatherClient, genaiClient, exporter,
		flow.WithSessionTimeout(time.Duration(*flags.timeoutSecs)*time.Second))

	dispatcher := messaging.NewDispatcher(msgService, engine)
	go dispatcher.Run(ctx)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	bulletin := scheduler.NewBulletin(st, msgService, weatherClient)
	if err := bulletin.Schedule(sched, *flags.bulletinCron); err != nil {
		return err
	}

	server := api.NewServer(msgService, engine, weatherClient, api.WithAddr(*flags.apiAddr))
	slog.Info("Bootstrapping CampoBot with configured modules", "api_addr", *flags.apiAddr, "backend", *flags.backend)
	return server.Run(ctx)
}
