package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/config"
	"github.com/MarcoPoloResearchLab/notepad/internal/database"
	"github.com/MarcoPoloResearchLab/notepad/internal/logging"
	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"github.com/MarcoPoloResearchLab/notepad/internal/server"
	"github.com/MarcoPoloResearchLab/notepad/internal/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "notepad-api",
		Short: "Notepad notes backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(viper.GetViper(), cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringSlice("cors-allowed-origins", defaults.GetStringSlice("cors.allowed_origins"), "Origins allowed by CORS")
	cmd.PersistentFlags().Float64("ratelimit-rps", defaults.GetFloat64("ratelimit.rps"), "Requests per second allowed across all clients (0 disables)")
	cmd.PersistentFlags().Int("ratelimit-burst", defaults.GetInt("ratelimit.burst"), "Request burst size")
	cmd.PersistentFlags().Bool("seed-sample-notes", defaults.GetBool("seed.sample_notes"), "Insert sample notes into an empty database at startup")
	cmd.PersistentFlags().Int("heartbeat-seconds", defaults.GetInt("realtime.heartbeat_seconds"), "Interval between realtime stream heartbeats")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "cors.allowed_origins", "cors-allowed-origins")
	bindFlag(cmd, "ratelimit.rps", "ratelimit-rps")
	bindFlag(cmd, "ratelimit.burst", "ratelimit-burst")
	bindFlag(cmd, "seed.sample_notes", "seed-sample-notes")
	bindFlag(cmd, "realtime.heartbeat_seconds", "heartbeat-seconds")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// initConfig reads the named configuration file and fails on any read or parse error.
// Without a named file only a missing default config is tolerated.
func initConfig(configViper *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		configViper.SetConfigFile(cfgFile)
		return configViper.ReadInConfig()
	}

	if err := configViper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configNotFound) {
			return nil
		}
		return err
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: notes.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	statusService, err := status.NewService(status.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	if appConfig.SeedSampleNotes {
		inserted, err := notesService.SeedSampleNotes(ctx, notes.DefaultSampleNotes())
		if err != nil {
			return err
		}
		if inserted > 0 {
			logger.Info("sample notes inserted", zap.Int("count", inserted))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	realtime := server.NewRealtimeDispatcher()

	handler, err := server.NewHTTPHandler(server.Dependencies{
		NotesService:       notesService,
		StatusService:      statusService,
		Logger:             logger,
		Realtime:           realtime,
		MetricsRegistry:    registry,
		CORSAllowedOrigins: appConfig.CORSAllowedOrigins,
		RateLimitRPS:       appConfig.RateLimitRPS,
		RateLimitBurst:     appConfig.RateLimitBurst,
		HeartbeatInterval:  appConfig.HeartbeatInterval,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server shutting down")
		// open streams never finish on their own
		realtime.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
