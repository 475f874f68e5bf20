package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	botcms "github.com/mvoevodskiy/botcms"
	"github.com/mvoevodskiy/botcms/internal/config"
	"github.com/mvoevodskiy/botcms/internal/engine"
	"github.com/mvoevodskiy/botcms/internal/schema"
	"github.com/mvoevodskiy/botcms/internal/scheduler"
	"github.com/mvoevodskiy/botcms/internal/script"
	"github.com/mvoevodskiy/botcms/internal/server"
	"github.com/mvoevodskiy/botcms/internal/storage"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

// service holds everything the run command wires together
type service struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *storage.RedisStore
	engine     *engine.Engine
	jobs       *scheduler.Scheduler
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var ErrConnectStore = errors.New("failed to connect session store")

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the engine and its HTTP bridges",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.NewDefaultConfig()
		if err := cfg.LoadFromEnv(); err != nil {
			slog.Error("Invalid configuration", log.Error(err))
			os.Exit(1)
		}
		if err := cfg.Validate(); err != nil {
			slog.Error("Invalid configuration", log.Error(err))
			os.Exit(1)
		}

		s := &service{
			cfg:  cfg,
			quit: make(chan os.Signal, 1),
		}
		s.setupLogging()

		schemas, _ := cmd.Flags().GetStringSlice("schema")
		if err := s.run(schemas); err != nil {
			s.logger.Error("Failed to start service", log.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func (s *service) run(schemas []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.initializeEngine(ctx); err != nil {
		return err
	}
	defer func() { _ = s.store.Close() }()

	if err := s.loadSchemas(ctx, schemas); err != nil {
		return err
	}

	s.startServer()
	go s.jobs.Run(ctx)
	go s.engine.Launch(ctx)

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	cancel()
	s.shutdown()
	return nil
}

func (s *service) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(botcms.Name, env, botcms.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
	s.logger = logger

	logger.Info("BotCMS engine starting",
		slog.String("log_level", s.cfg.LogLevel),
		slog.String("redis_addr", s.cfg.Store.Addr),
		slog.Int("redis_db", s.cfg.Store.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *service) initializeEngine(ctx context.Context) error {
	store := storage.NewRedisStore(s.cfg.Store, s.cfg.SessionTTL)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectStore, err)
	}
	s.store = store

	scripts := script.New(s.logger)
	s.engine = engine.New(scripts, store, s.cfg, s.logger)
	s.jobs = scheduler.New(s.logger, time.Now, scheduler.NewTimer)
	return nil
}

func (s *service) loadSchemas(ctx context.Context, paths []string) error {
	loader := schema.NewLoader(s.logger, s.engine, s.jobs)
	for _, path := range paths {
		if err := loader.LoadFile(ctx, path); err != nil {
			return err
		}
		s.logger.Info("Schema loaded", slog.String("path", path))
	}
	return nil
}

func (s *service) startServer() {
	s.apiServer = server.NewServer(s.logger, s.engine)
	router := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: router,
	}

	go func() {
		s.logger.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *service) shutdown() {
	s.logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Shutdown failed", log.Error(err))
	}
	s.apiServer.CloseWebSockets()

	s.logger.Info("Server exited")
}
