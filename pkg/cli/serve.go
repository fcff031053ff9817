package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MY-Final/napcat-plugin-email/pkg/api"
	"github.com/MY-Final/napcat-plugin-email/pkg/config"
	"github.com/MY-Final/napcat-plugin-email/pkg/history"
	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
	"github.com/MY-Final/napcat-plugin-email/pkg/system"
	"github.com/MY-Final/napcat-plugin-email/pkg/task"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the email plugin service",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(configPath, debug)
		},
	}

	cmd.Flags().StringVar(&configPath, "config",
		getEnvString("NAPCAT_EMAIL_CONFIG_PATH", "./config.yaml"),
		"Path to the plugin configuration file")
	cmd.Flags().BoolVar(&debug, "debug",
		getEnvBool("NAPCAT_EMAIL_DEBUG", false),
		"Enable debug level logging and development CORS")
	return cmd
}

func runServe(configPath string, debug bool) error {
	logger, err := system.NewLogger(debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.Storage.DataDir, err)
	}

	sugar.Infow("Starting email plugin",
		"listenAddress", cfg.Server.ListenAddress,
		"dataDir", cfg.Storage.DataDir,
		"accounts", len(cfg.Accounts),
		"tickInterval", cfg.TickInterval())

	hist := history.NewLog(cfg.Storage.DataDir, sugar)
	store := task.NewStore(cfg.Storage.DataDir, sugar)
	dispatcher := mail.NewDispatcher(cfg, sugar)
	manager := task.NewManager(store, dispatcher, hist, sugar)
	scheduler := task.NewScheduler(store, manager, sugar, cfg.TickInterval())

	if err := scheduler.Start(); err != nil {
		return err
	}

	server := api.NewServer(logger, cfg, debug)
	if err := server.RegisterAll([]api.APIController{
		api.NewTaskController(manager, sugar),
		api.NewMailController(dispatcher, hist, sugar),
		api.NewHistoryController(hist, sugar),
	}); err != nil {
		scheduler.Stop()
		return fmt.Errorf("registering API controllers: %w", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		sugar.Infow("Shutting down", "signal", sig)
	case err := <-errCh:
		scheduler.Stop()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Stop future ticks first; in-flight executions run to completion.
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Warnw("HTTP server shutdown timed out", "error", err)
	}
	sugar.Info("Email plugin stopped")
	return nil
}
