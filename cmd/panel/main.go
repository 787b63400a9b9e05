package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/melih/hytale-panel/internal/adapters/docker"
	"github.com/melih/hytale-panel/internal/adapters/http"
	"github.com/melih/hytale-panel/internal/config"
	"github.com/melih/hytale-panel/internal/logger"
	"github.com/melih/hytale-panel/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(run).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runFunc func(ctx context.Context, cfg *config.Config) error

// newRootCmd builds the CLI. Flags override the environment.
func newRootCmd(runE runFunc) *cobra.Command {
	v := config.New()
	cmd := &cobra.Command{
		Use:           "panel",
		Short:         "Web control panel for a Hytale server container",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runE(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("container", docker.DefaultContainerName, "name of the container to manage (CONTAINER_NAME)")
	flags.Int("port", 3000, "listen port (PANEL_PORT)")
	flags.String("static-dir", "./public", "directory with dashboard assets (STATIC_DIR)")
	flags.String("log-level", "info", "log level (LOG_LEVEL)")

	for key, name := range map[string]string{
		config.KeyContainerName: "container",
		config.KeyPort:          "port",
		config.KeyStaticDir:     "static-dir",
		config.KeyLogLevel:      "log-level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// 1. Initialize the container bridge
	dockerAdapter, err := docker.NewAdapter(cfg.DockerOptions(), log)
	if err != nil {
		return err
	}
	defer dockerAdapter.Close()

	// 2. Initialize HTTP handlers and the notification hub
	containerHandler := http.NewContainerHandler(dockerAdapter)
	hub := http.NewHub(dockerAdapter, cfg.StatusInterval, log)

	// 3. Setup Fiber
	app := http.NewApp(ctx, containerHandler, hub, cfg.StaticDir)

	// 4. Start server
	errCh := make(chan error, 1)
	go func() {
		log.Info("panel listening",
			zap.String("addr", cfg.Addr()),
			zap.String("container", cfg.ContainerName))
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
