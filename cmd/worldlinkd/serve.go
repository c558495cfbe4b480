package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/worldlink/pkg/codec"
	"github.com/opd-ai/worldlink/pkg/config"
	"github.com/opd-ai/worldlink/pkg/ratelimit"
	"github.com/opd-ai/worldlink/pkg/schema"
	"github.com/opd-ai/worldlink/pkg/sync"
	"github.com/opd-ai/worldlink/pkg/transport"
)

var (
	serveTransport      string
	serveSchemaManifest string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the replication link against stdio and expose an admin HTTP surface",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "transport to bind: stdio")
	serveCmd.Flags().StringVar(&serveSchemaManifest, "schema-manifest", "", "path to a SchemaManifest YAML file to register at startup (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.Get()
	logrus.WithFields(logrus.Fields{
		"sync_mode":     cfg.SyncMode,
		"sync_interval": cfg.SyncIntervalMs,
		"admin_bind":    cfg.AdminBindAddr,
	}).Info("configuration loaded")

	var t transport.Transport
	switch serveTransport {
	case "stdio":
		t = transport.NewStdioTransport(os.Stdin, os.Stdout, codec.New(codec.FormatJSON))
	default:
		return fmt.Errorf("unsupported transport %q", serveTransport)
	}

	manager := sync.New(t, syncConfigFromAppConfig(cfg))
	logrus.Info("sync manager initialized")

	manifestPath := cfg.SchemaManifestPath
	if serveSchemaManifest != "" {
		manifestPath = serveSchemaManifest
	}
	if manifestPath != "" {
		if err := loadSchemaManifest(manifestPath, manager); err != nil {
			return fmt.Errorf("load schema manifest: %w", err)
		}
	}

	srv := &http.Server{
		Addr:    cfg.AdminBindAddr,
		Handler: newAdminRouter(manager),
	}

	go func() {
		logrus.WithField("addr", cfg.AdminBindAddr).Info("admin server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("admin server error")
			cancel()
		}
	}()

	go pollReceiveLoop(ctx, manager)

	<-ctx.Done()
	logrus.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("admin server shutdown error")
	}
	if err := manager.Close(); err != nil {
		logrus.WithError(err).Error("transport close error")
	}
	logrus.Info("shutdown complete")
	return nil
}

// pollReceiveLoop drains inbound messages until ctx is cancelled, logging
// each mapped event at debug level. A production deployment would hand
// events to application logic instead; worldlinkd's serve command has none
// of its own, so it just observes the link.
func pollReceiveLoop(ctx context.Context, manager *sync.Manager) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev, err := manager.Receive()
			if err != nil {
				logrus.WithError(err).Debug("receive error")
				continue
			}
			if ev != nil {
				logrus.WithField("kind", ev.Kind).Debug("event received")
			}
		}
	}
}

func syncConfigFromAppConfig(cfg config.Config) sync.Config {
	sc := sync.DefaultConfig()
	switch cfg.SyncMode {
	case "full":
		sc.Mode = sync.ModeFull
	case "manual":
		sc.Mode = sync.ModeManual
	default:
		sc.Mode = sync.ModeDelta
	}
	sc.SyncInterval = cfg.SyncInterval()
	sc.EnableFieldCompression = cfg.EnableFieldCompression
	sc.EnableRateLimiting = cfg.EnableRateLimiting
	sc.UseContinuousLimiter = cfg.UseContinuousLimiter
	sc.ContinuousMessagesPerSec = cfg.ContinuousMessagesPerSec
	sc.ContinuousBurst = cfg.ContinuousBurst
	sc.RateLimitConfig = ratelimit.Config{
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		MaxBytesPerSecond:    cfg.MaxBytesPerSecond,
		BurstSize:            cfg.BurstSize,
		WindowDuration:       cfg.WindowDuration(),
	}
	sc.AutoReconnect = cfg.AutoReconnect
	sc.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	sc.ReconnectDelay = cfg.ReconnectDelay()
	return sc
}

// loadSchemaManifest loads a SchemaManifest from path and registers its
// components with the manager's schema registry so GET /schemas reflects
// the link's declared catalog from startup.
func loadSchemaManifest(path string, manager *sync.Manager) error {
	m, err := schema.LoadManifest(path)
	if err != nil {
		return err
	}
	if err := m.Apply(manager.GetSchemaRegistry()); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"path":       path,
		"components": len(m.Components),
	}).Info("schema manifest applied")
	return nil
}
