package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/obarth/ogate/internal/api"
	"github.com/obarth/ogate/internal/config"
	"github.com/obarth/ogate/internal/dispatch"
	"github.com/obarth/ogate/internal/gateway"
	"github.com/obarth/ogate/internal/history"
	"github.com/obarth/ogate/internal/infrastructure/sqlite"
	"github.com/obarth/ogate/internal/log"
	"github.com/obarth/ogate/internal/pubsub"
	"github.com/obarth/ogate/internal/tracing"
	"github.com/obarth/ogate/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP server",
	Long: `Run the gateway as a long-lived HTTP server. Management objects are
served from the platform runtime registry, an optional YAML catalog, and
anything registered at runtime.

Example:
  ogate serve                      # Start on the configured address
  ogate serve --addr :8080         # Start on port 8080`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	debug := os.Getenv("OGATE_DEBUG") != "" || debugFlag || cfg.Debug
	if debug {
		logPath := os.Getenv("OGATE_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()
		log.Info(log.CatConfig, "gateway starting", "debug", true, "logPath", logPath)
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	strategies := []dispatch.Strategy{dispatch.PlatformStrategy()}
	if cfg.Catalog != "" {
		strategies = append(strategies, dispatch.CatalogStrategy(cfg.Catalog))
	}
	registries := dispatch.Discover(ctx, strategies...)
	dispatcher := dispatch.NewDispatcher(registries, provider.Tracer())

	// Some platforms materialize their objects lazily; warm the domain up
	// front and keep nudging it on every access to a name in it.
	if cfg.Platform == "jboss" {
		dispatcher.EnablePriming(cfg.PrimeDomain)
		dispatcher.Prime(ctx, cfg.PrimeDomain)
	}

	var store history.Store
	var archive *sqlite.Repository
	if cfg.History.Enabled {
		memStore := history.NewMemoryStore(cfg.History.Retention)
		store = memStore
		if cfg.History.Path != "" {
			archive, err = sqlite.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("opening history archive: %w", err)
			}
			store = history.NewTeeStore(memStore, archive)
		}
	}

	events := pubsub.NewBroker[gateway.RequestEvent]()
	defer events.Close()

	svc := gateway.NewService(gateway.Options{
		Dispatcher: dispatcher,
		History:    store,
		Events:     events,
		Defaults:   cfg.Limits.Limits(),
		Bulk:       cfg.Bulk.Limits(),
		HistoryMax: cfg.History.MaxEntries,
		Version:    version,
	})
	if err := svc.RegisterSelf(ctx); err != nil {
		return fmt.Errorf("registering gateway object: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Addr
	}
	server, err := api.NewServer(api.ServerConfig{
		Addr:    addr,
		Handler: api.NewHandler(svc, version),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	configWatch := watchConfigFile(svc)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("ogate listening on port %d\n", server.Port())
	fmt.Println("Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatAPI, "error stopping API server", err)
	}
	if configWatch != nil {
		_ = configWatch.Stop()
	}
	if archive != nil {
		if err := archive.Close(); err != nil {
			log.ErrorErr(log.CatDB, "error closing history archive", err)
		}
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr(log.CatConfig, "error shutting down tracing", err)
	}

	fmt.Println("Gateway stopped")
	return nil
}

// watchConfigFile applies limit-profile edits from the config file while
// the gateway runs. Other settings (address, platform, history backend)
// still need a restart.
func watchConfigFile(svc *gateway.Service) *watcher.Watcher {
	path := viper.ConfigFileUsed()
	if path == "" {
		return nil
	}

	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		log.Warn(log.CatWatcher, "config watch unavailable", "error", err.Error())
		return nil
	}
	changes, err := w.Start()
	if err != nil {
		log.Warn(log.CatWatcher, "config watch unavailable", "error", err.Error())
		_ = w.Stop()
		return nil
	}

	go func() {
		for range changes {
			if err := viper.ReadInConfig(); err != nil {
				log.Warn(log.CatWatcher, "config file changed but unreadable", "error", err.Error())
				continue
			}
			var updated config.Config
			if err := viper.Unmarshal(&updated); err != nil {
				log.Warn(log.CatWatcher, "config file changed but malformed", "error", err.Error())
				continue
			}
			svc.SetProfiles(updated.Limits.Limits(), updated.Bulk.Limits())
			log.Info(log.CatWatcher, "limit profiles reloaded", "path", path)
		}
	}()
	return w
}
