package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pulsewatch/internal/api"
	"github.com/good-yellow-bee/pulsewatch/internal/api/health"
	"github.com/good-yellow-bee/pulsewatch/internal/escalation"
	"github.com/good-yellow-bee/pulsewatch/internal/notifier"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
	"github.com/good-yellow-bee/pulsewatch/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pulsewatch-server",
	Short: "PulseWatch Server - Hospital risk scoring and escalation engine",
	Long: `PulseWatch Server computes composite operational and patient risk
scores, generates alerts and recommendations, and runs the stateful
escalation workflow for clinical response teams.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulsewatch-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	// Load the domain risk configuration. An invalid file is fatal at
	// startup; at runtime a bad reload keeps the previous config.
	riskCfg, err := loadRiskConfig(cfg)
	if err != nil {
		return err
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Notification channels
	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	// Escalation engine
	engine := escalation.NewEngine(store.Escalations(), riskCfg.Escalation, dispatcher)

	// HTTP API server
	serverCfg := &api.Config{
		Address:            cfg.Server.Address,
		TLSEnabled:         cfg.Server.TLS.Enabled,
		TLSCertFile:        cfg.Server.TLS.CertFile,
		TLSKeyFile:         cfg.Server.TLS.KeyFile,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Verbose:            cfg.Verbose,
	}
	srv, err := api.New(serverCfg, store, engine, riskCfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	// Readiness tracks storage connectivity and whether the active risk
	// configuration is healthy. A failed hot reload flips the latter until
	// a good config is applied again.
	var riskHealthy atomic.Bool
	riskHealthy.Store(true)
	srv.RegisterHealthChecker(health.NewStorageChecker(store))
	srv.RegisterHealthChecker(health.NewRiskConfigChecker(riskHealthy.Load))

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)

	// Risk config hot reload
	if cfg.Risk.ConfigPath != "" && cfg.Risk.HotReload {
		watcher, err := risk.NewWatcher(cfg.Risk.ConfigPath, func(reloaded *risk.Config) {
			if err := srv.ApplyRiskConfig(reloaded); err != nil {
				log.Printf("apply reloaded risk config: %v", err)
				riskHealthy.Store(false)
				return
			}
			riskHealthy.Store(true)
			log.Printf("risk configuration reloaded from %s", cfg.Risk.ConfigPath)
		})
		if err != nil {
			return fmt.Errorf("watch risk config: %w", err)
		}
		g.Go(func() error {
			watcher.Run(ctx)
			return nil
		})
	}

	log.Printf("starting pulsewatch-server %s", config.Version)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// loadRiskConfig loads the risk config file, or the built-in defaults when
// no file is configured.
func loadRiskConfig(cfg *Config) (*risk.Config, error) {
	if cfg.Risk.ConfigPath == "" {
		riskCfg := risk.DefaultConfig()
		if err := riskCfg.Validate(); err != nil {
			return nil, fmt.Errorf("default risk config: %w", err)
		}
		log.Printf("using built-in risk configuration")
		return riskCfg, nil
	}

	riskCfg, err := risk.LoadConfig(cfg.Risk.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load risk config: %w", err)
	}
	log.Printf("risk configuration loaded from %s", cfg.Risk.ConfigPath)
	return riskCfg, nil
}

// buildDispatcher wires the configured notification channels. The log
// channel is always registered so escalations are visible without external
// configuration.
func buildDispatcher(cfg *Config) (*notifier.Dispatcher, error) {
	dispatcher := notifier.NewDispatcherWithRateLimit(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Notify.MaxPerMinute,
		Enabled:      true,
	})
	dispatcher.Register(notifier.NewLogChannel())

	if cfg.Notify.Slack.Enabled {
		slack, err := notifier.NewSlackChannel(notifier.SlackConfig{
			WebhookURL: cfg.Notify.Slack.WebhookURL,
		})
		if err != nil {
			return nil, fmt.Errorf("slack notifier: %w", err)
		}
		dispatcher.Register(slack)
	}

	if cfg.Notify.Email.Enabled {
		email, err := notifier.NewEmailChannel(notifier.EmailConfig{
			Host:       cfg.Notify.Email.Host,
			Port:       cfg.Notify.Email.Port,
			Username:   cfg.Notify.Email.Username,
			Password:   cfg.Notify.Email.Password,
			From:       cfg.Notify.Email.From,
			Recipients: cfg.Notify.Email.Recipients,
		})
		if err != nil {
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		dispatcher.Register(email)
	}

	return dispatcher, nil
}
