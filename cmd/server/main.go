package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/crowdwatch/internal/api"
	"github.com/good-yellow-bee/crowdwatch/internal/api/health"
	"github.com/good-yellow-bee/crowdwatch/internal/crowd"
	"github.com/good-yellow-bee/crowdwatch/internal/hub"
	"github.com/good-yellow-bee/crowdwatch/internal/metrics"
	"github.com/good-yellow-bee/crowdwatch/internal/notifier"
	"github.com/good-yellow-bee/crowdwatch/internal/predictor"
	"github.com/good-yellow-bee/crowdwatch/internal/storage"
	"github.com/good-yellow-bee/crowdwatch/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "crowdwatch-server",
	Short: "CrowdWatch Server - Real-time crowd monitoring",
	Long: `CrowdWatch Server ingests headcount observations for monitored
events, classifies crowd levels, raises alerts, and streams live
updates to subscribed dashboards.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crowdwatch-server %s\n", config.Version)
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

	// Get JWT secret from environment
	jwtSecret := os.Getenv("CROWDWATCH_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("CROWDWATCH_JWT_SECRET environment variable is required")
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

	// Create default admin user on first run
	if err := store.EnsureAdminUser(); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Alert policy
	policy := crowd.DefaultPolicy()
	if cfg.Policy.File != "" {
		loaded, err := crowd.LoadPolicyFromFile(cfg.Policy.File)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		policy = loaded
		log.Printf("alert policy loaded from %s", cfg.Policy.File)
	}
	policyHolder := crowd.NewPolicyHolder(policy)

	// Core pipeline
	eventHub := hub.New(hub.DefaultOptions())
	coordinator := crowd.NewCoordinator(store, eventHub, policyHolder)

	// External alert channels
	dispatcher, err := setupNotifier(cfg)
	if err != nil {
		return fmt.Errorf("setup notifications: %w", err)
	}
	if dispatcher != nil {
		defer dispatcher.Close()
		coordinator.SetNotifier(dispatcher)
	}

	pred := predictor.NewService()
	pred.Load(predictor.HeuristicModel{})

	// HTTP API
	apiCfg := &api.Config{
		Address:          cfg.Server.Address,
		JWTSecret:        []byte(jwtSecret),
		HTTPTLSEnabled:   cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.TLS.KeyFile,
		AccessTokenTTL:   cfg.AccessTokenTTL(),
		RateLimitPerIP:   cfg.API.RateLimitPerIP,
		RateLimitPerUser: cfg.API.RateLimitPerUser,
		LockoutThreshold: cfg.API.LockoutThreshold,
		LockoutDuration:  cfg.LockoutDuration(),
		Verbose:          cfg.Verbose,
	}
	srv, err := api.New(apiCfg, store, coordinator, eventHub, pred)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}
	srv.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))
	srv.RegisterHealthChecker(health.NewPredictorChecker(pred.Loaded))

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

	log.Printf("starting crowdwatch-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Address)
		g.Go(func() error {
			return metricsSrv.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Policy.Watch {
		g.Go(func() error {
			err := crowd.WatchPolicyFile(gctx, cfg.Policy.File, policyHolder)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// setupNotifier builds the alert dispatcher from config. Returns nil
// when no channel is configured.
func setupNotifier(cfg *Config) (*notifier.Dispatcher, error) {
	slackEnabled := cfg.Notifications.Slack.WebhookURL != ""
	emailEnabled := cfg.Notifications.Email.Host != ""
	if !slackEnabled && !emailEnabled {
		return nil, nil
	}

	dispatcher := notifier.NewDispatcherWithRateLimit(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Notifications.MaxPerMinute,
		Window:       time.Minute,
		Enabled:      true,
	})

	if slackEnabled {
		slack, err := notifier.NewSlackNotifier(notifier.SlackConfig{
			WebhookURL: cfg.Notifications.Slack.WebhookURL,
		})
		if err != nil {
			return nil, err
		}
		dispatcher.Register(slack)
		log.Printf("slack notifications enabled")
	}

	if emailEnabled {
		email, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:       cfg.Notifications.Email.Host,
			Port:       cfg.Notifications.Email.Port,
			Username:   cfg.Notifications.Email.Username,
			Password:   cfg.Notifications.Email.Password,
			From:       cfg.Notifications.Email.From,
			Recipients: cfg.Notifications.Email.Recipients,
		})
		if err != nil {
			return nil, err
		}
		dispatcher.Register(email)
		log.Printf("email notifications enabled for %d recipient(s)", len(cfg.Notifications.Email.Recipients))
	}

	return dispatcher, nil
}
