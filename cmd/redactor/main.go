// redactor — secret redaction core for LLM-bound traffic.
// `scan` redacts stdin for a one-off session; `serve` runs the management
// endpoints with config hot-reload for embedding deployments.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hfi/llm-secret-redactor/internal/audit"
	"github.com/hfi/llm-secret-redactor/internal/config"
	"github.com/hfi/llm-secret-redactor/internal/metrics"
	"github.com/hfi/llm-secret-redactor/internal/middleware"
	"github.com/hfi/llm-secret-redactor/internal/pattern"
	"github.com/hfi/llm-secret-redactor/internal/server"
	"github.com/hfi/llm-secret-redactor/internal/session"
)

// Version information - set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "redactor",
		Short:         "Detects secrets in LLM-bound text and replaces them with reversible placeholders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default $CONFIG_PATH or config.yaml)")

	root.AddCommand(versionCmd(), scanCmd(&configPath), restoreCmd(&configPath), serveCmd(&configPath))
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "redactor %s (%s)\n", Version, GitCommit)
		},
	}
}

func scanCmd(configPath *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Redact secrets in text read from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			mw, _, _, cleanup, err := build(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			fmt.Fprint(cmd.OutOrStdout(), mw.ProcessRequest(sessionID, string(input)))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session identifier (default random)")
	return cmd
}

func restoreCmd(configPath *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore placeholders in text read from stdin",
		Long:  "Restore placeholders in text read from stdin. Needs the session that issued them, so it is only useful with shared (redis) storage or within one process.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			mw, _, _, cleanup, err := build(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), mw.ProcessResponse(sessionID, string(input)))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session identifier that issued the placeholders")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the management endpoints (metrics, health, stats)",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			mw, registry, store, cleanup, err := build(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg.Server, Version, mw.Snapshot)
			srv.RegisterHealthCheck("store", func() (bool, string) {
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				if err := store.Ping(pingCtx); err != nil {
					return false, err.Error()
				}
				return true, ""
			})

			if *configPath != "" {
				watcher, err := config.NewWatcher(*configPath, func(next *config.Config) error {
					return next.ApplyPatterns(registry)
				})
				if err != nil {
					fmt.Fprintf(os.Stderr, "config hot-reload disabled: %v\n", err)
				} else {
					go func() {
						if err := watcher.Run(ctx); err != nil {
							fmt.Fprintf(os.Stderr, "config watcher stopped: %v\n", err)
						}
					}()
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			fmt.Fprintf(os.Stderr, "redactor %s: management endpoints on %s\n", Version, cfg.Server.Addr)

			select {
			case <-ctx.Done():
				return srv.Stop(context.Background())
			case err := <-errCh:
				return err
			}
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// build assembles the registry, store, and middleware from config.
func build(cfg *config.Config) (*middleware.Middleware, *pattern.Registry, session.Store, func(), error) {
	registry, err := pattern.NewDefault()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := cfg.ApplyPatterns(registry); err != nil {
		return nil, nil, nil, nil, err
	}

	storeCfg := session.Config{
		MaxSessions:          cfg.Limits.MaxSessions,
		MaxSecretsPerSession: cfg.Limits.MaxSecretsPerSession,
		TTL:                  cfg.Limits.SessionTTL,
	}

	var store session.Store
	switch cfg.Storage.Type {
	case "redis":
		store, err = session.NewRedisStore(cfg.Storage.Redis.Address, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, storeCfg)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	default:
		mem := session.NewMemoryStore(storeCfg)
		mem.StartSweep(context.Background(), cfg.Limits.SweepInterval)
		store = mem
	}

	logger, err := audit.New(cfg.Audit)
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, err
	}

	mw := middleware.New(registry, store, metrics.NewRecorder(), logger, middleware.Options{
		MaxTextLength:     cfg.Limits.MaxTextLength,
		SlowCallThreshold: cfg.Limits.SlowCallThreshold,
	})

	cleanup := func() {
		store.Close()
		logger.Close()
	}
	return mw, registry, store, cleanup, nil
}
