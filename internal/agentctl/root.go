// Package agentctl implements the operator CLI for the agent service.
package agentctl

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/notifier"
	"github.com/contractor-agent/golang_services/internal/agent_service/bootstrap"
	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
	"github.com/contractor-agent/golang_services/internal/platform/config"
	"github.com/contractor-agent/golang_services/internal/platform/logger"
)

const appName = "agentctl"

var (
	verbose bool
	rootCmd *cobra.Command
)

// runner is the orchestrator as seen by the provision command.
type runner interface {
	Run(ctx context.Context, req domain.ProvisioningRequest, entry domain.EntryPoint) (*domain.AgentRecord, error)
}

// environment is everything a command needs, opened once per invocation.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	agents  domain.AgentRepository
	changes domain.ChangeNotifier
	runner  runner
	close   func()
}

// openEnvironment is swapped out in tests.
var openEnvironment = defaultEnvironment

func defaultEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load(appName)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.NewWithFormat(level, "text", os.Stderr).With("service", appName)

	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	changes, closeNotifier, err := bootstrap.NewNotifier(cfg, log, appName)
	if err != nil {
		store.Close()
		return nil, err
	}
	agents := notifier.NewNotifyingRepository(store.Agents, changes, log)
	orchestrator, err := bootstrap.NewOrchestrator(cfg, agents, log)
	if err != nil {
		closeNotifier()
		store.Close()
		return nil, err
	}
	return &environment{
		cfg:     cfg,
		logger:  log,
		agents:  agents,
		changes: changes,
		runner:  orchestrator,
		close: func() {
			closeNotifier()
			store.Close()
		},
	}, nil
}

func init() {
	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Operate the contractor agent service",
		Long: `agentctl manages contractor voice agents outside the HTTP API.

It reads the same configuration as the service (configs/config.defaults.yaml,
.env and APP_* environment variables).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(deleteCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// withEnvironment opens the environment for the duration of fn.
func withEnvironment(cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close()
	return fn(ctx, env)
}
