package agentctl

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print agent change events for a user until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("user", "", "Only show changes for this user id")
	watchCmd.Flags().StringSlice("type", nil, "Only show these change types (INSERT, UPDATE, DELETE)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	types, _ := cmd.Flags().GetStringSlice("type")

	filter := domain.ChangeFilter{Table: domain.AgentsTable, UserID: user}
	for _, t := range types {
		filter.Types = append(filter.Types, domain.ChangeType(t))
	}

	return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
		if env.cfg.NATSUrl == "" {
			return errors.New("watch needs NATS_URL: the in-process notifier only sees this process's writes")
		}
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sub, err := env.changes.Subscribe(ctx, filter)
		if err != nil {
			return err
		}
		defer sub.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		for evt := range sub.Events() {
			if err := enc.Encode(evt); err != nil {
				return err
			}
		}
		return nil
	})
}
