package agentctl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [agent-id]",
	Short: "Delete an agent record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid agent id %q: %w", args[0], err)
	}
	return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
		if err := env.agents.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %s\n", id)
		return nil
	})
}
