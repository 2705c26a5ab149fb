package agentctl

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision an agent immediately, without checkout",
	Args:  cobra.NoArgs,
	RunE:  runProvision,
}

func init() {
	provisionCmd.Flags().String("user", "", "Requester id (profile id or email)")
	provisionCmd.Flags().StringArrayP("question", "q", nil, "Intake question; repeat for several")
	provisionCmd.Flags().String("phone", "", "Existing phone number to key the record on")
	_ = provisionCmd.MarkFlagRequired("user")
}

func runProvision(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	questions, _ := cmd.Flags().GetStringArray("question")
	phone, _ := cmd.Flags().GetString("phone")
	if questions == nil {
		questions = []string{}
	}

	return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
		rec, err := env.runner.Run(ctx, domain.ProvisioningRequest{
			Questions:           questions,
			RequesterID:         user,
			ExistingPhoneNumber: phone,
		}, domain.EntryCLI)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	})
}
