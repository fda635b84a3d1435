package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/actionmesh/core"
	"github.com/spf13/cobra"
)

func newChatCommand(flags *rootFlags) *cobra.Command {
	var (
		user, contact, project, page, confirm string
		channel, confirmArgs                  string
	)
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Run one assistant turn and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			am, _, err := flags.mesh(cmd.Context())
			if err != nil {
				return err
			}
			defer am.Close()

			ec := core.NewExecutionContext(flags.tenant, user, core.Channel(channel))
			ec.ContactID = contact
			ec.ProjectID = project
			ec.Page = page
			switch {
			case confirm != "" && confirmArgs != "":
				var confirmed map[string]any
				if err := json.Unmarshal([]byte(confirmArgs), &confirmed); err != nil {
					return fmt.Errorf("invalid --confirm-args: %w", err)
				}
				ec.ConfirmCall(confirm, confirmed, user)
			case confirm != "":
				ec.Confirm(confirm, user)
			}

			res, err := am.Turn(cmd.Context(), ec, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&user, "user", "cli", "acting user id")
	cmd.Flags().StringVar(&channel, "channel", string(core.ChannelChat), "channel: chat, voice_inbound, voice_outbound, sms or email")
	cmd.Flags().StringVar(&contact, "contact", "", "focal contact id")
	cmd.Flags().StringVar(&project, "project", "", "focal project id")
	cmd.Flags().StringVar(&page, "page", "", "chat page the user is looking at")
	cmd.Flags().StringVar(&confirm, "confirm", "", "action the user explicitly confirmed for one call this turn")
	cmd.Flags().StringVar(&confirmArgs, "confirm-args", "", "JSON arguments the confirmation is bound to")
	return cmd
}
