package cli

import (
	"strings"
	"time"

	"github.com/hupe1980/actionmesh/channel/sms"
	"github.com/spf13/cobra"
)

func newSMSCommand(flags *rootFlags) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "sms [message]",
		Short: "Process one inbound SMS and print the reply verdict",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			am, _, err := flags.mesh(cmd.Context())
			if err != nil {
				return err
			}
			defer am.Close()

			reply, err := am.HandleSMS(cmd.Context(), sms.InboundMessage{
				TenantID:   flags.tenant,
				From:       from,
				To:         to,
				Body:       strings.Join(args, " "),
				ReceivedAt: time.Now(),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), reply)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender phone number")
	cmd.Flags().StringVar(&to, "to", "", "receiving business number")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
