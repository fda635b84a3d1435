package cli

import (
	"strings"

	"github.com/hupe1980/actionmesh/commitment"
	"github.com/spf13/cobra"
)

func newCommitmentCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "commitment [text]",
		Short: "Detect a follow-up commitment in an assistant reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			loc, err := cfg.Commitment.Location()
			if err != nil {
				return err
			}
			d := commitment.NewDetector(func(o *commitment.Options) {
				o.CutoffHour = cfg.Commitment.CutoffHour
				o.DueHour = cfg.Commitment.DueHour
				o.Location = loc
			})
			return printJSON(cmd.OutOrStdout(), d.Detect(strings.Join(args, " ")))
		},
	}
}
