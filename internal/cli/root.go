// Package cli implements the actionmesh command line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hupe1980/actionmesh"
	"github.com/hupe1980/actionmesh/config"
	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit string) {
	appVersion = version
	appCommit = commit
}

type rootFlags struct {
	configPath string
	tenant     string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "actionmesh",
		Short: "Function-calling orchestration for conversational CRM assistants",
		Long: `actionmesh lets a conversational assistant take real actions against CRM
records, messaging and scheduling across chat, voice and SMS, with risk-gated
authorization and human approval for outbound communication.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.tenant, "tenant", "default", "tenant id")

	root.AddCommand(
		newVersionCommand(),
		newActionsCommand(flags),
		newSMSCommand(flags),
		newChatCommand(flags),
		newCommitmentCommand(flags),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "actionmesh %s\ncommit: %s\n", appVersion, appCommit)
		},
	}
}

func (f *rootFlags) load() (*config.Config, error) {
	return config.Load(f.configPath)
}

func (f *rootFlags) mesh(ctx context.Context) (*actionmesh.ActionMesh, *config.Config, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, nil, err
	}
	am, err := actionmesh.FromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return am, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
