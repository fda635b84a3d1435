package cli

import (
	"fmt"
	"strings"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// actionDoc is the exported description of one action.
type actionDoc struct {
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description" yaml:"description"`
	Category     string         `json:"category" yaml:"category"`
	Risk         string         `json:"risk" yaml:"risk"`
	Policy       string         `json:"policy" yaml:"policy"`
	Integrations []string       `json:"integrations,omitempty" yaml:"integrations,omitempty"`
	Channels     []core.Channel `json:"channels,omitempty" yaml:"channels,omitempty"`
	Parameters   map[string]any `json:"parameters" yaml:"parameters"`
}

func newActionsCommand(flags *rootFlags) *cobra.Command {
	var (
		format   string
		category string
	)
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the registered actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, _, err := flags.mesh(cmd.Context())
			if err != nil {
				return err
			}
			defer am.Close()

			list := am.Catalog().All()
			if category != "" {
				list = am.Catalog().ListByCategory(category)
			}
			docs := make([]actionDoc, 0, len(list))
			for _, a := range list {
				docs = append(docs, toDoc(a))
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return printJSON(out, docs)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(docs); err != nil {
					return err
				}
				return enc.Close()
			case "table":
				fmt.Fprintf(out, "%-24s %-12s %-8s %-22s %s\n", "NAME", "CATEGORY", "RISK", "POLICY", "INTEGRATIONS")
				fmt.Fprintf(out, "%-24s %-12s %-8s %-22s %s\n", strings.Repeat("-", 24), strings.Repeat("-", 12), strings.Repeat("-", 8), strings.Repeat("-", 22), strings.Repeat("-", 12))
				for _, d := range docs {
					fmt.Fprintf(out, "%-24s %-12s %-8s %-22s %s\n", d.Name, d.Category, d.Risk, d.Policy, strings.Join(d.Integrations, ","))
				}
				return nil
			default:
				return fmt.Errorf("unsupported format %q (table, json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or yaml")
	cmd.Flags().StringVar(&category, "category", "", "only list actions of this category")
	return cmd
}

func toDoc(a catalog.Action) actionDoc {
	return actionDoc{
		Name:         a.Name,
		Description:  a.Description,
		Category:     a.Category,
		Risk:         a.Risk.String(),
		Policy:       a.Policy.String(),
		Integrations: a.RequiredIntegrations,
		Channels:     a.Channels,
		Parameters:   a.Parameters,
	}
}
