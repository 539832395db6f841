package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/registry"
)

func newToolsCmd(get func() *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			reg := a.runner.Registry()

			categories := reg.Categories()
			if category != "" {
				c := models.Category(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category %q", category)
				}
				categories = []models.Category{c}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range categories {
				tools := registry.Filter(reg.List(c), a.cfg.Tools.Disabled)
				if len(tools) == 0 {
					continue
				}
				fmt.Fprintln(tw, colorInfo(string(c)))
				for _, d := range tools {
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", d.ID, d.InputKind, d.DisplayName)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list one category, e.g. Content")
	return cmd
}
