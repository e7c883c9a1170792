package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/ternarybob/seoforge/internal/services/topics"
)

func newTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List topic profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogger(true)

			registry := topics.NewRegistry(logger)
			if config.Topics.File != "" {
				if err := registry.LoadFile(afero.NewOsFs(), config.Topics.File); err != nil {
					return err
				}
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("Name", "Label", "Format", "Default")
			for _, p := range registry.List() {
				def := ""
				if p.Name == config.Batch.Topic {
					def = "*"
				}
				t.Row(p.Name, p.Label, string(p.OutputFormat.Normalize()), def)
			}

			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
}
