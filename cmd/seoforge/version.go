package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/seoforge/internal/common"
)

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Version needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(common.GetVersionInfo())
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "SeoForge version %s\n", common.GetFullVersion())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version information as JSON")
	return cmd
}
