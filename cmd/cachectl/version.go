package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goforj/cacheplugin"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cachectl plugin version: %s\n", cacheplugin.PluginVersion)
		},
	}
}
