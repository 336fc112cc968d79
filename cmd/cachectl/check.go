package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goforj/cacheplugin"
	"github.com/goforj/cacheplugin/internal/config"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the plugin section of a config file and print it in canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if a.configPath != "" {
				var err error
				if cfg, err = config.Read(a.configPath); err != nil {
					return err
				}
			}

			conf := cfg.Plugin.KeySet()
			errorKey := cacheplugin.NewKey("user/cachectl/error", "")
			status, err := cacheplugin.CheckConfig(errorKey, conf)
			if err != nil {
				if kind, ok := errorKey.Meta("error/kind"); ok {
					return fmt.Errorf("%s: %w", kind, err)
				}
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range conf.Keys() {
				fmt.Fprintf(out, "%s = %s\n", key.Name(), key.String())
			}
			fmt.Fprintf(out, "status: %s\n", status)
			return nil
		},
	}
}
