package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goforj/cacheplugin"
)

type contractEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

func newContractCommand() *cobra.Command {
	var (
		format  string
		exports bool
	)
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Print the plugin contract descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contract := cacheplugin.Contract()
			if exports {
				for _, op := range cacheplugin.Exports(contract) {
					fmt.Fprintln(cmd.OutOrStdout(), op)
				}
				return nil
			}
			var entries []contractEntry
			for _, key := range contract.Keys() {
				entries = append(entries, contractEntry{Name: key.Name(), Value: key.String()})
			}
			var (
				body []byte
				err  error
			)
			switch format {
			case "yaml":
				body, err = yaml.Marshal(entries)
			case "json":
				body, err = json.MarshalIndent(entries, "", "  ")
				body = append(body, '\n')
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().BoolVar(&exports, "exports", false, "print only the exported operation names")
	return cmd
}
