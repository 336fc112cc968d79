package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goforj/cacheplugin"
)

func newResolveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			h, err := a.openHandle(ctx)
			if err != nil {
				return err
			}
			defer h.Close(ctx)
			loc, _ := h.Location()
			fmt.Fprintln(cmd.OutOrStdout(), loc.Path)
			return nil
		},
	}
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <parent>",
		Short: "Print the cached keys below a parent key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := a.openHandle(ctx)
			if err != nil {
				return err
			}
			defer h.Close(ctx)

			returned := cacheplugin.NewKeySet()
			status, err := h.Get(ctx, cacheplugin.NewKey(args[0], ""), returned)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range returned.Keys() {
				fmt.Fprintf(out, "%s = %s\n", key.Name(), key.String())
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "status: %s\n", status)
			return nil
		},
	}
}

func newSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <parent> [name=value...]",
		Short: "Cache keys below a parent key",
		Long: `Cache keys below a parent key. Relative names are joined to the parent,
so "set user/sw/app color=blue" caches user/sw/app/color.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cacheplugin.NewKey(args[0], "")
			returned, err := parseAssignments(parent.Name(), args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			h, err := a.openHandle(ctx)
			if err != nil {
				return err
			}
			defer h.Close(ctx)

			status, err := h.Set(ctx, parent, returned)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", status)
			return nil
		},
	}
}

func newFlushCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Drop every entry cached at the resolved location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			h, err := a.openHandle(ctx)
			if err != nil {
				return err
			}
			defer h.Close(ctx)

			status, err := h.Flush(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", status)
			return nil
		},
	}
}

func newBackendsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the built-in storage backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pcfg, err := a.cfg.Plugin.ToPluginConfig()
			if err != nil {
				return err
			}
			modules := cacheplugin.NewDefaultModules(pcfg)
			defer modules.Close()
			out := cmd.OutOrStdout()
			for _, name := range modules.Backends() {
				if name == pcfg.StorageName {
					fmt.Fprintf(out, "%s (configured)\n", name)
					continue
				}
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func parseAssignments(parent string, args []string) (*cacheplugin.KeySet, error) {
	ks := cacheplugin.NewKeySet(cacheplugin.NewKey(parent, ""))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid assignment %q (want name=value)", arg)
		}
		if name != parent && !strings.HasPrefix(name, parent+"/") {
			name = parent + "/" + strings.TrimPrefix(name, "/")
		}
		ks.Append(cacheplugin.NewKey(name, value))
	}
	return ks, nil
}
