package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goforj/cacheplugin"
	"github.com/goforj/cacheplugin/internal/config"
	"github.com/goforj/cacheplugin/internal/logging"
)

// app carries state shared by subcommands once the root pre-run has loaded
// configuration.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and drive the key set cache plugin",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level from the config file")

	cmd.AddCommand(
		newContractCommand(),
		newResolveCommand(a),
		newGetCommand(a),
		newSetCommand(a),
		newFlushCommand(a),
		newBackendsCommand(a),
		newCheckCommand(a),
		newVersionCommand(),
	)
	return cmd
}

// init loads configuration and the logger. The check command reads the file
// itself so it can report invalid settings.
func (a *app) init(cmd *cobra.Command) error {
	var err error
	if cmd.Name() == "check" || a.configPath == "" {
		a.cfg = config.Default()
	} else if a.cfg, err = config.Load(a.configPath); err != nil {
		return err
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logger, err = logging.InitLogger(a.cfg.Log); err != nil {
		return err
	}
	a.logger.WithFields(logging.BaseFields(cmd.Name(), a.configPath)).Debug("cachectl start")
	return nil
}

// openHandle opens a handle on the built-in modules.
func (a *app) openHandle(ctx context.Context) (*cacheplugin.Handle, error) {
	pcfg, err := a.cfg.Plugin.ToPluginConfig()
	if err != nil {
		return nil, err
	}
	h, err := cacheplugin.Open(ctx, cacheplugin.NewDefaultModules(pcfg),
		cacheplugin.WithConfig(pcfg),
		cacheplugin.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	loc, _ := h.Location()
	a.logger.WithFields(logging.HandleFields(h.ID(), loc.Name, loc.Path, string(h.Driver()))).Debug("handle open")
	return h, nil
}
