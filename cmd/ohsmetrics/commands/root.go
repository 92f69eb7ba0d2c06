// Package commands implements the ohsmetrics command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/ncobase/ohsmetrics/app"
	"github.com/ncobase/ohsmetrics/config"
)

type options struct {
	configPath string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "ohsmetrics",
		Short:         "Occupational health and safety survey metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default searches /etc/ohsmetrics, $HOME/.ohsmetrics and .)")

	rootCmd.AddCommand(
		newSnapshotCommand(opts),
		newServeCommand(opts),
		newInvalidateCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

func (o *options) config() (*config.Config, error) {
	return config.LoadConfig(o.configPath)
}

func (o *options) app() (*app.App, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	return app.New(cfg)
}
