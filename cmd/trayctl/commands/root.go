// Package commands implements the trayctl command line.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand returns the trayctl command tree.
func NewRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "trayctl",
		Short:        "Show and inspect system tray icons",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd, logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		newRunCommand(),
		newValidateCommand(),
		newItemsCommand(),
		newClickCommand(),
	)

	return root
}

func newLogger(cmd *cobra.Command, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: l})), nil
}
