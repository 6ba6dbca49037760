package main

import (
	"github.com/spf13/cobra"
)

const envFlag = "env"

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           "lessonnotes-bot",
		Short:         "Telegram bot that collects lesson details and hands them to the notes generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	root.PersistentFlags().String(envFlag, "", "Config environment to load from ./configs (overrides APP_ENV)")

	root.AddCommand(serve)
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// resolveEnv returns the --env flag value; an empty result lets the config
// loader fall back to APP_ENV.
func resolveEnv(cmd *cobra.Command) string {
	if f := cmd.Flag(envFlag); f != nil {
		return f.Value.String()
	}
	return ""
}
