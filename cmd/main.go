package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "learnvoice",
		Short:         "Pronunciation audio server for the language learning app",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(
		newServeCommand(),
		newWarmCommand(),
		newPreloadCommand(),
		newKeyCommand(),
		newTokenCommand(),
	)

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
