package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

func newKeyCommand() *cobra.Command {
	var (
		voice string
		speed float64
	)

	cmd := &cobra.Command{
		Use:   "key <text>",
		Short: "Print the cache object name for a phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := entities.NewResolutionRequest(strings.Join(args, " "), voice, speed)
			if err != nil {
				return err
			}
			key := cachekey.Derive(req.Text, req.Voice, req.Speed)
			fmt.Fprintln(cmd.OutOrStdout(), key.Filename())
			return nil
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Voice id (default en-US-Journey-F)")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Speaking rate (default 1.0)")

	return cmd
}
