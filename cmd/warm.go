package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/usecase"
)

func newWarmCommand() *cobra.Command {
	var (
		file  string
		voice string
		speed float64
	)

	cmd := &cobra.Command{
		Use:   "warm [word...]",
		Short: "Pre-generate and store audio for a word list",
		Long: "Resolves every word once so later requests are cache hits. Words come from\n" +
			"--file (one per line, a JSON string array or a topics JSON file) and/or arguments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			words := append([]string(nil), args...)
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open word list: %w", err)
				}
				parsed, err := usecase.ParseWordList(f)
				f.Close()
				if err != nil {
					return err
				}
				words = append(words, parsed...)
			}
			if len(usecase.UniqueWords(words, voice, speed)) == 0 {
				return fmt.Errorf("no words given, pass --file or arguments")
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			out := cmd.OutOrStdout()
			report := a.warmer.Warm(ctx, usecase.WarmRequest{Words: words, Voice: voice, Speed: speed},
				func(word, outcome string, r usecase.WarmReport) {
					done := r.AlreadyCached + r.Generated + r.Failed
					fmt.Fprintf(out, "[%d/%d] %-10s %s\n", done, r.Total, outcome, word)
				})

			fmt.Fprintf(out, "\ntotal %d, cached %d, generated %d, failed %d\n",
				report.Total, report.AlreadyCached, report.Generated, report.Failed)
			for _, f := range report.Failures {
				fmt.Fprintf(out, "  %s: %s\n", f.Word, f.Error)
			}

			if report.Failed > 0 {
				logger.Warn("Cache warm finished with failures", zap.Int("failed", report.Failed))
				return fmt.Errorf("%d of %d words failed", report.Failed, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Word list file")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice id (default en-US-Journey-F)")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Speaking rate (default 1.0)")

	return cmd
}
