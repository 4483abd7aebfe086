package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipdeck/internal/config"
	"github.com/forPelevin/clipdeck/internal/logging"
	"github.com/forPelevin/clipdeck/internal/pipeline"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <video|url>",
		Short: "Build a deck from one local video or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	// Visible flags
	cmd.Flags().String("out", "", "Output directory for clips and the deck file")
	cmd.Flags().String("name", "", "Basename for clips and deck (default: derived from the input)")
	cmd.Flags().String("from", "", "Spoken language of the video (e.g. es)")
	cmd.Flags().String("to", "", "Translation language (e.g. en)")
	cmd.Flags().String("provider", "", "Translation provider: openrouter, argos or none")
	cmd.Flags().String("on-failure", "", "When a translation fails: placeholder or omit")
	cmd.Flags().String("transcript", "", "Use a saved whisper JSON transcript instead of transcribing")
	cmd.Flags().String("save-transcript", "", "Save the transcript as JSON for later runs")
	cmd.Flags().StringSlice("tags", nil, "Tags written to the deck header")
	cmd.Flags().String("clip-ext", "", "Clip container: mp3, m4a, mp4, ogg")
	cmd.Flags().Bool("srt", false, "Also write a bilingual .srt next to the deck")
	cmd.Flags().Bool("quiet", false, "Do not print the run summary")

	// Hidden tuning flags
	cmd.Flags().Int("workers", 0, "Concurrent clip cuts")
	cmd.Flags().Int("padding-ms", -1, "Padding around each sentence in ms")
	cmd.Flags().Int("merge-gap-ms", -1, "Merge sentences separated by less silence than this (ms)")
	for _, name := range []string{"workers", "padding-ms", "merge-gap-ms"} {
		_ = cmd.Flags().MarkHidden(name)
	}
	return cmd
}

func run(cmd *cobra.Command, input string) error {
	settings, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	transcript, _ := cmd.Flags().GetString("transcript")
	saveTranscript, _ := cmd.Flags().GetString("save-transcript")
	quiet, _ := cmd.Flags().GetBool("quiet")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Hour)
	defer cancel()

	res, err := pipeline.Run(ctx, pipeline.Config{
		Input:          input,
		Name:           name,
		Transcript:     transcript,
		SaveTranscript: saveTranscript,
		Settings:       settings,
		Logger:         log,
	})
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res, logging.Colorize(cmd.OutOrStdout())))
	}
	return nil
}

// loadSettings reads the config file, applies flag overrides and validates
// the result.
func loadSettings(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	settings, _, _, err := config.Read(path)
	if err != nil {
		return nil, nil, err
	}
	if err := applyFlags(cmd, settings); err != nil {
		return nil, nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(logging.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, err
	}
	return settings, log, nil
}

func applyFlags(cmd *cobra.Command, s *config.Config) error {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	str("log-level", &s.Logging.Level)
	str("log-format", &s.Logging.Format)
	str("from", &s.Translation.From)
	str("to", &s.Translation.To)
	str("provider", &s.Translation.Provider)
	str("on-failure", &s.Translation.OnFailure)
	str("clip-ext", &s.Media.ClipExt)
	num("workers", &s.Extract.Workers)
	num("padding-ms", &s.Schedule.PaddingMS)
	num("merge-gap-ms", &s.Schedule.MergeGapMS)
	num("concurrency", &s.Watch.Concurrency)

	if flags.Lookup("out") != nil && flags.Changed("out") {
		out, _ := flags.GetString("out")
		expanded, err := config.ExpandPath(out)
		if err != nil {
			return fmt.Errorf("--out: %w", err)
		}
		s.Paths.OutDir = expanded
	}
	if flags.Lookup("tags") != nil && flags.Changed("tags") {
		s.Deck.Tags, _ = flags.GetStringSlice("tags")
	}
	if flags.Lookup("srt") != nil && flags.Changed("srt") {
		s.Deck.SRT, _ = flags.GetBool("srt")
	}
	// re-apply normalization rules to flag values
	return s.Normalize()
}
