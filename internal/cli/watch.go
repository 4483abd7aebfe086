package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipdeck/internal/pipeline"
	"github.com/forPelevin/clipdeck/internal/watcher"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Build a deck for every video dropped into a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd, args[0])
		},
	}
	cmd.Flags().String("out", "", "Output directory for clips and deck files")
	cmd.Flags().String("from", "", "Spoken language of the videos (e.g. es)")
	cmd.Flags().String("to", "", "Translation language (e.g. en)")
	cmd.Flags().String("provider", "", "Translation provider: openrouter, argos or none")
	cmd.Flags().StringSlice("tags", nil, "Tags written to each deck header")
	cmd.Flags().Bool("srt", false, "Also write a bilingual .srt next to each deck")
	cmd.Flags().Int("concurrency", 0, "Videos processed at the same time")
	return cmd
}

func watch(cmd *cobra.Command, dir string) error {
	settings, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if st, err := os.Stat(absDir); err != nil || !st.IsDir() {
		return fmt.Errorf("watch dir %s: not a directory", dir)
	}
	if err := checkOutDir(settings.Paths.OutDir, absDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := func(ctx context.Context, path string) error {
		res, err := pipeline.Run(ctx, pipeline.Config{
			Input:    path,
			Settings: settings,
			Logger:   log,
		})
		if err != nil {
			return err
		}
		log.Info("deck written", "video", path, "deck", res.DeckPath, "cards", len(res.Cards))
		return nil
	}

	w, err := watcher.New(absDir, handler, log, settings.Watch.Concurrency,
		time.Duration(settings.Watch.SettleMS)*time.Millisecond)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// checkOutDir rejects an output directory that resolves to the watched one,
// where every written clip would trigger another run.
func checkOutDir(outDir, watched string) error {
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	absWatched, err := filepath.Abs(watched)
	if err != nil {
		return fmt.Errorf("resolve watch directory: %w", err)
	}
	if absOut == absWatched {
		return errors.New("output directory must differ from the watched directory")
	}
	return nil
}
