package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "clipdeck",
		Short:        "Turn a spoken-language video into sentence-aligned flashcards",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Config file (TOML or YAML); defaults to $CLIPDECK_CONFIG, ./clipdeck.toml or ~/.config/clipdeck/config.toml")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Log format: console or json")

	root.AddCommand(newRunCommand(), newWatchCommand(), newDepsCommand())
	return root
}
