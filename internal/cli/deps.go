package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipdeck/internal/config"
)

type dependency struct {
	name     string
	path     string
	usedFor  string
	required bool
	file     bool
}

func newDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external tools clipdeck relies on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			settings, _, _, err := config.Read(path)
			if err != nil {
				return err
			}
			rows, missing := checkDependencies(dependencies(settings))
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Status", "Location", "Used for"}, rows, nil))
			if missing > 0 {
				return fmt.Errorf("%d required tool(s) missing", missing)
			}
			return nil
		},
	}
}

func dependencies(s *config.Config) []dependency {
	deps := []dependency{
		{name: "ffmpeg", path: s.Media.FFmpeg, usedFor: "audio extraction and clip cutting", required: true},
		{name: "ffprobe", path: s.Media.FFprobe, usedFor: "media duration", required: true},
		{name: "whisper.cpp", path: s.Whisper.Bin, usedFor: "transcription"},
		{name: "whisper model", path: s.Whisper.Model, usedFor: "transcription", file: true},
		{name: "yt-dlp", path: s.Media.YtDlp, usedFor: "URL inputs"},
		{name: "argos-translate", path: s.Translation.ArgosBin, usedFor: "offline translation", required: s.Translation.Provider == "argos"},
	}
	if s.Boundary.Detector == "command" && len(s.Boundary.Command) > 0 {
		deps = append(deps, dependency{name: "sentence splitter", path: s.Boundary.Command[0], usedFor: "sentence boundaries", required: true})
	}
	return deps
}

func checkDependencies(deps []dependency) ([][]string, int) {
	var rows [][]string
	missing := 0
	for _, d := range deps {
		location, err := locate(d)
		status := "ok"
		if err != nil {
			location = d.path
			status = "missing"
			if d.required {
				status = "missing (required)"
				missing++
			}
		}
		rows = append(rows, []string{d.name, status, location, d.usedFor})
	}
	return rows, missing
}

func locate(d dependency) (string, error) {
	if d.path == "" {
		return "", os.ErrNotExist
	}
	if d.file {
		if _, err := os.Stat(d.path); err != nil {
			return "", err
		}
		return d.path, nil
	}
	return exec.LookPath(d.path)
}
