package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/forPelevin/clipdeck/internal/usecase"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderSummary lists the run totals followed by every excluded card.
func renderSummary(res usecase.Result, colorize bool) string {
	rows := [][]string{
		{"sentences", strconv.Itoa(res.Spans)},
		{"clips scheduled", strconv.Itoa(res.Jobs)},
		{"spans dropped", strconv.Itoa(len(res.Dropped))},
		{"translation failures", strconv.Itoa(len(res.TranslationFailures))},
		{"extraction failures", strconv.Itoa(len(res.ExtractionFailures))},
		{"cards written", strconv.Itoa(len(res.Cards))},
		{"elapsed", res.Elapsed.Round(time.Millisecond).String()},
	}
	var b strings.Builder
	b.WriteString(renderTable([]string{"Run", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	if len(res.ExtractionFailures) > 0 || len(res.TranslationFailures) > 0 {
		var failed [][]string
		for _, f := range res.TranslationFailures {
			failed = append(failed, []string{strconv.Itoa(f.Ordinal), "translation", truncate(f.SourceText, 60)})
		}
		for _, f := range res.ExtractionFailures {
			failed = append(failed, []string{strconv.Itoa(f.Ordinal), "extraction", truncate(f.SourceText, 60)})
		}
		b.WriteString(renderTable([]string{"Clip", "Stage", "Text"}, failed, []columnAlignment{alignRight}))
		b.WriteString("\n")
	}

	deckLine := "deck: " + res.DeckPath
	if colorize {
		deckLine = text.Colors{text.FgGreen}.Sprint(deckLine)
	}
	b.WriteString(deckLine)
	if res.SRTPath != "" {
		fmt.Fprintf(&b, "\nsubtitles: %s", res.SRTPath)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
