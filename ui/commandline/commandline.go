// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI tools for the command line: a progress bar for
// the conversion of the images and a summary table of the results.
package commandline

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableBorderColor  = "#705090"
)

// SplitSummary is one row of the summary table.
type SplitSummary struct {
	Split     string
	NumImages int
	NumShards int
	Bytes     int64
	Elapsed   time.Duration
}

// SummaryTable renders the per-split results as a table with rounded borders.
func SummaryTable(summaries []SplitSummary) string {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		Headers("Split", "Images", "Shards", "Size", "Time").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return normalStyle
			}
			return rightAlignedStyle
		})
	for _, s := range summaries {
		table.Row(
			s.Split,
			humanize.Comma(int64(s.NumImages)),
			humanize.Comma(int64(s.NumShards)),
			humanize.Bytes(uint64(s.Bytes)),
			FormatDuration(s.Elapsed),
		)
	}
	return table.String()
}

// FormatDuration pretty prints duration rounded to a precision that fits its magnitude.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
