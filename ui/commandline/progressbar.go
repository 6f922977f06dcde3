// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// maxUpdateFrequency is the minimum time between redraws of the progress bar.
const maxUpdateFrequency = time.Millisecond * 200

// ProgressBar displays the progress of converting the images of one split.
//
// A nil *ProgressBar is valid and does nothing, which is what callers use when not verbose.
type ProgressBar struct {
	bar         *progressbar.ProgressBar
	w           io.Writer
	termenv     *termenv.Output
	description string
	bytes       int64
	pending     int
	nextUpdate  time.Time
}

// NewProgressBar creates a progress bar for numImages images, drawn on w.
func NewProgressBar(w io.Writer, description string, numImages int) *ProgressBar {
	pBar := &ProgressBar{
		w:           w,
		termenv:     termenv.NewOutput(w),
		description: description,
	}
	pBar.bar = progressbar.NewOptions(numImages,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionThrottle(maxUpdateFrequency),
	)
	pBar.termenv.HideCursor()
	return pBar
}

// Add reports numImages more images converted, totaling numBytes more bytes written.
func (pBar *ProgressBar) Add(numImages int, numBytes int64) {
	if pBar == nil {
		return
	}
	pBar.pending += numImages
	pBar.bytes += numBytes
	now := time.Now()
	if now.Before(pBar.nextUpdate) {
		return
	}
	pBar.flush()
	pBar.nextUpdate = now.Add(maxUpdateFrequency)
}

func (pBar *ProgressBar) flush() {
	pBar.bar.Describe(fmt.Sprintf("%s (%s)", pBar.description, humanize.Bytes(uint64(pBar.bytes))))
	if pBar.pending > 0 {
		_ = pBar.bar.Add(pBar.pending)
		pBar.pending = 0
	}
}

// Finish draws the final state of the bar and restores the cursor.
func (pBar *ProgressBar) Finish() {
	if pBar == nil {
		return
	}
	pBar.flush()
	_ = pBar.bar.Finish()
	pBar.termenv.ShowCursor()
	_, _ = fmt.Fprintln(pBar.w)
}
