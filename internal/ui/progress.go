package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// Progress shows page completion for a scheduler run.
type Progress struct {
	bar    *progressbar.ProgressBar
	failed int
}

// NewProgress creates a progress bar over total pages writing to w.
func NewProgress(w io.Writer, total int, description string) *Progress {
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Progress{bar: bar}
}

// OnPageDone matches jobs.ProgressFunc. The scheduler serializes calls.
func (p *Progress) OnPageDone(done, total int, result outline.PageResult) {
	if result.Failed() {
		p.failed++
		p.bar.Describe(fmt.Sprintf("recognizing (%d failed)", p.failed))
	}
	_ = p.bar.Set(done)
}

// Finish completes the bar.
func (p *Progress) Finish() {
	_ = p.bar.Finish()
}

// Spinner shows indeterminate progress for a single long step.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner with the given message writing to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	s.spinner.Lock()
	s.spinner.Suffix = " " + message
	s.spinner.Unlock()
}
