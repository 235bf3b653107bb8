package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/pipeline"
	"github.com/jackzampolin/pdftoc/internal/ui"
)

var (
	checkPDF    string
	checkOffset int
	checkWatch  bool
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 200 * time.Millisecond

var checkCmd = &cobra.Command{
	Use:   "check <toc.txt|toc.json>",
	Short: "Validate an outline file without writing anything",
	Long: `Decode an outline file, run the page-order and level-jump checks and, when
--pdf is given, the pre-write validation against that PDF. The command exits
with status 3 when any warning or write error is found.

With --watch the check re-runs every time the file is saved, which is handy
while correcting an export in an editor.

Examples:
  pdftoc check book_toc.txt
  pdftoc check book_toc.txt --pdf book.pdf --watch`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newWriterPipeline()
		if err != nil {
			return err
		}
		req := pipeline.CheckRequest{Path: args[0], PDFPath: checkPDF}
		if cmd.Flags().Changed("offset") {
			req.PageOffset = &checkOffset
		}

		if !checkWatch {
			return runCheck(cmd.Context(), p, req)
		}
		return watchCheck(cmd.Context(), p, req)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkPDF, "pdf", "", "PDF to validate page numbers against")
	checkCmd.Flags().IntVar(&checkOffset, "offset", 1, "PDF page of printed page 1 (overrides the file)")
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "re-check whenever the file changes")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, p *pipeline.Pipeline, req pipeline.CheckRequest) error {
	result, err := p.Check(ctx, req)
	if err != nil {
		return err
	}
	if ok, err := emit(result); ok || err != nil {
		if err != nil {
			return err
		}
		return result.Err()
	}

	if !app.printer.Quiet {
		fmt.Fprintln(os.Stdout, ui.RenderSummary(ui.SummaryView{
			Metadata: result.Outline.Metadata,
			Summary:  result.Summary,
		}))
	}
	app.printer.Diagnostics(result.Warnings, 0)
	if v := result.Verdict; v != nil {
		for _, w := range v.Warnings {
			app.printer.Warning("%s", w)
		}
		for _, e := range v.Errors {
			app.printer.Error("%s", e)
		}
	}
	if err := result.Err(); err != nil {
		return err
	}
	app.printer.Success("%s: %d entries, no problems", req.Path, result.Summary.TotalEntries)
	return nil
}

// watchCheck watches the file's directory rather than the file, since most
// editors save by renaming a temp file over the original.
func watchCheck(ctx context.Context, p *pipeline.Pipeline, req pipeline.CheckRequest) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(req.Path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", req.Path, err)
	}

	report := func() {
		if err := runCheck(ctx, p, req); err != nil {
			app.printer.Error("%v", err)
		}
	}
	report()
	app.printer.Info("watching %s (Ctrl+C to stop)", req.Path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			app.logger.Warn("watch error", "error", err)
		case <-debounce:
			debounce = nil
			app.printer.Info("%s changed, re-checking", req.Path)
			report()
		}
	}
}
