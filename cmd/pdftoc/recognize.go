package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/ingest"
	"github.com/jackzampolin/pdftoc/internal/llmcall"
	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/pipeline"
	"github.com/jackzampolin/pdftoc/internal/sink"
	"github.com/jackzampolin/pdftoc/internal/ui"
)

var (
	recRange       string
	recOffset      int
	recOutput      string
	recWorkspace   string
	recConcurrency int
	recDPI         int
	recNoParallel  bool
	recNoWrite     bool
	recForce       bool
	recNoBackup    bool
	recClean       bool
	recPreview     int
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <pdf>",
	Short: "Recognize the table of contents and write it as bookmarks",
	Long: `Render the table-of-contents pages, recognize each one, merge the entries
and write them as bookmarks into a copy of the PDF.

--range is the PDF pages holding the printed table of contents.
--offset is the PDF page where printed page 1 sits; a printed page p lands on
PDF page p + offset - 1.

The merged outline is saved as <stem>_toc.json and <stem>_toc.txt in the
workspace before anything is written, and every recognition call is logged to
debug/calls.jsonl there.

Examples:
  pdftoc recognize book.pdf --range 5-12 --offset 15
  pdftoc recognize book.pdf --range 7 --offset 9 --no-write
  pdftoc recognize book.pdf --range 3-4 --offset 11 --output out.pdf --force`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := app.config.Get()
		pdfPath := args[0]

		if err := requireFlags(cmd, "range", "offset"); err != nil {
			return err
		}
		pageRange, err := ingest.ParsePageRange(recRange)
		if err != nil {
			return &pipeline.UsageError{Err: err}
		}

		renderer := ingest.NewRenderer(ingest.RendererConfig{
			DPI:    firstPositive(recDPI, cfg.Pipeline.DPI),
			Logger: app.logger,
		})
		if err := renderer.CheckBinary(); err != nil {
			return &pipeline.UsageError{Err: err}
		}

		ws := workspaceFor(pdfPath, recWorkspace)

		recorder, err := llmcall.OpenFile(ws.CallLogPath(), app.logger)
		if err != nil {
			return &pipeline.ProcessingError{Stage: "workspace", Err: err}
		}
		defer recorder.Close()

		recognizer, err := newRecognizer(cfg, recorder)
		if err != nil {
			return err
		}

		p, err := pipeline.New(pipeline.Config{
			Recognizer:  recognizer,
			ModelName:   recognizer.Model(),
			Renderer:    renderer,
			Writer:      sink.NewPDFSink(app.logger),
			Prompts:     promptResolver(cfg),
			Concurrency: firstPositive(recConcurrency, cfg.Pipeline.Concurrency),
			MaxRetries:  cfg.Recognizer.MaxRetries,
			RetryDelay:  cfg.Recognizer.RetryDelay,
			CallTimeout: cfg.Recognizer.Timeout,
			Logger:      app.logger,
		})
		if err != nil {
			return err
		}

		var (
			spin     *ui.Spinner
			progress *ui.Progress
		)
		stop := func() {
			if spin != nil {
				spin.Stop()
				spin = nil
			}
			if progress != nil {
				progress.Finish()
				progress = nil
			}
		}
		defer stop()

		req := pipeline.RecognizeRequest{
			PDFPath:    pdfPath,
			PageRange:  pageRange,
			PageOffset: recOffset,
			OutputPath: recOutput,
			Workspace:  ws,
			NoParallel: recNoParallel,
			NoWrite:    recNoWrite,
			Force:      recForce,
			Backup:     !recNoBackup,
			Clean:      recClean,
		}
		if !app.printer.Quiet {
			req.OnStage = func(stage string) {
				stop()
				switch stage {
				case "render":
					spin = ui.NewSpinner(os.Stderr, "rendering pages "+pageRange.String())
					spin.Start()
				case "recognize":
					progress = ui.NewProgress(os.Stderr, pageRange.Len(), "recognizing")
				case "write":
					spin = ui.NewSpinner(os.Stderr, "writing bookmarks")
					spin.Start()
				}
			}
			req.OnPageDone = func(done, total int, r outline.PageResult) {
				if progress != nil {
					progress.OnPageDone(done, total, r)
				}
			}
		}

		result, runErr := p.Recognize(ctx, req)
		stop()
		if result == nil {
			return runErr
		}

		if ok, err := emit(result); ok || err != nil {
			if err != nil {
				return err
			}
			return runErr
		}

		app.printer.Diagnostics(result.Report.PageDiagnostics, 10)
		app.printer.Diagnostics(result.Report.Warnings, 20)
		view := ui.SummaryView{
			Metadata:    result.Outline.Metadata,
			Summary:     result.Summary,
			Report:      result.Report,
			PreviewSize: recPreview,
			Preview:     result.Outline.TOC,
		}
		if result.Write != nil {
			view.OutputPath = result.Write.OutputPath
			view.BackupPath = result.Write.BackupPath
		}
		if !app.printer.Quiet {
			fmt.Fprintln(os.Stdout, ui.RenderSummary(view))
		}
		app.printer.Info("outline JSON: %s", result.MergedPath)
		app.printer.Info("editable text: %s", result.TextPath)
		return runErr
	},
}

func init() {
	recognizeCmd.Flags().StringVar(&recRange, "range", "", "PDF pages holding the table of contents, e.g. 5-12")
	recognizeCmd.Flags().IntVar(&recOffset, "offset", 1, "PDF page of printed page 1")
	recognizeCmd.Flags().StringVar(&recOutput, "output", "", "output PDF (default: <name>_with_toc.pdf)")
	recognizeCmd.Flags().StringVar(&recWorkspace, "workspace", "", "workspace directory (default: ~/.pdftoc/work/<name>)")
	recognizeCmd.Flags().IntVar(&recConcurrency, "concurrency", 0, "pages recognized at once (default from config)")
	recognizeCmd.Flags().IntVar(&recDPI, "dpi", 0, "render resolution (default from config)")
	recognizeCmd.Flags().BoolVar(&recNoParallel, "no-parallel", false, "recognize one page at a time")
	recognizeCmd.Flags().BoolVar(&recNoWrite, "no-write", false, "stop after saving the merged outline")
	recognizeCmd.Flags().BoolVar(&recForce, "force", false, "write even if pre-write validation fails")
	recognizeCmd.Flags().BoolVar(&recNoBackup, "no-backup", false, "do not back up the source PDF")
	recognizeCmd.Flags().BoolVar(&recClean, "clean", false, "remove rendered images and page files afterwards")
	recognizeCmd.Flags().IntVar(&recPreview, "preview", 15, "entries listed in the summary (0 = all)")

	rootCmd.AddCommand(recognizeCmd)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
