package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/pipeline"
	"github.com/jackzampolin/pdftoc/internal/ui"
)

var (
	mergePDF    string
	mergeOffset int
	mergeRange  string
	mergeModel  string
	mergeOutput string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <pages-dir>",
	Short: "Re-merge a directory of per-page results",
	Long: `Load every page_<N>.json in a directory, in page order, and merge them
into one outline. Use it after correcting page files by hand.

Examples:
  pdftoc merge ~/.pdftoc/work/book/pages --pdf book.pdf --offset 15 -o book_toc.json`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireFlags(cmd, "offset"); err != nil {
			return err
		}
		p, err := newWriterPipeline()
		if err != nil {
			return err
		}

		result, runErr := p.MergeDir(pipeline.MergeRequest{
			PagesDir:   args[0],
			PDFPath:    mergePDF,
			PageOffset: mergeOffset,
			PageRange:  mergeRange,
			ModelName:  mergeModel,
			OutputPath: mergeOutput,
		})
		if result == nil {
			return runErr
		}
		if ok, err := emit(result); ok || err != nil {
			if err != nil {
				return err
			}
			return runErr
		}

		app.printer.Diagnostics(result.Report.Warnings, 0)
		if !app.printer.Quiet {
			fmt.Fprintln(os.Stdout, ui.RenderSummary(ui.SummaryView{
				Metadata:    result.Outline.Metadata,
				Summary:     result.Summary,
				Report:      result.Report,
				PreviewSize: 15,
				Preview:     result.Outline.TOC,
			}))
		}
		if result.OutputPath != "" {
			app.printer.Success("saved %s and %s", result.OutputPath, result.TextPath)
		}
		return runErr
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergePDF, "pdf", "", "PDF the outline belongs to (recorded in metadata)")
	mergeCmd.Flags().IntVar(&mergeOffset, "offset", 1, "PDF page of printed page 1")
	mergeCmd.Flags().StringVar(&mergeRange, "range", "", "table-of-contents page range (recorded in metadata)")
	mergeCmd.Flags().StringVar(&mergeModel, "model", "", "model name (recorded in metadata)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "merged JSON to write; a .txt is written beside it")

	rootCmd.AddCommand(mergeCmd)
}
