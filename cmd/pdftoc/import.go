package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/pipeline"
	"github.com/jackzampolin/pdftoc/internal/ui"
)

var (
	importOutput   string
	importOffset   int
	importForce    bool
	importNoBackup bool
	importDryRun   bool
)

var importCmd = &cobra.Command{
	Use:   "import <toc.txt> <pdf>",
	Short: "Write an edited text outline into a PDF",
	Long: `Decode an outline in the text export format and write it as bookmarks into
a copy of the PDF. The page offset comes from the file header unless --offset
is given.

Entry lines look like:
  Chapter 1 ... 1 (PDF: 15)
    1.1 Getting started ... 3 (PDF: 17)

Two leading spaces per level. The "(PDF: n)" value is recomputed from the
offset and is not read back.

Examples:
  pdftoc import book_toc.txt book.pdf
  pdftoc import book_toc.txt book.pdf --offset 13 --output fixed.pdf`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newWriterPipeline()
		if err != nil {
			return err
		}

		req := pipeline.ImportRequest{
			TextPath:   args[0],
			PDFPath:    args[1],
			OutputPath: importOutput,
			NoWrite:    importDryRun,
			Force:      importForce,
			Backup:     !importNoBackup,
		}
		if cmd.Flags().Changed("offset") {
			req.PageOffset = &importOffset
		}

		result, runErr := p.Import(cmd.Context(), req)
		if result == nil {
			return runErr
		}
		if ok, err := emit(result); ok || err != nil {
			if err != nil {
				return err
			}
			return runErr
		}

		app.printer.Diagnostics(result.Warnings, 20)
		view := ui.SummaryView{
			Metadata: result.Outline.Metadata,
			Summary:  result.Summary,
		}
		if result.Write != nil {
			view.OutputPath = result.Write.OutputPath
			view.BackupPath = result.Write.BackupPath
		}
		if !app.printer.Quiet {
			fmt.Fprintln(os.Stdout, ui.RenderSummary(view))
		}
		return runErr
	},
}

func init() {
	importCmd.Flags().StringVar(&importOutput, "output", "", "output PDF (default: <name>_with_toc.pdf)")
	importCmd.Flags().IntVar(&importOffset, "offset", 1, "PDF page of printed page 1 (overrides the header)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "write even if pre-write validation fails")
	importCmd.Flags().BoolVar(&importNoBackup, "no-backup", false, "do not back up the source PDF")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "decode and check without writing")

	rootCmd.AddCommand(importCmd)
}
