package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/pipeline"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <toc.json>",
	Short: "Render a merged outline JSON as editable text",
	Example: `  pdftoc export book_toc.json
  pdftoc export book_toc.json -o edits/book.txt`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pipeline.ExportText(args[0], exportOutput)
		if err != nil {
			return &pipeline.ProcessingError{Stage: "export", Err: err}
		}
		if ok, err := emit(map[string]string{"text_path": path}); ok || err != nil {
			return err
		}
		app.printer.Success("exported %s", path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "text file (default: input with .txt)")

	rootCmd.AddCommand(exportCmd)
}
