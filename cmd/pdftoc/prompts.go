package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/prompts"
)

var promptsOverwrite bool

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and export the recognition prompts",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the prompts in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := promptResolver(app.config.Get())
		var resolved []*prompts.Prompt
		for _, ep := range resolver.AllEmbedded() {
			p, err := resolver.Resolve(ep.Key)
			if err != nil {
				return err
			}
			resolved = append(resolved, p)
		}
		if ok, err := emit(resolved); ok || err != nil {
			return err
		}
		for _, p := range resolved {
			fmt.Fprintf(os.Stdout, "%-16s %s  %s\n", p.Key, p.Hash[:12], p.Source)
		}
		return nil
	},
}

var promptsExportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Write the built-in prompts to a directory for editing",
	Long: `Write each built-in prompt to <dir>/<key>.txt. Point recognizer.prompts_dir
at the directory to use the edited versions.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := prompts.NewDefaultResolver("", app.logger)
		written, err := resolver.Export(args[0], promptsOverwrite)
		if err != nil {
			return err
		}
		if ok, err := emit(written); ok || err != nil {
			return err
		}
		for _, path := range written {
			app.printer.Success("wrote %s", path)
		}
		return nil
	},
}

func init() {
	promptsExportCmd.Flags().BoolVar(&promptsOverwrite, "overwrite", false, "replace existing files")

	promptsCmd.AddCommand(promptsListCmd, promptsExportCmd)
	rootCmd.AddCommand(promptsCmd)
}
