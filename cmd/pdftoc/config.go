package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/config"
	"github.com/jackzampolin/pdftoc/internal/output"
	"github.com/jackzampolin/pdftoc/internal/pipeline"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pdftoc configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Long: `Write the default configuration, with every key and its default, to
~/.pdftoc/config.yaml or the given path. An existing file is kept unless
--force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := app.home.ConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return &pipeline.UsageError{Err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		app.printer.Success("wrote %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *app.config.Get()
		// Never print a resolved key.
		if cfg.Recognizer.APIKey != "" && cfg.ResolveAPIKey() == cfg.Recognizer.APIKey {
			cfg.Recognizer.APIKey = "********"
		}

		format := app.format
		if !format.Structured() {
			format = output.FormatYAML
		}
		if used := app.config.ConfigFileUsed(); used != "" {
			app.printer.Info("config file: %s", used)
		}
		return output.Write(os.Stdout, format, cfg)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one configuration value, or list every key",
	Example: `  pdftoc config get recognizer.model
  pdftoc config get`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			entries := config.DefaultEntries()
			if ok, err := emit(entries); ok || err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				v, _ := app.config.Value(e.Key)
				fmt.Fprintf(tw, "%s\t%v\t%s\n", e.Key, v, e.Description)
			}
			return tw.Flush()
		}

		v, err := app.config.Value(args[0])
		if err != nil {
			return &pipeline.UsageError{Err: err}
		}
		if ok, err := emit(map[string]any{args[0]: v}); ok || err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd)
	rootCmd.AddCommand(configCmd)
}
