package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/config"
	"github.com/jackzampolin/pdftoc/internal/home"
	"github.com/jackzampolin/pdftoc/internal/output"
	"github.com/jackzampolin/pdftoc/internal/pipeline"
	"github.com/jackzampolin/pdftoc/internal/ui"
	"github.com/jackzampolin/pdftoc/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	quiet        bool
)

// app is the per-invocation state built before any command runs.
var app struct {
	home    *home.Dir
	config  *config.Manager
	logger  *slog.Logger
	printer *ui.Printer
	format  output.Format
}

var rootCmd = &cobra.Command{
	Use:   "pdftoc",
	Short: "Recognize a scanned book's table of contents and write it as PDF bookmarks",
	Long: `pdftoc renders the table-of-contents pages of a book PDF, recognizes each
page with a vision model, merges the per-page entries into one outline and
writes it into a copy of the PDF as bookmarks.

The outline is also saved as JSON and as an editable text file, so it can be
corrected by hand and imported again:

  pdftoc recognize book.pdf --range 5-12 --offset 15
  $EDITOR ~/.pdftoc/work/book/book_toc.txt
  pdftoc import ~/.pdftoc/work/book/book_toc.txt book.pdf`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pdftoc/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pdftoc home directory (default: ~/.pdftoc)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text", "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&quiet, "quiet", "q", false, "only print warnings and errors",
	)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &pipeline.UsageError{Err: fmt.Errorf("%w\n\n%s", err, cmd.UsageString())}
	})
}

func setup() error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return &pipeline.UsageError{Err: err}
	}

	h, err := home.New(homeDir)
	if err != nil {
		return err
	}

	// .env files first so ${VAR} references in the config resolve.
	if err := config.LoadDotEnv(".env", h.EnvPath()); err != nil {
		return err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	cm, err := config.NewManager(path)
	if err != nil {
		return &pipeline.UsageError{Err: err}
	}

	level := cm.Get().LogLevel
	if logLevel != "" {
		level = logLevel
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return &pipeline.UsageError{Err: fmt.Errorf("invalid log level %q", level)}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	cm.SetLogger(logger)

	printer := ui.NewPrinter()
	printer.Quiet = quiet || format.Structured()

	app.home = h
	app.config = cm
	app.logger = logger
	app.printer = printer
	app.format = format
	return nil
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &pipeline.UsageError{Err: err}
		}
		return nil
	}
}

// requireFlags reports a usage error for any named flag not set on the
// command line.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, n := range names {
		if !cmd.Flags().Changed(n) {
			missing = append(missing, "--"+n)
		}
	}
	if len(missing) > 0 {
		return &pipeline.UsageError{Err: fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))}
	}
	return nil
}

// emit writes v in the structured format when one was requested. It
// reports whether it did.
func emit(v any) (bool, error) {
	if !app.format.Structured() {
		return false, nil
	}
	return true, output.Write(os.Stdout, app.format, v)
}
