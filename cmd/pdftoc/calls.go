package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdftoc/internal/ingest"
	"github.com/jackzampolin/pdftoc/internal/llmcall"
	"github.com/jackzampolin/pdftoc/internal/pipeline"
)

var (
	callsPage      int
	callsStage     string
	callsFailed    bool
	callsLimit     int
	callsWorkspace string
	callsResponses bool
)

var callsCmd = &cobra.Command{
	Use:   "calls <pdf>",
	Short: "Show recorded recognition calls for a document",
	Long: `List the recognition calls logged in the document's workspace, oldest
first, with token and latency totals.

Examples:
  pdftoc calls book.pdf --page 7
  pdftoc calls book.pdf --failed --responses`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := workspaceFor(args[0], callsWorkspace)
		filter := llmcall.QueryFilter{
			PageIndex: callsPage,
			Stage:     callsStage,
			Limit:     callsLimit,
		}
		if callsFailed {
			failed := false
			filter.Success = &failed
		}

		calls, err := llmcall.ReadCalls(ws.CallLogPath(), filter)
		if err != nil {
			return &pipeline.UsageError{Err: fmt.Errorf("no call log for %s: %w", ingest.Stem(args[0]), err)}
		}
		stats := llmcall.Summarize(calls)
		if ok, err := emit(map[string]any{"calls": calls, "stats": stats}); ok || err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tPAGE\tSTAGE\tTRY\tMS\tIN\tOUT\tSTATUS")
		for _, c := range calls {
			status := "ok"
			if !c.Success {
				status = c.Error
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
				c.Timestamp.Local().Format("15:04:05"), c.PageIndex, c.Stage, c.Attempt,
				c.LatencyMs, c.InputTokens, c.OutputTokens, status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if callsResponses {
			for _, c := range calls {
				fmt.Printf("\n--- page %d %s #%d (%s)\n%s\n", c.PageIndex, c.Stage, c.Attempt, c.ID, c.Response)
			}
		}
		fmt.Printf("\n%d calls, %d failed, %d in / %d out tokens, %.0f ms avg\n",
			stats.Calls, stats.Failed, stats.InputTokens, stats.OutputTokens, stats.AvgLatencyMs)
		return nil
	},
}

func init() {
	callsCmd.Flags().IntVar(&callsPage, "page", 0, "only calls for this PDF page")
	callsCmd.Flags().StringVar(&callsStage, "stage", "", "only calls for this stage")
	callsCmd.Flags().BoolVar(&callsFailed, "failed", false, "only failed calls")
	callsCmd.Flags().IntVar(&callsLimit, "limit", 0, "show the latest N calls")
	callsCmd.Flags().StringVar(&callsWorkspace, "workspace", "", "workspace directory (default: ~/.pdftoc/work/<name>)")
	callsCmd.Flags().BoolVar(&callsResponses, "responses", false, "print full responses")

	rootCmd.AddCommand(callsCmd)
}
