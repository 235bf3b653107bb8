package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jackzampolin/pdftoc/internal/merge"
	"github.com/jackzampolin/pdftoc/internal/outline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

// SummaryView is everything the end-of-run box shows.
type SummaryView struct {
	Metadata    outline.Metadata
	Summary     merge.Summary
	Report      merge.Report
	OutputPath  string // empty when nothing was written
	BackupPath  string
	PreviewSize int // first N entries listed (0 = none)
	Preview     []outline.Entry
}

// RenderSummary renders the outline statistics box.
func RenderSummary(v SummaryView) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Table of contents"))
	b.WriteString("\n")
	if v.Metadata.PDFPath != "" {
		fmt.Fprintf(&b, "%s %s\n", dimStyle.Render("PDF:"), v.Metadata.PDFPath)
	}
	fmt.Fprintf(&b, "%s %d  %s %d",
		dimStyle.Render("Entries:"), v.Summary.TotalEntries,
		dimStyle.Render("Offset:"), v.Metadata.PageOffset)
	if v.Metadata.TOCPageRange != "" {
		fmt.Fprintf(&b, "  %s %s", dimStyle.Render("TOC pages:"), v.Metadata.TOCPageRange)
	}
	b.WriteString("\n")

	levels := make([]int, 0, len(v.Summary.LevelCounts))
	for l := range v.Summary.LevelCounts {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	for _, l := range levels {
		fmt.Fprintf(&b, "  %s %d\n", dimStyle.Render(fmt.Sprintf("level %d:", l)), v.Summary.LevelCounts[l])
	}
	if v.Summary.TotalEntries > 0 {
		fmt.Fprintf(&b, "%s %d-%d\n", dimStyle.Render("PDF pages:"), v.Summary.FirstPDFPage, v.Summary.LastPDFPage)
	}

	for i, e := range v.Preview {
		if v.PreviewSize > 0 && i >= v.PreviewSize {
			fmt.Fprintf(&b, "  %s\n", dimStyle.Render(fmt.Sprintf("... %d more", len(v.Preview)-i)))
			break
		}
		fmt.Fprintf(&b, "  %s%s %s\n", strings.Repeat("  ", e.Level-1), e.Title, dimStyle.Render(fmt.Sprintf("p.%d", e.Page)))
	}

	if n := len(v.Summary.DuplicateTitles); n > 0 {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("%d duplicate title(s): %s", n, strings.Join(v.Summary.DuplicateTitles, ", "))))
	}
	if n := len(v.Report.Warnings); n > 0 {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("%d merge warning(s), review before trusting page numbers", n)))
	} else {
		fmt.Fprintf(&b, "%s\n", okStyle.Render("no ordering or level warnings"))
	}
	if n := len(v.Report.FailedPages); n > 0 {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("failed pages: %s", joinInts(v.Report.FailedPages))))
	}

	if v.OutputPath != "" {
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("Written:"), v.OutputPath)
	}
	if v.BackupPath != "" {
		fmt.Fprintf(&b, "%s %s\n", dimStyle.Render("Backup:"), v.BackupPath)
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
