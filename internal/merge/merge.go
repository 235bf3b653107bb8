// Package merge assembles per-page recognition results into one outline and
// runs the cross-page consistency checks.
package merge

import (
	"fmt"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// Input carries the metadata recorded on the merged outline.
type Input struct {
	PDFPath      string
	PageOffset   int
	TOCPageRange string
	ModelName    string
	// GeneratedAt is supplied by the caller so Merge stays deterministic.
	GeneratedAt time.Time
}

// Report lists everything a human reviewer should look at. Warnings come
// from the merge checks; PageDiagnostics are forwarded from the page results
// in page order.
type Report struct {
	Warnings        []outline.Diagnostic `json:"warnings" yaml:"warnings"`
	PageDiagnostics []outline.Diagnostic `json:"page_diagnostics,omitempty" yaml:"page_diagnostics,omitempty"`
	FailedPages     []int                `json:"failed_pages,omitempty" yaml:"failed_pages,omitempty"`
}

// HasWarnings reports whether either merge check fired.
func (r Report) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Merge concatenates the entries of results in the order given and checks
// page ordering and level jumps. Entries are never reordered, changed or
// dropped. Calling Merge twice on the same input yields identical output.
func Merge(results []outline.PageResult, in Input) (outline.Outline, Report) {
	var report Report
	entries := make([]outline.Entry, 0)
	origins := make([]int, 0)

	for _, r := range results {
		entries = append(entries, r.Entries...)
		for range r.Entries {
			origins = append(origins, r.PageIndex)
		}
		report.PageDiagnostics = append(report.PageDiagnostics, r.Diagnostics...)
		if r.Failed() {
			report.FailedPages = append(report.FailedPages, r.PageIndex)
		}
	}

	report.Warnings = append(report.Warnings, CheckPageOrder(entries, origins)...)
	report.Warnings = append(report.Warnings, CheckLevelJumps(entries, origins)...)

	o := outline.Outline{
		Metadata: outline.Metadata{
			PDFPath:      in.PDFPath,
			PageOffset:   in.PageOffset,
			TOCPageRange: in.TOCPageRange,
			TotalEntries: len(entries),
			GeneratedAt:  in.GeneratedAt,
			ModelName:    in.ModelName,
		},
		TOC: entries,
	}
	return o, report
}

// CheckPageOrder flags any entry whose page is lower than the highest page
// already seen among entries of the same or a shallower level. The running
// maximum accumulates across the whole document and is never reset at
// chapter boundaries. origins, when non-nil, maps entry index to page index.
func CheckPageOrder(entries []outline.Entry, origins []int) []outline.Diagnostic {
	var warnings []outline.Diagnostic
	maxByLevel := make([]int, outline.MaxLevel+1)

	for i, e := range entries {
		lvl := trackLevel(e.Level)

		ceiling, ceilingLevel := 0, 0
		for l := outline.MinLevel; l <= lvl; l++ {
			if maxByLevel[l] > ceiling {
				ceiling, ceilingLevel = maxByLevel[l], l
			}
		}
		if e.Page < ceiling {
			warnings = append(warnings, outline.Diagnostic{
				Severity:   outline.SeverityWarning,
				Kind:       outline.KindPageOrder,
				PageIndex:  originOf(origins, i),
				EntryIndex: i + 1,
				Message: fmt.Sprintf("entry %d %q (level %d) is on page %d, before page %d already reached at level %d",
					i+1, e.Title, e.Level, e.Page, ceiling, ceilingLevel),
			})
		}
		if e.Page > maxByLevel[lvl] {
			maxByLevel[lvl] = e.Page
		}
	}
	return warnings
}

// CheckLevelJumps flags entries nested more than one level deeper than the
// entry before them, which usually means a heading was missed.
func CheckLevelJumps(entries []outline.Entry, origins []int) []outline.Diagnostic {
	var warnings []outline.Diagnostic
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Level > prev.Level+1 {
			warnings = append(warnings, outline.Diagnostic{
				Severity:   outline.SeverityWarning,
				Kind:       outline.KindLevelJump,
				PageIndex:  originOf(origins, i),
				EntryIndex: i + 1,
				Message: fmt.Sprintf("entry %d %q jumps from level %d to level %d",
					i+1, cur.Title, prev.Level, cur.Level),
			})
		}
	}
	return warnings
}

// Check runs both consistency checks on an already merged outline, for
// outlines that come from a text file or a hand-edited JSON file.
func Check(o outline.Outline) []outline.Diagnostic {
	warnings := CheckPageOrder(o.TOC, nil)
	return append(warnings, CheckLevelJumps(o.TOC, nil)...)
}

// trackLevel maps out-of-range levels onto the tracked range so hand-edited
// input cannot index out of bounds.
func trackLevel(level int) int {
	if level < outline.MinLevel {
		return outline.MinLevel
	}
	if level > outline.MaxLevel {
		return outline.MaxLevel
	}
	return level
}

func originOf(origins []int, i int) int {
	if i < len(origins) {
		return origins[i]
	}
	return 0
}
