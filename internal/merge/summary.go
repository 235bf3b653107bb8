package merge

import (
	"github.com/jackzampolin/pdftoc/internal/outline"
)

// Summary is an informational digest of a merged outline.
type Summary struct {
	TotalEntries    int         `json:"total_entries" yaml:"total_entries"`
	LevelCounts     map[int]int `json:"level_counts" yaml:"level_counts"`
	DuplicateTitles []string    `json:"duplicate_titles,omitempty" yaml:"duplicate_titles,omitempty"`
	FirstPDFPage    int         `json:"first_pdf_page,omitempty" yaml:"first_pdf_page,omitempty"`
	LastPDFPage     int         `json:"last_pdf_page,omitempty" yaml:"last_pdf_page,omitempty"`
}

// Summarize counts entries per level, lists repeated titles in order of
// first repetition, and reports the physical page span.
func Summarize(o outline.Outline) Summary {
	s := Summary{
		TotalEntries: len(o.TOC),
		LevelCounts:  make(map[int]int),
	}

	seen := make(map[string]int)
	for i, e := range o.TOC {
		s.LevelCounts[e.Level]++

		seen[e.Title]++
		if seen[e.Title] == 2 {
			s.DuplicateTitles = append(s.DuplicateTitles, e.Title)
		}

		p := outline.OffsettedPage(e, o.Metadata.PageOffset)
		if i == 0 || p < s.FirstPDFPage {
			s.FirstPDFPage = p
		}
		if i == 0 || p > s.LastPDFPage {
			s.LastPDFPage = p
		}
	}
	return s
}
