package outline

import (
	"time"
)

// Metadata describes where a merged outline came from.
type Metadata struct {
	PDFPath      string    `json:"pdf_path"`
	PageOffset   int       `json:"page_offset"`
	TOCPageRange string    `json:"toc_page_range,omitempty"`
	TotalEntries int       `json:"total_entries"`
	GeneratedAt  time.Time `json:"generated_at"`
	ModelName    string    `json:"model_name,omitempty"`
}

// Outline is the full ordered table of contents. TOC is reading order.
type Outline struct {
	Metadata Metadata `json:"metadata"`
	TOC      []Entry  `json:"toc"`
}

// OffsettedPages returns the physical page of every entry, in order.
func (o Outline) OffsettedPages() []int {
	pages := make([]int, len(o.TOC))
	for i, e := range o.TOC {
		pages[i] = OffsettedPage(e, o.Metadata.PageOffset)
	}
	return pages
}

// Equal compares metadata and entries. GeneratedAt is compared by instant.
func (o Outline) Equal(other Outline) bool {
	a, b := o.Metadata, other.Metadata
	if a.PDFPath != b.PDFPath || a.PageOffset != b.PageOffset ||
		a.TOCPageRange != b.TOCPageRange || a.TotalEntries != b.TotalEntries ||
		a.ModelName != b.ModelName || !a.GeneratedAt.Equal(b.GeneratedAt) {
		return false
	}
	if len(o.TOC) != len(other.TOC) {
		return false
	}
	for i := range o.TOC {
		if o.TOC[i] != other.TOC[i] {
			return false
		}
	}
	return true
}
