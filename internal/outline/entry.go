// Package outline defines the table-of-contents records shared by every stage
// of the pipeline: recognized entries, per-page results and the merged outline.
package outline

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// MinLevel is the shallowest outline level (chapters).
	MinLevel = 1
	// MaxLevel is the deepest outline level accepted.
	MaxLevel = 5
)

// Entry is one recognized outline node.
// Page uses the book's printed numbering, not the physical PDF page.
type Entry struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Level int    `json:"level"`
}

// Validate checks the entry invariants. Values are never clamped. A valid
// title is a single trimmed line, so it survives the text form unchanged.
func (e Entry) Validate() error {
	var problems []string
	switch {
	case strings.TrimSpace(e.Title) == "":
		problems = append(problems, "title is empty")
	case strings.TrimSpace(e.Title) != e.Title:
		problems = append(problems, "title has leading or trailing whitespace")
	}
	if strings.IndexFunc(e.Title, unicode.IsControl) >= 0 {
		problems = append(problems, "title contains a line break or control character")
	}
	if e.Page < 1 {
		problems = append(problems, fmt.Sprintf("page %d is less than 1", e.Page))
	}
	if e.Level < MinLevel || e.Level > MaxLevel {
		problems = append(problems, fmt.Sprintf("level %d is outside [%d,%d]", e.Level, MinLevel, MaxLevel))
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Entry: e, Problems: problems}
}

// OffsettedPage converts a printed page number into the physical page of the
// carrier PDF. Every caller that needs a PDF page goes through here.
func OffsettedPage(e Entry, pageOffset int) int {
	return e.Page + pageOffset - 1
}

// String renders the entry for log lines.
func (e Entry) String() string {
	return fmt.Sprintf("%q p.%d L%d", e.Title, e.Page, e.Level)
}
