package analyze_image

import "fmt"

// Schema validates the layout reply.
var Schema = map[string]any{
	"name": "page_layout",
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"columns": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 4,
			},
			"has_header": map[string]any{"type": "boolean"},
			"has_footer": map[string]any{"type": "boolean"},
			"quality": map[string]any{
				"type": "string",
				"enum": []string{"good", "fair", "poor"},
			},
			"notes": map[string]any{"type": "string"},
		},
		"required": []string{"columns"},
	},
}

// Hints are the layout hints passed to text extraction.
type Hints struct {
	Columns   int    `json:"columns"`
	HasHeader bool   `json:"has_header"`
	HasFooter bool   `json:"has_footer"`
	Quality   string `json:"quality,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// DefaultHints are used when analysis fails.
func DefaultHints() Hints {
	return Hints{Columns: 1, Quality: "unknown"}
}

// Describe renders hints as guidance for the extraction prompt.
func (h Hints) Describe() string {
	s := fmt.Sprintf("The page has %d column(s) of entries.", h.Columns)
	if h.Columns > 1 {
		s += " Read each column top to bottom, left column first."
	}
	if h.HasHeader {
		s += " Skip the running header at the top."
	}
	if h.HasFooter {
		s += " Skip the footer and the page's own number at the bottom."
	}
	if h.Quality == "poor" {
		s += " The scan is poor; prefer the most plausible reading of unclear digits."
	}
	if h.Notes != "" {
		s += " Note: " + h.Notes
	}
	return s
}
