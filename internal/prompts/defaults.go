package prompts

import (
	"log/slog"

	"github.com/jackzampolin/pdftoc/internal/prompts/analyze_image"
	"github.com/jackzampolin/pdftoc/internal/prompts/extract_text"
	"github.com/jackzampolin/pdftoc/internal/prompts/parse_structure"
)

// NewDefaultResolver returns a resolver with the three stage prompts
// registered and overrides read from dir (may be empty).
func NewDefaultResolver(dir string, logger *slog.Logger) *Resolver {
	r := NewResolver(dir, logger)
	r.Register(EmbeddedPrompt{
		Key:         analyze_image.Key,
		Text:        analyze_image.Prompt,
		Description: analyze_image.Description,
	})
	r.Register(EmbeddedPrompt{
		Key:         extract_text.Key,
		Text:        extract_text.Prompt,
		Description: extract_text.Description,
	})
	r.Register(EmbeddedPrompt{
		Key:         parse_structure.Key,
		Text:        parse_structure.Prompt,
		Description: parse_structure.Description,
	})
	return r
}
