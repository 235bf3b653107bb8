// Package prompts provides the recognition prompts with embedded defaults and
// directory overrides.
//
// Each stage package (analyze_image, extract_text, parse_structure) owns its
// default text and reply schema. A Resolver serves them by key; when an
// override directory is configured, a file named <key>.txt in it replaces the
// embedded default. Text prompts may contain a {raw_text} placeholder.
package prompts

// Prompt is a resolved prompt ready to send.
type Prompt struct {
	Key        string   `json:"key" yaml:"key"`
	Text       string   `json:"text" yaml:"text"`
	Variables  []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Hash       string   `json:"hash" yaml:"hash"`
	IsOverride bool     `json:"is_override" yaml:"is_override"`
	Source     string   `json:"source" yaml:"source"` // "embedded" or the override file path
}

// EmbeddedPrompt is a prompt compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // analyze_image, extract_text, parse_structure
	Text        string   // The prompt text
	Description string   // Human-readable description
	Variables   []string // Extracted placeholders
	Hash        string   // SHA256 of the text for change detection
}
