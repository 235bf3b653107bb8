package extract_text

import "strings"

const Key = "extract_text"

const Description = "Faithful transcription of a table-of-contents page"

// Prompt asks for a line-per-entry transcription. {layout_hints} is replaced
// with the analysis result.
const Prompt = `Transcribe the table of contents on this page.

{layout_hints}

Rules:
- One entry per line, in reading order.
- Keep the printed page number at the end of each line, separated from the title by " ... ".
- Indent sub-entries with two spaces per level of nesting, matching the visual indentation.
- Keep numbering prefixes ("Chapter 3", "3.2", "Part II") exactly as printed.
- Join titles that wrap onto a second line into a single line.
- Do not add, translate, summarize or invent entries.

Output the transcription only, with no commentary.`

// Build fills the layout hints into the prompt text.
func Build(text, layoutHints string) string {
	return strings.ReplaceAll(text, "{layout_hints}", layoutHints)
}
