package analyze_image

// Key identifies this prompt in the resolver and the call log.
const Key = "analyze_image"

const Description = "Layout analysis of a rendered table-of-contents page"

// Prompt asks for layout hints only; the reply feeds the extraction prompt.
const Prompt = `You are looking at one rendered page from the table of contents of a PDF document.

Do NOT transcribe the page. Describe its layout so that a later step can read it accurately.

Report:
- columns: how many text columns the entries are laid out in (1 or 2, rarely 3)
- has_header: whether a running header (book title, chapter name) sits above the entries
- has_footer: whether a footer or page number sits below the entries
- quality: "good", "fair" or "poor" for how legible the scan is
- notes: one short sentence about anything unusual (dot leaders, roman numerals, entries spanning lines)

Reply with a single JSON object and nothing else, for example:
{"columns": 1, "has_header": false, "has_footer": true, "quality": "good", "notes": "dot leaders between titles and page numbers"}`
