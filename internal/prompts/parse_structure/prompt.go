package parse_structure

const Key = "parse_structure"

const Description = "Conversion of transcribed text to structured entries"

// Prompt converts the transcription to JSON. {raw_text} receives the text.
const Prompt = `Convert this table-of-contents transcription into JSON.

<transcription>
{raw_text}
</transcription>

Return a JSON array. Each element is one entry:
- "title": the entry text including any numbering prefix, without the page number
- "page": the printed page number as an integer
- "level": nesting depth, 1 for top-level entries, up to 5

Infer level from indentation and numbering (e.g. "3" is level 1, "3.2" is level 2, "3.2.1" is level 3).
Skip lines that have no page number unless they are part headings, which take the page of the next entry.

Reply with the JSON array only, for example:
[{"title": "1 Introduction", "page": 1, "level": 1}, {"title": "1.1 Background", "page": 3, "level": 2}]`
