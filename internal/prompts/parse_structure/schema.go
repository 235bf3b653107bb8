package parse_structure

// Schema validates only that the reply is an array. Items are checked one by
// one at validation so one bad entry does not sink the page.
var Schema = map[string]any{
	"name": "toc_entries",
	"schema": map[string]any{
		"type": "array",
	},
}

// RawEntry is an entry as the model returned it, before coercion. Fields are
// left untyped since models return numbers as strings and the reverse.
type RawEntry struct {
	Title any `json:"title"`
	Page  any `json:"page"`
	Level any `json:"level"`
}
