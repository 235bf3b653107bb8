package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
)

// variablePattern matches placeholders like {raw_text}. JSON braces in
// examples never match because they contain quotes or spaces.
var variablePattern = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// ExtractVariables returns the sorted, de-duplicated placeholder names in text.
// For example, "Parse {raw_text} now" returns ["raw_text"].
func ExtractVariables(text string) []string {
	matches := variablePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var vars []string

	for _, match := range matches {
		if len(match) > 1 {
			varName := match[1]
			if !seen[varName] {
				seen[varName] = true
				vars = append(vars, varName)
			}
		}
	}

	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
