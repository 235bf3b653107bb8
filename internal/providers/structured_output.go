package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoJSON is returned when no parseable JSON could be recovered from a reply.
var ErrNoJSON = errors.New("failed to parse structured JSON")

// ParseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences, surrounding prose, elision markers, trailing
// commas, and arrays cut off by the token limit.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output: %w", ErrNoJSON)
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	for _, c := range append([]string(nil), candidates...) {
		if extracted := extractJSONCandidate(c); extracted != "" && extracted != c {
			candidates = append(candidates, extracted)
		}
	}
	for _, c := range append([]string(nil), candidates...) {
		if repaired := repairJSON(c); repaired != "" && repaired != c {
			candidates = append(candidates, repaired)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, ErrNoJSON
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start := -1
	closeChar := ""
	switch {
	case objectStart >= 0 && arrayStart >= 0:
		if objectStart < arrayStart {
			start = objectStart
			closeChar = "}"
		} else {
			start = arrayStart
			closeChar = "]"
		}
	case objectStart >= 0:
		start = objectStart
		closeChar = "}"
	case arrayStart >= 0:
		start = arrayStart
		closeChar = "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		// Unterminated; let repairJSON try to close it.
		return strings.TrimSpace(trimmed[start:])
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

var (
	elisionLine   = regexp.MustCompile(`(?m)^\s*(\.\.\.|…)\s*,?\s*$`)
	trailingComma = regexp.MustCompile(`,(\s*[\]}])`)
)

// repairJSON fixes the damage models commonly do to long arrays.
func repairJSON(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = elisionLine.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "$1")

	// An array truncated mid-object is cut back to its last complete object.
	if strings.HasPrefix(s, "[") && !strings.HasSuffix(s, "]") {
		last := strings.LastIndex(s, "}")
		if last < 0 {
			return "[]"
		}
		s = strings.TrimRight(s[:last+1], ", \n\t") + "]"
	}
	return s
}

var compiledSchemas sync.Map // schema text -> *jsonschema.Schema

// ValidateStructuredJSON validates parsed JSON against a JSON schema. The
// schema may be bare or wrapped as {"name","strict","schema":{...}}.
func ValidateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	schema, err := compileSchema(schemaRaw)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	if cached, ok := compiledSchemas.Load(string(schemaRaw)); ok {
		return cached.(*jsonschema.Schema), nil
	}

	coreSchema, err := extractValidationSchema(schemaRaw)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(coreSchema)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	compiledSchemas.Store(string(schemaRaw), schema)
	return schema, nil
}

func extractValidationSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root any
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}

	if rootMap, ok := root.(map[string]any); ok {
		// Common OpenAI/OpenRouter wrapper: {"name","strict","schema":{...}}
		if inner, ok := rootMap["schema"]; ok {
			b, err := json.Marshal(inner)
			if err != nil {
				return nil, fmt.Errorf("failed to serialize inner schema: %w", err)
			}
			return b, nil
		}
	}

	// Assume raw schema document.
	return schemaRaw, nil
}
