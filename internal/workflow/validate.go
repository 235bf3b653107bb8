package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/prompts/parse_structure"
)

var errMissing = errors.New("missing")

// ValidateEntries converts parsed candidates into entries. Candidates that
// cannot be coerced or break the entry invariants are dropped, each with a
// warning diagnostic; order of the survivors is preserved.
func ValidateEntries(pageIndex int, raw []json.RawMessage) ([]outline.Entry, []outline.Diagnostic) {
	entries := make([]outline.Entry, 0, len(raw))
	var diags []outline.Diagnostic

	for i, item := range raw {
		entry, err := coerceEntry(item)
		if err == nil {
			err = entry.Validate()
		}
		if err != nil {
			diags = append(diags, outline.Diagnostic{
				Severity:   outline.SeverityWarning,
				Kind:       outline.KindValidation,
				PageIndex:  pageIndex,
				Stage:      ValidateData.String(),
				EntryIndex: i + 1,
				Message:    fmt.Sprintf("entry %d dropped: %v", i+1, err),
			})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, diags
}

func coerceEntry(data json.RawMessage) (outline.Entry, error) {
	var item parse_structure.RawEntry
	if err := json.Unmarshal(data, &item); err != nil {
		return outline.Entry{}, fmt.Errorf("not an entry object: %s", compact(data))
	}
	title, err := coerceTitle(item.Title)
	if err != nil {
		return outline.Entry{}, fmt.Errorf("title %w", err)
	}
	page, err := coerceInt(item.Page)
	if err != nil {
		return outline.Entry{}, fmt.Errorf("%q: page %w", title, err)
	}
	level, err := coerceInt(item.Level)
	if err != nil {
		return outline.Entry{}, fmt.Errorf("%q: level %w", title, err)
	}
	return outline.Entry{Title: title, Page: page, Level: level}, nil
}

// coerceTitle folds wrapped lines and runs of whitespace into single spaces.
func coerceTitle(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", errMissing
	case string:
		return normalizeTitle(t), nil
	default:
		return "", fmt.Errorf("is %s, not text", jsonKind(v))
	}
}

// normalizeTitle collapses all whitespace, line breaks included, to single
// spaces and trims the ends.
func normalizeTitle(t string) string {
	return strings.Join(strings.Fields(t), " ")
}

func jsonKind(v any) string {
	switch v.(type) {
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func compact(data json.RawMessage) string {
	s := string(data)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}

// coerceInt accepts JSON numbers with no fractional part and numeric strings.
func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, errMissing
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("is %s, not an integer", jsonKind(v))
	}
}
