package outline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var pageFilePattern = regexp.MustCompile(`^page_(\d+)\.json$`)

// PageFileName returns the file name used for a page result.
func PageFileName(pageIndex int) string {
	return fmt.Sprintf("page_%d.json", pageIndex)
}

// SavePageResult writes r's entries to dir/page_<N>.json.
func SavePageResult(dir string, r PageResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create page directory: %w", err)
	}
	entries := r.Entries
	if entries == nil {
		entries = []Entry{}
	}
	path := filepath.Join(dir, PageFileName(r.PageIndex))
	if err := writeJSON(path, entries); err != nil {
		return "", err
	}
	return path, nil
}

// LoadPageResult reads one page file. The page index comes from the file name.
func LoadPageResult(path string) (PageResult, error) {
	m := pageFilePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return PageResult{}, fmt.Errorf("not a page result file: %s", path)
	}
	idx, _ := strconv.Atoi(m[1])

	data, err := os.ReadFile(path)
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := ValidateJSON(data); err != nil {
		return PageResult{}, fmt.Errorf("%s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return PageResult{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return PageResult{}, fmt.Errorf("%s: entry %d: %w", path, i+1, err)
		}
	}
	return PageResult{PageIndex: idx, Entries: entries}, nil
}

// LoadPageDir loads every page_<N>.json in dir ordered by N.
func LoadPageDir(dir string) ([]PageResult, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read page directory: %w", err)
	}

	var results []PageResult
	var errs []error
	for _, de := range dirEntries {
		if de.IsDir() || !pageFilePattern.MatchString(de.Name()) {
			continue
		}
		r, err := LoadPageResult(filepath.Join(dir, de.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no page_*.json files found in %s", dir)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PageIndex < results[j].PageIndex
	})
	return results, nil
}

// SaveOutline writes the merged outline JSON.
func SaveOutline(path string, o Outline) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if o.TOC == nil {
		o.TOC = []Entry{}
	}
	return writeJSON(path, o)
}

// LoadOutline reads a merged outline JSON file and validates its entries.
func LoadOutline(path string) (Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Outline{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var o Outline
	if err := json.Unmarshal(data, &o); err != nil {
		return Outline{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	for i, e := range o.TOC {
		if err := e.Validate(); err != nil {
			return Outline{}, fmt.Errorf("%s: entry %d: %w", path, i+1, err)
		}
	}
	return o, nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
