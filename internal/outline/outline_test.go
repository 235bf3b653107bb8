package outline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOffsettedPage(t *testing.T) {
	tests := []struct {
		page   int
		offset int
		want   int
	}{
		{page: 1, offset: 15, want: 15},
		{page: 3, offset: 15, want: 17},
		{page: 18, offset: 15, want: 32},
		{page: 5, offset: 1, want: 5},
		{page: 5, offset: 0, want: 4},
	}

	for _, tt := range tests {
		got := OffsettedPage(Entry{Title: "x", Page: tt.page, Level: 1}, tt.offset)
		if got != tt.want {
			t.Errorf("OffsettedPage(page=%d, offset=%d) = %d, want %d", tt.page, tt.offset, got, tt.want)
		}
	}
}

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"valid", Entry{Title: "Chapter 1", Page: 1, Level: 1}, false},
		{"deepest level", Entry{Title: "x", Page: 9, Level: 5}, false},
		{"level too deep", Entry{Title: "X", Page: 5, Level: 7}, true},
		{"level zero", Entry{Title: "X", Page: 5, Level: 0}, true},
		{"page zero", Entry{Title: "X", Page: 0, Level: 1}, true},
		{"blank title", Entry{Title: "   ", Page: 2, Level: 1}, true},
		{"inner spaces", Entry{Title: "Part  I", Page: 2, Level: 1}, false},
		{"leading space", Entry{Title: " Leading", Page: 2, Level: 1}, true},
		{"trailing tab", Entry{Title: "Trailing\t", Page: 2, Level: 1}, true},
		{"wrapped title", Entry{Title: "Part I\nIntroduction", Page: 2, Level: 1}, true},
		{"carriage return", Entry{Title: "Part I\rIntroduction", Page: 2, Level: 1}, true},
		{"nul byte", Entry{Title: "Part\x00I", Page: 2, Level: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	cause := errors.New("connection reset")

	if !IsTransient(Transient(cause)) {
		t.Error("Transient() should be transient")
	}
	if IsTransient(Fatal(cause)) {
		t.Error("Fatal() should not be transient")
	}

	stageErr := &StageError{PageIndex: 3, Stage: "extract_text", Kind: ErrTransient, Err: cause}
	if !errors.Is(stageErr, ErrTransient) {
		t.Error("StageError should match its kind")
	}
	if !errors.Is(stageErr, cause) {
		t.Error("StageError should match its cause")
	}
	if got := stageErr.Error(); got != "page 3: extract_text: connection reset" {
		t.Errorf("Error() = %q", got)
	}
}

func TestPageResult_Failed(t *testing.T) {
	ok := PageResult{PageIndex: 1, Entries: []Entry{{Title: "a", Page: 1, Level: 1}}}
	if ok.Failed() {
		t.Error("page with entries should not be failed")
	}

	failed := PageResult{
		PageIndex: 2,
		Diagnostics: []Diagnostic{
			{Severity: SeverityInfo, Kind: KindAnalyzeDegraded, Message: "no hints"},
			{Severity: SeverityError, Kind: KindTransient, Message: "timeout"},
		},
	}
	if !failed.Failed() {
		t.Error("page with error diagnostic and no entries should be failed")
	}
	if failed.FailureReason() != "timeout" {
		t.Errorf("FailureReason() = %q, want timeout", failed.FailureReason())
	}
}

func TestValidateJSON(t *testing.T) {
	t.Run("accepts valid page", func(t *testing.T) {
		raw := []byte(`[{"title":"第一章","page":1,"level":1},{"title":"1.1","page":3,"level":2}]`)
		if err := ValidateJSON(raw); err != nil {
			t.Errorf("ValidateJSON() error = %v", err)
		}
	})

	t.Run("rejects level out of range", func(t *testing.T) {
		raw := []byte(`[{"title":"X","page":5,"level":7}]`)
		if err := ValidateJSON(raw); err == nil {
			t.Error("expected error for level 7")
		}
	})

	t.Run("rejects missing page", func(t *testing.T) {
		raw := []byte(`[{"title":"X","level":1}]`)
		if err := ValidateJSON(raw); err == nil {
			t.Error("expected error for missing page")
		}
	})

	t.Run("rejects object root", func(t *testing.T) {
		if err := ValidateJSON([]byte(`{"title":"X"}`)); err == nil {
			t.Error("expected error for non-array document")
		}
	})
}

func TestPageFiles(t *testing.T) {
	dir := t.TempDir()

	pages := []PageResult{
		{PageIndex: 10, Entries: []Entry{{Title: "Appendix", Page: 300, Level: 1}}},
		{PageIndex: 2, Entries: []Entry{{Title: "第二章", Page: 18, Level: 1}}},
		{PageIndex: 1, Entries: []Entry{{Title: "第一章", Page: 1, Level: 1}, {Title: "1.1", Page: 3, Level: 2}}},
	}
	for _, p := range pages {
		if _, err := SavePageResult(dir, p); err != nil {
			t.Fatalf("SavePageResult() error = %v", err)
		}
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadPageDir(dir)
	if err != nil {
		t.Fatalf("LoadPageDir() error = %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("len(loaded) = %d, want 3", len(loaded))
	}
	for i, want := range []int{1, 2, 10} {
		if loaded[i].PageIndex != want {
			t.Errorf("loaded[%d].PageIndex = %d, want %d", i, loaded[i].PageIndex, want)
		}
	}
	if loaded[0].Entries[1].Title != "1.1" {
		t.Errorf("entry order not preserved: %v", loaded[0].Entries)
	}
}

func TestLoadPageDir_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "page_1.json"), []byte(`[{"title":"X","page":5,"level":7}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPageDir(dir); err == nil {
		t.Error("expected schema error")
	}
}

func TestOutlineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "book_toc.json")
	o := Outline{
		Metadata: Metadata{
			PDFPath:      "book.pdf",
			PageOffset:   15,
			TOCPageRange: "5-6",
			TotalEntries: 2,
			GeneratedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			ModelName:    "test-model",
		},
		TOC: []Entry{
			{Title: "A & B", Page: 1, Level: 1},
			{Title: "C", Page: 2, Level: 2},
		},
	}

	if err := SaveOutline(path, o); err != nil {
		t.Fatalf("SaveOutline() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"A & B"`) {
		t.Errorf("expected unescaped title in output, got %s", data)
	}

	loaded, err := LoadOutline(path)
	if err != nil {
		t.Fatalf("LoadOutline() error = %v", err)
	}
	if !loaded.Equal(o) {
		t.Errorf("loaded outline = %+v, want %+v", loaded, o)
	}
}

