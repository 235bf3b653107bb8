package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/textcodec"
)

func writeText(t *testing.T, path string, o outline.Outline) {
	t.Helper()
	if err := os.WriteFile(path, []byte(textcodec.Encode(o)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	pdf := writePDF(t, dir)
	base := outline.Outline{
		Metadata: outline.Metadata{PageOffset: 15},
		TOC: []outline.Entry{
			{Title: "第一章", Page: 1, Level: 1},
			{Title: "1.1", Page: 3, Level: 2},
			{Title: "第二章", Page: 18, Level: 1},
		},
	}

	t.Run("clean outline without pdf", func(t *testing.T) {
		path := filepath.Join(dir, "clean.txt")
		writeText(t, path, base)
		p := newTestPipeline(t, nil, nil, &fakeWriter{pages: 100})

		result, err := p.Check(context.Background(), CheckRequest{Path: path})
		if err != nil {
			t.Fatalf("Check() error: %v", err)
		}
		if !result.OK() {
			t.Errorf("OK() = false, warnings %v", result.Warnings)
		}
		if err := result.Err(); err != nil {
			t.Errorf("Err() = %v, want nil", err)
		}
		if result.Verdict != nil {
			t.Errorf("Verdict = %+v, want nil without a pdf", result.Verdict)
		}
		if result.Summary.TotalEntries != 3 {
			t.Errorf("TotalEntries = %d, want 3", result.Summary.TotalEntries)
		}
	})

	t.Run("page order warning", func(t *testing.T) {
		o := base
		o.TOC = []outline.Entry{
			{Title: "第二章", Page: 18, Level: 1},
			{Title: "第一章", Page: 1, Level: 1},
		}
		path := filepath.Join(dir, "order.txt")
		writeText(t, path, o)
		p := newTestPipeline(t, nil, nil, &fakeWriter{pages: 100})

		result, err := p.Check(context.Background(), CheckRequest{Path: path})
		if err != nil {
			t.Fatalf("Check() error: %v", err)
		}
		if result.OK() {
			t.Fatal("OK() = true for out-of-order pages")
		}
		if err := result.Err(); !errors.Is(err, ErrCheckFailed) || ExitCode(err) != ExitProcessing {
			t.Errorf("Err() = %v, want a processing error wrapping ErrCheckFailed", err)
		}
		if result.Warnings[0].Kind != outline.KindPageOrder {
			t.Errorf("warning kind = %s, want %s", result.Warnings[0].Kind, outline.KindPageOrder)
		}
	})

	t.Run("pages beyond the pdf", func(t *testing.T) {
		path := filepath.Join(dir, "range.txt")
		writeText(t, path, base)
		p := newTestPipeline(t, nil, nil, &fakeWriter{pages: 20, existing: true})

		result, err := p.Check(context.Background(), CheckRequest{Path: path, PDFPath: pdf})
		if err != nil {
			t.Fatalf("Check() error: %v", err)
		}
		v := result.Verdict
		if v == nil || v.CanWrite {
			t.Fatalf("Verdict = %+v, want refusal", v)
		}
		if err := result.Err(); ExitCode(err) != ExitProcessing || !strings.Contains(err.Error(), "1 write error(s)") {
			t.Errorf("Err() = %v", err)
		}
		if len(v.Errors) != 1 || !strings.Contains(v.Errors[0], "beyond the last page 20") {
			t.Errorf("Errors = %v", v.Errors)
		}
		if len(v.Warnings) != 1 {
			t.Errorf("Warnings = %v, want the existing-outline warning", v.Warnings)
		}
	})

	t.Run("offset override", func(t *testing.T) {
		path := filepath.Join(dir, "offset.txt")
		writeText(t, path, base)
		p := newTestPipeline(t, nil, nil, &fakeWriter{pages: 20})

		offset := 1
		result, err := p.Check(context.Background(), CheckRequest{Path: path, PDFPath: pdf, PageOffset: &offset})
		if err != nil {
			t.Fatalf("Check() error: %v", err)
		}
		if !result.Verdict.CanWrite {
			t.Errorf("Verdict = %+v, want writable with offset 1", result.Verdict)
		}
	})

	t.Run("json input", func(t *testing.T) {
		path := filepath.Join(dir, "outline.json")
		o := base
		o.Metadata.TotalEntries = 99
		if err := outline.SaveOutline(path, o); err != nil {
			t.Fatal(err)
		}
		p := newTestPipeline(t, nil, nil, &fakeWriter{pages: 100})

		result, err := p.Check(context.Background(), CheckRequest{Path: path})
		if err != nil {
			t.Fatalf("Check() error: %v", err)
		}
		if result.Outline.Metadata.TotalEntries != 3 {
			t.Errorf("TotalEntries = %d, want recomputed 3", result.Outline.Metadata.TotalEntries)
		}
	})

	t.Run("errors", func(t *testing.T) {
		p := newTestPipeline(t, nil, nil, &fakeWriter{pages: 100})

		_, err := p.Check(context.Background(), CheckRequest{Path: filepath.Join(dir, "missing.txt")})
		if ExitCode(err) != ExitUsage {
			t.Errorf("missing file: ExitCode = %d, want %d", ExitCode(err), ExitUsage)
		}

		bad := filepath.Join(dir, "bad.txt")
		os.WriteFile(bad, []byte("not an outline line\n"), 0o644)
		_, err = p.Check(context.Background(), CheckRequest{Path: bad})
		var fe *outline.FormatError
		if !errors.As(err, &fe) {
			t.Errorf("malformed file: err = %v, want FormatError", err)
		}
		if ExitCode(err) != ExitProcessing {
			t.Errorf("malformed file: ExitCode = %d, want %d", ExitCode(err), ExitProcessing)
		}
	})
}

func TestMergeDir(t *testing.T) {
	dir := t.TempDir()
	pages := filepath.Join(dir, "pages")
	for _, r := range []outline.PageResult{
		{PageIndex: 10, Entries: []outline.Entry{{Title: "第二章", Page: 18, Level: 1}}},
		{PageIndex: 9, Entries: []outline.Entry{
			{Title: "第一章", Page: 1, Level: 1},
			{Title: "1.1", Page: 3, Level: 2},
		}},
	} {
		if _, err := outline.SavePageResult(pages, r); err != nil {
			t.Fatal(err)
		}
	}

	p := newTestPipeline(t, nil, nil, &fakeWriter{})
	out := filepath.Join(dir, "book_toc.json")
	result, err := p.MergeDir(MergeRequest{
		PagesDir:   pages,
		PDFPath:    "book.pdf",
		PageOffset: 15,
		PageRange:  "9-10",
		ModelName:  "hand-edited",
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("MergeDir() error: %v", err)
	}

	var titles []string
	for _, e := range result.Outline.TOC {
		titles = append(titles, e.Title)
	}
	if got := strings.Join(titles, ","); got != "第一章,1.1,第二章" {
		t.Errorf("titles = %s, want page order", got)
	}
	if len(result.Report.Warnings) != 0 {
		t.Errorf("Warnings = %v", result.Report.Warnings)
	}
	if !result.Outline.Metadata.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v", result.Outline.Metadata.GeneratedAt)
	}

	saved, err := outline.LoadOutline(out)
	if err != nil {
		t.Fatalf("LoadOutline() error: %v", err)
	}
	if !saved.Equal(result.Outline) {
		t.Errorf("saved outline differs from result")
	}
	if result.TextPath != filepath.Join(dir, "book_toc.txt") {
		t.Errorf("TextPath = %s", result.TextPath)
	}
	if _, err := os.Stat(result.TextPath); err != nil {
		t.Errorf("text export missing: %v", err)
	}

	_, err = p.MergeDir(MergeRequest{PagesDir: filepath.Join(dir, "nope")})
	if ExitCode(err) != ExitUsage {
		t.Errorf("missing dir: ExitCode = %d, want %d", ExitCode(err), ExitUsage)
	}
}

func TestExportText(t *testing.T) {
	dir := t.TempDir()
	o := outline.Outline{
		Metadata: outline.Metadata{PDFPath: "book.pdf", PageOffset: 15, TotalEntries: 2},
		TOC: []outline.Entry{
			{Title: "第一章", Page: 1, Level: 1},
			{Title: "1.1", Page: 3, Level: 2},
		},
	}
	src := filepath.Join(dir, "book_toc.json")
	if err := outline.SaveOutline(src, o); err != nil {
		t.Fatal(err)
	}

	path, err := ExportText(src, "")
	if err != nil {
		t.Fatalf("ExportText() error: %v", err)
	}
	if path != filepath.Join(dir, "book_toc.txt") {
		t.Errorf("path = %s", path)
	}

	got, err := LoadOutlineFile(path, textcodec.DecodeOptions{})
	if err != nil {
		t.Fatalf("LoadOutlineFile() error: %v", err)
	}
	if len(got.TOC) != 2 || got.TOC[1] != o.TOC[1] {
		t.Errorf("round trip TOC = %v", got.TOC)
	}

	custom := filepath.Join(dir, "edit.txt")
	if path, err := ExportText(src, custom); err != nil || path != custom {
		t.Errorf("ExportText(custom) = %s, %v", path, err)
	}
}
