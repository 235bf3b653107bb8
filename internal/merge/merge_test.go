package merge

import (
	"reflect"
	"testing"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

func entry(title string, page, level int) outline.Entry {
	return outline.Entry{Title: title, Page: page, Level: level}
}

func TestMerge_EndToEnd(t *testing.T) {
	results := []outline.PageResult{
		{PageIndex: 1, Entries: []outline.Entry{entry("第一章", 1, 1), entry("1.1", 3, 2)}},
		{PageIndex: 2, Entries: []outline.Entry{entry("第二章", 18, 1)}},
	}
	generated := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	o, report := Merge(results, Input{
		PDFPath:      "book.pdf",
		PageOffset:   15,
		TOCPageRange: "5-6",
		ModelName:    "vision-model",
		GeneratedAt:  generated,
	})

	if o.Metadata.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", o.Metadata.TotalEntries)
	}
	wantTitles := []string{"第一章", "1.1", "第二章"}
	for i, title := range wantTitles {
		if o.TOC[i].Title != title {
			t.Errorf("TOC[%d].Title = %q, want %q", i, o.TOC[i].Title, title)
		}
	}
	wantPages := []int{15, 17, 32}
	if got := o.OffsettedPages(); !reflect.DeepEqual(got, wantPages) {
		t.Errorf("OffsettedPages() = %v, want %v", got, wantPages)
	}
	if report.HasWarnings() {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
	if o.Metadata.PDFPath != "book.pdf" || o.Metadata.TOCPageRange != "5-6" || o.Metadata.ModelName != "vision-model" {
		t.Errorf("metadata = %+v", o.Metadata)
	}
	if !o.Metadata.GeneratedAt.Equal(generated) {
		t.Errorf("GeneratedAt = %v, want %v", o.Metadata.GeneratedAt, generated)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	results := []outline.PageResult{
		{PageIndex: 1, Entries: []outline.Entry{entry("A", 10, 1), entry("A.1", 12, 3)}},
		{PageIndex: 2, Entries: []outline.Entry{entry("B", 5, 1)}, Diagnostics: []outline.Diagnostic{
			{Severity: outline.SeverityWarning, Kind: outline.KindValidation, PageIndex: 2, Message: "dropped"},
		}},
	}
	in := Input{PDFPath: "x.pdf", PageOffset: 3, GeneratedAt: time.Unix(1700000000, 0).UTC()}

	o1, r1 := Merge(results, in)
	o2, r2 := Merge(results, in)

	if !reflect.DeepEqual(o1, o2) {
		t.Errorf("outline differs between runs:\n%+v\n%+v", o1, o2)
	}
	if !reflect.DeepEqual(r1, r2) {
		t.Errorf("report differs between runs:\n%+v\n%+v", r1, r2)
	}
	if len(r1.Warnings) != 2 {
		t.Errorf("len(Warnings) = %d, want 2 (page order + level jump)", len(r1.Warnings))
	}
}

func TestMerge_PreservesOrderAndDoesNotMutate(t *testing.T) {
	page1 := []outline.Entry{entry("Z", 50, 1), entry("A", 2, 1)}
	results := []outline.PageResult{{PageIndex: 1, Entries: page1}}

	o, report := Merge(results, Input{PageOffset: 1})

	if o.TOC[0].Title != "Z" || o.TOC[1].Title != "A" {
		t.Errorf("entries were reordered: %v", o.TOC)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Kind != outline.KindPageOrder {
		t.Errorf("Warnings = %v, want one page_order warning", report.Warnings)
	}
	o.TOC[0].Title = "changed"
	if page1[0].Title != "Z" {
		t.Error("merged outline shares storage with the page result")
	}
}

func TestMerge_FailedPagesForwarded(t *testing.T) {
	results := []outline.PageResult{
		{PageIndex: 1, Entries: []outline.Entry{entry("A", 1, 1)}},
		{PageIndex: 2, Diagnostics: []outline.Diagnostic{
			{Severity: outline.SeverityError, Kind: outline.KindTransient, PageIndex: 2, Stage: "extract_text", Message: "timeout"},
		}},
		{PageIndex: 3, Entries: []outline.Entry{entry("B", 9, 1)}},
	}

	o, report := Merge(results, Input{PageOffset: 1})
	if len(o.TOC) != 2 {
		t.Errorf("len(TOC) = %d, want 2", len(o.TOC))
	}
	if !reflect.DeepEqual(report.FailedPages, []int{2}) {
		t.Errorf("FailedPages = %v, want [2]", report.FailedPages)
	}
	if len(report.PageDiagnostics) != 1 || report.PageDiagnostics[0].Stage != "extract_text" {
		t.Errorf("PageDiagnostics = %v", report.PageDiagnostics)
	}
}

func TestCheckPageOrder(t *testing.T) {
	tests := []struct {
		name        string
		entries     []outline.Entry
		wantIndices []int
	}{
		{
			name:    "monotonic",
			entries: []outline.Entry{entry("1", 1, 1), entry("1.1", 1, 2), entry("1.2", 4, 2), entry("2", 9, 1)},
		},
		{
			name:    "sub entry shares parent page",
			entries: []outline.Entry{entry("1", 5, 1), entry("1.1", 5, 2)},
		},
		{
			name:        "chapter before previous chapter",
			entries:     []outline.Entry{entry("1", 10, 1), entry("2", 4, 1)},
			wantIndices: []int{2},
		},
		{
			name: "section behind earlier chapter",
			entries: []outline.Entry{
				entry("1", 1, 1), entry("1.9", 40, 2), entry("2", 30, 1), entry("2.1", 35, 2),
			},
			// "2" (level 1) only compares against level 1 (max 1): fine.
			// "2.1" compares against levels 1-2, max 40 from "1.9": flagged.
			wantIndices: []int{4},
		},
		{
			name: "deeper entries do not constrain shallower ones",
			entries: []outline.Entry{
				entry("1", 1, 1), entry("1.1.1", 80, 3), entry("2", 20, 1),
			},
		},
		{
			name: "running maximum is document wide",
			entries: []outline.Entry{
				entry("1", 1, 1), entry("1.1", 50, 2), entry("2", 60, 1), entry("2.1", 45, 2),
			},
			wantIndices: []int{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := CheckPageOrder(tt.entries, nil)
			var got []int
			for _, w := range warnings {
				if w.Kind != outline.KindPageOrder || w.Severity != outline.SeverityWarning {
					t.Errorf("unexpected diagnostic %+v", w)
				}
				got = append(got, w.EntryIndex)
			}
			if !reflect.DeepEqual(got, tt.wantIndices) {
				t.Errorf("flagged entries = %v, want %v", got, tt.wantIndices)
			}
		})
	}
}

func TestCheckLevelJumps(t *testing.T) {
	tests := []struct {
		name   string
		levels []int
		want   int
	}{
		{"1 then 3", []int{1, 3}, 1},
		{"1 2 3", []int{1, 2, 3}, 0},
		{"back up is fine", []int{1, 2, 3, 1, 2}, 0},
		{"1 then 4 then 5", []int{1, 4, 5}, 1},
		{"two jumps", []int{1, 3, 1, 5}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]outline.Entry, len(tt.levels))
			for i, l := range tt.levels {
				entries[i] = entry("e", i+1, l)
			}
			warnings := CheckLevelJumps(entries, nil)
			if len(warnings) != tt.want {
				t.Errorf("len(warnings) = %d, want %d: %v", len(warnings), tt.want, warnings)
			}
			for _, w := range warnings {
				if w.Kind != outline.KindLevelJump {
					t.Errorf("Kind = %s, want level_jump", w.Kind)
				}
			}
		})
	}
}

func TestCheck_WarningCarriesOriginPage(t *testing.T) {
	results := []outline.PageResult{
		{PageIndex: 7, Entries: []outline.Entry{entry("A", 1, 1)}},
		{PageIndex: 8, Entries: []outline.Entry{entry("A.1.1", 2, 3)}},
	}
	_, report := Merge(results, Input{PageOffset: 1})
	if len(report.Warnings) != 1 {
		t.Fatalf("len(Warnings) = %d, want 1", len(report.Warnings))
	}
	if report.Warnings[0].PageIndex != 8 {
		t.Errorf("PageIndex = %d, want 8", report.Warnings[0].PageIndex)
	}
}

func TestSummarize(t *testing.T) {
	o := outline.Outline{
		Metadata: outline.Metadata{PageOffset: 10},
		TOC: []outline.Entry{
			entry("Intro", 1, 1), entry("Notes", 2, 2), entry("Part", 5, 1),
			entry("Notes", 7, 2), entry("Notes", 9, 2), entry("End", 20, 1),
		},
	}
	s := Summarize(o)

	if s.TotalEntries != 6 {
		t.Errorf("TotalEntries = %d, want 6", s.TotalEntries)
	}
	if s.LevelCounts[1] != 3 || s.LevelCounts[2] != 3 {
		t.Errorf("LevelCounts = %v", s.LevelCounts)
	}
	if !reflect.DeepEqual(s.DuplicateTitles, []string{"Notes"}) {
		t.Errorf("DuplicateTitles = %v, want [Notes]", s.DuplicateTitles)
	}
	if s.FirstPDFPage != 10 || s.LastPDFPage != 29 {
		t.Errorf("page span = %d-%d, want 10-29", s.FirstPDFPage, s.LastPDFPage)
	}
}
