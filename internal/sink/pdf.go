package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// PDFSink writes outlines as PDF bookmarks with pdfcpu.
type PDFSink struct {
	logger *slog.Logger
}

// NewPDFSink creates a pdfcpu-backed Writer.
func NewPDFSink(logger *slog.Logger) *PDFSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFSink{logger: logger}
}

// PageCount returns the number of pages in the document.
func (s *PDFSink) PageCount(ctx context.Context, pdfPath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()
	return api.PageCount(f, nil)
}

// HasOutline reports whether the document already has bookmarks.
func (s *PDFSink) HasOutline(ctx context.Context, pdfPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f, err := os.Open(pdfPath)
	if err != nil {
		return false, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	bms, err := api.Bookmarks(f, nil)
	if err != nil {
		return false, err
	}
	return len(bms) > 0, nil
}

// WriteOutline writes pdfPath with o's bookmarks to outputPath, replacing any
// existing outline. Entries outside the document are skipped.
func (s *PDFSink) WriteOutline(ctx context.Context, pdfPath, outputPath string, o outline.Outline) error {
	pageCount, err := s.PageCount(ctx, pdfPath)
	if err != nil {
		return err
	}

	bms, skipped := BuildBookmarks(o, pageCount)
	if skipped > 0 {
		s.logger.Warn("skipped out-of-range entries", "count", skipped, "page_count", pageCount)
	}
	if len(bms) == 0 {
		return errors.New("no entries left to write after range filtering")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := api.AddBookmarksFile(pdfPath, outputPath, bms, true, nil); err != nil {
		return fmt.Errorf("pdfcpu: %w", err)
	}
	return nil
}

type bookmarkNode struct {
	level int
	bm    pdfcpu.Bookmark
	kids  []*bookmarkNode
}

// BuildBookmarks converts reading-order entries into a bookmark tree. Each
// entry becomes a child of the nearest preceding entry with a smaller level,
// so a jump from level 1 to 3 nests directly under the level-1 entry.
// Entries whose offsetted page is outside [1, pageCount] are skipped and
// counted.
func BuildBookmarks(o outline.Outline, pageCount int) ([]pdfcpu.Bookmark, int) {
	var roots []*bookmarkNode
	var stack []*bookmarkNode
	skipped := 0

	for _, e := range o.TOC {
		page := outline.OffsettedPage(e, o.Metadata.PageOffset)
		if page < 1 || page > pageCount {
			skipped++
			continue
		}

		n := &bookmarkNode{
			level: e.Level,
			bm:    pdfcpu.Bookmark{Title: e.Title, PageFrom: page, Bold: e.Level == outline.MinLevel},
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= e.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.kids = append(parent.kids, n)
		}
		stack = append(stack, n)
	}

	return flatten(roots), skipped
}

func flatten(nodes []*bookmarkNode) []pdfcpu.Bookmark {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]pdfcpu.Bookmark, len(nodes))
	for i, n := range nodes {
		out[i] = n.bm
		out[i].Kids = flatten(n.kids)
	}
	return out
}
