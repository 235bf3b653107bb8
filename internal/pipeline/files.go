package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/pdftoc/internal/merge"
	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/sink"
	"github.com/jackzampolin/pdftoc/internal/textcodec"
)

// LoadOutlineFile reads a merged outline from .json or from the text
// format. opts override the file's document path and offset when set.
func LoadOutlineFile(path string, opts textcodec.DecodeOptions) (outline.Outline, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		o, err := outline.LoadOutline(path)
		if err != nil {
			return outline.Outline{}, err
		}
		if opts.PDFPath != "" {
			o.Metadata.PDFPath = opts.PDFPath
		}
		if opts.PageOffset != nil {
			o.Metadata.PageOffset = *opts.PageOffset
		}
		o.Metadata.TotalEntries = len(o.TOC)
		return o, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outline.Outline{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	o, err := textcodec.Decode(string(data), opts)
	if err != nil {
		return outline.Outline{}, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// CheckRequest names an outline file and, optionally, the PDF it targets.
type CheckRequest struct {
	Path       string
	PDFPath    string
	PageOffset *int
}

// CheckResult reports what a write would see without writing anything.
type CheckResult struct {
	Outline  outline.Outline      `json:"-" yaml:"-"`
	Summary  merge.Summary        `json:"summary" yaml:"summary"`
	Warnings []outline.Diagnostic `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Verdict  *sink.Verdict        `json:"verdict,omitempty" yaml:"verdict,omitempty"`
}

// OK reports whether the outline has no warnings and would be written.
func (r *CheckResult) OK() bool {
	return len(r.Warnings) == 0 && (r.Verdict == nil || r.Verdict.CanWrite)
}

// ErrCheckFailed marks an outline that has merge warnings or would be
// refused by the write guard.
var ErrCheckFailed = errors.New("outline check failed")

// Err returns a processing error when the outline is not OK, so callers can
// gate on the exit status.
func (r *CheckResult) Err() error {
	if r.OK() {
		return nil
	}
	errs := 0
	if r.Verdict != nil {
		errs = len(r.Verdict.Errors)
	}
	return &ProcessingError{
		Stage: "check",
		Err:   fmt.Errorf("%w: %d warning(s), %d write error(s)", ErrCheckFailed, len(r.Warnings), errs),
	}
}

// Check decodes an outline file, runs the merge checks and, when a PDF is
// given, the write guard's validation against it.
func (p *Pipeline) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if err := requireFile(req.Path, "outline"); err != nil {
		return nil, err
	}
	o, err := LoadOutlineFile(req.Path, textcodec.DecodeOptions{PDFPath: req.PDFPath, PageOffset: req.PageOffset})
	if err != nil {
		return nil, &ProcessingError{Stage: "decode", Err: err}
	}

	result := &CheckResult{
		Outline:  o,
		Summary:  merge.Summarize(o),
		Warnings: merge.Check(o),
	}
	if req.PDFPath == "" {
		return result, nil
	}

	if err := requireFile(req.PDFPath, "PDF"); err != nil {
		return nil, err
	}
	pageCount, err := p.writer.PageCount(ctx, req.PDFPath)
	if err != nil {
		return nil, &ProcessingError{Stage: "check", Err: fmt.Errorf("cannot read %s: %w", req.PDFPath, err)}
	}
	existing, err := p.writer.HasOutline(ctx, req.PDFPath)
	if err != nil {
		p.logger.Warn("could not probe existing outline", "pdf", req.PDFPath, "error", err)
	}
	v := p.guard.ValidateBeforeWrite(o, pageCount, existing, false)
	result.Verdict = &v
	return result, nil
}

// MergeRequest re-merges a directory of page_<N>.json files.
type MergeRequest struct {
	PagesDir   string
	PDFPath    string
	PageOffset int
	PageRange  string
	ModelName  string
	OutputPath string // merged JSON; a .txt export is written beside it
}

// MergeResult is the outcome of MergeDir.
type MergeResult struct {
	Outline    outline.Outline `json:"-" yaml:"-"`
	Report     merge.Report    `json:"report" yaml:"report"`
	Summary    merge.Summary   `json:"summary" yaml:"summary"`
	OutputPath string          `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	TextPath   string          `json:"text_path,omitempty" yaml:"text_path,omitempty"`
}

// MergeDir loads hand-edited page files in page order and merges them.
func (p *Pipeline) MergeDir(req MergeRequest) (*MergeResult, error) {
	info, err := os.Stat(req.PagesDir)
	if err != nil || !info.IsDir() {
		return nil, usageErrorf("pages directory not found: %s", req.PagesDir)
	}
	results, err := outline.LoadPageDir(req.PagesDir)
	if err != nil {
		return nil, &ProcessingError{Stage: "load", Err: err}
	}

	o, report := merge.Merge(results, merge.Input{
		PDFPath:      req.PDFPath,
		PageOffset:   req.PageOffset,
		TOCPageRange: req.PageRange,
		ModelName:    req.ModelName,
		GeneratedAt:  p.now().UTC(),
	})
	result := &MergeResult{Outline: o, Report: report, Summary: merge.Summarize(o)}

	if req.OutputPath != "" {
		if err := outline.SaveOutline(req.OutputPath, o); err != nil {
			return result, &ProcessingError{Stage: "save", Err: err}
		}
		text, err := ExportText(req.OutputPath, "")
		if err != nil {
			return result, &ProcessingError{Stage: "save", Err: err}
		}
		result.OutputPath = req.OutputPath
		result.TextPath = text
	}
	p.logger.Info("pages merged", "dir", req.PagesDir, "pages", len(results), "entries", len(o.TOC))
	return result, nil
}

// ExportText renders a merged JSON outline as text. outPath defaults to the
// input path with a .txt extension. It returns the path written.
func ExportText(jsonPath, outPath string) (string, error) {
	o, err := outline.LoadOutline(jsonPath)
	if err != nil {
		return "", err
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".txt"
	}
	if err := os.WriteFile(outPath, []byte(textcodec.Encode(o)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return outPath, nil
}
