// Package pipeline wires rendering, page recognition, merging and the
// outline sink into the two document modes: recognition from page images
// and import from an edited text export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackzampolin/pdftoc/internal/home"
	"github.com/jackzampolin/pdftoc/internal/ingest"
	"github.com/jackzampolin/pdftoc/internal/jobs"
	"github.com/jackzampolin/pdftoc/internal/merge"
	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/prompts"
	"github.com/jackzampolin/pdftoc/internal/providers"
	"github.com/jackzampolin/pdftoc/internal/sink"
	"github.com/jackzampolin/pdftoc/internal/textcodec"
	"github.com/jackzampolin/pdftoc/internal/workflow"
)

// Metadata values stamped on imported outlines.
const (
	ImportedModelName = "imported_from_text"
	ImportedPageRange = "imported"
)

// Renderer turns PDF pages into images. *ingest.Renderer implements it.
type Renderer interface {
	Render(ctx context.Context, pdfPath string, pages []int, outDir string) ([]workflow.PageImage, error)
}

// Config configures a Pipeline. Recognizer and Renderer are only needed
// for Recognize.
type Config struct {
	Recognizer providers.Recognizer
	ModelName  string
	Renderer   Renderer
	Writer     sink.Writer
	Prompts    *prompts.Resolver

	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	CallTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Pipeline runs whole-document operations.
type Pipeline struct {
	cfg    Config
	writer sink.Writer
	guard  *sink.Guard
	logger *slog.Logger
	now    func() time.Time
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Writer == nil {
		return nil, errors.New("pipeline: writer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	guard, err := sink.NewGuard(sink.GuardConfig{Writer: cfg.Writer, Logger: logger, Now: now})
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:    cfg,
		writer: cfg.Writer,
		guard:  guard,
		logger: logger,
		now:    now,
	}, nil
}

// RecognizeRequest describes one recognition run.
type RecognizeRequest struct {
	PDFPath    string
	PageRange  ingest.PageRange
	PageOffset int
	OutputPath string
	Workspace  *home.Workspace

	NoParallel bool
	NoWrite    bool
	Force      bool
	Backup     bool
	Clean      bool

	OnPageDone jobs.ProgressFunc
	OnStage    func(stage string)
}

// RecognizeResult is everything a recognition run produced. It is returned
// alongside processing and write errors when a merged outline exists.
type RecognizeResult struct {
	Outline    outline.Outline      `json:"outline" yaml:"outline"`
	Report     merge.Report         `json:"report" yaml:"report"`
	Summary    merge.Summary        `json:"summary" yaml:"summary"`
	Pool       jobs.PoolStatus      `json:"pool" yaml:"pool"`
	PageFiles  []string             `json:"page_files,omitempty" yaml:"page_files,omitempty"`
	MergedPath string               `json:"merged_path" yaml:"merged_path"`
	TextPath   string               `json:"text_path" yaml:"text_path"`
	Write      *sink.WriteResult    `json:"write,omitempty" yaml:"write,omitempty"`
	Results    []outline.PageResult `json:"-" yaml:"-"`
}

// Recognize renders the table-of-contents pages, recognizes them on the
// worker pool, merges the results and writes the outline into a copy of
// the PDF. Page files, the merged JSON and the text export are saved in the
// workspace before the write so a refused write can be fixed by hand and
// re-imported.
func (p *Pipeline) Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResult, error) {
	if p.cfg.Recognizer == nil || p.cfg.Renderer == nil {
		return nil, errors.New("pipeline: recognizer and renderer are required for recognition")
	}
	if req.Workspace == nil {
		return nil, usageErrorf("workspace is required")
	}
	if err := requireFile(req.PDFPath, "PDF"); err != nil {
		return nil, err
	}
	pageCount, err := p.writer.PageCount(ctx, req.PDFPath)
	if err != nil {
		return nil, &UsageError{Err: fmt.Errorf("cannot read %s: %w", req.PDFPath, err)}
	}
	if err := req.PageRange.Validate(pageCount); err != nil {
		return nil, &UsageError{Err: err}
	}

	logger := p.logger.With("pdf", req.PDFPath, "range", req.PageRange.String())
	ws := req.Workspace
	if err := ws.Reset(); err != nil {
		return nil, &ProcessingError{Stage: "workspace", Err: err}
	}

	p.stage(req, "render")
	images, err := p.cfg.Renderer.Render(ctx, req.PDFPath, req.PageRange.Pages(), ws.ImagesDir())
	if err != nil {
		return nil, &ProcessingError{Stage: "render", Err: err}
	}
	logger.Info("pages rendered", "count", len(images))

	wf, err := workflow.New(workflow.Config{
		Recognizer:  p.cfg.Recognizer,
		Prompts:     p.cfg.Prompts,
		MaxRetries:  p.cfg.MaxRetries,
		RetryDelay:  p.cfg.RetryDelay,
		CallTimeout: p.cfg.CallTimeout,
		Logger:      p.logger,
	})
	if err != nil {
		return nil, &ProcessingError{Stage: "recognize", Err: err}
	}
	concurrency := p.cfg.Concurrency
	if req.NoParallel {
		concurrency = 1
	}
	sched, err := jobs.NewScheduler(jobs.SchedulerConfig{
		Runner:      wf,
		Concurrency: concurrency,
		OnPageDone:  req.OnPageDone,
		Logger:      p.logger,
	})
	if err != nil {
		return nil, &ProcessingError{Stage: "recognize", Err: err}
	}

	p.stage(req, "recognize")
	results := sched.Run(ctx, images)

	result := &RecognizeResult{
		Results:    results,
		Pool:       sched.Status(),
		MergedPath: ws.MergedPath(),
		TextPath:   ws.TextPath(),
	}
	for _, r := range results {
		if r.Failed() {
			logger.Warn("page failed", "page", r.PageIndex, "reason", r.FailureReason())
			continue
		}
		path, err := outline.SavePageResult(ws.PagesDir(), r)
		if err != nil {
			return nil, &ProcessingError{Stage: "save", Err: err}
		}
		result.PageFiles = append(result.PageFiles, path)
	}

	p.stage(req, "merge")
	o, report := merge.Merge(results, merge.Input{
		PDFPath:      req.PDFPath,
		PageOffset:   req.PageOffset,
		TOCPageRange: req.PageRange.String(),
		ModelName:    p.cfg.ModelName,
		GeneratedAt:  p.now().UTC(),
	})
	result.Outline = o
	result.Report = report
	result.Summary = merge.Summarize(o)
	for _, w := range report.Warnings {
		logger.Warn("merge check", "kind", w.Kind, "entry", w.EntryIndex, "message", w.Message)
	}

	if err := saveOutputs(ws, o); err != nil {
		return result, &ProcessingError{Stage: "save", Err: err}
	}
	logger.Info("outline merged", "entries", len(o.TOC), "failed_pages", len(report.FailedPages), "json", ws.MergedPath())

	if err := ctx.Err(); err != nil {
		return result, &ProcessingError{Stage: "recognize", Err: err}
	}
	if len(o.TOC) == 0 {
		return result, &ProcessingError{Stage: "merge", Err: outline.ErrEmptyOutline}
	}

	if !req.NoWrite {
		p.stage(req, "write")
		wr, err := p.guard.WriteSafely(ctx, sink.WriteRequest{
			PDFPath:    req.PDFPath,
			OutputPath: req.OutputPath,
			Outline:    o,
			Force:      req.Force,
			Backup:     req.Backup,
		})
		if err != nil {
			return result, &WriteError{Err: err}
		}
		result.Write = wr
	}

	if req.Clean {
		if err := ws.Clean(); err != nil {
			logger.Warn("failed to clean workspace", "error", err)
		}
	}
	return result, nil
}

// ImportRequest describes one text-import run.
type ImportRequest struct {
	TextPath   string
	PDFPath    string
	OutputPath string
	PageOffset *int // overrides the header offset when set

	NoWrite bool
	Force   bool
	Backup  bool
}

// ImportResult is what an import produced.
type ImportResult struct {
	Outline  outline.Outline      `json:"outline" yaml:"outline"`
	Summary  merge.Summary        `json:"summary" yaml:"summary"`
	Warnings []outline.Diagnostic `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Write    *sink.WriteResult    `json:"write,omitempty" yaml:"write,omitempty"`
}

// Import decodes a text outline, re-runs the merge checks and writes it
// into a copy of the PDF.
func (p *Pipeline) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	data, err := os.ReadFile(req.TextPath)
	if err != nil {
		return nil, &UsageError{Err: fmt.Errorf("cannot read outline text: %w", err)}
	}
	if err := requireFile(req.PDFPath, "PDF"); err != nil {
		return nil, err
	}

	o, err := textcodec.Decode(string(data), textcodec.DecodeOptions{
		PDFPath:    req.PDFPath,
		PageOffset: req.PageOffset,
	})
	if err != nil {
		return nil, &ProcessingError{Stage: "decode", Err: fmt.Errorf("%s: %w", req.TextPath, err)}
	}
	if o.Metadata.ModelName == "" {
		o.Metadata.ModelName = ImportedModelName
	}
	if o.Metadata.TOCPageRange == "" {
		o.Metadata.TOCPageRange = ImportedPageRange
	}
	if o.Metadata.GeneratedAt.IsZero() {
		o.Metadata.GeneratedAt = p.now().UTC()
	}

	result := &ImportResult{
		Outline:  o,
		Summary:  merge.Summarize(o),
		Warnings: merge.Check(o),
	}
	p.logger.Info("outline imported", "text", req.TextPath, "entries", len(o.TOC), "warnings", len(result.Warnings))
	if req.NoWrite {
		return result, nil
	}

	wr, err := p.guard.WriteSafely(ctx, sink.WriteRequest{
		PDFPath:    req.PDFPath,
		OutputPath: req.OutputPath,
		Outline:    o,
		Force:      req.Force,
		Backup:     req.Backup,
	})
	if err != nil {
		return result, &WriteError{Err: err}
	}
	result.Write = wr
	return result, nil
}

func (p *Pipeline) stage(req RecognizeRequest, name string) {
	p.logger.Debug("stage started", "stage", name)
	if req.OnStage != nil {
		req.OnStage(name)
	}
}

func saveOutputs(ws *home.Workspace, o outline.Outline) error {
	if err := outline.SaveOutline(ws.MergedPath(), o); err != nil {
		return err
	}
	if err := os.WriteFile(ws.TextPath(), []byte(textcodec.Encode(o)), 0o644); err != nil {
		return fmt.Errorf("failed to write text export: %w", err)
	}
	return nil
}

func requireFile(path, what string) error {
	if path == "" {
		return usageErrorf("%s path is required", what)
	}
	info, err := os.Stat(path)
	if err != nil {
		return usageErrorf("%s not found: %s", what, path)
	}
	if info.IsDir() {
		return usageErrorf("%s is a directory: %s", what, path)
	}
	return nil
}
