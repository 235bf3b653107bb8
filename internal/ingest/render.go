// Package ingest renders table-of-contents pages of a PDF to images.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/pdftoc/internal/workflow"
)

const (
	// DefaultBinary is the poppler renderer invoked per page.
	DefaultBinary = "pdftoppm"

	// DefaultDPI balances recognition accuracy against image size.
	DefaultDPI = 150
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// RendererConfig configures a Renderer.
type RendererConfig struct {
	Binary      string // default: pdftoppm
	DPI         int    // default: 150
	Concurrency int    // default: runtime.NumCPU()
	Run         CommandRunner
	Logger      *slog.Logger
}

// Renderer turns PDF pages into PNG files with pdftoppm.
type Renderer struct {
	binary      string
	dpi         int
	concurrency int
	run         CommandRunner
	logger      *slog.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(cfg RendererConfig) *Renderer {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Run == nil {
		cfg.Run = execRunner
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		binary:      cfg.Binary,
		dpi:         cfg.DPI,
		concurrency: cfg.Concurrency,
		run:         cfg.Run,
		logger:      logger,
	}
}

// CheckBinary reports whether the renderer executable is on PATH.
func (r *Renderer) CheckBinary() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("%s not found on PATH (install poppler-utils): %w", r.binary, err)
	}
	return nil
}

// ImagePath returns where a page is rendered inside outDir.
func ImagePath(outDir string, page int) string {
	return filepath.Join(outDir, fmt.Sprintf("page_%04d.png", page))
}

// Render renders every page into outDir and returns the images in the
// order of pages. The first failure aborts the rest.
func (r *Renderer) Render(ctx context.Context, pdfPath string, pages []int, outDir string) ([]workflow.PageImage, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to render")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	r.logger.Info("rendering pages", "pdf", filepath.Base(pdfPath), "pages", len(pages), "dpi", r.dpi)

	type result struct {
		idx  int
		path string
		err  error
	}

	results := make(chan result, len(pages))
	sem := make(chan struct{}, r.concurrency)

	for i, page := range pages {
		go func(idx, page int) {
			select {
			case sem <- struct{}{}: // acquire
			case <-ctx.Done():
				results <- result{idx: idx, err: ctx.Err()}
				return
			}
			defer func() { <-sem }() // release

			path, err := r.RenderPage(ctx, pdfPath, page, outDir)
			results <- result{idx: idx, path: path, err: err}
		}(i, page)
	}

	images := make([]workflow.PageImage, len(pages))
	var firstErr error
	for range pages {
		res := <-results
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to render page %d: %w", pages[res.idx], res.err)
				cancel()
			}
			continue
		}
		images[res.idx] = workflow.PageImage{Index: pages[res.idx], Path: res.path}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	r.logger.Info("pages rendered", "count", len(images), "duration", time.Since(start).Round(time.Millisecond))
	return images, nil
}

// RenderPage renders one page to outDir/page_NNNN.png and returns the path.
// The image only appears at its final path once complete.
func (r *Renderer) RenderPage(ctx context.Context, pdfPath string, page int, outDir string) (string, error) {
	tmpDir, err := os.MkdirTemp(outDir, ".render-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// -singlefile writes <prefix>.png without a page number suffix.
	prefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(page)
	output, err := r.run(ctx, r.binary,
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-f", pageStr,
		"-l", pageStr,
		"-singlefile",
		pdfPath,
		prefix,
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s failed: %w (output: %s)", r.binary, err, strings.TrimSpace(string(output)))
	}

	src := prefix + ".png"
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%s did not create expected output: %w", r.binary, err)
	}

	dst := ImagePath(outDir, page)
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to move page image: %w", err)
	}
	r.logger.Debug("page rendered", "page", page, "path", dst)
	return dst, nil
}

// PageCount returns the number of pages in a PDF.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// Stem returns a PDF's file name without directory or extension.
// e.g., "/books/crusade-europe.pdf" -> "crusade-europe"
func Stem(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
