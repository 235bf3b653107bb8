// Package sink validates merged outlines and writes them into PDFs without
// touching the source document.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// BackupTimeFormat stamps backup file names.
const BackupTimeFormat = "20060102-150405"

// ErrInPlace is returned when the output path would overwrite the source.
var ErrInPlace = errors.New("output path must differ from the source PDF")

// Writer is the low-level outline writer wrapped by the guard.
type Writer interface {
	// PageCount returns the number of pages in the document.
	PageCount(ctx context.Context, pdfPath string) (int, error)

	// HasOutline reports whether the document already carries bookmarks.
	HasOutline(ctx context.Context, pdfPath string) (bool, error)

	// WriteOutline writes a copy of pdfPath with o attached to outputPath.
	WriteOutline(ctx context.Context, pdfPath, outputPath string, o outline.Outline) error
}

// Verdict is the result of pre-write validation.
type Verdict struct {
	CanWrite bool     `json:"can_write" yaml:"can_write"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	Writer Writer
	Logger *slog.Logger

	// Now stamps backups (default: time.Now).
	Now func() time.Time
}

// Guard checks an outline against its carrier document before writing and
// orchestrates backup and output paths around the Writer.
type Guard struct {
	writer Writer
	logger *slog.Logger
	now    func() time.Time
}

// NewGuard creates a guard.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	if cfg.Writer == nil {
		return nil, errors.New("sink: writer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{writer: cfg.Writer, logger: logger, now: now}, nil
}

// ValidateBeforeWrite refuses empty outlines and entries whose offsetted
// page falls outside [1, pageCount]. An existing outline only warns, since
// it will be replaced. With force every error is demoted to a warning.
func (g *Guard) ValidateBeforeWrite(o outline.Outline, pageCount int, existingOutlinePresent, force bool) Verdict {
	var v Verdict

	if len(o.TOC) == 0 {
		v.Errors = append(v.Errors, outline.ErrEmptyOutline.Error())
	}
	for i, e := range o.TOC {
		p := outline.OffsettedPage(e, o.Metadata.PageOffset)
		switch {
		case p < 1:
			v.Errors = append(v.Errors, fmt.Sprintf("entry %d %s maps to PDF page %d, before the first page", i+1, e, p))
		case p > pageCount:
			v.Errors = append(v.Errors, fmt.Sprintf("entry %d %s maps to PDF page %d, beyond the last page %d", i+1, e, p, pageCount))
		}
	}
	if existingOutlinePresent {
		v.Warnings = append(v.Warnings, "document already has an outline; it will be replaced")
	}

	if force && len(v.Errors) > 0 {
		for _, msg := range v.Errors {
			v.Warnings = append(v.Warnings, "forced: "+msg)
		}
		v.Errors = nil
	}
	v.CanWrite = len(v.Errors) == 0
	return v
}

// WriteRequest describes one guarded write.
type WriteRequest struct {
	PDFPath    string
	OutputPath string // default: <name>_with_toc.pdf beside the source
	Outline    outline.Outline
	Force      bool
	Backup     bool
}

// WriteResult reports what a successful write produced.
type WriteResult struct {
	OutputPath string  `json:"output_path" yaml:"output_path"`
	BackupPath string  `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	Verdict    Verdict `json:"verdict" yaml:"verdict"`
}

// WriteSafely validates the outline, backs up the source when asked, and
// writes the output. The source PDF is never modified. The writer fills a
// staging file beside the output that is renamed over it only on success,
// so a failed write leaves any earlier output and the backup untouched.
func (g *Guard) WriteSafely(ctx context.Context, req WriteRequest) (*WriteResult, error) {
	srcInfo, err := os.Stat(req.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("PDF not found: %w", err)
	}

	output := req.OutputPath
	if output == "" {
		output = DefaultOutputPath(req.PDFPath)
	}
	if samePath(output, req.PDFPath) {
		return nil, fmt.Errorf("%w: %s", ErrInPlace, output)
	}

	pageCount, err := g.writer.PageCount(ctx, req.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read page count: %w", err)
	}
	existing, err := g.writer.HasOutline(ctx, req.PDFPath)
	if err != nil {
		g.logger.Warn("could not probe existing outline", "pdf", req.PDFPath, "error", err)
		existing = false
	}

	verdict := g.ValidateBeforeWrite(req.Outline, pageCount, existing, req.Force)
	for _, w := range verdict.Warnings {
		g.logger.Warn("write guard", "warning", w)
	}
	if !verdict.CanWrite {
		return nil, &outline.WriteGuardError{Problems: verdict.Errors}
	}

	result := &WriteResult{OutputPath: output, Verdict: verdict}
	if req.Backup {
		backup, err := g.backup(req.PDFPath)
		if err != nil {
			return nil, err
		}
		result.BackupPath = backup
		g.logger.Info("source backed up", "backup", backup)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fail := func(err error) error {
		if result.BackupPath != "" {
			return fmt.Errorf("failed to write outline (backup kept at %s): %w", result.BackupPath, err)
		}
		return fmt.Errorf("failed to write outline: %w", err)
	}

	staging, err := stagingPath(output)
	if err != nil {
		return nil, fail(err)
	}
	if err := g.writer.WriteOutline(ctx, req.PDFPath, staging, req.Outline); err != nil {
		os.Remove(staging)
		return nil, fail(err)
	}
	if err := os.Chmod(staging, srcInfo.Mode().Perm()); err != nil {
		g.logger.Debug("could not copy source permissions", "path", staging, "error", err)
	}
	if err := os.Rename(staging, output); err != nil {
		os.Remove(staging)
		return nil, fail(err)
	}

	g.logger.Info("outline written", "output", output, "entries", len(req.Outline.TOC))
	return result, nil
}

// DefaultOutputPath returns <dir>/<name>_with_toc.pdf for a source PDF.
func DefaultOutputPath(pdfPath string) string {
	ext := filepath.Ext(pdfPath)
	return strings.TrimSuffix(pdfPath, ext) + "_with_toc" + ext
}

// BackupPath returns <dir>/<name>.<timestamp>.backup.pdf for a source PDF.
func BackupPath(pdfPath string, at time.Time) string {
	ext := filepath.Ext(pdfPath)
	return fmt.Sprintf("%s.%s.backup%s", strings.TrimSuffix(pdfPath, ext), at.Format(BackupTimeFormat), ext)
}

// stagingPath reserves a hidden sibling of output for the writer to fill.
func stagingPath(output string) (string, error) {
	base := filepath.Base(output)
	ext := filepath.Ext(base)
	f, err := os.CreateTemp(filepath.Dir(output), "."+strings.TrimSuffix(base, ext)+".*.partial"+ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func (g *Guard) backup(pdfPath string) (string, error) {
	dst := BackupPath(pdfPath, g.now())
	if err := copyFile(pdfPath, dst); err != nil {
		return "", fmt.Errorf("failed to back up source PDF: %w", err)
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
