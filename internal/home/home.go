// Package home resolves the pdftoc home directory and per-document
// workspaces.
package home

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the pdftoc home directory.
	DefaultDirName = ".pdftoc"

	// WorkDirName is the subdirectory holding per-document workspaces.
	WorkDirName = "work"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// EnvFileName is the dotenv file loaded before configuration.
	EnvFileName = ".env"
)

// Dir represents the pdftoc home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.pdftoc).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnvPath returns the path to the home .env file.
func (d *Dir) EnvPath() string {
	return filepath.Join(d.path, EnvFileName)
}

// WorkPath returns the directory holding document workspaces.
func (d *Dir) WorkPath() string {
	return filepath.Join(d.path, WorkDirName)
}

// EnsureExists creates the home directory if it doesn't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// Workspace returns the workspace for a PDF. root overrides the default
// location of <home>/work/<pdf-stem>.
func (d *Dir) Workspace(pdfPath, root string) *Workspace {
	stem := stemOf(pdfPath)
	if root == "" {
		root = filepath.Join(d.WorkPath(), stem)
	}
	return &Workspace{root: root, stem: stem}
}

// Workspace holds the intermediate files of one document run:
//
//	<root>/images/page_NNNN.png   rendered TOC pages
//	<root>/pages/page_N.json      per-page recognized entries
//	<root>/debug/calls.jsonl      recognition call log
//	<root>/<stem>_toc.json        merged outline
//	<root>/<stem>_toc.txt         text export
type Workspace struct {
	root string
	stem string
}

// NewWorkspace creates a workspace rooted at root for a document stem.
func NewWorkspace(root, stem string) *Workspace {
	return &Workspace{root: root, stem: stem}
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }

// ImagesDir returns the directory for rendered page images.
func (w *Workspace) ImagesDir() string { return filepath.Join(w.root, "images") }

// PagesDir returns the directory for per-page JSON results.
func (w *Workspace) PagesDir() string { return filepath.Join(w.root, "pages") }

// DebugDir returns the directory for debug output.
func (w *Workspace) DebugDir() string { return filepath.Join(w.root, "debug") }

// CallLogPath returns the JSONL recognition call log.
func (w *Workspace) CallLogPath() string { return filepath.Join(w.DebugDir(), "calls.jsonl") }

// MergedPath returns the merged outline JSON path.
func (w *Workspace) MergedPath() string {
	return filepath.Join(w.root, w.stem+"_toc.json")
}

// TextPath returns the text export path.
func (w *Workspace) TextPath() string {
	return filepath.Join(w.root, w.stem+"_toc.txt")
}

// Ensure creates the workspace directories.
func (w *Workspace) Ensure() error {
	for _, dir := range []string{w.ImagesDir(), w.PagesDir(), w.DebugDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}
	return nil
}

// Clean removes rendered images and per-page results. Merged outputs and
// the debug log are kept.
func (w *Workspace) Clean() error {
	var errs []error
	for _, dir := range []string{w.ImagesDir(), w.PagesDir()} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}

// Reset clears the images and page files left by an earlier run and
// recreates the directories, so a later merge sees only this run's pages.
func (w *Workspace) Reset() error {
	if err := w.Clean(); err != nil {
		return err
	}
	return w.Ensure()
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
