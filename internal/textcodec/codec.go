// Package textcodec converts merged outlines to and from the human-editable
// indented text form:
//
//	<2*(level-1) spaces><title> ... <page> (PDF: <physical page>)
//
// preceded by a metadata header block.
package textcodec

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

const (
	ruleWidth = 60
	heading   = "PDF Table of Contents"
	indent    = "  "
)

// ErrMissingOffset is returned when neither the header nor the caller
// supplies a page offset.
var ErrMissingOffset = errors.New("page offset not present in header and not supplied")

// Header labels. Chinese labels are accepted alongside the English ones.
var headerKeys = map[string]string{
	"file": "file",
	"文件": "file",
	"page offset": "offset",
	"页码偏置": "offset",
	"total entries": "total",
	"总条目数": "total",
	"page range": "range",
	"页码范围": "range",
	"model": "model",
	"模型": "model",
	"generated": "generated",
	"生成时间": "generated",
}

var (
	entryLine     = regexp.MustCompile(`^( *)(\S.*)\s+\.\.\.\s+(\d+)\s+\(PDF:\s*(-?\d+)\)$`)
	separatorLine = regexp.MustCompile(`^-{10,}$`)
	ruleLine      = regexp.MustCompile(`^={10,}$`)
)

// Encode renders o as text. Entries are expected to be valid.
func Encode(o outline.Outline) string {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	b.WriteString(rule + "\n")
	b.WriteString(heading + "\n")
	b.WriteString(rule + "\n\n")

	m := o.Metadata
	fmt.Fprintf(&b, "File: %s\n", m.PDFPath)
	fmt.Fprintf(&b, "Page offset: %d\n", m.PageOffset)
	fmt.Fprintf(&b, "Total entries: %d\n", m.TotalEntries)
	if m.TOCPageRange != "" {
		fmt.Fprintf(&b, "Page range: %s\n", m.TOCPageRange)
	}
	if m.ModelName != "" {
		fmt.Fprintf(&b, "Model: %s\n", m.ModelName)
	}
	if !m.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n", m.GeneratedAt.Format(time.RFC3339Nano))
	}
	b.WriteString("\n" + strings.Repeat("-", ruleWidth) + "\n\n")

	for _, e := range o.TOC {
		b.WriteString(EncodeEntry(e, m.PageOffset))
		b.WriteByte('\n')
	}
	return b.String()
}

// EncodeEntry renders a single entry line without the trailing newline.
func EncodeEntry(e outline.Entry, pageOffset int) string {
	depth := e.Level - 1
	if depth < 0 {
		depth = 0
	}
	return fmt.Sprintf("%s%s ... %d (PDF: %d)",
		strings.Repeat(indent, depth), strings.TrimSpace(e.Title), e.Page, outline.OffsettedPage(e, pageOffset))
}

// DecodeOptions override header values when set.
type DecodeOptions struct {
	PDFPath    string
	PageOffset *int
}

// Decode parses text produced by Encode (or written by hand in the same
// grammar). Any malformed entry line aborts the whole decode with a
// *outline.FormatError; there is no partial result.
//
// The header block is everything before the first dashed separator line.
// Without a separator every non-blank line must be an entry.
func Decode(text string, opts DecodeOptions) (outline.Outline, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	bodyStart := 0
	for i, line := range lines {
		if separatorLine.MatchString(strings.TrimSpace(line)) {
			bodyStart = i + 1
			break
		}
	}

	var meta outline.Metadata
	var offsetSeen bool
	if bodyStart > 0 {
		var err error
		meta, offsetSeen, err = decodeHeader(lines[:bodyStart-1])
		if err != nil {
			return outline.Outline{}, err
		}
	}

	entries := []outline.Entry{}
	for i := bodyStart; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		if line == "" {
			continue
		}
		e, err := DecodeEntry(line)
		if err != nil {
			var fErr *outline.FormatError
			if errors.As(err, &fErr) {
				fErr.Line = i + 1
			}
			return outline.Outline{}, err
		}
		entries = append(entries, e)
	}

	if opts.PDFPath != "" {
		meta.PDFPath = opts.PDFPath
	}
	if opts.PageOffset != nil {
		meta.PageOffset = *opts.PageOffset
		offsetSeen = true
	}
	if !offsetSeen {
		return outline.Outline{}, ErrMissingOffset
	}
	meta.TotalEntries = len(entries)

	return outline.Outline{Metadata: meta, TOC: entries}, nil
}

// DecodeEntry parses one entry line. The returned FormatError has Line 0;
// Decode fills in the line number.
func DecodeEntry(line string) (outline.Entry, error) {
	m := entryLine.FindStringSubmatch(line)
	if m == nil {
		return outline.Entry{}, &outline.FormatError{Text: line, Reason: "expected '<title> ... <page> (PDF: <n>)'"}
	}

	page, err := strconv.Atoi(m[3])
	if err != nil {
		return outline.Entry{}, &outline.FormatError{Text: line, Reason: "page number out of range"}
	}
	e := outline.Entry{
		Title: strings.TrimSpace(m[2]),
		Page:  page,
		Level: len(m[1])/len(indent) + 1,
	}
	if err := e.Validate(); err != nil {
		return outline.Entry{}, &outline.FormatError{Text: line, Reason: err.Error()}
	}
	return e, nil
}

func decodeHeader(lines []string) (outline.Metadata, bool, error) {
	var meta outline.Metadata
	offsetSeen := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || ruleLine.MatchString(line) {
			continue
		}
		key, value, ok := splitHeader(line)
		if !ok {
			// Heading text and unknown notes carry no data.
			continue
		}

		bad := func(reason string) error {
			return &outline.FormatError{Line: i + 1, Text: raw, Reason: reason}
		}

		switch key {
		case "file":
			meta.PDFPath = value
		case "offset":
			n, err := strconv.Atoi(value)
			if err != nil {
				return meta, false, bad("page offset is not an integer")
			}
			meta.PageOffset = n
			offsetSeen = true
		case "total":
			// Recomputed from the decoded entries; only checked for shape.
			if _, err := strconv.Atoi(value); err != nil {
				return meta, false, bad("total entries is not an integer")
			}
		case "range":
			meta.TOCPageRange = value
		case "model":
			meta.ModelName = value
		case "generated":
			ts, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return meta, false, bad("generated timestamp is not RFC 3339")
			}
			meta.GeneratedAt = ts
		}
	}
	return meta, offsetSeen, nil
}

func splitHeader(line string) (key, value string, ok bool) {
	idx := strings.IndexAny(line, ":：")
	if idx < 0 {
		return "", "", false
	}
	label := strings.ToLower(strings.TrimSpace(line[:idx]))
	key, ok = headerKeys[label]
	if !ok {
		return "", "", false
	}
	_, size := utf8.DecodeRuneInString(line[idx:])
	return key, strings.TrimSpace(line[idx+size:]), true
}
