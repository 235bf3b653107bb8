package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange is wrapped by every page range parse or bounds error.
var ErrInvalidRange = errors.New("invalid page range")

// PageRange is an inclusive, 1-based range of PDF pages.
type PageRange struct {
	Start int
	End   int
}

// ParsePageRange parses "start-end" or a single page "7".
func ParsePageRange(s string) (PageRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PageRange{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	startStr, endStr, isRange := strings.Cut(s, "-")
	if !isRange {
		endStr = startStr
	}

	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return PageRange{}, fmt.Errorf("%w: %q: start is not a number", ErrInvalidRange, s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return PageRange{}, fmt.Errorf("%w: %q: end is not a number", ErrInvalidRange, s)
	}

	r := PageRange{Start: start, End: end}
	if start < 1 {
		return PageRange{}, fmt.Errorf("%w: %q: start page must be at least 1", ErrInvalidRange, s)
	}
	if end < start {
		return PageRange{}, fmt.Errorf("%w: %q: end page must not precede start page", ErrInvalidRange, s)
	}
	return r, nil
}

// Validate checks the range against a document's page count.
func (r PageRange) Validate(pageCount int) error {
	if r.End > pageCount {
		return fmt.Errorf("%w: %s exceeds document length of %d pages", ErrInvalidRange, r, pageCount)
	}
	return nil
}

// Pages lists every page in the range, ascending.
func (r PageRange) Pages() []int {
	if r.End < r.Start {
		return nil
	}
	pages := make([]int, 0, r.Len())
	for p := r.Start; p <= r.End; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Len returns the number of pages in the range.
func (r PageRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
