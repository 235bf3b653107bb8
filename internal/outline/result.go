package outline

import "fmt"

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DiagnosticKind names the condition a diagnostic reports.
type DiagnosticKind string

const (
	KindValidation      DiagnosticKind = "validation"
	KindTransient       DiagnosticKind = "transient"
	KindFatal           DiagnosticKind = "fatal"
	KindCancelled       DiagnosticKind = "cancelled"
	KindAnalyzeDegraded DiagnosticKind = "analyze_degraded"
	KindPageOrder       DiagnosticKind = "page_order"
	KindLevelJump       DiagnosticKind = "level_jump"
	KindWriteGuard      DiagnosticKind = "write_guard"
)

// Diagnostic is a human-actionable note attached to a page or merge run.
// PageIndex and EntryIndex are zero when not applicable.
type Diagnostic struct {
	Severity   Severity       `json:"severity" yaml:"severity"`
	Kind       DiagnosticKind `json:"kind" yaml:"kind"`
	PageIndex  int            `json:"page_index,omitempty" yaml:"page_index,omitempty"`
	Stage      string         `json:"stage,omitempty" yaml:"stage,omitempty"`
	EntryIndex int            `json:"entry_index,omitempty" yaml:"entry_index,omitempty"`
	Message    string         `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	loc := ""
	if d.PageIndex > 0 {
		loc = fmt.Sprintf("page %d", d.PageIndex)
		if d.Stage != "" {
			loc += "/" + d.Stage
		}
		loc += ": "
	}
	return fmt.Sprintf("[%s] %s%s", d.Severity, loc, d.Message)
}

// PageResult is the output of one page workflow run.
type PageResult struct {
	PageIndex   int          `json:"page_index"`
	Entries     []Entry      `json:"entries"`
	SourceImage string       `json:"source_image,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Failed reports whether the page produced no usable entries because of an
// error-level diagnostic.
func (r PageResult) Failed() bool {
	if len(r.Entries) > 0 {
		return false
	}
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FailureReason returns the last error-level message, or "".
func (r PageResult) FailureReason() string {
	for i := len(r.Diagnostics) - 1; i >= 0; i-- {
		if r.Diagnostics[i].Severity == SeverityError {
			return r.Diagnostics[i].Message
		}
	}
	return ""
}
