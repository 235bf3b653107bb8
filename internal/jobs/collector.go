package jobs

import (
	"sync"

	"github.com/jackzampolin/pdftoc/internal/outline"
)

// Collector is an append-only diagnostics log shared by the page workers.
type Collector struct {
	mu    sync.Mutex
	diags []outline.Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Append records diagnostics. Safe for concurrent use.
func (c *Collector) Append(diags ...outline.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, diags...)
}

// Snapshot returns a copy of everything recorded so far, in arrival order.
func (c *Collector) Snapshot() []outline.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]outline.Diagnostic(nil), c.diags...)
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diags)
}
