package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/prompts/analyze_image"
	"github.com/jackzampolin/pdftoc/internal/providers"
	"github.com/jackzampolin/pdftoc/internal/workflow"
)

// fakeRunner sleeps per page and tracks peak concurrency.
type fakeRunner struct {
	delay    func(page int) time.Duration
	fail     map[int]bool
	panicOn  map[int]bool
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, page workflow.PageImage) outline.PageResult {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.panicOn[page.Index] {
		panic("boom")
	}

	select {
	case <-time.After(f.delay(page.Index)):
	case <-ctx.Done():
		return outline.PageResult{PageIndex: page.Index, Diagnostics: []outline.Diagnostic{{
			Severity: outline.SeverityError, Kind: outline.KindCancelled, PageIndex: page.Index, Message: "cancelled",
		}}}
	}

	if f.fail[page.Index] {
		return outline.PageResult{PageIndex: page.Index, Diagnostics: []outline.Diagnostic{{
			Severity: outline.SeverityError, Kind: outline.KindFatal, PageIndex: page.Index, Message: "unreadable",
		}}}
	}
	return outline.PageResult{
		PageIndex: page.Index,
		Entries:   []outline.Entry{{Title: fmt.Sprintf("Entry %d", page.Index), Page: page.Index, Level: 1}},
	}
}

func pagesN(n int) []workflow.PageImage {
	pages := make([]workflow.PageImage, n)
	for i := range pages {
		pages[i] = workflow.PageImage{Index: i + 1, Data: []byte("png")}
	}
	return pages
}

func TestScheduler_PreservesInputOrder(t *testing.T) {
	// Later pages finish first.
	runner := &fakeRunner{delay: func(page int) time.Duration {
		return time.Duration(10-page) * 5 * time.Millisecond
	}}
	s, err := NewScheduler(SchedulerConfig{Runner: runner, Concurrency: 3})
	if err != nil {
		t.Fatal(err)
	}

	results := s.Run(context.Background(), pagesN(6))

	if len(results) != 6 {
		t.Fatalf("len(results) = %d, want 6", len(results))
	}
	for i, r := range results {
		if r.PageIndex != i+1 {
			t.Errorf("results[%d].PageIndex = %d, want %d", i, r.PageIndex, i+1)
		}
	}
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	runner := &fakeRunner{delay: func(int) time.Duration { return 20 * time.Millisecond }}
	s, _ := NewScheduler(SchedulerConfig{Runner: runner, Concurrency: 2})

	s.Run(context.Background(), pagesN(8))

	if peak := runner.peak.Load(); peak > 2 || peak < 1 {
		t.Errorf("peak concurrency = %d, want 1..2", peak)
	}
	if st := s.Status(); st.Completed != 8 || st.Total != 8 || st.InFlight != 0 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestScheduler_DefaultConcurrency(t *testing.T) {
	runner := &fakeRunner{delay: func(int) time.Duration { return 20 * time.Millisecond }}
	s, _ := NewScheduler(SchedulerConfig{Runner: runner})

	s.Run(context.Background(), pagesN(9))

	if s.Status().Workers != DefaultConcurrency {
		t.Errorf("Workers = %d, want %d", s.Status().Workers, DefaultConcurrency)
	}
	if peak := runner.peak.Load(); peak > DefaultConcurrency {
		t.Errorf("peak concurrency = %d, want <= %d", peak, DefaultConcurrency)
	}
}

func TestScheduler_FailedPageKeepsSlot(t *testing.T) {
	runner := &fakeRunner{
		delay:   func(int) time.Duration { return time.Millisecond },
		fail:    map[int]bool{2: true},
		panicOn: map[int]bool{3: true},
	}
	collector := NewCollector()
	s, _ := NewScheduler(SchedulerConfig{Runner: runner, Collector: collector})

	results := s.Run(context.Background(), pagesN(4))

	if !results[1].Failed() || results[1].FailureReason() != "unreadable" {
		t.Errorf("results[1] = %+v, want failed", results[1])
	}
	if !results[2].Failed() || results[2].PageIndex != 3 {
		t.Errorf("results[2] = %+v, want recovered panic", results[2])
	}
	if results[0].Failed() || results[3].Failed() {
		t.Error("healthy pages should not fail")
	}
	if collector.Len() != 2 {
		t.Errorf("collector has %d diagnostics, want 2", collector.Len())
	}
	if len(s.Diagnostics()) != 2 {
		t.Errorf("Diagnostics() = %v", s.Diagnostics())
	}
}

func TestScheduler_ProgressCallback(t *testing.T) {
	runner := &fakeRunner{delay: func(int) time.Duration { return time.Millisecond }}
	var mu sync.Mutex
	var dones []int
	s, _ := NewScheduler(SchedulerConfig{
		Runner: runner,
		OnPageDone: func(done, total int, r outline.PageResult) {
			mu.Lock()
			defer mu.Unlock()
			if total != 5 {
				t.Errorf("total = %d, want 5", total)
			}
			dones = append(dones, done)
		},
	})

	s.Run(context.Background(), pagesN(5))

	if len(dones) != 5 {
		t.Fatalf("callback calls = %d, want 5", len(dones))
	}
	seen := map[int]bool{}
	for _, d := range dones {
		seen[d] = true
	}
	for i := 1; i <= 5; i++ {
		if !seen[i] {
			t.Errorf("done=%d never reported", i)
		}
	}
}

func TestScheduler_CancellationPreservesCompleted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{delay: func(page int) time.Duration {
		if page == 1 {
			return time.Millisecond
		}
		return time.Hour
	}}
	s, _ := NewScheduler(SchedulerConfig{Runner: runner, Concurrency: 1, OnPageDone: func(done, _ int, _ outline.PageResult) {
		if done == 1 {
			cancel()
		}
	}})

	results := s.Run(ctx, pagesN(3))

	if results[0].Failed() || len(results[0].Entries) != 1 {
		t.Errorf("completed page lost: %+v", results[0])
	}
	for _, r := range results[1:] {
		if !r.Failed() || r.Diagnostics[0].Kind != outline.KindCancelled {
			t.Errorf("page %d = %+v, want cancelled", r.PageIndex, r)
		}
	}
}

func TestScheduler_EmptyInput(t *testing.T) {
	s, _ := NewScheduler(SchedulerConfig{Runner: &fakeRunner{}})
	if got := s.Run(context.Background(), nil); len(got) != 0 {
		t.Errorf("Run(nil) = %v", got)
	}
}

func TestNewScheduler_RequiresRunner(t *testing.T) {
	if _, err := NewScheduler(SchedulerConfig{}); err == nil {
		t.Error("expected error without runner")
	}
}

// TestScheduler_WithWorkflow runs real page workflows against a scripted
// recognizer that answers slower for earlier pages.
func TestScheduler_WithWorkflow(t *testing.T) {
	rec := &providers.MockRecognizer{
		ImageFunc: func(ctx context.Context, _ int, img []byte, prompt string) (string, error) {
			if prompt == analyze_image.Prompt {
				return `{"columns":1}`, nil
			}
			// Image bytes carry the page number.
			return "page " + string(img), nil
		},
		TextFunc: func(ctx context.Context, _ int, text, _ string) (string, error) {
			var page int
			fmt.Sscanf(text, "page %d", &page)
			time.Sleep(time.Duration(5-page) * 3 * time.Millisecond)
			return fmt.Sprintf(`[{"title":"Section %d","page":%d,"level":1}]`, page, page*10), nil
		},
	}
	w, err := workflow.New(workflow.Config{Recognizer: rec})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := NewScheduler(SchedulerConfig{Runner: w, Concurrency: 3})

	pages := make([]workflow.PageImage, 4)
	for i := range pages {
		pages[i] = workflow.PageImage{Index: i + 1, Data: []byte(fmt.Sprint(i + 1))}
	}
	results := s.Run(context.Background(), pages)

	for i, r := range results {
		if r.Failed() {
			t.Fatalf("page %d failed: %s", i+1, r.FailureReason())
		}
		want := fmt.Sprintf("Section %d", i+1)
		if r.Entries[0].Title != want || r.Entries[0].Page != (i+1)*10 {
			t.Errorf("results[%d].Entries = %v, want %s", i, r.Entries, want)
		}
	}
}
