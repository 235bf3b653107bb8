// Package workflow turns one rendered table-of-contents page into validated
// outline entries.
//
// Each page runs the stages Analyze, ExtractText, ParseStructure and
// ValidateData as an explicit state machine (see Transition). Transient
// recognition failures restart the run from ExtractText with exponential
// backoff; fatal failures and cancellation end it immediately. Every outcome,
// including failure, is reported as an outline.PageResult.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/prompts"
	"github.com/jackzampolin/pdftoc/internal/prompts/analyze_image"
	"github.com/jackzampolin/pdftoc/internal/prompts/extract_text"
	"github.com/jackzampolin/pdftoc/internal/prompts/parse_structure"
	"github.com/jackzampolin/pdftoc/internal/providers"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// PageImage is one rendered page. Data is read from Path when nil.
type PageImage struct {
	Index int // PDF page number the image was rendered from
	Path  string
	Data  []byte
}

// Config configures a Workflow.
type Config struct {
	Recognizer providers.Recognizer

	// Prompts resolves stage prompts (default: embedded prompts only).
	Prompts *prompts.Resolver

	// MaxRetries is the total number of attempts for the retryable stages.
	MaxRetries int

	// RetryDelay is the base backoff; attempt k+1 waits RetryDelay * 2^(k-1).
	RetryDelay time.Duration

	// CallTimeout bounds each recognition call (0 = none).
	CallTimeout time.Duration

	// Timer replaces the backoff timer (tests).
	Timer retry.Timer

	Logger *slog.Logger
}

// Workflow runs the page state machine. It holds no per-page state and is
// safe for concurrent use.
type Workflow struct {
	recognizer  providers.Recognizer
	maxRetries  int
	retryDelay  time.Duration
	callTimeout time.Duration
	timer       retry.Timer
	logger      *slog.Logger

	analyzePrompt *prompts.Prompt
	extractPrompt *prompts.Prompt
	parsePrompt   *prompts.Prompt
}

var (
	analyzeSchema = mustJSON(analyze_image.Schema)
	parseSchema   = mustJSON(parse_structure.Schema)
)

// New creates a workflow. Prompts are resolved once here so a broken
// override fails before any page is processed.
func New(cfg Config) (*Workflow, error) {
	if cfg.Recognizer == nil {
		return nil, errors.New("workflow: recognizer is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := cfg.Prompts
	if resolver == nil {
		resolver = prompts.NewDefaultResolver("", logger)
	}

	w := &Workflow{
		recognizer:  cfg.Recognizer,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		callTimeout: cfg.CallTimeout,
		timer:       cfg.Timer,
		logger:      logger,
	}

	var err error
	if w.analyzePrompt, err = resolver.Resolve(analyze_image.Key); err != nil {
		return nil, err
	}
	if w.extractPrompt, err = resolver.Resolve(extract_text.Key); err != nil {
		return nil, err
	}
	if w.parsePrompt, err = resolver.Resolve(parse_structure.Key); err != nil {
		return nil, err
	}
	return w, nil
}

// Run processes one page to completion, including retries. It never
// returns an error: failures are diagnostics on the result.
func (w *Workflow) Run(ctx context.Context, page PageImage) outline.PageResult {
	r := &pageRun{
		w:      w,
		page:   page,
		logger: w.logger.With("page", page.Index),
		result: outline.PageResult{
			PageIndex:   page.Index,
			SourceImage: page.Path,
		},
	}
	return r.execute(ctx)
}

// pageRun is the state owned by a single Run call.
type pageRun struct {
	w      *Workflow
	page   PageImage
	logger *slog.Logger

	state   State
	attempt int

	hints   analyze_image.Hints
	text    string
	raw     []json.RawMessage
	entries []outline.Entry

	result outline.PageResult
}

func (r *pageRun) step(ev Event) Effect {
	next, eff := Transition(r.state, ev)
	r.logger.Debug("transition", "from", r.state, "event", ev, "to", next, "effect", eff)
	r.state = next
	return eff
}

func (r *pageRun) execute(ctx context.Context) outline.PageResult {
	r.state, _ = Start()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return r.finishCancelled(err)
	}

	image, err := r.loadImage()
	if err != nil {
		r.step(FatalFailure)
		return r.finishFailed(&outline.StageError{
			PageIndex: r.page.Index,
			Stage:     Analyze.String(),
			Kind:      outline.ErrFatal,
			Err:       err,
		})
	}

	r.analyze(ctx, image)
	r.step(Succeeded)

	err = retry.Do(
		func() error {
			r.attempt++
			if r.attempt > 1 {
				r.step(Retry)
			}
			return r.runAttempt(ctx, image)
		},
		r.retryOptions(ctx)...,
	)

	switch {
	case err == nil:
		r.result.Entries = r.entries
		r.logger.Info("page recognized",
			"entries", len(r.entries),
			"attempts", r.attempt,
			"duration", time.Since(start).Round(time.Millisecond))
		return r.result
	case ctx.Err() != nil:
		return r.finishCancelled(ctx.Err())
	case outline.IsTransient(err):
		r.step(Exhausted)
		return r.finishFailed(fmt.Errorf("gave up after %d attempts: %w", r.attempt, err))
	default:
		return r.finishFailed(err)
	}
}

func (r *pageRun) retryOptions(ctx context.Context) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(r.w.maxRetries)),
		retry.Delay(r.w.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(outline.IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if int(n)+1 < r.w.maxRetries {
				r.logger.Warn("attempt failed, backing off", "attempt", n+1, "error", err)
			}
		}),
	}
	if r.w.timer != nil {
		opts = append(opts, retry.WithTimer(r.w.timer))
	}
	return opts
}

// runAttempt drives the machine from ExtractText to Done. Cancellation is
// checked before every stage.
func (r *pageRun) runAttempt(ctx context.Context, image []byte) error {
	eff := CallExtract
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stage := r.state
		var err error
		switch eff {
		case CallExtract:
			err = r.extract(ctx, image)
		case CallParse:
			err = r.parse(ctx)
		case RunValidate:
			err = r.validate()
		case Emit:
			return nil
		default:
			return outline.Fatal(fmt.Errorf("unexpected effect %s in state %s", eff, r.state))
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			kind := outline.ErrFatal
			if outline.IsTransient(err) {
				kind = outline.ErrTransient
				r.step(TransientFailure)
			} else {
				r.step(FatalFailure)
			}
			return &outline.StageError{PageIndex: r.page.Index, Stage: stage.String(), Kind: kind, Err: err}
		}
		eff = r.step(Succeeded)
	}
}

func (r *pageRun) loadImage() ([]byte, error) {
	if len(r.page.Data) > 0 {
		return r.page.Data, nil
	}
	if r.page.Path == "" {
		return nil, errors.New("page has neither image data nor path")
	}
	data, err := os.ReadFile(r.page.Path)
	if err != nil {
		return nil, fmt.Errorf("image unreadable: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image unreadable: %s is empty", r.page.Path)
	}
	return data, nil
}

// call runs one recognition call with call info and the per-call timeout.
func (r *pageRun) call(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	callCtx := providers.WithCallInfo(ctx, providers.CallInfo{
		PageIndex: r.page.Index,
		Stage:     r.state.String(),
		Attempt:   r.attempt,
	})
	if r.w.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, r.w.callTimeout)
		defer cancel()
	}

	out, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !outline.IsTransient(err) {
		err = outline.Transient(fmt.Errorf("recognition call timed out after %s: %w", r.w.callTimeout, err))
	}
	return out, err
}

// analyze never fails the page; any problem degrades to default hints.
func (r *pageRun) analyze(ctx context.Context, image []byte) {
	reply, err := r.call(ctx, func(c context.Context) (string, error) {
		return r.w.recognizer.CompleteImage(c, image, r.w.analyzePrompt.Text)
	})

	var hints analyze_image.Hints
	if err == nil {
		var raw json.RawMessage
		if raw, err = providers.ParseStructuredJSON(reply); err == nil {
			if err = providers.ValidateStructuredJSON(analyzeSchema, raw); err == nil {
				err = json.Unmarshal(raw, &hints)
			}
		}
	}

	if err != nil {
		r.hints = analyze_image.DefaultHints()
		if ctx.Err() == nil {
			r.logger.Info("layout analysis degraded", "error", err)
			r.result.Diagnostics = append(r.result.Diagnostics, outline.Diagnostic{
				Severity:  outline.SeverityInfo,
				Kind:      outline.KindAnalyzeDegraded,
				PageIndex: r.page.Index,
				Stage:     Analyze.String(),
				Message:   fmt.Sprintf("layout analysis unavailable, assuming single column: %v", err),
			})
		}
		return
	}
	r.hints = hints
	r.logger.Debug("layout analyzed", "columns", hints.Columns, "quality", hints.Quality)
}

func (r *pageRun) extract(ctx context.Context, image []byte) error {
	prompt := extract_text.Build(r.w.extractPrompt.Text, r.hints.Describe())
	text, err := r.call(ctx, func(c context.Context) (string, error) {
		return r.w.recognizer.CompleteImage(c, image, prompt)
	})
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return outline.Transient(errors.New("empty transcription"))
	}
	r.text = text
	return nil
}

func (r *pageRun) parse(ctx context.Context) error {
	reply, err := r.call(ctx, func(c context.Context) (string, error) {
		return r.w.recognizer.CompleteText(c, r.text, r.w.parsePrompt.Text)
	})
	if err != nil {
		return err
	}

	raw, err := providers.ParseStructuredJSON(reply)
	if err != nil {
		return outline.Fatal(fmt.Errorf("response malformed beyond repair: %w", err))
	}
	raw = unwrapEntries(raw)
	if err := providers.ValidateStructuredJSON(parseSchema, raw); err != nil {
		return outline.Fatal(err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return outline.Fatal(fmt.Errorf("decode entries: %w", err))
	}
	r.raw = items
	r.logger.Debug("structure parsed", "candidates", len(items))
	return nil
}

// unwrapEntries accepts {"entries": [...]} in place of a bare array.
func unwrapEntries(raw json.RawMessage) json.RawMessage {
	var wrapper struct {
		Entries json.RawMessage `json:"entries"`
		TOC     json.RawMessage `json:"toc"`
	}
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &wrapper) != nil {
		return raw
	}
	if len(wrapper.Entries) > 0 {
		return wrapper.Entries
	}
	if len(wrapper.TOC) > 0 {
		return wrapper.TOC
	}
	return raw
}

func (r *pageRun) validate() error {
	entries, diags := ValidateEntries(r.page.Index, r.raw)
	r.result.Diagnostics = append(r.result.Diagnostics, diags...)
	if len(entries) == 0 {
		return outline.Fatal(fmt.Errorf("no valid entries among %d parsed", len(r.raw)))
	}
	if len(diags) > 0 {
		r.logger.Warn("dropped invalid entries", "dropped", len(diags), "kept", len(entries))
	}
	r.entries = entries
	return nil
}

func (r *pageRun) finishFailed(err error) outline.PageResult {
	kind := outline.KindFatal
	if outline.IsTransient(err) {
		kind = outline.KindTransient
	}
	stage := r.state.String()
	var stageErr *outline.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	r.logger.Error("page failed", "stage", stage, "attempts", r.attempt, "error", err)
	r.result.Entries = nil
	r.result.Diagnostics = append(r.result.Diagnostics, outline.Diagnostic{
		Severity:  outline.SeverityError,
		Kind:      kind,
		PageIndex: r.page.Index,
		Stage:     stage,
		Message:   err.Error(),
	})
	return r.result
}

func (r *pageRun) finishCancelled(cause error) outline.PageResult {
	stage := r.state.String()
	r.step(Cancelled)
	r.logger.Warn("page cancelled", "stage", stage)
	r.result.Entries = nil
	r.result.Diagnostics = append(r.result.Diagnostics, outline.Diagnostic{
		Severity:  outline.SeverityError,
		Kind:      outline.KindCancelled,
		PageIndex: r.page.Index,
		Stage:     stage,
		Message:   fmt.Sprintf("page %d: %s: %v: %v", r.page.Index, stage, outline.ErrCancelled, cause),
	})
	return r.result
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
