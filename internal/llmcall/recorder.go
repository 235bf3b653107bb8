package llmcall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jackzampolin/pdftoc/internal/providers"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	Writer    io.Writer
	QueueSize int // Buffer size (default: 256)
	Logger    *slog.Logger
}

// Recorder writes calls as JSON lines from a single background goroutine.
// It implements providers.CallObserver.
type Recorder struct {
	enc    *json.Encoder
	closer io.Closer
	logger *slog.Logger

	queue    chan *Call
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex
	written int
	failed  int
}

// NewRecorder creates a recorder writing to cfg.Writer and starts it.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	enc := json.NewEncoder(cfg.Writer)
	enc.SetEscapeHTML(false)

	r := &Recorder{
		enc:    enc,
		logger: cfg.Logger,
		queue:  make(chan *Call, cfg.QueueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// OpenFile creates a recorder appending to path. Close flushes and closes
// the file.
func OpenFile(path string, logger *slog.Logger) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create call log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	r := NewRecorder(RecorderConfig{Writer: f, Logger: logger})
	r.closer = f
	return r, nil
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for call := range r.queue {
		err := r.enc.Encode(call)
		r.mu.Lock()
		if err != nil {
			r.failed++
		} else {
			r.written++
		}
		r.mu.Unlock()
		if err != nil {
			r.logger.Warn("failed to write call record", "id", call.ID, "error", err)
		}
	}
}

// ObserveCall records one recognition call.
func (r *Recorder) ObserveCall(ctx context.Context, prompt string, result *providers.ChatResult, err error) {
	r.Record(FromObservation(ctx, prompt, result, err))
}

// Record queues a call. It blocks only when the queue is full.
func (r *Recorder) Record(call *Call) {
	if call == nil {
		return
	}

	// Use recover to handle send on closed channel
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("recorder closed, dropping call record", "id", call.ID)
		}
	}()
	r.queue <- call
}

// Close flushes queued records and closes the underlying file, if any.
func (r *Recorder) Close() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.queue)
		r.wg.Wait()
		if r.closer != nil {
			err = r.closer.Close()
		}
		r.logger.Debug("call recorder closed", "written", r.Written())
	})
	return err
}

// Written returns the number of records successfully written.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

var _ providers.CallObserver = (*Recorder)(nil)
