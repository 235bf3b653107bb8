package main

import (
	"path/filepath"

	"github.com/jackzampolin/pdftoc/internal/config"
	"github.com/jackzampolin/pdftoc/internal/home"
	"github.com/jackzampolin/pdftoc/internal/ingest"
	"github.com/jackzampolin/pdftoc/internal/pipeline"
	"github.com/jackzampolin/pdftoc/internal/prompts"
	"github.com/jackzampolin/pdftoc/internal/providers"
	"github.com/jackzampolin/pdftoc/internal/sink"
)

// newRecognizer builds the configured recognition client. observer may be nil.
func newRecognizer(cfg *config.Config, observer providers.CallObserver) (*providers.ChatRecognizer, error) {
	rc := cfg.Recognizer
	registry := providers.NewRegistry()
	registry.SetLogger(app.logger)

	client, err := registry.New(providers.ClientConfig{
		Provider: rc.Provider,
		APIKey:   cfg.ResolveAPIKey(),
		BaseURL:  rc.BaseURL,
		Model:    rc.Model,
		Timeout:  rc.Timeout,
	})
	if err != nil {
		return nil, &pipeline.UsageError{Err: err}
	}

	var limiter *providers.RateLimiter
	if rc.RateLimit > 0 {
		limiter = providers.NewRateLimiter(int(rc.RateLimit))
	}
	return providers.NewChatRecognizer(providers.ChatRecognizerConfig{
		Client:      client,
		Model:       rc.Model,
		Temperature: rc.Temperature,
		MaxTokens:   rc.MaxTokens,
		Timeout:     rc.Timeout,
		Limiter:     limiter,
		Observer:    observer,
		Logger:      app.logger,
	}), nil
}

// newWriterPipeline builds a pipeline that only needs the PDF sink.
func newWriterPipeline() (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Config{
		Writer: sink.NewPDFSink(app.logger),
		Logger: app.logger,
	})
}

func promptResolver(cfg *config.Config) *prompts.Resolver {
	return prompts.NewDefaultResolver(cfg.Recognizer.PromptsDir, app.logger)
}

// workspaceFor resolves a document's workspace: the flag, then
// pipeline.workspace/<stem>, then ~/.pdftoc/work/<stem>.
func workspaceFor(pdfPath, override string) *home.Workspace {
	root := override
	if ws := app.config.Get().Pipeline.Workspace; root == "" && ws != "" {
		root = filepath.Join(ws, ingest.Stem(pdfPath))
	}
	return app.home.Workspace(pdfPath, root)
}
