// Package lsp wires the position classifier, schema navigator, document
// store and diagnostics scheduler together into handlers for the
// subset of the Language Server Protocol this server implements:
// initialize, shutdown, textDocument/didOpen|didChange|didClose, and
// textDocument/hover|completion.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jacobcolvin/json-ls/config"
	"github.com/jacobcolvin/json-ls/diagnostics"
	"github.com/jacobcolvin/json-ls/document"
	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/schema"
	"github.com/jacobcolvin/json-ls/version"
)

// Server holds the handler state shared across requests: the open
// document set, the schema cache, and the debounced diagnostics
// scheduler. It is safe for concurrent use.
type Server struct {
	docs      *document.Store
	cache     *schema.Cache
	scheduler *diagnostics.Scheduler
	notifier  Notifier
}

// Notifier sends server-to-client notifications (publishDiagnostics,
// logMessage). *rpc.Mux satisfies this.
type Notifier interface {
	Notify(method string, params any) error
}

// NewServer creates a Server that publishes notifications through
// notifier. The schema cache and diagnostics scheduler are built from
// config.Default() right away; Initialize replaces both once it observes
// the client's initializationOptions (schema_ttl_secs,
// schema_cache_capacity).
func NewServer(notifier Notifier) *Server {
	s := &Server{
		docs:     document.NewStore(),
		notifier: notifier,
	}

	s.applyConfig(config.Default())

	return s
}

func (s *Server) applyConfig(cfg config.ServerConfig) {
	loader := schema.NewLoader()
	s.cache = schema.NewCache(loader, cfg.TTL(), int(cfg.SchemaCacheCapacity))
	s.scheduler = diagnostics.NewScheduler(s.docs, s.cache, publishAdapter{s})
}

// publishAdapter adapts Server to diagnostics.Publisher.
type publishAdapter struct{ s *Server }

func (p publishAdapter) PublishDiagnostics(uri rpc.DocumentURI, diags []rpc.Diagnostic) {
	if diags == nil {
		diags = []rpc.Diagnostic{}
	}

	err := p.s.notifier.Notify(rpc.MethodPublishDiagnostics, rpc.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
	if err != nil {
		slog.Error("failed to publish diagnostics", "uri", uri, "error", err)
	}
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params json.RawMessage) (any, error) {
	var req rpc.InitializeParams
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("decoding initialize params: %w", err)
	}

	cfg := config.Parse(req.InitializationOptions)
	s.applyConfig(cfg)

	slog.Info("initializing", "schema_ttl_secs", cfg.SchemaTTLSecs, "schema_cache_capacity", cfg.SchemaCacheCapacity)

	return rpc.InitializeResult{
		Capabilities: rpc.ServerCapabilities{
			TextDocumentSync: rpc.SyncIncremental,
			HoverProvider:    true,
			CompletionProvider: rpc.CompletionOptions{
				TriggerCharacters: []string{`"`, ":"},
			},
		},
		ServerInfo: rpc.ServerInfo{
			Name:    "json-ls",
			Version: version.Version,
		},
	}, nil
}

// Shutdown handles the shutdown request with a null result. Pending
// diagnostics work is not cancelled.
func (s *Server) Shutdown(_ context.Context, _ json.RawMessage) (any, error) {
	return nil, nil
}

// DidOpen handles textDocument/didOpen: registers the document, eagerly
// prefetches its schema so the first hover/completion isn't blocked on a
// cold fetch, and schedules a debounced validation pass.
func (s *Server) DidOpen(ctx context.Context, params json.RawMessage) error {
	var p rpc.DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("decoding didOpen params: %w", err)
	}

	s.docs.Open(p.TextDocument.URI, p.TextDocument.Version, p.TextDocument.Text)

	if schemaURL, ok := s.docs.SchemaURL(p.TextDocument.URI); ok && schemaURL != "" {
		go func() {
			_, _ = s.cache.GetOrFetch(context.Background(), schemaURL)
		}()
	}

	s.scheduler.Schedule(p.TextDocument.URI)

	return nil
}

// DidChange handles textDocument/didChange: applies the edits and
// reschedules validation.
func (s *Server) DidChange(_ context.Context, params json.RawMessage) error {
	var p rpc.DidChangeTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("decoding didChange params: %w", err)
	}

	if err := s.docs.Update(p.TextDocument.URI, p.TextDocument.Version, p.ContentChanges); err != nil {
		if err := s.notifier.Notify(rpc.MethodLogMessage, rpc.LogMessageParams{
			Type:    rpc.MessageTypeError,
			Message: fmt.Sprintf("failed to update document: %s", err),
		}); err != nil {
			slog.Error("failed to notify client of update error", "error", err)
		}

		return nil
	}

	s.scheduler.Schedule(p.TextDocument.URI)

	return nil
}

// DidClose handles textDocument/didClose: cancels any pending validation
// and clears the client's diagnostics for the file.
func (s *Server) DidClose(_ context.Context, params json.RawMessage) error {
	var p rpc.DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("decoding didClose params: %w", err)
	}

	s.scheduler.Cancel(p.TextDocument.URI)

	if err := s.docs.Close(p.TextDocument.URI); err != nil {
		slog.Debug("didClose for unopened document", "uri", p.TextDocument.URI, "error", err)
	}

	publishAdapter{s}.PublishDiagnostics(p.TextDocument.URI, []rpc.Diagnostic{})

	return nil
}
