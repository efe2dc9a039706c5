package lsp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobcolvin/json-ls/lsp"
	"github.com/jacobcolvin/json-ls/rpc"
)

// recordingNotifier is safe for concurrent use since the server notifies
// from both request handlers and the debounced diagnostics goroutine.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []string
}

func (n *recordingNotifier) Notify(method string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notifications = append(n.notifications, method)

	return nil
}

func newServerWithSchema(t *testing.T, schemaJSON string) (*lsp.Server, *recordingNotifier, string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(schemaJSON))
	}))
	t.Cleanup(srv.Close)

	notifier := &recordingNotifier{}

	return lsp.NewServer(notifier), notifier, srv.URL
}

func openDoc(t *testing.T, s *lsp.Server, uri, schemaURL, body string) {
	t.Helper()

	text := "{\"$schema\": \"" + schemaURL + "\",\n" + body
	params, err := json.Marshal(rpc.DidOpenTextDocumentParams{
		TextDocument: rpc.TextDocumentItem{
			URI:        rpc.DocumentURI(uri),
			LanguageID: "json",
			Version:    1,
			Text:       text,
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.DidOpen(context.Background(), params))
}

func hoverParams(t *testing.T, uri string, line, char uint32) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(rpc.HoverParams{
		TextDocumentPositionParams: rpc.TextDocumentPositionParams{
			TextDocument: rpc.TextDocumentIdentifier{URI: rpc.DocumentURI(uri)},
			Position:     rpc.Position{Line: line, Character: char},
		},
	})
	require.NoError(t, err)

	return raw
}

func TestHoverReturnsNilForUnopenedDocument(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	s := lsp.NewServer(notifier)

	result, err := s.Hover(context.Background(), hoverParams(t, "file:///missing.json", 0, 0))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHoverReturnsMarkdownForKeyContext(t *testing.T) {
	t.Parallel()

	schemaJSON := `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The item's display name."}
		}
	}`

	s, _, schemaURL := newServerWithSchema(t, schemaJSON)
	openDoc(t, s, "file:///a.json", schemaURL, `"name": "hi"}`)

	// cursor inside the "name" key, on the second line.
	result, err := s.Hover(context.Background(), hoverParams(t, "file:///a.json", 1, 2))
	require.NoError(t, err)
	require.NotNil(t, result)

	hover, ok := result.(rpc.Hover)
	require.True(t, ok)
	assert.Contains(t, hover.Contents.Value, "display name")
}

func TestHoverReturnsNilWhenSchemaUnfetchable(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	s := lsp.NewServer(notifier)
	openDoc(t, s, "file:///a.json", "http://127.0.0.1:0/does-not-exist.json", `"name": "hi"}`)

	result, err := s.Hover(context.Background(), hoverParams(t, "file:///a.json", 1, 2))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHoverReturnsNilWithoutSchema(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	s := lsp.NewServer(notifier)

	params, err := json.Marshal(rpc.DidOpenTextDocumentParams{
		TextDocument: rpc.TextDocumentItem{
			URI:     "file:///noschema.json",
			Version: 1,
			Text:    `{"name": "hi"}`,
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.DidOpen(context.Background(), params))

	result, err := s.Hover(context.Background(), hoverParams(t, "file:///noschema.json", 0, 2))
	require.NoError(t, err)
	assert.Nil(t, result)
}
