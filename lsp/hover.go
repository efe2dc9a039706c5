package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jacobcolvin/json-ls/position"
	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/schema"
)

// Hover handles textDocument/hover. It returns a nil result (marshaled
// to JSON null) when there is nothing to show, rather than an error,
// since an absent hover is a normal, expected outcome.
func (s *Server) Hover(ctx context.Context, params json.RawMessage) (any, error) {
	var p rpc.HoverParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding hover params: %w", err)
	}

	text, ok := s.docs.Text(p.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	schemaURL, ok := s.docs.SchemaURL(p.TextDocument.URI)
	if !ok || schemaURL == "" {
		return nil, nil
	}

	ctxInfo := position.Classify(text, int(p.Position.Line), int(p.Position.Character))

	var path position.Path

	switch ctxInfo.Kind {
	case position.KeyKind, position.ValueKind:
		path = ctxInfo.Path
	default:
		return nil, nil
	}

	schemaValue, err := s.cache.GetOrFetch(ctx, schemaURL)
	if err != nil {
		return nil, nil
	}

	root := schema.NewNode(schemaValue, schemaValue)

	node, ok := root.Navigate(path)
	if !ok {
		return nil, nil
	}

	info := node.HoverInfo()
	if info.IsEmpty() {
		return nil, nil
	}

	return rpc.Hover{
		Contents: rpc.MarkupContent{Kind: "markdown", Value: info.ToMarkdown()},
	}, nil
}
