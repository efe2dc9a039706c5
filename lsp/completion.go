package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jacobcolvin/json-ls/position"
	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/schema"
)

// Completion handles textDocument/completion, proposing property-name
// completions inside a key and enum/type-based snippet completions
// inside a value.
func (s *Server) Completion(ctx context.Context, params json.RawMessage) (any, error) {
	var p rpc.CompletionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding completion params: %w", err)
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
	if ctxInfo.Kind == position.Unknown {
		return nil, nil
	}

	schemaValue, err := s.cache.GetOrFetch(ctx, schemaURL)
	if err != nil {
		return nil, nil
	}

	root := schema.NewNode(schemaValue, schemaValue)

	var items []rpc.CompletionItem

	switch ctxInfo.Kind {
	case position.KeyKind:
		items = keyCompletions(root, ctxInfo.Path, false)
	case position.KeyStartKind:
		items = keyCompletions(root, ctxInfo.Path, true)
	case position.ValueKind, position.ValueStartKind:
		items = valueCompletions(root, ctxInfo.Path)
	}

	if len(items) == 0 {
		return nil, nil
	}

	return rpc.CompletionList{IsIncomplete: false, Items: items}, nil
}

// keyCompletions proposes the property names available at path's parent
// object. When includeLeadingQuote is true (cursor sits at the opening
// quote) the inserted text includes a leading '"'; otherwise the editor
// has already placed the opening quote via autopairs and only the
// closing `": ` should be inserted.
func keyCompletions(root *schema.Node, path position.Path, includeLeadingQuote bool) []rpc.CompletionItem {
	parent := root

	if len(path) > 0 {
		node, ok := root.Navigate(path)
		if !ok {
			return nil
		}

		parent = node
	}

	names := parent.PropertyNames()
	items := make([]rpc.CompletionItem, 0, len(names))

	for _, name := range names {
		kind := rpc.CompletionItemKindField

		var detail *string

		var doc *rpc.MarkupContent

		if child, ok := parent.Navigate(position.Path{position.Key(name)}); ok {
			info := child.HoverInfo()
			if info.TypeInfo != "" {
				t := info.TypeInfo
				detail = &t
			}

			if info.Description != "" {
				doc = &rpc.MarkupContent{Kind: "markdown", Value: info.Description}
			}
		}

		insertText := name + "\": "
		if includeLeadingQuote {
			insertText = `"` + insertText
		}

		format := rpc.InsertTextFormatPlainText

		items = append(items, rpc.CompletionItem{
			Label:            name,
			Kind:             &kind,
			Detail:           detail,
			Documentation:    doc,
			InsertText:       &insertText,
			InsertTextFormat: &format,
		})
	}

	return items
}

// valueCompletions proposes enum members when the schema node at path
// restricts to an enum, otherwise a type-appropriate snippet.
func valueCompletions(root *schema.Node, path position.Path) []rpc.CompletionItem {
	node, ok := root.Navigate(path)
	if !ok {
		return nil
	}

	if enumValues := node.EnumValues(); len(enumValues) > 0 {
		items := make([]rpc.CompletionItem, 0, len(enumValues))

		for _, v := range enumValues {
			kind := rpc.CompletionItemKindValue
			format := rpc.InsertTextFormatPlainText
			insertText := v

			items = append(items, rpc.CompletionItem{
				Label:            v,
				Kind:             &kind,
				InsertText:       &insertText,
				InsertTextFormat: &format,
			})
		}

		return items
	}

	typ, ok := node.SchemaType()
	if !ok {
		return nil
	}

	switch typ {
	case "boolean":
		return []rpc.CompletionItem{snippet("true", "true"), snippet("false", "false")}
	case "null":
		return []rpc.CompletionItem{snippet("null", "null")}
	case "array":
		return []rpc.CompletionItem{snippetKind("[]", "[$1]", rpc.InsertTextFormatSnippet)}
	case "object":
		return []rpc.CompletionItem{snippetKind("{}", "{$1}", rpc.InsertTextFormatSnippet)}
	case "string":
		return []rpc.CompletionItem{snippetKind(`""`, `"$1"`, rpc.InsertTextFormatSnippet)}
	default:
		return nil
	}
}

func snippet(label, insertText string) rpc.CompletionItem {
	return snippetKind(label, insertText, rpc.InsertTextFormatPlainText)
}

func snippetKind(label, insertText string, format rpc.InsertTextFormat) rpc.CompletionItem {
	kind := rpc.CompletionItemKindValue
	f := format

	return rpc.CompletionItem{
		Label:            label,
		Kind:             &kind,
		InsertText:       &insertText,
		InsertTextFormat: &f,
	}
}
