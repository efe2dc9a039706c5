// Package diagnostics validates an open document against its declared
// $schema and turns the result into LSP diagnostics, debouncing
// validation so a burst of keystrokes triggers at most one validation
// pass.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"github.com/jacobcolvin/json-ls/document"
	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/schema"
)

const (
	codeJSONSyntax        = "json-syntax"
	codeSchemaValidation  = "schema-validation"
	diagnosticSourceLabel = "json-ls"
)

// Validate checks the document at uri against its declared $schema and
// returns the diagnostics to publish. It never returns an error: any
// failure to locate the document, its schema URL, or the schema itself
// degrades to an empty diagnostic list, matching spec.md's propagation
// policy that editing errors never abort the interaction.
func Validate(ctx context.Context, uri rpc.DocumentURI, docs *document.Store, cache *schema.Cache) []rpc.Diagnostic {
	text, ok := docs.Text(uri)
	if !ok {
		return nil
	}

	schemaURL, ok := docs.SchemaURL(uri)
	if !ok || schemaURL == "" {
		slog.Debug("no $schema declared", "uri", uri)
		return nil
	}

	schemaValue, err := cache.GetOrFetch(ctx, schemaURL)
	if err != nil {
		slog.Warn("could not fetch schema", "uri", uri, "schema_url", schemaURL, "error", err)
		return nil
	}

	var instance any
	if err := json.Unmarshal([]byte(text), &instance); err != nil {
		return []rpc.Diagnostic{syntaxDiagnostic(text, err)}
	}

	schemaBytes, err := json.Marshal(schemaValue)
	if err != nil {
		slog.Warn("could not re-encode cached schema", "uri", uri, "schema_url", schemaURL, "error", err)
		return nil
	}

	compiled, err := jsonschema.NewCompiler().Compile(schemaBytes)
	if err != nil {
		slog.Warn("could not compile schema", "uri", uri, "schema_url", schemaURL, "error", err)
		return nil
	}

	result := compiled.Validate(instance)
	if result.IsValid() {
		return []rpc.Diagnostic{}
	}

	detailed := result.GetDetailedErrors()

	diags := make([]rpc.Diagnostic, 0, len(detailed))
	for path, message := range detailed {
		diags = append(diags, rpc.Diagnostic{
			Range:    instancePathToRange(path, text),
			Severity: rpc.SeverityError,
			Source:   diagnosticSourceLabel,
			Message:  message,
		})
	}

	return diags
}

func syntaxDiagnostic(text string, err error) rpc.Diagnostic {
	line, character := syntaxErrorPosition(text, err)

	return rpc.Diagnostic{
		Range: rpc.Range{
			Start: rpc.Position{Line: line, Character: character},
			End:   rpc.Position{Line: line, Character: character + 1},
		},
		Severity: rpc.SeverityError,
		Source:   diagnosticSourceLabel,
		Message:  fmt.Sprintf("JSON syntax error: %s", err),
	}
}

// syntaxErrorPosition recovers a line/character position from a
// json.SyntaxError's byte offset, or (0, 0) for any other error shape.
func syntaxErrorPosition(text string, err error) (uint32, uint32) {
	se, ok := err.(*json.SyntaxError)
	if !ok {
		return 0, 0
	}

	return byteOffsetToPosition(text, int(se.Offset))
}

// byteOffsetToPosition converts a byte offset within text to a
// zero-based LSP Position, counting Character in UTF-16 code units.
func byteOffsetToPosition(text string, byteOffset int) (uint32, uint32) {
	var line, lineStart int

	for i, r := range text {
		if i >= byteOffset {
			break
		}

		if r == '\n' {
			line++
			lineStart = i + len(string(r))
		}
	}

	end := byteOffset
	if end > len(text) {
		end = len(text)
	}

	character := utf16Len(text[lineStart:end])

	return uint32(line), uint32(character)
}

func utf16Len(s string) int {
	n := 0

	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}

	return n
}

// instancePathToRange best-effort locates a JSON Pointer instance path
// (e.g. "/name" or "/items/0") within text by searching for its first
// path segment's key literal. Falls back to the top of the document
// when the key can't be found or the path is empty (a root-level error).
func instancePathToRange(path string, text string) rpc.Range {
	key := firstSegment(path)
	if key == "" {
		return rpc.Range{
			Start: rpc.Position{Line: 0, Character: 0},
			End:   rpc.Position{Line: 0, Character: 1},
		}
	}

	needle := `"` + key + `"`

	idx := strings.Index(text, needle)
	if idx < 0 {
		return rpc.Range{
			Start: rpc.Position{Line: 0, Character: 0},
			End:   rpc.Position{Line: 0, Character: 1},
		}
	}

	line, character := byteOffsetToPosition(text, idx)

	return rpc.Range{
		Start: rpc.Position{Line: line, Character: character},
		End:   rpc.Position{Line: line, Character: character + uint32(utf16Len(needle))},
	}
}

func firstSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return ""
	}

	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx]
	}

	return trimmed
}
