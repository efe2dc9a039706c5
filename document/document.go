// Package document tracks the open JSON text documents a client has
// synced, keeping each one in sync with the incoming
// textDocument/didChange events and caching the document's $schema URL
// so callers don't re-scan the text on every request.
package document

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jacobcolvin/json-ls/rpc"
)

// ErrNotFound is returned by Update and Close when the URI has no open
// document, e.g. a didChange arriving for a document the client never
// opened or already closed.
var ErrNotFound = errors.New("document not found")

// maxSchemaScanBytes bounds how much of a document's prefix is scanned
// for a "$schema" key, so a huge single-line document doesn't force a
// full-text scan on every open/update.
const maxSchemaScanBytes = 2048

// document holds one open text document's state. The buffer is kept as
// []rune rather than a byte string so incremental edits translate LSP's
// UTF-16 line/character positions into splice points without repeatedly
// re-walking UTF-8 byte boundaries.
type document struct {
	mu        sync.RWMutex
	version   int32
	buf       []rune
	schemaURL string
}

// Store is a concurrency-safe registry of open documents, keyed by URI.
type Store struct {
	mu   sync.RWMutex
	docs map[rpc.DocumentURI]*document
}

// NewStore creates an empty document Store.
func NewStore() *Store {
	return &Store{docs: make(map[rpc.DocumentURI]*document)}
}

// Open registers a newly opened document, replacing any prior state for
// the same URI.
func (s *Store) Open(uri rpc.DocumentURI, version int32, text string) {
	doc := &document{
		version:   version,
		buf:       []rune(text),
		schemaURL: extractSchemaURL(text),
	}

	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
}

// Close discards a document's state. It returns ErrNotFound if uri was
// never opened or was already closed.
func (s *Store) Close(uri rpc.DocumentURI) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[uri]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	}

	delete(s.docs, uri)

	return nil
}

// Update applies a sequence of content changes to the document at uri in
// order, then records the new version. A change with a nil Range
// replaces the full document; otherwise the change's range is spliced
// into the existing buffer using UTF-16 code-unit offsets, per LSP's
// default position encoding.
func (s *Store) Update(uri rpc.DocumentURI, version int32, changes []rpc.TextDocumentContentChangeEvent) error {
	doc, ok := s.get(uri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	for _, change := range changes {
		if change.Range == nil {
			doc.buf = []rune(change.Text)
			continue
		}

		start, err := charIndex(doc.buf, change.Range.Start)
		if err != nil {
			return fmt.Errorf("applying change to %s: %w", uri, err)
		}

		end, err := charIndex(doc.buf, change.Range.End)
		if err != nil {
			return fmt.Errorf("applying change to %s: %w", uri, err)
		}

		spliced := make([]rune, 0, len(doc.buf)-(end-start)+len(change.Text))
		spliced = append(spliced, doc.buf[:start]...)
		spliced = append(spliced, []rune(change.Text)...)
		spliced = append(spliced, doc.buf[end:]...)
		doc.buf = spliced
	}

	doc.version = version
	doc.schemaURL = extractSchemaURL(string(doc.buf))

	return nil
}

// Text returns the current full text of the document at uri.
func (s *Store) Text(uri rpc.DocumentURI) (string, bool) {
	doc, ok := s.get(uri)
	if !ok {
		return "", false
	}

	doc.mu.RLock()
	defer doc.mu.RUnlock()

	return string(doc.buf), true
}

// SchemaURL returns the document's most recently extracted $schema URL,
// or "" if it has none.
func (s *Store) SchemaURL(uri rpc.DocumentURI) (string, bool) {
	doc, ok := s.get(uri)
	if !ok {
		return "", false
	}

	doc.mu.RLock()
	defer doc.mu.RUnlock()

	return doc.schemaURL, true
}

// Version returns the document's current version.
func (s *Store) Version(uri rpc.DocumentURI) (int32, bool) {
	doc, ok := s.get(uri)
	if !ok {
		return 0, false
	}

	doc.mu.RLock()
	defer doc.mu.RUnlock()

	return doc.version, true
}

func (s *Store) get(uri rpc.DocumentURI) (*document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]

	return doc, ok
}

// charIndex converts a zero-based LSP Position (UTF-16 code units within
// its line) into a rune index into buf. It errors if pos.Line is beyond
// the buffer's last line; a character beyond the line's length clamps to
// the end of that line rather than erroring, matching how editors send
// positions right at end-of-line.
func charIndex(buf []rune, pos rpc.Position) (int, error) {
	line := 0
	idx := 0

	for line < int(pos.Line) {
		if idx >= len(buf) {
			return 0, fmt.Errorf("line %d out of range", pos.Line)
		}

		if buf[idx] == '\n' {
			line++
		}

		idx++
	}

	units := 0

	for units < int(pos.Character) && idx < len(buf) && buf[idx] != '\n' {
		if buf[idx] > 0xFFFF {
			// Above the basic multilingual plane, one rune still encodes
			// as a UTF-16 surrogate pair: two code units.
			units += 2
		} else {
			units++
		}

		idx++
	}

	return idx, nil
}

// extractSchemaURL scans the first maxSchemaScanBytes of text for a
// top-level "$schema" key and returns its string value, or "" if absent
// or malformed. It is a cheap textual scan rather than a full parse,
// since $schema is conventionally the document's first field.
func extractSchemaURL(text string) string {
	scan := text
	if len(scan) > maxSchemaScanBytes {
		scan = scan[:maxSchemaScanBytes]
	}

	const key = `"$schema"`

	idx := strings.Index(scan, key)
	if idx < 0 {
		return ""
	}

	rest := scan[idx+len(key):]

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return ""
	}

	rest = rest[colon+1:]

	i := 0
	for i < len(rest) && isJSONSpace(rest[i]) {
		i++
	}

	if i >= len(rest) || rest[i] != '"' {
		return ""
	}

	i++
	start := i

	for i < len(rest) && rest[i] != '"' {
		i++
	}

	if i >= len(rest) {
		return ""
	}

	value := rest[start:i]
	if value == "" {
		return ""
	}

	return value
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
