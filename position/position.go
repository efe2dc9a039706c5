// Package position classifies a cursor location inside a (possibly
// mid-edit, possibly invalid) JSON document into a semantic context: which
// key or value the cursor sits in, and the path to it from the document
// root.
//
// The scanner never fails and never fully parses the document. It walks
// bytes with a tolerant recursive-descent pass that gives up locally on any
// byte it doesn't recognize and keeps going, because a live editor buffer
// is unparseable between most keystrokes.
package position

import "unicode/utf8"

// SegmentKind distinguishes object-key path segments from array-index ones.
type SegmentKind int

const (
	// SegmentKey is an object property name.
	SegmentKey SegmentKind = iota
	// SegmentIndex is an array element index.
	SegmentIndex
)

// Segment is one step of a Path: either a Key or an Index.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

// Key builds a Segment for an object property.
func Key(k string) Segment { return Segment{Kind: SegmentKey, Key: k} }

// Index builds a Segment for an array element.
func Index(i int) Segment { return Segment{Kind: SegmentIndex, Index: i} }

// Path is an ordered sequence of Segments from the document root. A nil or
// empty Path denotes the root.
type Path []Segment

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)

	return out
}

// Equal reports whether p and other contain the same segments in the same
// order.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}

	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}

	return true
}

// ContextKind tags the shape of a Context.
type ContextKind int

const (
	// Unknown means the position could not be classified.
	Unknown ContextKind = iota
	// KeyKind means the cursor is inside a key string; Path's last segment
	// is the key being edited.
	KeyKind
	// KeyStartKind means the cursor sits exactly at the opening quote of a
	// key; Path is the path of the object the key belongs to.
	KeyStartKind
	// ValueKind means the cursor is inside a value.
	ValueKind
	// ValueStartKind means the cursor sits between ':' and the first byte
	// of a value, or at the opening brace/bracket of a container value.
	ValueStartKind
)

// Context is the semantic meaning of a cursor location. For KeyKind,
// Path's final segment is the key under the cursor. For KeyStartKind, Path
// is the path of the enclosing object (no key segment is appended). For
// ValueKind and ValueStartKind, Path is the path to the value.
type Context struct {
	Kind ContextKind
	Path Path
}

// Classify maps (line, character) — character is a UTF-16 code-unit offset
// within the line, per LSP convention — to a Context. It never panics; an
// unclassifiable position yields Unknown.
func Classify(text string, line, character int) Context {
	target, ok := locate(text, line, character)
	if !ok {
		return Context{Kind: Unknown}
	}

	bytes := []byte(text)

	pos := 0
	skipWhitespace(bytes, &pos)

	if pos >= len(bytes) || bytes[pos] != '{' {
		return Context{Kind: Unknown}
	}

	s := &scanner{bytes: bytes, target: target, result: Context{Kind: Unknown}}
	s.scanObject(pos, nil)

	return s.result
}

// locate converts an LSP (line, character) position to a byte offset in
// text. character is counted in UTF-16 code units. Returns false if line
// does not exist in a non-empty document.
func locate(text string, line, character int) (int, bool) {
	currentLine := 0
	lineStart := 0
	found := line == 0

	if !found {
		for i, r := range text {
			if r == '\n' {
				currentLine++
				if currentLine == line {
					lineStart = i + 1
					found = true

					break
				}
			}
		}
	}

	if !found {
		// Cursor on the line immediately after the last line, with no
		// trailing newline (e.g. end of a single-line document). Any other
		// out-of-range line is unclassifiable.
		if currentLine+1 == line && text != "" {
			lineStart = len(text)
			found = true
		} else {
			return 0, false
		}
	}

	lineText := text[lineStart:]
	utf16Count := 0

	for byteOff, r := range lineText {
		if utf16Count >= character {
			return lineStart + byteOff, true
		}

		utf16Count += utf16Len(r)
	}

	return lineStart + len(lineText), true
}

func utf16Len(r rune) int {
	if r > 0xFFFF {
		return 2
	}

	return 1
}

type scanner struct {
	bytes  []byte
	target int
	result Context
}

func (s *scanner) scanObject(pos int, path Path) int {
	pos++ // consume '{'

	for {
		skipWhitespace(s.bytes, &pos)
		if pos >= len(s.bytes) {
			return pos
		}

		ch := s.bytes[pos]

		if ch == '}' {
			return pos + 1
		}

		if ch == ',' {
			pos++
			continue
		}

		if ch != '"' {
			// Malformed: skip and retry.
			pos++
			continue
		}

		if s.target == pos {
			s.result = Context{Kind: KeyStartKind, Path: path.Clone()}
			return pos
		}

		keyStart := pos
		key, afterKey := scanString(s.bytes, pos)
		pos = afterKey

		if s.target > keyStart && s.target <= pos {
			s.result = Context{Kind: KeyKind, Path: append(path.Clone(), Key(key))}
			return pos
		}

		skipWhitespace(s.bytes, &pos)
		if pos >= len(s.bytes) {
			return pos
		}

		if s.bytes[pos] == ':' {
			pos++
		}

		skipWhitespace(s.bytes, &pos)

		if pos >= len(s.bytes) {
			return pos
		}

		if s.target > keyStart && s.target <= pos {
			s.result = Context{Kind: ValueStartKind, Path: append(path.Clone(), Key(key))}
			return pos
		}

		childPath := append(path.Clone(), Key(key))
		pos = s.scanValue(pos, childPath)

		if s.result.Kind != Unknown {
			return pos
		}
	}
}

func (s *scanner) scanArray(pos int, path Path) int {
	pos++ // consume '['

	index := 0

	for {
		skipWhitespace(s.bytes, &pos)
		if pos >= len(s.bytes) {
			return pos
		}

		ch := s.bytes[pos]

		if ch == ']' {
			return pos + 1
		}

		if ch == ',' {
			pos++
			index++

			continue
		}

		if s.target == pos {
			s.result = Context{Kind: ValueStartKind, Path: append(path.Clone(), Index(index))}
			return pos
		}

		childPath := append(path.Clone(), Index(index))
		pos = s.scanValue(pos, childPath)

		if s.result.Kind != Unknown {
			return pos
		}
	}
}

func (s *scanner) scanValue(pos int, path Path) int {
	if pos >= len(s.bytes) {
		return pos
	}

	switch s.bytes[pos] {
	case '{':
		if s.target == pos {
			s.result = Context{Kind: ValueStartKind, Path: path.Clone()}
			return pos
		}

		return s.scanObject(pos, path)

	case '[':
		if s.target == pos {
			s.result = Context{Kind: ValueStartKind, Path: path.Clone()}
			return pos
		}

		return s.scanArray(pos, path)

	case '"':
		strStart := pos
		_, strEnd := scanString(s.bytes, pos)

		if s.target >= strStart && s.target <= strEnd {
			s.result = Context{Kind: ValueKind, Path: path.Clone()}
		}

		return strEnd

	default:
		litStart := pos
		litEnd := skipLiteral(s.bytes, pos)

		if s.target >= litStart && s.target <= litEnd {
			s.result = Context{Kind: ValueKind, Path: path.Clone()}
		}

		return litEnd
	}
}

func skipWhitespace(bytes []byte, pos *int) {
	for *pos < len(bytes) {
		switch bytes[*pos] {
		case ' ', '\t', '\r', '\n':
			*pos++
		default:
			return
		}
	}
}

// scanString consumes a JSON string starting at pos (which must point at
// the opening quote), returning its unescaped content and the position
// just past the closing quote. \uXXXX escapes are collapsed to a
// placeholder rune rather than decoded, matching the tolerance contract:
// this only affects matching of keys that themselves contain \u escapes,
// which is rare in practice.
func scanString(bytes []byte, pos int) (string, int) {
	if pos >= len(bytes) || bytes[pos] != '"' {
		return "", pos
	}

	pos++ // opening quote

	var out []rune

	for pos < len(bytes) {
		ch := bytes[pos]

		if ch == '"' {
			pos++
			break
		}

		if ch == '\\' {
			pos++
			if pos >= len(bytes) {
				break
			}

			switch bytes[pos] {
			case '"':
				out = append(out, '"')
				pos++
			case '\\':
				out = append(out, '\\')
				pos++
			case '/':
				out = append(out, '/')
				pos++
			case 'n':
				out = append(out, '\n')
				pos++
			case 'r':
				out = append(out, '\r')
				pos++
			case 't':
				out = append(out, '\t')
				pos++
			case 'u':
				out = append(out, '�')
				pos++

				for range 4 {
					if pos < len(bytes) {
						pos++
					}
				}
			default:
				out = append(out, rune(bytes[pos]))
				pos++
			}

			continue
		}

		r, size := utf8.DecodeRune(bytes[pos:])
		if r == utf8.RuneError && size <= 1 {
			out = append(out, rune(ch))
			pos++

			continue
		}

		out = append(out, r)
		pos += size
	}

	return string(out), pos
}

// skipLiteral consumes a bare literal (number, true, false, null) and
// returns the position just past it.
func skipLiteral(bytes []byte, pos int) int {
	for pos < len(bytes) {
		switch bytes[pos] {
		case ',', '}', ']', ' ', '\t', '\r', '\n':
			return pos
		}

		pos++
	}

	return pos
}
