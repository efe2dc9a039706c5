// Package schema walks a decoded JSON Schema document to answer two
// questions: which subschema describes the value at a given path, and what
// hover/completion metadata that subschema carries. It also owns the
// fetch-and-cache layer for schemas addressed by URL (see cache.go and
// loader.go).
package schema

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/jacobcolvin/json-ls/position"
)

// combinators are tried, in order, when direct segment dispatch fails.
var combinators = [...]string{"allOf", "anyOf", "oneOf"}

// Node is a reference into a schema document: the current subtree and the
// document root it was reached from, so that "$ref": "#/..." can always be
// resolved relative to the root.
type Node struct {
	Current any
	Root    any
}

// NewNode wraps a decoded schema subtree with its document root.
func NewNode(current, root any) *Node {
	return &Node{Current: current, Root: root}
}

// Navigate walks path from n, resolving $ref and combinators as needed, and
// returns the Node describing the value at that path. It terminates on
// cyclic $ref by tracking visited subtree identities.
func (n *Node) Navigate(path position.Path) (*Node, bool) {
	visited := map[uintptr]struct{}{}
	return navigate(n.Current, n.Root, path, visited)
}

func navigate(current, root any, path position.Path, visited map[uintptr]struct{}) (*Node, bool) {
	if id, ok := identity(current); ok {
		if _, seen := visited[id]; seen {
			return nil, false
		}

		visited[id] = struct{}{}
	}

	current = resolveRefOrSelf(current, root, visited)

	if len(path) == 0 {
		return &Node{Current: current, Root: root}, true
	}

	segment := path[0]
	rest := path[1:]

	if next, ok := navigateSegment(current, segment); ok {
		return navigate(next, root, rest, visited)
	}

	for _, key := range combinators {
		for _, sub := range subschemas(current, key) {
			if node, ok := navigate(sub, root, path, visited); ok {
				return node, true
			}
		}
	}

	return nil, false
}

func navigateSegment(current any, segment position.Segment) (any, bool) {
	obj, isObj := current.(map[string]any)
	if !isObj {
		return nil, false
	}

	switch segment.Kind {
	case position.SegmentKey:
		return navigateKey(obj, segment.Key)
	case position.SegmentIndex:
		return navigateIndex(obj, segment.Index)
	}

	return nil, false
}

func navigateKey(obj map[string]any, key string) (any, bool) {
	if props, ok := obj["properties"].(map[string]any); ok {
		if prop, ok := props[key]; ok {
			return prop, true
		}
	}

	if patternProps, ok := obj["patternProperties"].(map[string]any); ok {
		// Deterministic order so the same key always resolves to the same
		// pattern when more than one would match.
		patterns := make([]string, 0, len(patternProps))
		for p := range patternProps {
			patterns = append(patterns, p)
		}

		sort.Strings(patterns)

		for _, pattern := range patterns {
			if patternMatches(pattern, key) {
				return patternProps[pattern], true
			}
		}
	}

	if ap, ok := obj["additionalProperties"]; ok {
		if _, isObj := ap.(map[string]any); isObj {
			return ap, true
		}
	}

	return nil, false
}

func navigateIndex(obj map[string]any, idx int) (any, bool) {
	if items, ok := obj["items"]; ok {
		// An object subschema (which includes one carrying "$ref") applies
		// to every index uniformly.
		if itemsObj, isObj := items.(map[string]any); isObj {
			return itemsObj, true
		}

		if itemsArr, isArr := items.([]any); isArr {
			if idx >= 0 && idx < len(itemsArr) {
				return itemsArr[idx], true
			}
		}
	}

	if prefixItems, ok := obj["prefixItems"].([]any); ok {
		if idx >= 0 && idx < len(prefixItems) {
			return prefixItems[idx], true
		}
	}

	return nil, false
}

// patternMatches applies the narrow heuristic spec.md mandates in place of
// a real regex engine: a leading '^' means "key starts with the rest",
// otherwise the pattern must appear anywhere in the key.
func patternMatches(pattern, key string) bool {
	if strings.HasPrefix(pattern, "^") {
		return strings.HasPrefix(key, strings.TrimPrefix(pattern, "^"))
	}

	return strings.Contains(key, pattern)
}

func subschemas(current any, key string) []any {
	obj, ok := current.(map[string]any)
	if !ok {
		return nil
	}

	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}

	return arr
}

// resolveRefOrSelf resolves a "$ref": "#/..." on current if present,
// returning current unchanged otherwise. Non-local refs (any scheme other
// than a same-document fragment) are left unresolved.
func resolveRefOrSelf(current, root any, visited map[uintptr]struct{}) any {
	resolved, ok := resolveRef(current, root, visited)
	if !ok {
		return current
	}

	return resolved
}

func resolveRef(current, root any, visited map[uintptr]struct{}) (any, bool) {
	obj, ok := current.(map[string]any)
	if !ok {
		return nil, false
	}

	refVal, ok := obj["$ref"]
	if !ok {
		return nil, false
	}

	ref, ok := refVal.(string)
	if !ok || !strings.HasPrefix(ref, "#") {
		return nil, false
	}

	pointer := strings.TrimPrefix(ref, "#")

	if id, ok := identity(root); ok {
		if _, seen := visited[id]; seen {
			return nil, false
		}

		visited[id] = struct{}{}
	}

	return resolveJSONPointer(root, pointer)
}

// resolveJSONPointer applies an RFC 6901 JSON Pointer to v.
func resolveJSONPointer(v any, pointer string) (any, bool) {
	if pointer == "" {
		return v, true
	}

	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return v, true
	}

	for _, raw := range strings.Split(pointer, "/") {
		token := unescapeJSONPointerToken(raw)

		switch n := v.(type) {
		case map[string]any:
			next, ok := n[token]
			if !ok {
				return nil, false
			}

			v = next

		case []any:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil, false
			}

			v = n[idx]

		default:
			return nil, false
		}
	}

	return v, true
}

func unescapeJSONPointerToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")

	return tok
}

// identity returns a stable pointer-sized identity for map/slice-backed
// schema subtrees, used for cycle detection. Scalars return ok=false since
// they can never form a $ref cycle.
func identity(v any) (uintptr, bool) {
	switch v.(type) {
	case map[string]any, []any:
		rv := reflect.ValueOf(v)
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

// PropertyNames returns the union of keys reachable from n's properties and
// its allOf/anyOf/oneOf branches, sorted and deduplicated.
func (n *Node) PropertyNames() []string {
	resolved := n.resolved()

	set := map[string]struct{}{}
	collectPropertyNames(resolved, n.Root, set, map[uintptr]struct{}{})

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func collectPropertyNames(current, root any, set map[string]struct{}, visited map[uintptr]struct{}) {
	if id, ok := identity(current); ok {
		if _, seen := visited[id]; seen {
			return
		}

		visited[id] = struct{}{}
	}

	obj, ok := current.(map[string]any)
	if !ok {
		return
	}

	if props, ok := obj["properties"].(map[string]any); ok {
		for key := range props {
			set[key] = struct{}{}
		}
	}

	for _, key := range combinators {
		for _, sub := range subschemas(current, key) {
			resolved := resolveRefOrSelf(sub, root, visited)
			collectPropertyNames(resolved, root, set, visited)
		}
	}
}

// EnumValues renders each element of n's "enum" keyword, if present:
// strings are quoted, everything else uses its JSON text.
func (n *Node) EnumValues() []string {
	obj, ok := n.resolved().(map[string]any)
	if !ok {
		return nil
	}

	arr, ok := obj["enum"].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, renderJSONValue(v))
	}

	return out
}

// SchemaType returns the "type" field if it is a string.
func (n *Node) SchemaType() (string, bool) {
	obj, ok := n.resolved().(map[string]any)
	if !ok {
		return "", false
	}

	t, ok := obj["type"].(string)

	return t, ok
}

// HoverInfo extracts the bag of optional display fields from n's resolved
// schema.
func (n *Node) HoverInfo() HoverInfo {
	obj, ok := n.resolved().(map[string]any)
	if !ok {
		return HoverInfo{}
	}

	return extractHoverInfo(obj)
}

func (n *Node) resolved() any {
	resolved, ok := resolveRef(n.Current, n.Root, map[uintptr]struct{}{})
	if !ok {
		return n.Current
	}

	return resolved
}

func renderJSONValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(b)
}
