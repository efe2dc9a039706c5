package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobcolvin/json-ls/document"
	"github.com/jacobcolvin/json-ls/rpc"
)

func TestOpenExtractsSchemaURL(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, `{"$schema": "https://example.com/schema.json", "name": "hi"}`)

	url, ok := store.SchemaURL("file:///a.json")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/schema.json", url)
}

func TestOpenWithoutSchemaURL(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, `{"name": "hi"}`)

	url, ok := store.SchemaURL("file:///a.json")
	require.True(t, ok)
	assert.Empty(t, url)
}

func TestUpdateUnknownURIErrors(t *testing.T) {
	t.Parallel()

	store := document.NewStore()

	err := store.Update("file:///missing.json", 2, []rpc.TextDocumentContentChangeEvent{{Text: "{}"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestCloseUnknownURIErrors(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	assert.ErrorIs(t, store.Close("file:///missing.json"), document.ErrNotFound)
}

func TestUpdateFullReplace(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, `{"a": 1}`)

	err := store.Update("file:///a.json", 2, []rpc.TextDocumentContentChangeEvent{
		{Text: `{"b": 2}`},
	})
	require.NoError(t, err)

	text, ok := store.Text("file:///a.json")
	require.True(t, ok)
	assert.Equal(t, `{"b": 2}`, text)

	version, ok := store.Version("file:///a.json")
	require.True(t, ok)
	assert.Equal(t, int32(2), version)
}

func TestUpdateIncrementalSplice(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, "hello world")

	// Replace "world" (chars 6..11) with "there".
	err := store.Update("file:///a.json", 2, []rpc.TextDocumentContentChangeEvent{
		{
			Range: &rpc.Range{
				Start: rpc.Position{Line: 0, Character: 6},
				End:   rpc.Position{Line: 0, Character: 11},
			},
			Text: "there",
		},
	})
	require.NoError(t, err)

	text, ok := store.Text("file:///a.json")
	require.True(t, ok)
	assert.Equal(t, "hello there", text)
}

func TestUpdateIncrementalEquivalentToFullReplace(t *testing.T) {
	t.Parallel()

	full := document.NewStore()
	full.Open("file:///a.json", 1, "abc\ndef\nghi")
	require.NoError(t, full.Update("file:///a.json", 2, []rpc.TextDocumentContentChangeEvent{
		{Text: "abc\nXYZ\nghi"},
	}))

	incremental := document.NewStore()
	incremental.Open("file:///a.json", 1, "abc\ndef\nghi")
	require.NoError(t, incremental.Update("file:///a.json", 2, []rpc.TextDocumentContentChangeEvent{
		{
			Range: &rpc.Range{
				Start: rpc.Position{Line: 1, Character: 0},
				End:   rpc.Position{Line: 1, Character: 3},
			},
			Text: "XYZ",
		},
	}))

	fullText, _ := full.Text("file:///a.json")
	incrementalText, _ := incremental.Text("file:///a.json")
	assert.Equal(t, fullText, incrementalText)
}

func TestUpdateReExtractsSchemaURL(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, `{"a": 1}`)

	err := store.Update("file:///a.json", 2, []rpc.TextDocumentContentChangeEvent{
		{Text: `{"$schema": "https://example.com/s.json"}`},
	})
	require.NoError(t, err)

	url, ok := store.SchemaURL("file:///a.json")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/s.json", url)
}

func TestCloseRemovesDocument(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, "{}")

	require.NoError(t, store.Close("file:///a.json"))

	_, ok := store.Text("file:///a.json")
	assert.False(t, ok)
}

func TestLsPosToCharIdxASCII(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, "hello\nworld\n")

	// Splice at line 1, char 3 (after "wor") should land between 'r' and 'l'.
	err := store.Update("file:///a.json", 2, []rpc.TextDocumentContentChangeEvent{
		{
			Range: &rpc.Range{
				Start: rpc.Position{Line: 1, Character: 3},
				End:   rpc.Position{Line: 1, Character: 3},
			},
			Text: "X",
		},
	})
	require.NoError(t, err)

	text, _ := store.Text("file:///a.json")
	assert.Equal(t, "hello\nworXld\n", text)
}

func TestLsPosToCharIdxEmoji(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	store.Open("file:///a.json", 1, "a\U0001F600b\n")

	// Character 3 is right after the emoji (which takes 2 UTF-16 units).
	err := store.Update("file:///a.json", 2, []rpc.TextDocumentContentChangeEvent{
		{
			Range: &rpc.Range{
				Start: rpc.Position{Line: 0, Character: 3},
				End:   rpc.Position{Line: 0, Character: 3},
			},
			Text: "X",
		},
	})
	require.NoError(t, err)

	text, _ := store.Text("file:///a.json")
	assert.Equal(t, "a\U0001F600Xb\n", text)
}
