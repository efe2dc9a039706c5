package rpc_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/stringtest"
)

func frame(t *testing.T, body string) string {
	t.Helper()

	// A header line, a blank line, then the body — join with CRLF rather
	// than hand-splicing "\r\n\r\n" so the expected frame reads the same
	// way the wire format is spec'd: header, blank line, body.
	return stringtest.JoinCRLF(fmt.Sprintf("Content-Length: %d", len(body)), "", body)
}

func TestReadWriteMessageRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	raw := json.RawMessage(`{"foo":"bar"}`)
	err := rpc.WriteMessage(w, &rpc.Message{Version: rpc.Version{}, Method: "test", Params: &raw})
	require.NoError(t, err)

	msg, err := rpc.ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "test", msg.Method)
	assert.JSONEq(t, `{"foo":"bar"}`, string(*msg.Params))
}

func TestMuxDispatchesRequestAndWritesResponse(t *testing.T) {
	t.Parallel()

	reqBody := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{}}`

	in := bytes.NewBufferString(frame(t, reqBody))
	out := &bytes.Buffer{}

	mux := rpc.NewMux(in, out, nil)
	mux.HandleMethod("ping", func(_ context.Context, _ json.RawMessage) (any, error) {
		return map[string]string{"pong": "yes"}, nil
	})

	err := mux.Process(context.Background())
	require.NoError(t, err)

	resp, err := rpc.ReadMessage(bufio.NewReader(out))
	require.NoError(t, err)
	require.NotNil(t, resp.Result)
	assert.JSONEq(t, `{"pong":"yes"}`, string(*resp.Result))
}

func TestMuxUnknownMethodRespondsMethodNotFound(t *testing.T) {
	t.Parallel()

	reqBody := `{"jsonrpc":"2.0","id":1,"method":"mystery","params":{}}`
	in := bytes.NewBufferString(frame(t, reqBody))
	out := &bytes.Buffer{}

	mux := rpc.NewMux(in, out, nil)
	require.NoError(t, mux.Process(context.Background()))

	resp, err := rpc.ReadMessage(bufio.NewReader(out))
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.MethodNotFound, resp.Error.Code)
}

func TestMuxDispatchesNotification(t *testing.T) {
	t.Parallel()

	notifyBody := `{"jsonrpc":"2.0","method":"didThing","params":{"n":1}}`
	in := bytes.NewBufferString(frame(t, notifyBody))
	out := &bytes.Buffer{}

	done := make(chan struct{})

	mux := rpc.NewMux(in, out, nil)
	mux.HandleNotification("didThing", func(_ context.Context, params json.RawMessage) error {
		close(done)
		return nil
	})

	require.NoError(t, mux.Process(context.Background()))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notification handler never ran")
	}
}
