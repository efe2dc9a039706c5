package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"runtime"
	"strconv"
	"sync"
)

// ReadMessage reads one Content-Length-framed JSON-RPC message from r.
func ReadMessage(r *bufio.Reader) (*Message, error) {
	header, err := textproto.NewReader(r).ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("reading message header: %w", err)
	}

	contentLength, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("missing or invalid Content-Length header: %w", err)
	}

	var msg Message
	if err := json.NewDecoder(io.LimitReader(r, contentLength)).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decoding message body: %w", err)
	}

	return &msg, nil
}

// WriteMessage writes msg to w framed with a Content-Length header.
func WriteMessage(w *bufio.Writer, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}

	if _, err := w.Write(body); err != nil {
		return err
	}

	return w.Flush()
}

// MethodHandler handles a request and returns its result, marshaled to
// the response's Result field.
type MethodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// NotificationHandler handles a notification. Any error is logged but
// never sent back to the client, since notifications have no response.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Mux reads Content-Length-framed messages from a reader and dispatches
// them to registered handlers, running requests and notifications on a
// bounded pool of goroutines so one slow handler doesn't stall the
// others, while serializing writes back to the client.
type Mux struct {
	reader *bufio.Reader

	writer  *bufio.Writer
	writeMu sync.Mutex

	concurrency int

	handlersMu           sync.RWMutex
	methodHandlers       map[string]MethodHandler
	notificationHandlers map[string]NotificationHandler

	logger *slog.Logger
}

// DefaultConcurrency bounds how many in-flight requests/notifications
// Mux.Process runs concurrently.
const DefaultConcurrency = 4

// NewMux creates a Mux reading from r and writing responses/notifications
// to w.
func NewMux(r io.Reader, w io.Writer, logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.Default()
	}

	return &Mux{
		reader:               bufio.NewReader(r),
		writer:               bufio.NewWriter(w),
		concurrency:          DefaultConcurrency,
		methodHandlers:       make(map[string]MethodHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		logger:               logger,
	}
}

// HandleMethod registers h to handle requests for method.
func (m *Mux) HandleMethod(method string, h MethodHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.methodHandlers[method] = h
}

// HandleNotification registers h to handle notifications for method.
func (m *Mux) HandleNotification(method string, h NotificationHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	m.notificationHandlers[method] = h
}

// Notify sends a server-to-client notification.
func (m *Mux) Notify(method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}

	return m.write(&Message{Version: Version{}, Method: method, Params: raw})
}

func marshalParams(params any) (*json.RawMessage, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding notification params: %w", err)
	}

	raw := json.RawMessage(b)

	return &raw, nil
}

func (m *Mux) write(msg *Message) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	return WriteMessage(m.writer, msg)
}

// Process reads and dispatches messages until the reader is exhausted,
// ctx is cancelled, or a frame-level read error occurs. It returns nil
// on a clean EOF (the client closed stdin, signaling shutdown), after
// waiting for every in-flight handler to finish.
func (m *Mux) Process(ctx context.Context) error {
	sem := make(chan struct{}, m.concurrency)

	var wg sync.WaitGroup

	defer wg.Wait()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := ReadMessage(m.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(msg *Message) {
			defer wg.Done()
			defer func() { <-sem }()
			m.dispatch(ctx, msg)
		}(msg)
	}
}

// dispatch recovers from a handler panic so that one bad request or
// notification never takes the whole server down: a panicking request
// gets an InternalError response, a panicking notification just gets
// logged, and the stack trace goes to the logger either way.
func (m *Mux) dispatch(ctx context.Context, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]

			m.logger.Error("panic in handler", "method", msg.Method, "panic", r, "stack", string(buf))

			if msg.IsRequest() {
				m.respondError(msg.ID, InternalError, fmt.Sprintf("internal error: %v", r))
			}
		}
	}()

	if msg.IsNotification() {
		m.dispatchNotification(ctx, msg)
		return
	}

	if msg.IsRequest() {
		m.dispatchRequest(ctx, msg)
	}
}

func (m *Mux) dispatchNotification(ctx context.Context, msg *Message) {
	m.handlersMu.RLock()
	h, ok := m.notificationHandlers[msg.Method]
	m.handlersMu.RUnlock()

	if !ok {
		m.logger.Warn("no notification handler", "method", msg.Method)
		return
	}

	var params json.RawMessage
	if msg.Params != nil {
		params = *msg.Params
	}

	if err := h(ctx, params); err != nil {
		m.logger.Error("notification handler failed", "method", msg.Method, "error", err)
	}
}

func (m *Mux) dispatchRequest(ctx context.Context, msg *Message) {
	m.handlersMu.RLock()
	h, ok := m.methodHandlers[msg.Method]
	m.handlersMu.RUnlock()

	if !ok {
		m.respondError(msg.ID, MethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
		return
	}

	var params json.RawMessage
	if msg.Params != nil {
		params = *msg.Params
	}

	result, err := h(ctx, params)
	if err != nil {
		m.respondError(msg.ID, InternalError, err.Error())
		return
	}

	m.respondResult(msg.ID, result)
}

func (m *Mux) respondResult(id *ID, result any) {
	b, err := json.Marshal(result)
	if err != nil {
		m.respondError(id, InternalError, fmt.Sprintf("encoding result: %s", err))
		return
	}

	raw := json.RawMessage(b)

	if err := m.write(&Message{Version: Version{}, ID: id, Result: &raw}); err != nil {
		m.logger.Error("failed to write response", "error", err)
	}
}

func (m *Mux) respondError(id *ID, code ErrorCode, message string) {
	if err := m.write(&Message{Version: Version{}, ID: id, Error: &Error{Code: code, Message: message}}); err != nil {
		m.logger.Error("failed to write error response", "error", err)
	}
}
