package diagnostics

import (
	"context"
	"sync"
	"time"

	"github.com/jacobcolvin/json-ls/document"
	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/schema"
)

// DebounceInterval is how long the Scheduler waits after the most recent
// edit to a document before validating it.
const DebounceInterval = 300 * time.Millisecond

// Publisher sends a document's diagnostics to the client, mirroring the
// textDocument/publishDiagnostics notification.
type Publisher interface {
	PublishDiagnostics(uri rpc.DocumentURI, diagnostics []rpc.Diagnostic)
}

// pendingRun identifies one Schedule call's in-flight validation. Go func
// values aren't comparable, so a run can't tell whether it still owns
// pending[uri] by comparing context.CancelFunc values; token gives it a
// comparable identity to check before cleaning up its map entry.
type pendingRun struct {
	cancel context.CancelFunc
	token  *struct{}
}

// Scheduler debounces validation requests per document URI: scheduling
// a document that already has a pending validation cancels the
// in-flight one and restarts the debounce window, so a burst of
// keystrokes produces a single validation pass.
type Scheduler struct {
	docs      *document.Store
	cache     *schema.Cache
	publisher Publisher

	mu      sync.Mutex
	pending map[rpc.DocumentURI]pendingRun
}

// NewScheduler creates a Scheduler that validates documents from docs
// against schemas resolved through cache, publishing results to pub.
func NewScheduler(docs *document.Store, cache *schema.Cache, pub Publisher) *Scheduler {
	return &Scheduler{
		docs:      docs,
		cache:     cache,
		publisher: pub,
		pending:   make(map[rpc.DocumentURI]pendingRun),
	}
}

// Schedule cancels any in-flight validation for uri and starts a new
// debounce window. When the window elapses without another Schedule
// call for the same uri, the document is validated and the result
// published.
func (s *Scheduler) Schedule(uri rpc.DocumentURI) {
	s.mu.Lock()

	if prev, ok := s.pending[uri]; ok {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := pendingRun{cancel: cancel, token: new(struct{})}
	s.pending[uri] = run

	s.mu.Unlock()

	go s.run(ctx, uri, run.token)
}

// Cancel aborts any pending validation for uri without scheduling a
// replacement, used when a document is closed.
func (s *Scheduler) Cancel(uri rpc.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[uri]; ok {
		prev.cancel()
		delete(s.pending, uri)
	}
}

func (s *Scheduler) run(ctx context.Context, uri rpc.DocumentURI, token *struct{}) {
	timer := time.NewTimer(DebounceInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	diags := Validate(ctx, uri, s.docs, s.cache)

	s.mu.Lock()
	// Only clean up if this run's entry hasn't already been superseded by
	// a later Schedule call that arrived while Validate was in flight —
	// a superseded run must never delete the newer run's bookkeeping.
	if cur, ok := s.pending[uri]; ok && cur.token == token {
		delete(s.pending, uri)
	}
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	s.publisher.PublishDiagnostics(uri, diags)
}
