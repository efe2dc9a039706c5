package diagnostics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobcolvin/json-ls/diagnostics"
	"github.com/jacobcolvin/json-ls/document"
	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/schema"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls []rpc.DocumentURI
}

func (p *recordingPublisher) PublishDiagnostics(uri rpc.DocumentURI, _ []rpc.Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, uri)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.calls)
}

func TestSchedulerDebouncesRapidEdits(t *testing.T) {
	t.Parallel()

	docs := document.NewStore()
	docs.Open("file:///a.json", 1, `{"a": 1}`)

	cache := schema.NewCache(schema.NewLoader(), 0, 0)
	pub := &recordingPublisher{}
	sched := diagnostics.NewScheduler(docs, cache, pub)

	for range 5 {
		sched.Schedule("file:///a.json")
		time.Sleep(diagnostics.DebounceInterval / 4)
	}

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSchedulerCancelAbortsPendingValidation(t *testing.T) {
	t.Parallel()

	docs := document.NewStore()
	docs.Open("file:///a.json", 1, `{"a": 1}`)

	cache := schema.NewCache(schema.NewLoader(), 0, 0)
	pub := &recordingPublisher{}
	sched := diagnostics.NewScheduler(docs, cache, pub)

	sched.Schedule("file:///a.json")
	sched.Cancel("file:///a.json")

	time.Sleep(2 * diagnostics.DebounceInterval)
	assert.Equal(t, 0, pub.count())
}

func TestSchedulerIndependentURIs(t *testing.T) {
	t.Parallel()

	docs := document.NewStore()
	docs.Open("file:///a.json", 1, `{"a": 1}`)
	docs.Open("file:///b.json", 1, `{"b": 1}`)

	cache := schema.NewCache(schema.NewLoader(), 0, 0)
	pub := &recordingPublisher{}
	sched := diagnostics.NewScheduler(docs, cache, pub)

	sched.Schedule("file:///a.json")
	sched.Schedule("file:///b.json")

	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 10*time.Millisecond)
}
