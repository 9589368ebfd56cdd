package chat

import (
	"context"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Generation tracks one send operation from the POST to the end of its stream.
type Generation struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	state  State
	err    error
	stream EventStream
	closed bool
}

func newGeneration(parent context.Context) *Generation {
	// the stream outlives the caller's request scope; only Close ends it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Generation{ctx: ctx, cancel: cancel, done: make(chan struct{}), state: StateSending}
}

// Done is closed once the generation reached a terminal state or was superseded.
func (g *Generation) Done() <-chan struct{} {
	return g.done
}

func (g *Generation) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Generation) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *Generation) setState(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}

func (g *Generation) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	g.state = StateErrored
}

// attach binds the opened stream. It returns false, after closing the stream, when the
// generation was closed while the stream was connecting.
func (g *Generation) attach(stream EventStream) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		_ = stream.Close()
		return false
	}
	g.stream = stream
	return true
}

// closeStream closes the stream at most once and cancels any pending connect.
func (g *Generation) closeStream() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.cancel()
	if g.stream != nil {
		_ = g.stream.Close()
	}
}
